package tool

import (
	"context"
	"encoding/json"
)

// Echo is a loopback tool that returns its input unchanged at a fixed cost.
// It serves as the smoke-test tool for worker deployments and in tests.
type Echo struct {
	Cost int64
}

func (Echo) Name() string { return "echo" }

func (e Echo) Run(ctx context.Context, input json.RawMessage) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	out := append(json.RawMessage(nil), input...)
	if len(out) == 0 {
		out = json.RawMessage(`{}`)
	}
	return Result{Output: out, Credits: e.Cost}, nil
}
