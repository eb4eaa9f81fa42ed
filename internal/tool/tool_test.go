package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(Echo{Cost: 2})

	tl, err := r.Lookup("echo")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if tl.Name() != "echo" {
		t.Fatalf("name %q", tl.Name())
	}

	_, err = r.Lookup("missing")
	if !errors.Is(err, domain.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestEchoReturnsInputAtFixedCost(t *testing.T) {
	e := Echo{Cost: 3}
	in := json.RawMessage(`{"text":"hi"}`)

	res, err := e.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(res.Output) != string(in) {
		t.Fatalf("output %s", res.Output)
	}
	if res.Credits != 3 {
		t.Fatalf("credits %d, want 3", res.Credits)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, in); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
