package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
	"github.com/aagnone3/software-multi-tool-sub002/internal/infra"
	"github.com/aagnone3/software-multi-tool-sub002/internal/ledger"
	"github.com/aagnone3/software-multi-tool-sub002/internal/queue"
)

// App bundles the services the ops API exposes.
type App struct {
	Queue        *queue.Queue
	Ledger       *ledger.Ledger
	Logger       infra.Logger
	StuckTimeout time.Duration
	CacheMaxAge  time.Duration
}

func NewApp(q *queue.Queue, l *ledger.Ledger, logger infra.Logger, cfg *infra.Config) *App {
	return &App{
		Queue:        q,
		Ledger:       l,
		Logger:       logger,
		StuckTimeout: cfg.StuckJobTimeout,
		CacheMaxAge:  cfg.CacheMaxAge,
	}
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps domain sentinels to HTTP status codes and writes the error body.
func (a *App) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrBalanceNotFound),
		errors.Is(err, domain.ErrNoJob):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRetryExhausted):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSubject):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg("handlers: internal error")
	}
	a.json(w, code, map[string]any{"error": err.Error()})
}

func (a *App) badRequest(w http.ResponseWriter, msg string) {
	a.json(w, http.StatusBadRequest, map[string]any{"error": msg})
}
