package handlers

import "net/http"

// ReapStuck is the externally triggered sweep failing jobs stuck in
// PROCESSING past the configured timeout.
func (a *App) ReapStuck(w http.ResponseWriter, r *http.Request) {
	reaped, err := a.Queue.ReapStuck(r.Context(), a.StuckTimeout)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"reaped": reaped})
}

// CleanupExpired deletes terminal jobs past their retention horizon.
func (a *App) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.Queue.CleanupExpired(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": deleted})
}
