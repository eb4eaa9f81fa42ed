package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func grantBody(t *testing.T, subjectID uuid.UUID, included int64) map[string]any {
	t.Helper()
	return map[string]any{
		"subject":      map[string]any{"kind": "org", "id": subjectID.String()},
		"included":     included,
		"period_start": time.Now().Format(time.RFC3339),
		"period_end":   time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	}
}

func TestGrantAndBalanceEndpoints(t *testing.T) {
	app, _ := newTestApp()
	subjectID := uuid.New()

	rr := httptest.NewRecorder()
	app.GrantCredits(rr, httptest.NewRequest("POST", "/v1/credits/grant", postJSON(t, grantBody(t, subjectID, 500))))
	if rr.Code != 200 {
		t.Fatalf("grant status %d, body %s", rr.Code, rr.Body)
	}
	var granted balanceView
	if err := json.NewDecoder(rr.Body).Decode(&granted); err != nil {
		t.Fatalf("decode grant: %v", err)
	}
	if granted.Included != 500 || granted.Remaining != 500 {
		t.Fatalf("unexpected balance %+v", granted)
	}

	rr = httptest.NewRecorder()
	url := fmt.Sprintf("/v1/credits/balance?kind=org&id=%s", subjectID)
	app.Balance(rr, httptest.NewRequest("GET", url, nil))
	if rr.Code != 200 {
		t.Fatalf("balance status %d", rr.Code)
	}
}

func TestResetWithoutBalanceReturns404(t *testing.T) {
	app, _ := newTestApp()

	body := postJSON(t, map[string]any{
		"subject":      map[string]any{"kind": "user", "id": uuid.NewString()},
		"period_start": time.Now().Format(time.RFC3339),
		"period_end":   time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	rr := httptest.NewRecorder()
	app.ResetCredits(rr, httptest.NewRequest("POST", "/v1/credits/reset", body))

	if rr.Code != 404 {
		t.Fatalf("status %d, want 404", rr.Code)
	}
}

func TestAdjustEndpointReturnsNewIncluded(t *testing.T) {
	app, _ := newTestApp()
	subjectID := uuid.New()

	rr := httptest.NewRecorder()
	app.GrantCredits(rr, httptest.NewRequest("POST", "/v1/credits/grant", postJSON(t, grantBody(t, subjectID, 500))))
	if rr.Code != 200 {
		t.Fatalf("grant status %d", rr.Code)
	}

	body := postJSON(t, map[string]any{
		"subject":      map[string]any{"kind": "org", "id": subjectID.String()},
		"new_included": 1000,
		"description":  "upgrade to pro",
	})
	rr = httptest.NewRecorder()
	app.AdjustCredits(rr, httptest.NewRequest("POST", "/v1/credits/adjust", body))
	if rr.Code != 200 {
		t.Fatalf("adjust status %d, body %s", rr.Code, rr.Body)
	}
	var adjusted balanceView
	if err := json.NewDecoder(rr.Body).Decode(&adjusted); err != nil {
		t.Fatalf("decode adjust: %v", err)
	}
	if adjusted.Included != 1000 {
		t.Fatalf("included %d, want 1000", adjusted.Included)
	}
}

func TestPurchaseFlowEndpoints(t *testing.T) {
	app, store := newTestApp()
	subjectID := uuid.New()

	rr := httptest.NewRecorder()
	app.GrantCredits(rr, httptest.NewRequest("POST", "/v1/credits/grant", postJSON(t, grantBody(t, subjectID, 100))))
	if rr.Code != 200 {
		t.Fatalf("grant status %d", rr.Code)
	}

	body := postJSON(t, map[string]any{
		"subject":     map[string]any{"kind": "org", "id": subjectID.String()},
		"credits":     250,
		"description": "credit pack M",
	})
	rr = httptest.NewRecorder()
	app.RecordPurchase(rr, httptest.NewRequest("POST", "/v1/credits/purchase", body))
	if rr.Code != 200 {
		t.Fatalf("purchase status %d, body %s", rr.Code, rr.Body)
	}
	if got := len(store.TransactionsOfType("PURCHASE")); got != 1 {
		t.Fatalf("PURCHASE transactions %d, want 1", got)
	}

	rr = httptest.NewRecorder()
	url := fmt.Sprintf("/v1/credits/purchases?kind=org&id=%s", subjectID)
	app.Purchases(rr, httptest.NewRequest("GET", url, nil))
	if rr.Code != 200 {
		t.Fatalf("purchases status %d", rr.Code)
	}
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode purchases: %v", err)
	}
	if len(payload.Items) != 1 {
		t.Fatalf("items %d, want 1", len(payload.Items))
	}
}
