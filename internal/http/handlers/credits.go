package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aagnone3/software-multi-tool-sub002/internal/domain"
)

type balanceView struct {
	ID               uuid.UUID      `json:"id"`
	Subject          subjectPayload `json:"subject"`
	Included         int64          `json:"included"`
	Used             int64          `json:"used"`
	Overage          int64          `json:"overage"`
	PurchasedCredits int64          `json:"purchased_credits"`
	Remaining        int64          `json:"remaining"`
	PeriodStart      time.Time      `json:"period_start"`
	PeriodEnd        time.Time      `json:"period_end"`
}

func viewBalance(b *domain.CreditBalance) balanceView {
	return balanceView{
		ID:               b.ID,
		Subject:          subjectPayload{Kind: string(b.Subject.Kind), ID: b.Subject.ID},
		Included:         b.Included,
		Used:             b.Used,
		Overage:          b.Overage,
		PurchasedCredits: b.PurchasedCredits,
		Remaining:        b.Remaining(),
		PeriodStart:      b.PeriodStart,
		PeriodEnd:        b.PeriodEnd,
	}
}

type grantReq struct {
	Subject     subjectPayload `json:"subject"`
	Included    int64          `json:"included"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
}

func (a *App) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req grantReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	balance, err := a.Ledger.Grant(r.Context(), req.Subject.subject(), req.Included, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, viewBalance(balance))
}

type resetReq struct {
	Subject     subjectPayload `json:"subject"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
}

func (a *App) ResetCredits(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	balance, err := a.Ledger.ResetForNewPeriod(r.Context(), req.Subject.subject(), req.PeriodStart, req.PeriodEnd)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, viewBalance(balance))
}

type adjustReq struct {
	Subject     subjectPayload `json:"subject"`
	NewIncluded int64          `json:"new_included"`
	Description string         `json:"description"`
}

func (a *App) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	balance, err := a.Ledger.AdjustForPlanChange(r.Context(), req.Subject.subject(), req.NewIncluded, req.Description)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, viewBalance(balance))
}

type purchaseReq struct {
	Subject     subjectPayload `json:"subject"`
	Credits     int64          `json:"credits"`
	Description string         `json:"description"`
}

func (a *App) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, "invalid json body")
		return
	}
	if err := a.Ledger.RecordPurchase(r.Context(), req.Subject.subject(), req.Credits, req.Description); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"status": "recorded"})
}

// subjectFromQuery parses ?kind=user&id=<uuid> for the read endpoints.
func subjectFromQuery(r *http.Request) (domain.Subject, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		return domain.Subject{}, false
	}
	return domain.Subject{Kind: domain.SubjectKind(r.URL.Query().Get("kind")), ID: id}, true
}

func (a *App) Balance(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFromQuery(r)
	if !ok {
		a.badRequest(w, "invalid subject id")
		return
	}
	balance, err := a.Ledger.BalanceFor(r.Context(), subject)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, viewBalance(balance))
}

func (a *App) Purchases(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFromQuery(r)
	if !ok {
		a.badRequest(w, "invalid subject id")
		return
	}
	txs, err := a.Ledger.PurchasesFor(r.Context(), subject)
	if err != nil {
		a.fail(w, err)
		return
	}
	items := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		items = append(items, map[string]any{
			"id":          tx.ID,
			"amount":      tx.Amount,
			"type":        tx.Type,
			"description": tx.Description,
			"created_at":  tx.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
