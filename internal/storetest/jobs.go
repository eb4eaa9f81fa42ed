package storetest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aagnone3/software-multi-tool-sub002/internal/sqlinline"
)

func (s *Store) exec(query string, args []any) (int64, error) {
	switch query {
	case sqlinline.QCompleteJob:
		return s.guardedUpdate(args[0].(uuid.UUID), func(r *JobRow) bool {
			if r.Status != "PROCESSING" {
				return false
			}
			now := s.now()
			r.Status = "COMPLETED"
			r.Output = append([]byte(nil), args[1].([]byte)...)
			r.CompletedAt = &now
			r.UpdatedAt = now
			return true
		}), nil
	case sqlinline.QFailJob:
		return s.guardedUpdate(args[0].(uuid.UUID), func(r *JobRow) bool {
			if r.Status != "PROCESSING" {
				return false
			}
			now := s.now()
			r.Status = "FAILED"
			r.ErrorMessage = args[1].(string)
			r.CompletedAt = &now
			r.UpdatedAt = now
			return true
		}), nil
	case sqlinline.QRequeueJob:
		return s.guardedUpdate(args[0].(uuid.UUID), func(r *JobRow) bool {
			if r.Status != "FAILED" || r.Attempts >= r.MaxAttempts {
				return false
			}
			r.Status = "PENDING"
			r.ProcessAfter = timePtrArg(args[1])
			r.StartedAt = nil
			r.CompletedAt = nil
			r.ErrorMessage = ""
			r.UpdatedAt = s.now()
			return true
		}), nil
	case sqlinline.QCancelJob:
		return s.guardedUpdate(args[0].(uuid.UUID), func(r *JobRow) bool {
			if r.Status != "PENDING" && r.Status != "PROCESSING" {
				return false
			}
			now := s.now()
			r.Status = "CANCELLED"
			r.CompletedAt = &now
			r.UpdatedAt = now
			return true
		}), nil
	case sqlinline.QReapStuckJobs:
		cutoff := time.Now().Add(-secondsArg(args[0]))
		var n int64
		for _, r := range s.Jobs {
			if r.Status == "PROCESSING" && r.StartedAt != nil && r.StartedAt.Before(cutoff) {
				now := s.now()
				r.Status = "FAILED"
				r.ErrorMessage = args[1].(string)
				r.CompletedAt = &now
				r.UpdatedAt = now
				n++
			}
		}
		return n, nil
	case sqlinline.QDeleteExpiredJobs:
		now := time.Now()
		var n int64
		for id, r := range s.Jobs {
			if terminal(r.Status) && r.ExpiresAt.Before(now) {
				delete(s.Jobs, id)
				n++
			}
		}
		return n, nil
	}
	return 0, fmt.Errorf("storetest: unexpected exec statement: %.40q", query)
}

func (s *Store) queryRowJobs(query string, args []any) ([]any, bool, error) {
	switch query {
	case sqlinline.QInsertJob:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		now := s.now()
		row := &JobRow{
			ID:          args[0].(uuid.UUID),
			ToolSlug:    args[1].(string),
			OwnerKind:   args[2].(string),
			OwnerID:     args[3].(uuid.UUID),
			Status:      "PENDING",
			Priority:    args[4].(int),
			Input:       append([]byte(nil), args[5].([]byte)...),
			MaxAttempts: args[6].(int),
			ExpiresAt:   args[7].(time.Time),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.Jobs[row.ID] = row
		return []any{row.ID, row.CreatedAt, row.UpdatedAt, row.ExpiresAt}, true, nil
	case sqlinline.QClaimNextJob:
		if err := s.takeWriteFailure(); err != nil {
			return nil, true, err
		}
		row := s.claimBest(strPtrArg(args[0]))
		if row == nil {
			return nil, true, pgx.ErrNoRows
		}
		return []any{
			row.ID, row.ToolSlug, row.OwnerKind, row.OwnerID, row.Priority,
			row.Input, row.Attempts, row.MaxAttempts, row.StartedAt,
			row.ExpiresAt, row.CreatedAt,
		}, true, nil
	case sqlinline.QSelectJobByID:
		row, ok := s.Jobs[args[0].(uuid.UUID)]
		if !ok {
			return nil, true, pgx.ErrNoRows
		}
		return jobVals(row), true, nil
	case sqlinline.QFindCachedJob:
		cutoff := time.Now().Add(-secondsArg(args[2]))
		var best *JobRow
		for _, r := range s.Jobs {
			if r.Status != "COMPLETED" || r.ToolSlug != args[0].(string) {
				continue
			}
			if r.CompletedAt == nil || r.CompletedAt.Before(cutoff) {
				continue
			}
			if !jsonEqual(r.Input, args[1].([]byte)) {
				continue
			}
			if best == nil || r.CompletedAt.After(*best.CompletedAt) {
				best = r
			}
		}
		if best == nil {
			return nil, true, pgx.ErrNoRows
		}
		return jobVals(best), true, nil
	case sqlinline.QJobStats:
		slug := strPtrArg(args[0])
		counts := map[string]int64{}
		for _, r := range s.Jobs {
			if slug != nil && r.ToolSlug != *slug {
				continue
			}
			counts[r.Status]++
		}
		return []any{
			counts["PENDING"], counts["PROCESSING"], counts["COMPLETED"],
			counts["FAILED"], counts["CANCELLED"],
		}, true, nil
	}
	return nil, false, nil
}

func (s *Store) query(query string, args []any) ([][]any, error) {
	switch query {
	case sqlinline.QFindStuckJobs:
		cutoff := time.Now().Add(-secondsArg(args[0]))
		var stuck []*JobRow
		for _, r := range s.Jobs {
			if r.Status == "PROCESSING" && r.StartedAt != nil && r.StartedAt.Before(cutoff) {
				stuck = append(stuck, r)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return stuck[i].StartedAt.Before(*stuck[j].StartedAt) })
		rows := make([][]any, len(stuck))
		for i, r := range stuck {
			rows[i] = jobVals(r)
		}
		return rows, nil
	case sqlinline.QListPurchases:
		return s.listPurchases(args)
	}
	return nil, fmt.Errorf("storetest: unexpected query statement: %.40q", query)
}

// claimBest pops the best pending row: priority desc, created_at asc, skipping
// delayed rows. Caller holds mu, which is this package's SKIP LOCKED.
func (s *Store) claimBest(slug *string) *JobRow {
	now := time.Now().Add(time.Second) // tolerate the seq skew of s.now()
	var best *JobRow
	for _, r := range s.Jobs {
		if r.Status != "PENDING" {
			continue
		}
		if slug != nil && r.ToolSlug != *slug {
			continue
		}
		if r.ProcessAfter != nil && r.ProcessAfter.After(now) {
			continue
		}
		if best == nil ||
			r.Priority > best.Priority ||
			(r.Priority == best.Priority && r.CreatedAt.Before(best.CreatedAt)) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	started := s.now()
	best.Status = "PROCESSING"
	best.StartedAt = &started
	best.Attempts++
	best.UpdatedAt = started
	return best
}

func (s *Store) guardedUpdate(id uuid.UUID, apply func(*JobRow) bool) int64 {
	row, ok := s.Jobs[id]
	if !ok || !apply(row) {
		return 0
	}
	return 1
}

func jobVals(r *JobRow) []any {
	var output any
	if r.Output != nil {
		output = r.Output
	}
	return []any{
		r.ID, r.ToolSlug, r.OwnerKind, r.OwnerID, r.Status, r.Priority,
		r.Input, output, r.ErrorMessage, r.Attempts, r.MaxAttempts,
		r.ProcessAfter, r.StartedAt, r.CompletedAt, r.ExpiresAt,
		r.CreatedAt, r.UpdatedAt,
	}
}

func terminal(status string) bool {
	return status == "COMPLETED" || status == "FAILED" || status == "CANCELLED"
}

func strPtrArg(a any) *string {
	if a == nil {
		return nil
	}
	return a.(*string)
}

func timePtrArg(a any) *time.Time {
	if a == nil {
		return nil
	}
	if t, ok := a.(*time.Time); ok {
		return t
	}
	v := a.(time.Time)
	return &v
}

func secondsArg(a any) time.Duration {
	return time.Duration(a.(float64) * float64(time.Second))
}
