package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerLine = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var allStatements = map[string]string{
	"QInsertJob":         QInsertJob,
	"QSelectJobByID":     QSelectJobByID,
	"QClaimNextJob":      QClaimNextJob,
	"QCompleteJob":       QCompleteJob,
	"QFailJob":           QFailJob,
	"QRequeueJob":        QRequeueJob,
	"QCancelJob":         QCancelJob,
	"QJobStats":          QJobStats,
	"QFindCachedJob":     QFindCachedJob,
	"QFindStuckJobs":     QFindStuckJobs,
	"QReapStuckJobs":     QReapStuckJobs,
	"QDeleteExpiredJobs": QDeleteExpiredJobs,
	"QGrantBalance":      QGrantBalance,
	"QResetBalance":      QResetBalance,
	"QAdjustBalance":     QAdjustBalance,
	"QRecordPurchase":    QRecordPurchase,
	"QRecordUsage":       QRecordUsage,
	"QSelectBalance":     QSelectBalance,
	"QListPurchases":     QListPurchases,
}

func TestStatementsCarryUniqueMarkers(t *testing.T) {
	seen := make(map[string]string)
	for name, stmt := range allStatements {
		first := strings.SplitN(strings.TrimSpace(stmt), "\n", 2)[0]
		if !markerLine.MatchString(first) {
			t.Errorf("%s: missing or malformed marker line %q", name, first)
			continue
		}
		if prev, dup := seen[first]; dup {
			t.Errorf("%s: marker reused from %s", name, prev)
		}
		seen[first] = name
	}
}

func TestClaimStatementUsesSkipLocked(t *testing.T) {
	if !strings.Contains(QClaimNextJob, "for update skip locked") {
		t.Fatal("claim must skip rows locked by concurrent claimers")
	}
	if !strings.Contains(QClaimNextJob, "order by priority desc, created_at asc") {
		t.Fatal("claim must order by priority then submission time")
	}
}
