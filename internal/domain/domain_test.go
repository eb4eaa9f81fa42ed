package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestSubjectValidate(t *testing.T) {
	if err := UserSubject(uuid.New()).Validate(); err != nil {
		t.Fatalf("user subject invalid: %v", err)
	}
	if err := OrgSubject(uuid.New()).Validate(); err != nil {
		t.Fatalf("org subject invalid: %v", err)
	}
	if err := (Subject{Kind: "team", ID: uuid.New()}).Validate(); err == nil {
		t.Fatal("unknown kind accepted")
	}
	if err := (Subject{Kind: SubjectUser}).Validate(); err == nil {
		t.Fatal("zero id accepted")
	}
}

func TestJobStatusTerminal(t *testing.T) {
	for status, want := range map[JobStatus]bool{
		JobStatusPending:    false,
		JobStatusProcessing: false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
		JobStatusCancelled:  true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestRetryEligible(t *testing.T) {
	job := Job{Status: JobStatusFailed, Attempts: 2, MaxAttempts: 3}
	if !job.RetryEligible() {
		t.Fatal("2/3 failed job should be retry eligible")
	}
	job.Attempts = 3
	if job.RetryEligible() {
		t.Fatal("3/3 failed job should not be retry eligible")
	}
	job = Job{Status: JobStatusProcessing, Attempts: 0, MaxAttempts: 3}
	if job.RetryEligible() {
		t.Fatal("non-failed job should not be retry eligible")
	}
}

func TestBalanceRemaining(t *testing.T) {
	b := CreditBalance{Included: 500, PurchasedCredits: 100, Used: 450}
	if got := b.Remaining(); got != 150 {
		t.Fatalf("Remaining() = %d, want 150", got)
	}
	b.Used = 700
	if got := b.Remaining(); got != 0 {
		t.Fatalf("Remaining() clamps at zero, got %d", got)
	}
}
