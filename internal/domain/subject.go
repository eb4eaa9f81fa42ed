package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SubjectKind discriminates who owns a credit balance or a job.
type SubjectKind string

const (
	SubjectUser         SubjectKind = "user"
	SubjectOrganization SubjectKind = "org"
)

// Subject is a tagged identifier for a user or an organization. Exactly one
// kind applies at a time, which keeps the "user or org, never both" rule
// structural instead of a pair of nullable foreign keys.
type Subject struct {
	Kind SubjectKind
	ID   uuid.UUID
}

// UserSubject builds a user-owned subject.
func UserSubject(id uuid.UUID) Subject {
	return Subject{Kind: SubjectUser, ID: id}
}

// OrgSubject builds an organization-owned subject.
func OrgSubject(id uuid.UUID) Subject {
	return Subject{Kind: SubjectOrganization, ID: id}
}

// Validate rejects zero identifiers and unknown kinds.
func (s Subject) Validate() error {
	switch s.Kind {
	case SubjectUser, SubjectOrganization:
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidSubject, s.Kind)
	}
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: zero id", ErrInvalidSubject)
	}
	return nil
}

func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID.String()
}
