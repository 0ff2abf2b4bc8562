package types

import "github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"

// Outcome classifies the result of an adoption request.
type Outcome int

const (
	OutcomeAdded Outcome = iota + 1
	OutcomeAlreadyAdded
	// OutcomeReadoptionOffered means the user previously released this pet and
	// must confirm before the request is forced through.
	OutcomeReadoptionOffered
	OutcomeBlocked
	OutcomeRetryable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeAlreadyAdded:
		return "already_added"
	case OutcomeReadoptionOffered:
		return "readoption_offered"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "unknown"
	}
}

// AdoptResult is returned by adoption requests. Message carries the reason for
// Blocked and the raw server text for Retryable.
type AdoptResult struct {
	PetID       int64
	UserID      int64
	Outcome     Outcome
	Message     string
	Association *domain.Association
}

// Completion reports the post-term adoption step. StatusErr is set when the
// Adopted status write failed; the hand-off still ran.
type Completion struct {
	PetID      int64
	StatusErr  error
	HandoffErr error
}
