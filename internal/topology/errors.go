package topology

import (
	"errors"
	"fmt"
	"strings"
)

// Input validation errors. Each is returned wrapped together with
// ErrInvalidInput so callers can match either.
var (
	ErrInvalidInput      = errors.New("invalid generation input")
	ErrNegativeNodeCount = errors.New("node count must be >= 0")
	ErrEdgeProbability   = errors.New("edge probability must be within [0, 1]")
	ErrChunkSize         = errors.New("chunk size must be >= 1")
)

// ErrCanceled is returned when a streaming generation stops at a chunk
// boundary because its context was canceled.
var ErrCanceled = errors.New("generation canceled")

// inputError joins ErrInvalidInput with the specific sentinel.
func inputError(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidInput, sentinel, fmt.Sprintf(format, args...))
}

// IsInvalidInput returns true if err was caused by invalid generation parameters.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Problem describes one structural defect found by Snapshot.Validate.
type Problem struct {
	Kind   string `json:"kind"` // "duplicate_id", "missing_source", "missing_target", "self_loop"
	NodeID string `json:"node_id,omitempty"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

// ValidationError lists the defects found in a snapshot.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	kinds := make([]string, 0, len(e.Problems))
	for i, p := range e.Problems {
		if i == 3 {
			kinds = append(kinds, fmt.Sprintf("and %d more", len(e.Problems)-i))
			break
		}
		switch {
		case p.NodeID != "":
			kinds = append(kinds, fmt.Sprintf("%s %s", p.Kind, p.NodeID))
		default:
			kinds = append(kinds, fmt.Sprintf("%s %s->%s", p.Kind, p.Source, p.Target))
		}
	}
	return fmt.Sprintf("invalid snapshot (%d problems): %s", len(e.Problems), strings.Join(kinds, ", "))
}
