package domain

import (
	"strings"
	"time"
)

// InteractionKind represents the type of a recorded interaction.
type InteractionKind string

const (
	InteractionLike           InteractionKind = "LIKE"
	InteractionSignalInterest InteractionKind = "SIGNAL_INTEREST"
	InteractionOther          InteractionKind = "OTHER"
)

// ParseInteractionKind maps a client-supplied type to a kind.
// An empty value means LIKE; unrecognised values map to OTHER.
func ParseInteractionKind(s string) InteractionKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(InteractionLike):
		return InteractionLike
	case string(InteractionSignalInterest):
		return InteractionSignalInterest
	default:
		return InteractionOther
	}
}

// Interaction is a directed interest edge from UserID to TargetID.
type Interaction struct {
	ID        string
	UserID    string
	TargetID  string
	Kind      InteractionKind
	CreatedAt time.Time
}
