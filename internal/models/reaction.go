package models

import "fmt"

// ReactionKind enumerates the pulse signals participants can send.
type ReactionKind string

const (
	ReactionUnderstood ReactionKind = "understood"
	ReactionRepeat     ReactionKind = "repeat"
	ReactionExcellent  ReactionKind = "excellent"
	ReactionImportant  ReactionKind = "important"
)

// ReactionKinds lists every accepted kind. Adding a kind here needs no schema change.
var ReactionKinds = []ReactionKind{ReactionUnderstood, ReactionRepeat, ReactionExcellent, ReactionImportant}

// ParseReactionKind validates s.
func ParseReactionKind(s string) (ReactionKind, error) {
	for _, k := range ReactionKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown reaction %q", ErrValidation, s)
}

// ReactionCounts maps each kind to its count. Every known kind is present.
type ReactionCounts map[ReactionKind]int64

// NewReactionCounts returns counts with every kind at zero.
func NewReactionCounts() ReactionCounts {
	c := make(ReactionCounts, len(ReactionKinds))
	for _, k := range ReactionKinds {
		c[k] = 0
	}
	return c
}
