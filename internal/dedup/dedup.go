package dedup

import "fmt"

// ListingID derives the canonical identifier for a listing. Identical
// (source, token) pairs always yield the identical id across runs.
func ListingID(source, token string) string {
	return fmt.Sprintf("%s_%s", source, token)
}

// TokenSet tracks the source tokens seen during one run, across all pages
// and category buckets. First occurrence wins: iteration order (pages
// ascending, then the configured bucket order, then item order within a
// bucket) is the tie-break, so the set only answers "seen before?".
//
// The set has a single owner (the orchestrator) and a single writer; the
// pipeline is strictly sequential, so no locking is involved.
type TokenSet struct {
	seen map[string]struct{}
}

func NewTokenSet() *TokenSet {
	return &TokenSet{seen: make(map[string]struct{})}
}

// Add returns true if the token was newly recorded, false if it was already
// present. Empty tokens are never recorded.
func (s *TokenSet) Add(token string) bool {
	if token == "" {
		return false
	}
	if _, exists := s.seen[token]; exists {
		return false
	}
	s.seen[token] = struct{}{}
	return true
}

// Contains reports whether the token has been seen this run.
func (s *TokenSet) Contains(token string) bool {
	_, exists := s.seen[token]
	return exists
}

// Size returns the number of distinct tokens recorded.
func (s *TokenSet) Size() int {
	return len(s.seen)
}
