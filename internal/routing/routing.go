// Package routing decides which logical partition of the remote store a
// request targets, identified by the (source id, profile index) pair, and
// blocks mutating calls when the two coordinates disagree. Derivation is
// pure; only the explicit Affirm operation ever persists routing state.
package routing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultToken is the placeholder source id a fresh install ships with.
const DefaultToken = "default"

// DefaultGenericPrefix names synthesized source ids (e.g. "assets_2").
const DefaultGenericPrefix = "assets"

var trailingIndexRe = regexp.MustCompile(`(?:^|[_-])p?(\d{1,2})$`)

// TrailingIndex extracts the profile index encoded at the end of a source
// id ("assets_2" -> 2, "foo-p7" -> 7). The second return is false when the
// id does not encode one. Indexes start at 1; a trailing 0 is not an index.
func TrailingIndex(sourceID string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(sourceID))
	if s == "" {
		return 0, false
	}
	m := trailingIndexRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Effective is the derived routing target. ProfileIndex 0 means unknown.
type Effective struct {
	SourceID     string
	ProfileIndex int
}

// DeriveEffective computes the partition a request should target.
//
// A source id carrying an explicit trailing index is an already-made choice
// and passes through unchanged. A generic placeholder id combined with a
// known profile index (under alignment) synthesizes "<prefix>_<index>".
// Everything else passes through. The function has no side effects: a read
// path must never rewrite what a later write targets.
func DeriveEffective(sourceID string, profileIndex int, alignmentEnabled bool, genericPrefix string) Effective {
	if genericPrefix == "" {
		genericPrefix = DefaultGenericPrefix
	}
	eff := Effective{SourceID: sourceID, ProfileIndex: profileIndex}

	if idx, ok := TrailingIndex(sourceID); ok {
		if alignmentEnabled {
			eff.ProfileIndex = idx
		}
		return eff
	}

	if alignmentEnabled && profileIndex >= 1 && isGenericPlaceholder(sourceID, genericPrefix) {
		eff.SourceID = genericPrefix + "_" + strconv.Itoa(profileIndex)
	}
	return eff
}

func isGenericPlaceholder(sourceID, genericPrefix string) bool {
	s := strings.TrimSpace(sourceID)
	return s == "" || s == DefaultToken || strings.EqualFold(s, genericPrefix)
}

// MismatchError reports a source id and profile index that point at
// different partitions. Writes carrying it must never reach the network.
type MismatchError struct {
	SourceID     string
	SourceIndex  int
	ProfileIndex int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("routing mismatch: profile index %d but source_id %q implies profile %d",
		e.ProfileIndex, e.SourceID, e.SourceIndex)
}

var mutatingMethods = map[string]struct{}{
	"PUT":    {},
	"POST":   {},
	"PATCH":  {},
	"DELETE": {},
}

// AssertSafeForWrite blocks a mutating call whose effective source id and
// profile index disagree. Fail-closed: ambiguity about the target partition
// stops the write rather than guessing. Reads and disabled guards pass.
func AssertSafeForWrite(method, effectiveSourceID string, effectiveProfileIndex int, guardEnabled bool) error {
	if !guardEnabled {
		return nil
	}
	if _, mutating := mutatingMethods[strings.ToUpper(method)]; !mutating {
		return nil
	}
	idx, ok := TrailingIndex(effectiveSourceID)
	if !ok || effectiveProfileIndex < 1 {
		return nil
	}
	if idx != effectiveProfileIndex {
		return &MismatchError{
			SourceID:     effectiveSourceID,
			SourceIndex:  idx,
			ProfileIndex: effectiveProfileIndex,
		}
	}
	return nil
}
