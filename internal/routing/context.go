package routing

import (
	"fmt"
	"strconv"
)

// Context is the persisted routing configuration. It is loaded once at
// startup and replaced only through Affirm.
type Context struct {
	SourceID         string
	ProfileIndex     int
	AlignmentEnabled bool
	GuardEnabled     bool
	GenericPrefix    string
}

// Effective derives the partition this context targets.
func (c Context) Effective() Effective {
	return DeriveEffective(c.SourceID, c.ProfileIndex, c.AlignmentEnabled, c.GenericPrefix)
}

// Mismatch reports whether the configured coordinates disagree: the source
// id encodes one profile index while the configured index is another.
func (c Context) Mismatch() bool {
	idx, ok := TrailingIndex(c.Effective().SourceID)
	return ok && c.ProfileIndex >= 1 && idx != c.ProfileIndex
}

// Store persists routing state and resolves the per-profile source-id cache.
type Store interface {
	// SourceIDForProfile returns the cached canonical source id for a
	// profile index, with ok=false when no cache entry exists.
	SourceIDForProfile(profileIndex int) (id string, ok bool, err error)
	// SaveContext persists the affirmed coordinates.
	SaveContext(sourceID string, profileIndex int, alignment, guard bool) error
}

// Affirm is the one sanctioned way to change routing state: given a profile
// index, resolve its canonical source id from the cache (falling back to
// the synthesized "<prefix>_<index>"), persist both coordinates, and force
// alignment and the write guard on. It is always caller-triggered, never
// a side effect of a read.
func Affirm(profileIndex int, genericPrefix string, store Store) (Context, error) {
	if profileIndex < 1 {
		return Context{}, fmt.Errorf("routing: affirm: profile index must be >= 1, got %d", profileIndex)
	}
	if genericPrefix == "" {
		genericPrefix = DefaultGenericPrefix
	}

	sourceID, ok, err := store.SourceIDForProfile(profileIndex)
	if err != nil {
		return Context{}, fmt.Errorf("routing: affirm: lookup source id: %w", err)
	}
	if !ok || sourceID == "" {
		sourceID = genericPrefix + "_" + strconv.Itoa(profileIndex)
	}

	ctx := Context{
		SourceID:         sourceID,
		ProfileIndex:     profileIndex,
		AlignmentEnabled: true,
		GuardEnabled:     true,
		GenericPrefix:    genericPrefix,
	}
	if err := store.SaveContext(ctx.SourceID, ctx.ProfileIndex, true, true); err != nil {
		return Context{}, fmt.Errorf("routing: affirm: persist: %w", err)
	}
	return ctx, nil
}
