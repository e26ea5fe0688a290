package service

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"recovery-agent/internal/domain/entity"
)

// FailureHistory records stringified locators that already failed, so the
// engine never suggests the same dead end twice within an agent session.
// It is append-only for the lifetime of the owning engine instance and safe
// for concurrent recovery calls; the backing set serializes updates, and no
// caller holds it across an oracle round-trip.
type FailureHistory struct {
	set mapset.Set[string]
}

func NewFailureHistory() *FailureHistory {
	return &FailureHistory{set: mapset.NewSet[string]()}
}

func (h *FailureHistory) Add(l entity.Locator) {
	if l.IsEmpty() {
		return
	}
	h.set.Add(l.String())
}

// AddRaw records a caller-supplied stringified suggestion as-is.
func (h *FailureHistory) AddRaw(s string) {
	if s == "" {
		return
	}
	h.set.Add(s)
}

func (h *FailureHistory) Contains(l entity.Locator) bool {
	return h.set.Contains(l.String())
}

func (h *FailureHistory) Len() int {
	return h.set.Cardinality()
}

// Snapshot returns an immutable, sorted copy for prompt building. Each
// oracle attempt works from its own snapshot; the live set is only touched
// in brief add/contains transactions.
func (h *FailureHistory) Snapshot() []string {
	out := h.set.ToSlice()
	sort.Strings(out)
	return out
}
