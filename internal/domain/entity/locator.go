package entity

import (
	"sort"
	"strings"
)

// Locator is a minimal attribute-keyed description sufficient to
// re-identify a UI element, e.g. {"resource-id": "com.app:id/login"}.
type Locator map[string]string

func (l Locator) IsEmpty() bool {
	return len(l) == 0
}

func (l Locator) Clone() Locator {
	out := make(Locator, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// String renders the locator in a canonical key-sorted form. The failure
// history keys on this representation, so it must be stable across calls.
func (l Locator) String() string {
	if len(l) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(l[k])
	}
	sb.WriteString("}")
	return sb.String()
}
