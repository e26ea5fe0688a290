package entity

type MatchType string

const (
	MatchAttribute   MatchType = "attribute_match"
	MatchElementType MatchType = "element_type"
	MatchTextSearch  MatchType = "text-search"
	MatchFallback    MatchType = "fallback"
	MatchUnknown     MatchType = "unknown"
)

// MatchInfo records how a candidate matched the search terms.
type MatchInfo struct {
	Type      MatchType
	Attribute string
	Value     string
}

// Candidate pairs a discovered node with its relevance score. Match metadata
// is derived later, when the candidate is turned into a window.
type Candidate struct {
	Node  NodeID
	Score float64
}
