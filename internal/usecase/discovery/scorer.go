package discovery

import (
	"sort"
	"strings"

	"recovery-agent/internal/domain/entity"
	"recovery-agent/internal/usecase/terms"
)

const (
	keyAttributeWeight   = 0.4
	otherAttributeWeight = 0.1
	typeMatchBonus       = 0.3
	minCandidateScore    = 0.3
)

// Score rates one node's relevance to the failed identifier, 0.0–1.0.
// Attribute term matches, element-type agreement and interactivity each
// contribute; the total is clamped to 1.0.
func Score(arena *entity.NodeArena, id entity.NodeID, platform entity.Platform, identifier string, searchTerms []string) float64 {
	n := arena.Node(id)
	score := 0.0

	keyAttrs := make(map[string]bool)
	for _, a := range platform.KeyAttributes() {
		keyAttrs[a] = true
	}

	for _, attr := range n.Attrs {
		best := bestTermScore(attr.Value, searchTerms)
		if keyAttrs[attr.Name] {
			score += best * keyAttributeWeight
		} else {
			score += best * otherAttributeWeight
		}
	}

	typeHint := terms.TypeHint(identifier)
	if typeHint != "" && nodeMatchesHint(n, platform, typeHint) {
		score += typeMatchBonus
	}

	clickable := interactivityScore(n, platform)
	// full weight only when the query itself suggests a tap target
	if strings.Contains(strings.ToLower(identifier), "button") || typeHint == "button" {
		score += clickable
	} else {
		score += clickable * 0.4
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func bestTermScore(value string, searchTerms []string) float64 {
	if value == "" {
		return 0
	}
	lower := strings.ToLower(value)
	best := 0.0
	for _, term := range searchTerms {
		termLower := strings.ToLower(term)
		var s float64
		switch {
		case termLower == lower:
			s = 1.0
		case strings.Contains(lower, termLower):
			s = 0.8
		default:
			s = terms.TokenSimilarity(term, value) * 0.7
		}
		if s > best {
			best = s
		}
	}
	return best
}

func nodeMatchesHint(n *entity.TreeNode, platform entity.Platform, hint string) bool {
	if strings.Contains(strings.ToLower(n.Tag), hint) {
		return true
	}
	return strings.Contains(strings.ToLower(n.Attr(platform.TypeAttribute())), hint)
}

// interactivityScore applies the platform tap-target heuristics. Within a
// signal family the strongest sub-signal wins (max, not sum); the iOS
// enabled bonus stacks on top, matching observed fixture behavior.
func interactivityScore(n *entity.TreeNode, platform entity.Platform) float64 {
	if platform == entity.PlatformIOS {
		s := 0.0
		if strings.Contains(strings.ToLower(n.Tag), "button") {
			s = 0.5
		}
		switch strings.ToLower(n.Attr("type")) {
		case "xcuielementtypebutton", "xcuielementtypecell":
			if s < 0.5 {
				s = 0.5
			}
		}
		if n.Attr("enabled") == "true" {
			s += 0.2
		}
		return s
	}

	s := 0.0
	if n.Attr("clickable") == "true" {
		s = 0.5
	}
	if strings.Contains(strings.ToLower(n.Tag), "button") && s < 0.5 {
		s = 0.5
	}
	class := strings.ToLower(n.Attr("class"))
	if (strings.Contains(class, "button") || strings.Contains(class, "btn")) && s < 0.4 {
		s = 0.4
	}
	if (n.Attr("long-clickable") == "true" || n.Attr("checkable") == "true") && s < 0.3 {
		s = 0.3
	}
	return s
}

// Rank scores the discovered nodes, drops weak matches, deduplicates by
// signature keeping the highest-scoring occurrence, and returns the top
// maxCandidates ordered by descending score.
func Rank(arena *entity.NodeArena, ids []entity.NodeID, platform entity.Platform, identifier string, searchTerms []string, maxCandidates int) []entity.Candidate {
	scored := make([]entity.Candidate, 0, len(ids))
	for _, id := range ids {
		scored = append(scored, entity.Candidate{
			Node:  id,
			Score: Score(arena, id, platform, identifier, searchTerms),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	seen := make(map[string]struct{})
	top := make([]entity.Candidate, 0, maxCandidates)
	for _, c := range scored {
		if c.Score <= minCandidateScore {
			continue
		}
		sig := arena.Signature(c.Node)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		top = append(top, c)
		if len(top) >= maxCandidates {
			break
		}
	}
	return top
}
