package ingest

import (
	"regexp"
	"strings"

	"recovery-agent/internal/domain/entity"
)

const (
	DefaultWindowSize = 2000
	DefaultMaxWindows = 3

	minFallbackTermLen = 3
	matchesPerPattern  = 2
	regexMatchScore    = 0.7
	pageStartScore     = 0.3
	fallbackWrapper    = "window"
)

// WindowerConfig tunes the pattern-based fallback path.
type WindowerConfig struct {
	WindowSize int
	MaxWindows int
}

func DefaultWindowerConfig() WindowerConfig {
	return WindowerConfig{WindowSize: DefaultWindowSize, MaxWindows: DefaultMaxWindows}
}

type attrPattern struct {
	attribute string
	re        *regexp.Regexp
}

// FallbackWindows extracts plausible regions from unparsable markup by
// pattern search. Each search term of useful length is probed against
// platform attribute patterns; matches yield fixed-size windows centered on
// the hit. When nothing matches, a single low-confidence window covering
// the start of the snapshot is returned; an empty snapshot yields nothing.
func FallbackWindows(source string, platform entity.Platform, searchTerms []string, cfg WindowerConfig) []entity.Window {
	if len(source) == 0 {
		return nil
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.MaxWindows <= 0 {
		cfg.MaxWindows = DefaultMaxWindows
	}

	var windows []entity.Window
	for _, term := range searchTerms {
		if len(term) < minFallbackTermLen {
			continue
		}
		for _, pat := range termPatterns(platform, term) {
			matches := pat.re.FindAllStringIndex(source, matchesPerPattern)
			for _, loc := range matches {
				start := loc[0] - cfg.WindowSize/2
				if start < 0 {
					start = 0
				}
				end := loc[1] + cfg.WindowSize/2
				if end > len(source) {
					end = len(source)
				}

				windows = append(windows, entity.Window{
					Num:      len(windows) + 1,
					Match:    entity.MatchInfo{Type: entity.MatchTextSearch, Attribute: pat.attribute, Value: term},
					Score:    regexMatchScore,
					Fragment: MakeWellFormed(source[start:end]),
				})
				if len(windows) >= cfg.MaxWindows {
					return windows
				}
			}
		}
	}

	if len(windows) == 0 {
		size := cfg.WindowSize
		if size > len(source) {
			size = len(source)
		}
		windows = append(windows, entity.Window{
			Num:      1,
			Match:    entity.MatchInfo{Type: entity.MatchFallback, Attribute: "none", Value: "page_beginning"},
			Score:    pageStartScore,
			Fragment: MakeWellFormed(source[:size]),
		})
	}
	return windows
}

func termPatterns(platform entity.Platform, term string) []attrPattern {
	quoted := regexp.QuoteMeta(term)
	if platform == entity.PlatformIOS {
		return []attrPattern{
			{"name", regexp.MustCompile(`name="[^"]*` + quoted + `[^"]*"`)},
			{"label", regexp.MustCompile(`label="[^"]*` + quoted + `[^"]*"`)},
			{"value", regexp.MustCompile(`value="[^"]*` + quoted + `[^"]*"`)},
			{"type", regexp.MustCompile(`type="[^"]*Button[^"]*"`)},
		}
	}
	return []attrPattern{
		{"resource-id", regexp.MustCompile(`resource-id="[^"]*` + quoted + `[^"]*"`)},
		{"text", regexp.MustCompile(`text="[^"]*` + quoted + `[^"]*"`)},
		{"content-desc", regexp.MustCompile(`content-desc="[^"]*` + quoted + `[^"]*"`)},
		{"class", regexp.MustCompile(`class="[^"]*Button[^"]*"[^>]*text="[^"]*"`)},
		{"clickable", regexp.MustCompile(`clickable="true"`)},
	}
}

// MakeWellFormed trims a raw text region to its longest balanced prefix of
// complete elements and wraps it in a neutral root so the fragment parses
// standalone. Dangling openers at the cut point get synthetic closing tags.
func MakeWellFormed(fragment string) string {
	first := strings.Index(fragment, "<")
	if first == -1 {
		return "<" + fallbackWrapper + "></" + fallbackWrapper + ">"
	}
	fragment = fragment[first:]

	// an XML declaration is only legal at document start, not inside the
	// wrapper root; drop it from the region
	for strings.HasPrefix(fragment, "<?") {
		end := strings.Index(fragment, "?>")
		if end == -1 {
			return "<" + fallbackWrapper + "></" + fallbackWrapper + ">"
		}
		fragment = strings.TrimSpace(fragment[end+2:])
	}

	var stack []string
	balancedEnd := 0 // end of the balanced top-level prefix
	lastTagEnd := 0  // end of the last completely scanned tag

	i := 0
scan:
	for i < len(fragment) {
		lt := strings.IndexByte(fragment[i:], '<')
		if lt == -1 {
			break
		}
		start := i + lt
		gt := strings.IndexByte(fragment[start:], '>')
		if gt == -1 {
			break
		}
		end := start + gt + 1
		inner := fragment[start+1 : end-1]

		switch {
		case strings.HasPrefix(inner, "/"):
			fields := strings.Fields(inner[1:])
			// an unmatched or mismatched closer belongs to a parent opened
			// before the region; everything past it is outside context
			if len(stack) == 0 || len(fields) == 0 || stack[len(stack)-1] != fields[0] {
				break scan
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				balancedEnd = end
			}
		case strings.HasPrefix(inner, "?"), strings.HasPrefix(inner, "!"):
			if len(stack) == 0 {
				balancedEnd = end
			}
		case strings.HasSuffix(strings.TrimSpace(inner), "/"):
			if len(stack) == 0 {
				balancedEnd = end
			}
		default:
			if fields := strings.Fields(inner); len(fields) > 0 {
				stack = append(stack, fields[0])
			}
		}
		lastTagEnd = end
		i = end
	}

	switch {
	case len(stack) > 0 && lastTagEnd > 0:
		// cut at the last complete tag and close what is still open
		var sb strings.Builder
		sb.WriteString(fragment[:lastTagEnd])
		for j := len(stack) - 1; j >= 0; j-- {
			sb.WriteString("</" + stack[j] + ">")
		}
		fragment = sb.String()
	default:
		fragment = fragment[:balancedEnd]
	}

	return "<" + fallbackWrapper + ">" + fragment + "</" + fallbackWrapper + ">"
}
