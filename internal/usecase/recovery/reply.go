package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ysmood/gson"

	"recovery-agent/internal/domain/entity"
)

// ReplyKind tags what the oracle actually produced. Callers match
// exhaustively instead of probing the reply's shape at runtime.
type ReplyKind int

const (
	// ReplyLocator means a structured locator was recovered.
	ReplyLocator ReplyKind = iota
	// ReplyFreeText means the reply held prose with no usable locator.
	ReplyFreeText
	// ReplyEmpty means the oracle returned nothing workable at all.
	ReplyEmpty
)

type OracleReply struct {
	Kind    ReplyKind
	Locator entity.Locator
	Text    string
}

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ParseReply interprets raw oracle output. Structured JSON wins; failing
// that, labeled key:value pairs are extracted from the prose following the
// platform's locator priority order.
func ParseReply(platform entity.Platform, raw string) OracleReply {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return OracleReply{Kind: ReplyEmpty}
	}

	if fragment := extractJSONObject(trimmed); fragment != "" {
		if loc := locatorFromJSON(fragment); !loc.IsEmpty() {
			return OracleReply{Kind: ReplyLocator, Locator: loc}
		}
	}

	if loc := locatorFromText(platform, trimmed); !loc.IsEmpty() {
		return OracleReply{Kind: ReplyLocator, Locator: loc}
	}

	return OracleReply{Kind: ReplyFreeText, Text: trimmed}
}

// extractJSONObject finds the most plausible JSON object in free text:
// fenced ```json blocks first, then the outermost brace span, then the
// whole reply.
func extractJSONObject(text string) string {
	for _, m := range fencedJSONRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate := strings.TrimSpace(text[start : end+1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return text
	}
	return ""
}

func locatorFromJSON(fragment string) entity.Locator {
	loc := entity.Locator{}
	for key, value := range gson.NewFrom(fragment).Map() {
		if s, ok := value.Val().(string); ok && strings.TrimSpace(s) != "" {
			loc[key] = s
		}
	}
	return loc
}

// labeledPattern matches e.g. resource-id: "com.app:id/x" in prose.
func labeledPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(key) + `["']?\s*:\s*["']([^"']+)["']`)
}

var (
	androidLabeledKeys = []string{"resource-id", "content-desc", "ui-selector", "text", "xpath"}
	iosLabeledKeys     = []string{"name", "label", "value", "predicate", "class-chain", "text", "xpath"}
)

func locatorFromText(platform entity.Platform, text string) entity.Locator {
	keys := androidLabeledKeys
	if platform == entity.PlatformIOS {
		keys = iosLabeledKeys
	}

	found := entity.Locator{}
	for _, key := range keys {
		m := labeledPattern(key).FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// an id-like hit is authoritative on its own
		if key == platform.IDKey() {
			return entity.Locator{key: m[1]}
		}
		found[key] = m[1]
	}

	for _, key := range platform.LocatorPriority() {
		if v, ok := found[key]; ok {
			return entity.Locator{key: v}
		}
	}
	return entity.Locator{}
}
