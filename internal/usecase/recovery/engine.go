// Package recovery implements the locator recovery pipeline: term
// extraction, snapshot ingestion, candidate discovery, window synthesis,
// oracle consultation and sanitization, in that order, with each stage
// degrading gracefully into the next.
package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recovery-agent/internal/application/port/input"
	"recovery-agent/internal/application/port/output"
	"recovery-agent/internal/application/service"
	"recovery-agent/internal/domain/entity"
	"recovery-agent/internal/usecase/discovery"
	"recovery-agent/internal/usecase/ingest"
	"recovery-agent/internal/usecase/sanitize"
	"recovery-agent/internal/usecase/terms"
	"recovery-agent/internal/usecase/windowsynth"
)

const (
	// DefaultSnapshotLimit caps the characters of raw markup sent on the
	// full-page fallback path.
	DefaultSnapshotLimit = 12000
	// DefaultSimilarityThreshold gates the screen-definition pre-pass.
	DefaultSimilarityThreshold = 0.6

	truncationMarker = "... (truncated)"

	settleTimeout       = 2 * time.Second
	settleIdleThreshold = 500 * time.Millisecond
)

type Config struct {
	Platform            entity.Platform
	MaxWindows          int
	WindowSize          int
	SnapshotLimit       int
	SimilarityThreshold float64
	Temperature         float32
}

func DefaultConfig() Config {
	return Config{
		Platform:            entity.PlatformAndroid,
		MaxWindows:          ingest.DefaultMaxWindows,
		WindowSize:          ingest.DefaultWindowSize,
		SnapshotLimit:       DefaultSnapshotLimit,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Temperature:         0.2,
	}
}

// Engine drives one recovery pass per Recover call. It is safe for
// concurrent use; the failure history is the only shared mutable state.
type Engine struct {
	cfg     Config
	oracle  output.OraclePort
	logger  output.LoggerPort
	monitor output.MonitorPort
	history *service.FailureHistory
	screens *service.ScreenRegistry
}

var _ input.ElementRecoverer = (*Engine)(nil)

// NewEngine wires the engine. monitor and screens may be nil; the
// corresponding stages are then skipped.
func NewEngine(cfg Config, oracle output.OraclePort, logger output.LoggerPort, monitor output.MonitorPort, screens *service.ScreenRegistry) *Engine {
	if cfg.MaxWindows <= 0 {
		cfg.MaxWindows = ingest.DefaultMaxWindows
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = ingest.DefaultWindowSize
	}
	if cfg.SnapshotLimit <= 0 {
		cfg.SnapshotLimit = DefaultSnapshotLimit
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Engine{
		cfg:     cfg,
		oracle:  oracle,
		logger:  logger,
		monitor: monitor,
		history: service.NewFailureHistory(),
		screens: screens,
	}
}

// History exposes the failure history, mainly for orchestrating callers
// that want to seed or inspect it.
func (e *Engine) History() *service.FailureHistory {
	return e.history
}

// Recover finds the best replacement locator for a failed element
// identifier. An empty locator with a nil error means recovery ran but
// produced nothing usable; only invalid input is surfaced as an error.
func (e *Engine) Recover(ctx context.Context, req entity.RecoveryRequest) (entity.Locator, error) {
	if strings.TrimSpace(req.MissingElement) == "" {
		return nil, entity.ErrNoElement
	}
	if req.PageSource == "" {
		return nil, entity.ErrNoSnapshot
	}

	platform := e.cfg.Platform
	if p, err := entity.ParsePlatform(req.Platform); err == nil {
		platform = p
	}

	log := e.logger.WithFields(map[string]any{
		"recovery_id": uuid.NewString(),
		"platform":    string(platform),
	})
	started := time.Now()
	log.Info("recovery started",
		"element", req.MissingElement,
		"retry_count", req.RetryCount,
		"source_len", len(req.PageSource))

	for _, s := range req.FailedSuggestions {
		e.history.AddRaw(stringifySuggestion(s))
	}
	if req.RetryCount > 0 {
		// the identifier itself already failed at least once
		e.history.AddRaw(req.MissingElement)
	}

	if e.monitor != nil {
		e.monitor.WaitForIdle(ctx, settleTimeout, settleIdleThreshold)
	}

	searchTerms := terms.Extract(req.MissingElement)
	log.Debug("search terms extracted", "terms", searchTerms)

	if loc := e.findFromScreens(req, platform); !loc.IsEmpty() {
		e.history.Add(loc)
		log.Info("recovered from screen definitions",
			"locator", loc.String(), "elapsed", time.Since(started))
		return loc, nil
	}

	windows := e.buildWindows(req.PageSource, platform, req.MissingElement, searchTerms, log)

	if len(windows) > 0 {
		loc, repeated, err := e.consultWindowed(ctx, platform, req, windows, false, log)
		if err != nil {
			return nil, err
		}
		if repeated {
			log.Warn("oracle repeated a failed locator, retrying with avoid list",
				"locator", loc.String())
			loc, repeated, err = e.consultWindowed(ctx, platform, req, windows, true, log)
			if err != nil {
				return nil, err
			}
			if repeated {
				log.Warn("oracle repeated a failed locator again, giving up",
					"locator", loc.String())
				return entity.Locator{}, nil
			}
		}
		if !loc.IsEmpty() {
			e.history.Add(loc)
			log.Info("recovered from windowed search",
				"locator", loc.String(), "elapsed", time.Since(started))
			return loc, nil
		}
	}

	loc, err := e.consultFullPage(ctx, platform, req, log)
	if err != nil {
		return nil, err
	}
	if !loc.IsEmpty() {
		e.history.Add(loc)
		log.Info("recovered from full-page search",
			"locator", loc.String(), "elapsed", time.Since(started))
		return loc, nil
	}

	log.Warn("recovery produced no locator", "elapsed", time.Since(started))
	return entity.Locator{}, nil
}

// buildWindows prefers the parsed-tree path and falls back to pattern
// windowing when the snapshot does not survive cleaning and parsing, or
// when the tree yields no candidates.
func (e *Engine) buildWindows(source string, platform entity.Platform, identifier string, searchTerms []string, log output.LoggerPort) []entity.Window {
	wcfg := ingest.WindowerConfig{WindowSize: e.cfg.WindowSize, MaxWindows: e.cfg.MaxWindows}

	arena, err := ingest.Parse(ingest.Clean(source))
	if err != nil {
		log.Warn("snapshot did not parse, using pattern windowing", "error", err.Error())
		return ingest.FallbackWindows(source, platform, searchTerms, wcfg)
	}

	hint := terms.TypeHint(identifier)
	ids := discovery.Discover(arena, platform, searchTerms, hint)
	candidates := discovery.Rank(arena, ids, platform, identifier, searchTerms, e.cfg.MaxWindows)
	windows := windowsynth.Synthesize(arena, candidates, platform, searchTerms)
	if len(windows) == 0 {
		log.Debug("tree search found no candidates, using pattern windowing")
		return ingest.FallbackWindows(source, platform, searchTerms, wcfg)
	}
	log.Debug("windows synthesized", "count", len(windows))
	return windows
}

// consultWindowed runs one oracle round over the windows. repeated is true
// when the oracle suggested a locator already known to have failed.
func (e *Engine) consultWindowed(ctx context.Context, platform entity.Platform, req entity.RecoveryRequest, windows []entity.Window, avoidPrevious bool, log output.LoggerPort) (entity.Locator, bool, error) {
	failed := e.history.Snapshot()
	prompt, err := buildWindowedPrompt(platform, req, windows, failed, avoidPrevious)
	if err != nil {
		log.Error("prompt rendering failed", "error", err.Error())
		return entity.Locator{}, false, nil
	}
	return e.consult(ctx, platform, prompt, log)
}

func (e *Engine) consultFullPage(ctx context.Context, platform entity.Platform, req entity.RecoveryRequest, log output.LoggerPort) (entity.Locator, error) {
	source := req.PageSource
	if len(source) > e.cfg.SnapshotLimit {
		source = source[:e.cfg.SnapshotLimit] + truncationMarker
	}
	prompt, err := buildFullPagePrompt(platform, req, source, e.history.Snapshot())
	if err != nil {
		log.Error("prompt rendering failed", "error", err.Error())
		return entity.Locator{}, nil
	}
	loc, _, cerr := e.consult(ctx, platform, prompt, log)
	return loc, cerr
}

// consult performs the oracle round-trip and post-processes the reply. The
// oracle is never fatal: transport and parse failures degrade to an empty
// locator. Context cancellation is the exception; it aborts the pass before
// any history write, so a cancelled call leaves the history untouched.
func (e *Engine) consult(ctx context.Context, platform entity.Platform, prompt string, log output.LoggerPort) (entity.Locator, bool, error) {
	resp, err := e.oracle.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: systemPrompt(platform)},
			{Role: entity.RoleUser, Content: prompt},
		},
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return entity.Locator{}, false, ctx.Err()
		}
		log.Error("oracle call failed", "error", err.Error())
		return entity.Locator{}, false, nil
	}

	reply := ParseReply(platform, resp.Message.Content)
	switch reply.Kind {
	case ReplyLocator:
		clean := sanitize.Sanitize(platform, reply.Locator)
		if clean.IsEmpty() {
			log.Warn("oracle suggestion did not survive sanitization",
				"suggestion", reply.Locator.String())
			return entity.Locator{}, false, nil
		}
		if e.history.Contains(clean) {
			return clean, true, nil
		}
		return clean, false, nil
	case ReplyFreeText:
		log.Warn("oracle reply held no locator", "reply_len", len(reply.Text))
	default:
		log.Warn("oracle reply was empty")
	}
	return entity.Locator{}, false, nil
}

// findFromScreens tries the registered screen definitions before the
// oracle. The current screen is scanned first and its over-threshold best
// wins outright; only when it yields nothing are the other screens scanned.
func (e *Engine) findFromScreens(req entity.RecoveryRequest, platform entity.Platform) entity.Locator {
	if e.screens == nil || e.screens.Len() == 0 {
		return entity.Locator{}
	}

	currentName := ""
	if cur, ok := e.screens.Get(e.screens.Current()); ok {
		currentName = cur.Name
		if loc := e.bestFromDefinitions([]service.ScreenDefinition{cur}, req, platform); !loc.IsEmpty() {
			return loc
		}
	}

	others := make([]service.ScreenDefinition, 0, e.screens.Len())
	for _, d := range e.screens.All() {
		if d.Name != currentName {
			others = append(others, d)
		}
	}
	return e.bestFromDefinitions(others, req, platform)
}

func (e *Engine) bestFromDefinitions(defs []service.ScreenDefinition, req entity.RecoveryRequest, platform entity.Platform) entity.Locator {
	var (
		best      service.ScreenElement
		bestScore float64
	)
	for _, def := range defs {
		for _, el := range def.Identifiers {
			if el.Content == "" {
				continue
			}
			score := terms.TokenSimilarity(el.Content, req.MissingElement)
			if s := terms.TokenSimilarity(el.Description, req.MissingElement); s > score {
				score = s
			}
			if score > e.cfg.SimilarityThreshold && score > bestScore {
				best, bestScore = el, score
			}
		}
	}
	if bestScore == 0 {
		return entity.Locator{}
	}
	return sanitize.Sanitize(platform, screenLocator(platform, best, req.PageSource))
}

// screenLocator turns a matched screen element into a concrete locator,
// preferring keys whose values verifiably appear in the snapshot.
func screenLocator(platform entity.Platform, el service.ScreenElement, source string) entity.Locator {
	content := el.Content
	if platform == entity.PlatformIOS {
		switch {
		case strings.Contains(source, `name="`+content+`"`):
			return entity.Locator{"name": content}
		case strings.Contains(source, `label="`+content+`"`):
			return entity.Locator{"label": content}
		default:
			return entity.Locator{"xpath": fmt.Sprintf(
				"//*[contains(@name, '%s') or contains(@label, '%s')]", content, content)}
		}
	}
	switch {
	case strings.Contains(source, `text="`+content+`"`):
		return entity.Locator{"text": content}
	case strings.Contains(source, `resource-id="`+content+`"`) ||
		strings.Contains(source, ":id/"+content+`"`):
		return entity.Locator{"resource-id": resolveResourceID(source, content)}
	default:
		return entity.Locator{"xpath": fmt.Sprintf("//*[contains(@text, '%s')]", content)}
	}
}

// resolveResourceID expands a bare id suffix to the full resource id as it
// appears in the snapshot.
func resolveResourceID(source, content string) string {
	marker := ":id/" + content + `"`
	idx := strings.Index(source, marker)
	if idx == -1 {
		return content
	}
	start := strings.LastIndex(source[:idx], `"`)
	if start == -1 {
		return content
	}
	return source[start+1 : idx+len(marker)-1]
}

// stringifySuggestion normalizes caller-supplied failed suggestions, which
// arrive either as plain strings or as locator objects.
func stringifySuggestion(s any) string {
	switch v := s.(type) {
	case string:
		return v
	case map[string]any:
		loc := entity.Locator{}
		for k, val := range v {
			if str, ok := val.(string); ok {
				loc[k] = str
			}
		}
		return loc.String()
	default:
		return fmt.Sprintf("%v", s)
	}
}
