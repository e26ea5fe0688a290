package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recovery-agent/internal/application/port/output"
	"recovery-agent/internal/application/service"
	"recovery-agent/internal/domain/entity"
)

type stubOracle struct {
	replies  []string
	requests []output.ChatRequest
}

func (s *stubOracle) Chat(_ context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: s.replies[idx]},
	}, nil
}

type failingOracle struct{}

func (failingOracle) Chat(context.Context, output.ChatRequest) (*output.ChatResponse, error) {
	return nil, errors.New("connection refused")
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func (l testLogger) WithField(string, any) output.LoggerPort     { return l }
func (l testLogger) WithFields(map[string]any) output.LoggerPort { return l }

func (testLogger) Close() error { return nil }

const androidSnapshot = `<hierarchy>
	<android.widget.FrameLayout bounds="[0,0][1080,1920]">
		<android.widget.Button resource-id="com.example:id/login_button" text="Login" clickable="true" bounds="[40,300][1040,420]" />
		<android.widget.TextView text="Forgot password?" bounds="[40,600][1040,660]" />
	</android.widget.FrameLayout>
</hierarchy>`

const iosSnapshot = `<XCUIElementTypeApplication name="Demo">
	<XCUIElementTypeButton name="continueBtn" label="Continue to App" enabled="true" />
</XCUIElementTypeApplication>`

func newTestEngine(oracle output.OraclePort) *Engine {
	return NewEngine(DefaultConfig(), oracle, testLogger{}, nil, nil)
}

func TestRecover_AndroidHappyPath(t *testing.T) {
	oracle := &stubOracle{replies: []string{`{"resource-id": "com.example:id/login_button"}`}}
	engine := newTestEngine(oracle)

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if got["resource-id"] != "com.example:id/login_button" {
		t.Errorf("got %v", got)
	}
	if len(oracle.requests) != 1 {
		t.Errorf("expected 1 oracle call, got %d", len(oracle.requests))
	}
}

func TestRecover_PromptContainsWindows(t *testing.T) {
	oracle := &stubOracle{replies: []string{`{"resource-id": "com.example:id/login_button"}`}}
	engine := newTestEngine(oracle)

	_, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	prompt := oracle.requests[0].Messages[1].Content
	if !strings.Contains(prompt, "WINDOW 1") {
		t.Errorf("prompt should list windows:\n%s", prompt)
	}
	if !strings.Contains(prompt, "login_button") {
		t.Errorf("prompt should carry the failed identifier:\n%s", prompt)
	}
}

func TestRecover_IOSPlatformFromRequest(t *testing.T) {
	oracle := &stubOracle{replies: []string{`{"label": "Continue to App"}`}}
	engine := newTestEngine(oracle)

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "continue_button",
		ErrorMessage:   "element not found",
		PageSource:     iosSnapshot,
		Platform:       "ios",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if got["label"] != "Continue to App" {
		t.Errorf("got %v", got)
	}
}

func TestRecover_InputErrors(t *testing.T) {
	engine := newTestEngine(&stubOracle{replies: []string{"{}"}})

	_, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		PageSource: androidSnapshot,
	})
	if !errors.Is(err, entity.ErrNoElement) {
		t.Errorf("expected ErrNoElement, got %v", err)
	}

	_, err = engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
	})
	if !errors.Is(err, entity.ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestRecover_RepeatedSuggestionGivesUpAfterOneRetry(t *testing.T) {
	oracle := &stubOracle{replies: []string{`{"resource-id": "com.example:id/login_button"}`}}
	engine := newTestEngine(oracle)

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
		RetryCount:     1,
		FailedSuggestions: []any{
			map[string]any{"resource-id": "com.example:id/login_button"},
		},
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if !got.IsEmpty() {
		t.Errorf("expected empty locator after exhausted retry, got %v", got)
	}
	if len(oracle.requests) != 2 {
		t.Errorf("expected exactly 2 oracle calls, got %d", len(oracle.requests))
	}

	// the retry must carry the avoid list
	retryPrompt := oracle.requests[1].Messages[1].Content
	if !strings.Contains(retryPrompt, "DIFFERENT locator") {
		t.Errorf("retry prompt should demand a different locator:\n%s", retryPrompt)
	}
}

func TestRecover_FreeTextFallsBackToFullPage(t *testing.T) {
	oracle := &stubOracle{replies: []string{
		"I could not find the element in these windows.",
		`{"text": "Login"}`,
	}}
	engine := newTestEngine(oracle)

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if got["text"] != "Login" {
		t.Errorf("got %v", got)
	}
	if len(oracle.requests) != 2 {
		t.Errorf("expected windowed then full-page call, got %d", len(oracle.requests))
	}
}

func TestRecover_FullPageSourceTruncated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotLimit = 200
	oracle := &stubOracle{replies: []string{
		"No luck in the windows.",
		"Still nothing.",
	}}
	engine := NewEngine(cfg, oracle, testLogger{}, nil, nil)

	long := androidSnapshot + strings.Repeat(`<android.widget.View bounds="[0,0][1,1]" />`, 50)
	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     long,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if !got.IsEmpty() {
		t.Errorf("expected empty result, got %v", got)
	}
	last := oracle.requests[len(oracle.requests)-1].Messages[1].Content
	if !strings.Contains(last, "... (truncated)") {
		t.Error("full-page prompt should mark truncation")
	}
}

func TestRecover_OracleFailureDegradesToEmpty(t *testing.T) {
	engine := newTestEngine(failingOracle{})

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("oracle failure must not surface: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("expected empty locator, got %v", got)
	}
}

func TestRecover_SuggestionIsRecordedInHistory(t *testing.T) {
	oracle := &stubOracle{replies: []string{`{"resource-id": "com.example:id/login_button"}`}}
	engine := newTestEngine(oracle)

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if !engine.History().Contains(got) {
		t.Error("returned locator should be in the failure history")
	}
}

func TestRecover_ScreenDefinitionPrePassShortCircuitsOracle(t *testing.T) {
	screens := service.NewScreenRegistry()
	screens.Register(service.ScreenDefinition{
		Name: "login",
		Identifiers: []service.ScreenElement{
			{Type: "button", Content: "login_button", Description: "login button"},
		},
	})
	screens.SetCurrent("login")

	oracle := &stubOracle{replies: []string{`{"text": "should not be asked"}`}}
	engine := NewEngine(DefaultConfig(), oracle, testLogger{}, nil, screens)

	got, err := engine.Recover(context.Background(), entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if got["resource-id"] != "com.example:id/login_button" {
		t.Errorf("got %v", got)
	}
	if len(oracle.requests) != 0 {
		t.Errorf("screen match should bypass the oracle, got %d calls", len(oracle.requests))
	}
}

func TestFindFromScreens_CurrentScreenWinsOverHigherGlobalScore(t *testing.T) {
	screens := service.NewScreenRegistry()
	screens.Register(service.ScreenDefinition{
		Name: "login",
		Identifiers: []service.ScreenElement{
			// 2-of-3 token overlap with login_button, above the threshold
			{Type: "button", Content: "login_button_submit"},
		},
	})
	screens.Register(service.ScreenDefinition{
		Name: "other",
		Identifiers: []service.ScreenElement{
			{Type: "button", Content: "login_button"}, // exact, scores 1.0
		},
	})
	screens.SetCurrent("login")

	engine := NewEngine(DefaultConfig(), &stubOracle{replies: []string{"{}"}}, testLogger{}, nil, screens)

	got := engine.findFromScreens(entity.RecoveryRequest{
		MissingElement: "login_button",
		PageSource:     `<node text="login_button_submit" /><node text="login_button" />`,
	}, entity.PlatformAndroid)

	if got["text"] != "login_button_submit" {
		t.Errorf("current screen's match must win, got %v", got)
	}
}

func TestFindFromScreens_BelowThresholdIgnored(t *testing.T) {
	screens := service.NewScreenRegistry()
	screens.Register(service.ScreenDefinition{
		Name: "login",
		Identifiers: []service.ScreenElement{
			// 1-of-3 token overlap, similarity 0.33, below 0.6
			{Type: "button", Content: "login_form"},
		},
	})
	screens.SetCurrent("login")

	engine := NewEngine(DefaultConfig(), &stubOracle{replies: []string{"{}"}}, testLogger{}, nil, screens)

	got := engine.findFromScreens(entity.RecoveryRequest{
		MissingElement: "login_button",
		PageSource:     `<node text="login_form" />`,
	}, entity.PlatformAndroid)

	if !got.IsEmpty() {
		t.Errorf("weak screen matches must not produce a locator, got %v", got)
	}
}

func TestScreenLocator_ResolvesAgainstSnapshot(t *testing.T) {
	source := `<node resource-id="com.example:id/save" text="Save changes" />`

	got := screenLocator(entity.PlatformAndroid, service.ScreenElement{Content: "save"}, source)
	if got["resource-id"] != "com.example:id/save" {
		t.Errorf("bare id should resolve to the full resource id, got %v", got)
	}

	got = screenLocator(entity.PlatformAndroid, service.ScreenElement{Content: "Save changes"}, source)
	if got["text"] != "Save changes" {
		t.Errorf("verbatim text should be preferred, got %v", got)
	}

	got = screenLocator(entity.PlatformAndroid, service.ScreenElement{Content: "Discard"}, source)
	if !strings.Contains(got["xpath"], "Discard") {
		t.Errorf("unverifiable content should fall back to xpath, got %v", got)
	}
}

func TestScreenLocator_IOSPrefersNameOverLabel(t *testing.T) {
	source := `<XCUIElementTypeButton name="continueBtn" label="Continue to App" />`

	got := screenLocator(entity.PlatformIOS, service.ScreenElement{Content: "continueBtn"}, source)
	if got["name"] != "continueBtn" {
		t.Errorf("got %v", got)
	}

	got = screenLocator(entity.PlatformIOS, service.ScreenElement{Content: "Continue to App"}, source)
	if got["label"] != "Continue to App" {
		t.Errorf("got %v", got)
	}
}

func TestResolveResourceID(t *testing.T) {
	source := `<node resource-id="com.example.app:id/login_button" />`

	if got := resolveResourceID(source, "login_button"); got != "com.example.app:id/login_button" {
		t.Errorf("got %q", got)
	}
	if got := resolveResourceID(source, "missing"); got != "missing" {
		t.Errorf("unresolvable content should pass through, got %q", got)
	}
}

func TestRecover_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine(failingOracle{})
	before := engine.History().Len()

	_, err := engine.Recover(ctx, entity.RecoveryRequest{
		MissingElement: "login_button",
		ErrorMessage:   "element not found",
		PageSource:     androidSnapshot,
		Platform:       "android",
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if engine.History().Len() != before {
		t.Error("cancelled recovery must not record suggestions")
	}
}
