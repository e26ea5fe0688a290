package discovery

import (
	"testing"

	"recovery-agent/internal/domain/entity"
	"recovery-agent/internal/usecase/ingest"
	"recovery-agent/internal/usecase/terms"
)

func mustParse(t *testing.T, source string) *entity.NodeArena {
	t.Helper()
	arena, err := ingest.Parse(ingest.Clean(source))
	if err != nil {
		t.Fatalf("fixture does not parse: %v", err)
	}
	return arena
}

const androidLoginSnapshot = `<hierarchy>
	<android.widget.FrameLayout bounds="[0,0][1080,1920]">
		<android.widget.Button resource-id="com.example:id/login_button" text="Login" clickable="true" bounds="[40,300][1040,420]" />
		<android.widget.TextView text="Login here to continue" bounds="[40,500][1040,560]" />
		<android.widget.TextView text="Forgot password?" bounds="[40,600][1040,660]" />
	</android.widget.FrameLayout>
</hierarchy>`

func TestDiscover_FindsLoginButton(t *testing.T) {
	arena := mustParse(t, androidLoginSnapshot)
	searchTerms := terms.Extract("login_button")

	ids := Discover(arena, entity.PlatformAndroid, searchTerms, terms.TypeHint("login_button"))
	if len(ids) == 0 {
		t.Fatal("expected discovered nodes")
	}

	foundButton := false
	for _, id := range ids {
		if arena.Node(id).Attr("resource-id") == "com.example:id/login_button" {
			foundButton = true
		}
	}
	if !foundButton {
		t.Error("login button was not discovered")
	}
}

func TestFindByType_ClickableStillRequiresTermMatch(t *testing.T) {
	arena := mustParse(t, `<hierarchy>
		<android.widget.Button resource-id="com.example:id/login_button" text="Login" clickable="true" bounds="[0,0][1,1]" />
		<android.widget.ImageView resource-id="com.example:id/ad_banner" clickable="true" bounds="[0,1][1,2]" />
		<android.widget.FrameLayout resource-id="com.example:id/nav_drawer" clickable="true" bounds="[0,2][1,3]" />
	</hierarchy>`)
	searchTerms := terms.Extract("login_button")

	ids := Discover(arena, entity.PlatformAndroid, searchTerms, "button")
	ranked := Rank(arena, ids, entity.PlatformAndroid, "login_button", searchTerms, 3)

	foundLogin := false
	for _, c := range ranked {
		switch arena.Node(c.Node).Attr("resource-id") {
		case "com.example:id/login_button":
			foundLogin = true
		case "com.example:id/ad_banner", "com.example:id/nav_drawer":
			t.Errorf("clickable element without a term hit must not rank: %s score=%.2f",
				arena.Node(c.Node).Attr("resource-id"), c.Score)
		}
	}
	if !foundLogin {
		t.Error("login button should still be discovered")
	}
}

func TestDiscover_PartialIdentifierMatch(t *testing.T) {
	arena := mustParse(t, `<hierarchy>
		<android.widget.Button resource-id="com.example.app:id/login_button" text="Login" clickable="true" bounds="[0,0][1,1]" />
	</hierarchy>`)
	searchTerms := terms.Extract("login_btn")

	ids := Discover(arena, entity.PlatformAndroid, searchTerms, terms.TypeHint("login_btn"))
	ranked := Rank(arena, ids, entity.PlatformAndroid, "login_btn", searchTerms, 3)

	if len(ranked) == 0 {
		t.Fatal("renamed element should still be discovered via shared terms")
	}
	if got := arena.Node(ranked[0].Node).Attr("resource-id"); got != "com.example.app:id/login_button" {
		t.Errorf("best candidate resource-id = %q", got)
	}
}

func TestDiscover_IOSLabelFallback(t *testing.T) {
	arena := mustParse(t, `<XCUIElementTypeApplication>
		<XCUIElementTypeButton label="Continue to App" enabled="true" />
	</XCUIElementTypeApplication>`)
	searchTerms := terms.Extract("continue")

	ids := Discover(arena, entity.PlatformIOS, searchTerms, terms.TypeHint("continue"))
	ranked := Rank(arena, ids, entity.PlatformIOS, "continue", searchTerms, 3)

	if len(ranked) == 0 {
		t.Fatal("label-only element should be discovered")
	}
	if got := arena.Node(ranked[0].Node).Attr("label"); got != "Continue to App" {
		t.Errorf("best candidate label = %q", got)
	}
}

func TestRank_OrdersButtonFirst(t *testing.T) {
	arena := mustParse(t, androidLoginSnapshot)
	searchTerms := terms.Extract("login_button")

	ids := Discover(arena, entity.PlatformAndroid, searchTerms, "button")
	ranked := Rank(arena, ids, entity.PlatformAndroid, "login_button", searchTerms, 3)

	if len(ranked) < 2 {
		t.Fatalf("expected at least 2 candidates, got %d", len(ranked))
	}
	best := arena.Node(ranked[0].Node)
	if best.Attr("resource-id") != "com.example:id/login_button" {
		t.Errorf("best candidate should be the button, got tag %q attrs %v", best.Tag, best.Attrs)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("candidates not in descending score order at %d", i)
		}
	}
}

func TestRank_DeduplicatesBySignature(t *testing.T) {
	arena := mustParse(t, androidLoginSnapshot)
	searchTerms := terms.Extract("login_button")

	ids := Discover(arena, entity.PlatformAndroid, searchTerms, "button")
	// the button is discovered by several passes; it must rank once
	ranked := Rank(arena, ids, entity.PlatformAndroid, "login_button", searchTerms, 10)

	seen := map[string]int{}
	for _, c := range ranked {
		seen[arena.Signature(c.Node)]++
	}
	for sig, n := range seen {
		if n > 1 {
			t.Errorf("signature %q ranked %d times", sig, n)
		}
	}
}

func TestRank_FiltersWeakMatches(t *testing.T) {
	arena := mustParse(t, `<hierarchy>
		<android.widget.View hint="login" bounds="[0,0][10,10]" />
	</hierarchy>`)
	searchTerms := terms.Extract("login_field")

	var all []entity.NodeID
	arena.Walk(func(id entity.NodeID, _ *entity.TreeNode) {
		all = append(all, id)
	})

	// a hit on a non-key attribute alone scores 0.1, below the cutoff
	ranked := Rank(arena, all, entity.PlatformAndroid, "login_field", searchTerms, 3)
	if len(ranked) != 0 {
		t.Errorf("weak matches must be filtered, got %d candidates", len(ranked))
	}
}

func TestRank_RespectsMaxCandidates(t *testing.T) {
	arena := mustParse(t, `<hierarchy>
		<android.widget.Button text="Login A" bounds="[0,0][1,1]" />
		<android.widget.Button text="Login B" bounds="[0,1][1,2]" />
		<android.widget.Button text="Login C" bounds="[0,2][1,3]" />
		<android.widget.Button text="Login D" bounds="[0,3][1,4]" />
	</hierarchy>`)
	searchTerms := terms.Extract("login_button")

	ids := Discover(arena, entity.PlatformAndroid, searchTerms, "button")
	ranked := Rank(arena, ids, entity.PlatformAndroid, "login_button", searchTerms, 3)

	if len(ranked) != 3 {
		t.Errorf("expected top 3 candidates, got %d", len(ranked))
	}
}

func TestScore_IOSEnabledBonus(t *testing.T) {
	arena := mustParse(t, `<XCUIElementTypeApplication>
		<XCUIElementTypeButton name="continueBtn" label="Continue" enabled="true" />
		<XCUIElementTypeButton name="continueBtn2" label="Continue" enabled="false" />
	</XCUIElementTypeApplication>`)

	root := arena.Node(arena.Roots()[0])
	enabled := Score(arena, root.Children[0], entity.PlatformIOS, "continue", []string{"continue"})
	disabled := Score(arena, root.Children[1], entity.PlatformIOS, "continue", []string{"continue"})

	if enabled <= disabled {
		t.Errorf("enabled button should outscore disabled one: %f vs %f", enabled, disabled)
	}
}

func TestScore_ClampedToOne(t *testing.T) {
	arena := mustParse(t, androidLoginSnapshot)
	searchTerms := terms.Extract("login_button")

	root := arena.Node(arena.Roots()[0])
	layout := arena.Node(root.Children[0])
	got := Score(arena, layout.Children[0], entity.PlatformAndroid, "login_button", searchTerms)

	if got != 1.0 {
		t.Errorf("strong match should clamp to 1.0, got %f", got)
	}
}
