package recovery

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"recovery-agent/internal/domain/entity"
)

const maxListedFailures = 5

var windowedTemplate = prompts.NewPromptTemplate(`I'm trying to find an element with identifier: '{{.element}}' but received this error:
{{.error}}

I've extracted {{.windowCount}} candidate windows from the UI that might contain relevant elements:

{{.windows}}{{.avoid}}
Based on these UI windows, analyze the markup and find the BEST locator for the element that most closely matches '{{.element}}'.

IMPORTANT:
1. Prioritize {{.idKey}} locators over XPath whenever possible
2. If you must use XPath, keep it simple and avoid complex expressions
3. Choose the most reliable and unique locator from any window
4. For buttons or tap targets, prefer elements marked as interactive

{{.guidance}}
Return your answer as a JSON object with exactly one locator field.
Return ONLY the JSON, without any explanation.`,
	[]string{"element", "error", "windowCount", "windows", "avoid", "idKey", "guidance"})

var fullPageTemplate = prompts.NewPromptTemplate(`I'm trying to find an element with identifier: '{{.element}}' but received this error:
{{.error}}

Here is the UI snapshot of the current screen:

{{.source}}{{.avoid}}
Analyze the markup and find the BEST locator for the element that most closely matches '{{.element}}'.

IMPORTANT:
1. Prioritize {{.idKey}} locators over XPath whenever possible
2. If you must use XPath, keep it simple and avoid complex expressions

{{.guidance}}
Return your answer as a JSON object with exactly one locator field.
Return ONLY the JSON, without any explanation.`,
	[]string{"element", "error", "source", "avoid", "idKey", "guidance"})

const androidGuidance = `Answer with one of these fields, in order of preference:
- "resource-id": full resource id, e.g. {"resource-id": "com.example.app:id/login_button"}
- "text": visible text, e.g. {"text": "Log in"}
- "content-desc": accessibility description, e.g. {"content-desc": "Log in button"}
- "xpath": simple expression, e.g. {"xpath": "//android.widget.Button[contains(@text, 'Log in')]"}
`

const iosGuidance = `Answer with one of these fields, in order of preference:
- "name": accessibility identifier, e.g. {"name": "loginButton"}
- "label": visible label, e.g. {"label": "Log in"}
- "value": element value, e.g. {"value": "Log in"}
- "xpath": simple expression, e.g. {"xpath": "//XCUIElementTypeButton[contains(@name, 'login')]"}
`

func systemPrompt(platform entity.Platform) string {
	return fmt.Sprintf(
		"You are an expert in mobile UI testing and element identification for %s applications. "+
			"You find reliable locators in UI tree snapshots and always prefer %s over xpath.",
		platform, platform.IDKey())
}

func platformGuidance(platform entity.Platform) string {
	if platform == entity.PlatformIOS {
		return iosGuidance
	}
	return androidGuidance
}

// buildWindowedPrompt renders the windowed oracle request. When
// avoidPrevious is set the already-failed locators are listed explicitly
// and the oracle is told to avoid them.
func buildWindowedPrompt(platform entity.Platform, req entity.RecoveryRequest, windows []entity.Window, failed []string, avoidPrevious bool) (string, error) {
	var wb strings.Builder
	for _, w := range windows {
		fmt.Fprintf(&wb, "WINDOW %d (Match: %s - %s=%q, Score: %.2f):\n```xml\n%s\n```\n\n",
			w.Num, w.Match.Type, w.Match.Attribute, w.Match.Value, w.Score, w.Fragment)
	}

	return windowedTemplate.Format(map[string]any{
		"element":     req.MissingElement,
		"error":       req.ErrorMessage,
		"windowCount": len(windows),
		"windows":     wb.String(),
		"avoid":       avoidSection(failed, avoidPrevious),
		"idKey":       platform.IDKey(),
		"guidance":    platformGuidance(platform),
	})
}

func buildFullPagePrompt(platform entity.Platform, req entity.RecoveryRequest, source string, failed []string) (string, error) {
	return fullPageTemplate.Format(map[string]any{
		"element":  req.MissingElement,
		"error":    req.ErrorMessage,
		"source":   "```xml\n" + source + "\n```\n",
		"avoid":    avoidSection(failed, len(failed) > 0),
		"idKey":    platform.IDKey(),
		"guidance": platformGuidance(platform),
	})
}

func avoidSection(failed []string, avoidPrevious bool) string {
	if !avoidPrevious || len(failed) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nIMPORTANT: the following locators were already tried and FAILED. Do NOT suggest any of them again:\n")
	for i, f := range failed {
		if i >= maxListedFailures {
			fmt.Fprintf(&sb, "- ... and %d more\n", len(failed)-maxListedFailures)
			break
		}
		sb.WriteString("- " + f + "\n")
	}
	sb.WriteString("You MUST suggest a DIFFERENT locator than any of the above.\n")
	return sb.String()
}
