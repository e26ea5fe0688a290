package entity

import (
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ParsePlatform normalizes a wire-level platform string.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// KeyAttributes are the attributes that identify elements most reliably on
// each platform. They are weighted higher by the scorer and checked first
// when deriving match metadata.
func (p Platform) KeyAttributes() []string {
	if p == PlatformIOS {
		return []string{"name", "label", "value"}
	}
	return []string{"resource-id", "text", "content-desc"}
}

// IdentifierAttributes are checked by the id-focused discovery pass.
func (p Platform) IdentifierAttributes() []string {
	return []string{"resource-id", "name", "id"}
}

// TextAttributes are checked by the text-focused discovery pass.
func (p Platform) TextAttributes() []string {
	return []string{"text", "content-desc", "label", "value"}
}

// TypeAttribute names the attribute carrying the element class/type.
func (p Platform) TypeAttribute() string {
	if p == PlatformIOS {
		return "type"
	}
	return "class"
}

// LocatorPriority orders locator keys from most to least reliable.
func (p Platform) LocatorPriority() []string {
	if p == PlatformIOS {
		return []string{"name", "label", "value", "xpath"}
	}
	return []string{"resource-id", "text", "content-desc", "xpath"}
}

// LocatorKeys lists every locator key the platform recognizes.
func (p Platform) LocatorKeys() []string {
	if p == PlatformIOS {
		return []string{"name", "label", "value", "predicate", "class-chain", "xpath"}
	}
	return []string{"resource-id", "text", "content-desc", "ui-selector", "xpath"}
}

// IDKey is the id-like locator key that wins over xpath during sanitization.
func (p Platform) IDKey() string {
	if p == PlatformIOS {
		return "name"
	}
	return "resource-id"
}

// GenericButtonType is the element type used when a simplified XPath has to
// be synthesized and no type is recoverable from the original expression.
func (p Platform) GenericButtonType() string {
	if p == PlatformIOS {
		return "XCUIElementTypeButton"
	}
	return "android.widget.Button"
}

// DefaultTextAttribute is the attribute a synthesized contains-XPath targets.
func (p Platform) DefaultTextAttribute() string {
	if p == PlatformIOS {
		return "name"
	}
	return "text"
}
