// Package ingest parses raw UI-tree snapshots into a node arena, degrading
// to regex-based windowing when the markup is beyond repair.
package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"recovery-agent/internal/domain/entity"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8" ?>`

var rootTagRe = regexp.MustCompile(`<(\w[\w.-]*)[^>]*>`)

// Clean applies tolerant cleanup before parsing: strips the non-standard
// <window> wrapper some drivers add, prepends a declaration when absent,
// and synthesizes a closing tag for a root element that is never closed.
func Clean(source string) string {
	source = strings.TrimSpace(source)
	source = strings.TrimPrefix(source, "<window>")
	source = strings.TrimSuffix(source, "</window>")

	if !strings.HasPrefix(source, "<?xml ") {
		source = xmlDeclaration + "\n" + source
	}

	searchFrom := 0
	if end := strings.Index(source, "?>"); end != -1 {
		searchFrom = end + 2
	}
	if m := rootTagRe.FindStringSubmatch(source[searchFrom:]); m != nil {
		rootName := m[1]
		if !strings.Contains(source, "</"+rootName+">") &&
			!selfClosedOnly(source[searchFrom:], rootName) {
			source += "</" + rootName + ">"
		}
	}
	return source
}

// selfClosedOnly reports whether the first occurrence of the tag is
// self-closing, in which case no synthetic closing tag is needed.
func selfClosedOnly(body, tag string) bool {
	idx := strings.Index(body, "<"+tag)
	if idx == -1 {
		return false
	}
	end := strings.Index(body[idx:], ">")
	if end == -1 {
		return false
	}
	return strings.HasSuffix(strings.TrimSpace(body[idx:idx+end]), "/")
}

// Parse decodes a snapshot into an arena. Any well-formedness violation is
// returned as an error so the caller can fall back to pattern windowing;
// parse failures are never surfaced past the engine.
func Parse(source string) (*entity.NodeArena, error) {
	arena := entity.NewNodeArena()
	dec := xml.NewDecoder(strings.NewReader(source))

	var stack []entity.NodeID
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse snapshot: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]entity.Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				attrs = append(attrs, entity.Attr{Name: a.Name.Local, Value: a.Value})
			}
			id := arena.Add(t.Name.Local, attrs)
			if len(stack) == 0 {
				arena.AddRoot(id)
			} else {
				arena.AppendChild(stack[len(stack)-1], id)
			}
			stack = append(stack, id)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parse snapshot: unbalanced closing tag </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("parse snapshot: %d unclosed element(s)", len(stack))
	}
	if arena.Len() == 0 {
		return nil, fmt.Errorf("parse snapshot: no elements found")
	}
	return arena, nil
}
