package markdown

import (
	"strings"

	"github.com/rgonek/docconv/view"
)

// mark is inline formatting collected from the attribute elements enclosing
// a text run, outermost first.
type mark struct {
	Type  string
	Href  string
	Title string
}

var markTypes = map[string]string{
	"strong": "strong",
	"b":      "strong",
	"em":     "em",
	"i":      "em",
	"s":      "strike",
	"del":    "strike",
	"strike": "strike",
	"code":   "code",
	"a":      "link",
}

// markFor returns the mark an inline element stands for.
func markFor(el *view.Element) (mark, bool) {
	markType, ok := markTypes[el.Name()]
	if !ok {
		return mark{}, false
	}
	m := mark{Type: markType}
	if markType == "link" {
		m.Href, _ = el.Attribute("href")
		m.Title, _ = el.Attribute("title")
		if m.Href == "" {
			return mark{}, false
		}
	}
	return m, true
}

// marksToClose returns the active marks that do not continue into the next
// run: everything from the first difference on.
func marksToClose(active, current []mark) []mark {
	for i, activeMark := range active {
		if i >= len(current) || activeMark != current[i] {
			return active[i:]
		}
	}
	return nil
}

// marksToOpen returns the marks of the next run after the common prefix.
func marksToOpen(active, current []mark) []mark {
	common := 0
	for common < len(active) && common < len(current) && active[common] == current[common] {
		common++
	}
	if common < len(current) {
		return current[common:]
	}
	return nil
}

// delimiters returns the opening and closing markdown for a mark.
func delimiters(m mark, useUnderscoreForEm bool) (string, string) {
	switch m.Type {
	case "strong":
		return "**", "**"
	case "em":
		if useUnderscoreForEm {
			return "_", "_"
		}
		return "*", "*"
	case "strike":
		return "~~", "~~"
	case "code":
		return "`", "`"
	case "link":
		closing := "](" + m.Href
		if m.Title != "" {
			escapedTitle := strings.ReplaceAll(m.Title, "\\", "\\\\")
			escapedTitle = strings.ReplaceAll(escapedTitle, "\"", "\\\"")
			closing += " \"" + escapedTitle + "\""
		}
		return "[", closing + ")"
	default:
		return "", ""
	}
}

func hasMark(marks []mark, markType string) bool {
	for _, m := range marks {
		if m.Type == markType {
			return true
		}
	}
	return false
}
