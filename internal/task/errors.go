package task

import (
	"fmt"
	"unicode"
)

// InvalidTagNameError is returned when a tag contains whitespace.
type InvalidTagNameError struct {
	Tag  string
	Char rune
}

func (e *InvalidTagNameError) Error() string {
	if e.Char == 0 {
		return "invalid tag name: must not be empty"
	}
	return fmt.Sprintf("invalid tag name %q: contains whitespace character %q (%s)", e.Tag, e.Char, runeName(e.Char))
}

// InvalidDependencyIDError is returned when a dependency is not a
// well-formed UUID or refers to the task itself.
type InvalidDependencyIDError struct {
	ID     string
	Reason string
}

func (e *InvalidDependencyIDError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid dependency id %q", e.ID)
	}
	return fmt.Sprintf("invalid dependency id %q: %s", e.ID, e.Reason)
}

func runeName(r rune) string {
	switch r {
	case ' ':
		return "SPACE"
	case '\t':
		return "CHARACTER TABULATION"
	case '\n':
		return "LINE FEED"
	case '\v':
		return "LINE TABULATION"
	case '\f':
		return "FORM FEED"
	case '\r':
		return "CARRIAGE RETURN"
	case 0x85:
		return "NEXT LINE"
	case 0xA0:
		return "NO-BREAK SPACE"
	case 0x2028:
		return "LINE SEPARATOR"
	case 0x2029:
		return "PARAGRAPH SEPARATOR"
	case 0x3000:
		return "IDEOGRAPHIC SPACE"
	}
	if unicode.Is(unicode.Zs, r) {
		return fmt.Sprintf("U+%04X SPACE SEPARATOR", r)
	}
	return fmt.Sprintf("U+%04X", r)
}
