package css

import (
	"fmt"
)

// ParseError describes stylesheet text which could not be parsed.
type ParseError struct {
	Source string // name of the stylesheet, may be empty
	Line   int    // 1 based, 0 when unknown
	Msg    string
}

func (e *ParseError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	case e.Source != "":
		return fmt.Sprintf("%s: %s", e.Source, e.Msg)
	default:
		return e.Msg
	}
}
