// Package diagnostics holds the compile-error records the compiler
// accumulates and the terminal rendering for them.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/oolong-lang/oolong/internal/token"
)

// Diagnostic is a single compile error, pinned to the token it fired on.
type Diagnostic struct {
	Module  string
	Token   token.Token
	Message string
}

func (d *Diagnostic) Error() string {
	switch d.Token.Type {
	case token.EOF:
		return fmt.Sprintf("File '%s', line %d\nError at end: %s", d.Module, d.Token.Line, d.Message)
	case token.ERROR:
		return fmt.Sprintf("File '%s', line %d\nError: %s", d.Module, d.Token.Line, d.Message)
	default:
		return fmt.Sprintf("File '%s', line %d\n%d | %s\n%s",
			d.Module, d.Token.Line, d.Token.Line, d.Token.Lexeme, d.Message)
	}
}

// List collects every diagnostic of one compilation. It implements error so
// the driver can hand the whole batch back to the caller.
type List []*Diagnostic

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, d := range l {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n\n")
}

// Err returns the list as an error, or nil when no diagnostic fired.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
