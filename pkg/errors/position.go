package errors

import "fmt"

// Position represents a specific location in the source the AST was parsed from.
// Line and Column are 1-based; a zero Line means the position is unknown.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// IsValid reports whether the position carries line information.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
