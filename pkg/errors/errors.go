package errors

import (
	stderrors "errors"
	"fmt"
)

// RegjsError is the interface implemented by all errors produced while
// decoding or compiling a program.
type RegjsError interface {
	error
	Pos() Position
	Kind() string // e.g., "Syntax", "Compile"
	// Message returns the specific error message without position info.
	Message() string
	Unwrap() error
}

// ErrorKind classifies compile errors. Every kind is fatal to the
// compilation unit it occurs in.
type ErrorKind uint8

const (
	UnsupportedStatement ErrorKind = iota + 1
	UnsupportedExpression
	UnsupportedOperator
	UnsupportedPattern
	UnsupportedLeftHandSide
	UndeclaredIdentifier
	LoopControlOutsideLoop
	DuplicateLabel
	UnresolvedLabel
	UnresolvedFunction
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedStatement:
		return "UnsupportedStatement"
	case UnsupportedExpression:
		return "UnsupportedExpression"
	case UnsupportedOperator:
		return "UnsupportedOperator"
	case UnsupportedPattern:
		return "UnsupportedPattern"
	case UnsupportedLeftHandSide:
		return "UnsupportedLeftHandSide"
	case UndeclaredIdentifier:
		return "UndeclaredIdentifier"
	case LoopControlOutsideLoop:
		return "LoopControlOutsideLoop"
	case DuplicateLabel:
		return "DuplicateLabel"
	case UnresolvedLabel:
		return "UnresolvedLabel"
	case UnresolvedFunction:
		return "UnresolvedFunction"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// --- Concrete Error Types ---

// SyntaxError represents malformed input handed to the compiler, such as an
// ESTree document with a missing or mistyped field.
type SyntaxError struct {
	Position
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string {
	if e.IsValid() {
		return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("Syntax Error: %s", e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// CompileError represents an error during bytecode compilation.
type CompileError struct {
	Position
	Code  ErrorKind
	Msg   string
	Cause error
}

func (e *CompileError) Error() string {
	msg := e.Msg
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.IsValid() {
		return fmt.Sprintf("Compile Error at %d:%d: %s: %s", e.Line, e.Column, e.Code, msg)
	}
	return fmt.Sprintf("Compile Error: %s: %s", e.Code, msg)
}
func (e *CompileError) Pos() Position   { return e.Position }
func (e *CompileError) Kind() string    { return "Compile" }
func (e *CompileError) Message() string { return e.Msg }
func (e *CompileError) Unwrap() error   { return e.Cause }
func (e *CompileError) CausedBy(cause error) *CompileError {
	e.Cause = cause
	return e
}

// NewCompileError creates a CompileError of the given kind at pos.
func NewCompileError(pos Position, kind ErrorKind, format string, args ...any) *CompileError {
	return &CompileError{
		Position: pos,
		Code:     kind,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// IsKind reports whether err, or any error it wraps, is a CompileError of
// the given kind. The innermost match wins, so a wrapped
// UndeclaredIdentifier is still found under an outer context error.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var ce *CompileError
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Code == kind {
			return true
		}
		err = ce.Cause
	}
	return false
}

// RootCause returns the innermost CompileError in err's chain, or nil.
func RootCause(err error) *CompileError {
	var root *CompileError
	for err != nil {
		var ce *CompileError
		if !stderrors.As(err, &ce) {
			break
		}
		root = ce
		err = ce.Cause
	}
	return root
}
