package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // stream or table to model
	PhaseEncode   Phase = "encode"   // model to stream or table
	PhaseRelocate Phase = "relocate" // insertion and branch fixups
	PhaseAnalyze  Phase = "analyze"  // stack depth analysis
	PhaseValidate Phase = "validate" // consistency checks
	PhaseConfig   Phase = "config"   // host profile and opcode tables
)

// Kind categorizes the error
type Kind string

const (
	KindOverflow     Kind = "overflow"
	KindMalformed    Kind = "malformed"
	KindUnsupported  Kind = "unsupported"
	KindInvalidInput Kind = "invalid_input"
	KindInvalidData  Kind = "invalid_data"
	KindOutOfBounds  Kind = "out_of_bounds"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Detail    string
	Path      []string
	Offset    int
	HasOffset bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" in ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HasOffset {
		b.WriteString(" at offset ")
		b.WriteString(strconv.Itoa(e.Offset))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && e.Phase != t.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks against the fatal conditions of an edit.
var (
	ErrEncodingOverflow   = &Error{Kind: KindOverflow}
	ErrMalformedStream    = &Error{Kind: KindMalformed}
	ErrUnsupportedVersion = &Error{Kind: KindUnsupported}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the table path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At sets the stream offset
func (b *Builder) At(offset int) *Builder {
	b.err.Offset = offset
	b.err.HasOffset = true
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// EncodingOverflow creates an error for a value wider than the encoding allows
func EncodingOverflow(phase Phase, value any, bits int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("value %v does not fit in %d bits", value, bits),
		Value:  value,
	}
}

// MalformedStream creates an error for an undecodable instruction stream or table
func MalformedStream(phase Phase, offset int, detail string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindMalformed,
		Detail:    detail,
		Offset:    offset,
		HasOffset: true,
	}
}

// UnsupportedVersion creates an error for a host version without an implemented encoding
func UnsupportedVersion(version string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf("host version %s is not supported", version),
		Value:  version,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidInput creates an error for a request the caller should not have made
func InvalidInput(phase Phase, offset int, detail string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindInvalidInput,
		Detail:    detail,
		Offset:    offset,
		HasOffset: true,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
