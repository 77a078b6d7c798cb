// Package errors provides structured error types for the bytecode editor.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the offending stream offset, the table path that was being
// processed, the offending value and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindOverflow).
//		Path("branch", "3").
//		At(112).
//		Value(arg).
//		Detail("operand needs %d extension slots", ext).
//		Build()
//
// Or use the constructors for the three fatal conditions of an edit:
//
//	err := errors.EncodingOverflow(errors.PhaseEncode, arg, 32)
//	err := errors.MalformedStream(errors.PhaseDecode, off, "extension prefix without opcode")
//	err := errors.UnsupportedVersion("3.7")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
