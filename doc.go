// Package bcedit edits compiled stack-VM bytecode in place.
//
// Instrumentation is inserted into an existing instruction stream while every
// jump keeps pointing at its original target, and the code's line table,
// exception table and stack size are rebuilt to match.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	bcedit/
//	├── editor/      Insertion, jump relocation and final re-encoding
//	├── instr/       Variable-width instruction codec with extension prefixes
//	├── branch/      Jump model: target tracking, widening, re-encoding
//	├── lines/       Offset to line tables (lnotab, linetable, positions)
//	├── exctable/    Exception range table codec
//	├── stack/       Maximum stack depth analysis
//	├── varint/      Variable-length integers used by the tables
//	├── opcode/      Opcode tables, loadable from TOML
//	├── host/        Host versions and their encoding profiles
//	└── errors/      Structured error types for debugging
//
// # Quick Start
//
// Load the host's opcode table and insert a probe in front of a line:
//
//	table, err := opcode.Load("opcodes/3.11.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile, err := host.ProfileFor(host.Version{Major: 3, Minor: 11})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ed, err := editor.New(code, editor.Options{Opcodes: table, Profile: profile})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ed.Insert(lineStart, probe); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := ed.Finish()
//
// # Relocation
//
// Inserted code shifts everything after it. Jumps whose operand no longer
// fits their width are widened with extension prefixes, which shifts code
// again; Finish repeats this until no jump grows. Jumps never shrink, so
// the process always terminates.
//
// # Thread Safety
//
// Opcode tables and profiles are read-only after construction and may be
// shared. An Editor and the values it returns belong to a single goroutine.
package bcedit
