package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseEncode,
				Kind:      KindOverflow,
				Path:      []string{"branch", "3"},
				Offset:    112,
				HasOffset: true,
				Detail:    "operand too wide",
			},
			contains: []string{"[encode]", "overflow", "branch.3", "offset 112", "operand too wide"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindMalformed,
			},
			contains: []string{"[decode]", "malformed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRelocate,
				Kind:   KindInvalidData,
				Detail: "line table",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[relocate]", "invalid_data", "line table", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoOffset(t *testing.T) {
	err := &Error{Phase: PhaseConfig, Kind: KindUnsupported}
	if strings.Contains(err.Error(), "offset") {
		t.Errorf("unexpected offset in %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindMalformed,
		Path:  []string{"lines"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindMalformed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindMalformed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindOverflow}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrMalformedStream) {
		t.Error("errors.Is should match phase-less sentinel")
	}
	if errors.Is(err, ErrEncodingOverflow) {
		t.Error("errors.Is should not match other sentinel")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindOverflow).
		Path("branch", "7").
		At(40).
		Value(uint64(1) << 33).
		Cause(cause).
		Detail("needs %d extension slots", 4).
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindOverflow {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
	}
	if len(err.Path) != 2 || err.Path[0] != "branch" || err.Path[1] != "7" {
		t.Errorf("Path = %v, want [branch 7]", err.Path)
	}
	if !err.HasOffset || err.Offset != 40 {
		t.Errorf("Offset = %d (set=%v), want 40", err.Offset, err.HasOffset)
	}
	if err.Value != uint64(1)<<33 {
		t.Errorf("Value = %v", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "needs 4 extension slots" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("EncodingOverflow", func(t *testing.T) {
		err := EncodingOverflow(PhaseEncode, uint64(1)<<40, 32)
		if !errors.Is(err, ErrEncodingOverflow) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if !strings.Contains(err.Detail, "32 bits") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("MalformedStream", func(t *testing.T) {
		err := MalformedStream(PhaseDecode, 6, "truncated")
		if !errors.Is(err, ErrMalformedStream) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMalformed)
		}
		if !err.HasOffset || err.Offset != 6 {
			t.Errorf("Offset = %d", err.Offset)
		}
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		err := UnsupportedVersion("2.7")
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
		if err.Phase != PhaseConfig {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseConfig)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseRelocate, []string{"code"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		err := InvalidInput(PhaseRelocate, 3, "not an instruction boundary")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		inner := MalformedStream(PhaseDecode, 0, "bad")
		err := Wrap(PhaseRelocate, KindInvalidData, inner, "line table")
		if !errors.Is(err, ErrMalformedStream) {
			t.Error("wrapped cause should be reachable")
		}
	})
}
