package errors

import (
	"errors"
	"io/fs"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("AddContextForeign", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "index")
		if !IsCode(err, CodeInternal) {
			t.Fatalf("expected foreign error to be wrapped as internal, got %v", err)
		}
	})
}

func TestTaxonomy(t *testing.T) {
	t.Run("InvalidAtom", func(t *testing.T) {
		err := InvalidAtom("1abc")
		if !IsCode(err, CodeInvalidAtom) {
			t.Fatalf("expected INVALID_ATOM, got %v", err)
		}
	})

	t.Run("ReadCarriesPathAndCause", func(t *testing.T) {
		err := Read("/tmp/x.php", fs.ErrNotExist)
		if !IsCode(err, CodeRead) {
			t.Fatalf("expected READ_ERROR, got %v", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatal("expected read error to unwrap to the cause")
		}
		if p, ok := Path(err); !ok || p != "/tmp/x.php" {
			t.Fatalf("expected path context, got %q %v", p, ok)
		}
	})

	t.Run("WriteWithoutPath", func(t *testing.T) {
		err := Write("", nil)
		if err.Error() != "[WRITE_ERROR] unable to write to stream" {
			t.Fatalf("unexpected message %q", err.Error())
		}
		if _, ok := Path(err); ok {
			t.Fatal("expected no path context")
		}
	})

	t.Run("OffsetOutOfBoundsIsDistinctFromRead", func(t *testing.T) {
		cause := Read("", errors.New("seek failed"))
		err := OffsetOutOfBounds(-1, "", cause)
		if !IsCode(err, CodeOffsetOutOfBounds) {
			t.Fatalf("expected OFFSET_OUT_OF_BOUNDS, got %v", err)
		}
		var de *DomainError
		if !errors.As(err, &de) || de.Code != CodeOffsetOutOfBounds {
			t.Fatal("outermost code must be OFFSET_OUT_OF_BOUNDS")
		}
	})
}
