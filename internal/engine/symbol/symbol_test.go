package symbol

import (
	"testing"

	"nscope/internal/core/errors"
)

func TestParseRoundTrip(t *testing.T) {
	names := []string{`\`, `\A`, `\A\B\C`, `A`, `A\B`, `namespace\X`, `\Vendor_1\Pkg\ÿname`}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			first, err := Parse(name)
			if err != nil {
				t.Fatalf("parse %q: %v", name, err)
			}
			second, err := Parse(first.String())
			if err != nil {
				t.Fatalf("reparse %q: %v", first.String(), err)
			}
			if !first.Equal(second) {
				t.Fatalf("round trip changed %s into %s", first, second)
			}
			if first.String() != name {
				t.Fatalf("expected %q, got %q", name, first.String())
			}
		})
	}
}

func TestInvalidAtoms(t *testing.T) {
	for _, name := range []string{"", `\A\`, `A\\B`, `1A`, `A-B`, `A B`} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(name)
			if !errors.IsCode(err, errors.CodeInvalidAtom) {
				t.Fatalf("expected INVALID_ATOM for %q, got %v", name, err)
			}
		})
	}
}

func TestMustParsePanicsOnInvalidLiteral(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustParse to panic")
		}
	}()
	MustParse(`A-B`)
}

func TestQualifiedAndReferenceNeverEqual(t *testing.T) {
	if MustParse(`\A\B`).Equal(MustParse(`A\B`)) {
		t.Fatal("symbols with different tags must not be equal")
	}
	if !MustParse(`\A\B`).Equal(MustParse(`\A\B`)) {
		t.Fatal("expected structural equality")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`A\.\B`, `A\B`},
		{`A\B\..\C`, `A\C`},
		{`.`, `.`},
		{`A\..`, `.`},
		{`\A\..\B`, `\B`},
	}
	for _, tt := range tests {
		got, err := MustParse(tt.in).Normalize()
		if err != nil {
			t.Fatalf("normalize %q: %v", tt.in, err)
		}
		if got.String() != tt.want {
			t.Errorf("normalize %q: expected %q, got %q", tt.in, tt.want, got.String())
		}
	}

	if _, err := MustParse(`A\..\..`).Normalize(); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected underflow validation error, got %v", err)
	}
	if _, err := Parse(`\..`); err == nil {
		t.Fatal("expected qualified underflow to fail")
	}
}

func TestJoin(t *testing.T) {
	joined, err := MustParse(`\A`).Join(MustParse(`B\C`))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.String() != `\A\B\C` || !joined.IsQualified() {
		t.Fatalf("unexpected join result %s", joined)
	}

	joined, err = MustParse(`A`).Join(MustParse(`..\B`))
	if err != nil {
		t.Fatalf("join reference: %v", err)
	}
	if joined.String() != `A\..\B` {
		t.Fatalf("references must not normalize on join, got %s", joined)
	}

	if _, err := MustParse(`A`).Join(MustParse(`\B`)); err == nil {
		t.Fatal("expected joining a qualified symbol to fail")
	}
}

func TestAtomAccessors(t *testing.T) {
	sym := MustParse(`\A\B\C`)
	if got := sym.FirstAtom(); got.String() != "A" || got.IsQualified() {
		t.Fatalf("unexpected first atom %s", got)
	}
	if got := sym.LastAtom(); got.String() != "C" {
		t.Fatalf("unexpected last atom %s", got)
	}
	if got := sym.Parent(); got.String() != `\A\B` {
		t.Fatalf("unexpected parent %s", got)
	}
	if got := sym.Tail(2); got.String() != `B\C` {
		t.Fatalf("unexpected tail %s", got)
	}
	rel, ok := sym.RelativeTo(MustParse(`\A`))
	if !ok || rel.String() != `B\C` {
		t.Fatalf("unexpected relative %s %v", rel, ok)
	}
	if _, ok := sym.RelativeTo(sym); ok {
		t.Fatal("a symbol is not its own strict descendant")
	}
	if !sym.IsDescendantOf(Root()) {
		t.Fatal("every qualified symbol descends from the root")
	}
}
