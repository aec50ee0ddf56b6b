// Package symbol holds the atom and symbol value types shared by the
// resolver, extractor and import planner.
package symbol

import (
	"strings"

	"nscope/internal/core/errors"
)

const (
	// Separator splits atoms in the textual form of a symbol.
	Separator = `\`

	SelfAtom      = "."
	ParentAtom    = ".."
	NamespaceAtom = "namespace"
)

// Symbol is an immutable sequence of atoms. A qualified symbol is anchored
// at the global namespace and is always normalized; a reference is relative
// and may contain self/parent atoms until normalized.
//
// The zero value is an empty reference and is used to mean "no symbol".
type Symbol struct {
	atoms     []string
	qualified bool
}

// IsValidAtom reports whether atom is an identifier atom. Special atoms are
// not identifiers, with the exception of "namespace" which is lexically one.
func IsValidAtom(atom string) bool {
	if atom == "" {
		return false
	}
	for i := 0; i < len(atom); i++ {
		c := atom[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= 0x7f:
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// IsSpecialAtom reports whether atom is one of self, parent or namespace.
func IsSpecialAtom(atom string) bool {
	return atom == SelfAtom || atom == ParentAtom || strings.EqualFold(atom, NamespaceAtom)
}

func validateAtoms(atoms []string) error {
	for _, atom := range atoms {
		if atom == SelfAtom || atom == ParentAtom {
			continue
		}
		if !IsValidAtom(atom) {
			return errors.InvalidAtom(atom)
		}
	}
	return nil
}

// Root returns the qualified symbol of the global namespace.
func Root() Symbol {
	return Symbol{qualified: true}
}

// NewQualified builds a qualified symbol. Self and parent atoms are resolved
// immediately; popping past the global namespace is an error.
func NewQualified(atoms ...string) (Symbol, error) {
	if err := validateAtoms(atoms); err != nil {
		return Symbol{}, err
	}
	normalized, err := normalizeAtoms(atoms)
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{atoms: normalized, qualified: true}, nil
}

// NewReference builds a reference from one or more atoms.
func NewReference(atoms ...string) (Symbol, error) {
	if len(atoms) == 0 {
		return Symbol{}, errors.InvalidAtom("")
	}
	if err := validateAtoms(atoms); err != nil {
		return Symbol{}, err
	}
	return Symbol{atoms: append([]string(nil), atoms...)}, nil
}

// Parse reads the textual form of a symbol. A leading separator marks a
// qualified symbol; a lone separator is the global namespace.
func Parse(s string) (Symbol, error) {
	if s == Separator {
		return Root(), nil
	}
	if strings.HasPrefix(s, Separator) {
		return NewQualified(strings.Split(s[len(Separator):], Separator)...)
	}
	return NewReference(strings.Split(s, Separator)...)
}

// MustParse is Parse for constant literals known to be valid, such as
// test fixtures. It panics on invalid input.
func MustParse(s string) Symbol {
	sym, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sym
}

func (s Symbol) Atoms() []string {
	return append([]string(nil), s.atoms...)
}

func (s Symbol) Len() int {
	return len(s.atoms)
}

func (s Symbol) AtomAt(i int) string {
	return s.atoms[i]
}

func (s Symbol) IsQualified() bool {
	return s.qualified
}

// IsRoot reports whether s is the global namespace.
func (s Symbol) IsRoot() bool {
	return s.qualified && len(s.atoms) == 0
}

// IsZero reports whether s is the zero value.
func (s Symbol) IsZero() bool {
	return !s.qualified && len(s.atoms) == 0
}

// String renders qualified symbols with a leading separator.
func (s Symbol) String() string {
	if s.qualified {
		return Separator + s.Name()
	}
	return s.Name()
}

// Name renders the atoms without any leading separator.
func (s Symbol) Name() string {
	return strings.Join(s.atoms, Separator)
}

func (s Symbol) Equal(other Symbol) bool {
	if s.qualified != other.qualified || len(s.atoms) != len(other.atoms) {
		return false
	}
	for i := range s.atoms {
		if s.atoms[i] != other.atoms[i] {
			return false
		}
	}
	return true
}

// Join appends the atoms of a reference. Joining onto a qualified symbol
// yields a normalized qualified symbol.
func (s Symbol) Join(other Symbol) (Symbol, error) {
	if other.qualified {
		return Symbol{}, errors.AddContext(errors.New(errors.CodeValidationError, "cannot join a qualified symbol"), errors.CtxSymbol, other.String())
	}
	atoms := make([]string, 0, len(s.atoms)+len(other.atoms))
	atoms = append(atoms, s.atoms...)
	atoms = append(atoms, other.atoms...)
	if !s.qualified {
		return Symbol{atoms: atoms}, nil
	}
	normalized, err := normalizeAtoms(atoms)
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{atoms: normalized, qualified: true}, nil
}

// Normalize resolves self and parent atoms. A reference made only of self
// atoms normalizes to a single self atom.
func (s Symbol) Normalize() (Symbol, error) {
	if s.qualified {
		return s, nil
	}
	normalized, err := normalizeAtoms(s.atoms)
	if err != nil {
		return Symbol{}, err
	}
	if len(normalized) == 0 {
		normalized = []string{SelfAtom}
	}
	return Symbol{atoms: normalized}, nil
}

func normalizeAtoms(atoms []string) ([]string, error) {
	stack := make([]string, 0, len(atoms))
	for _, atom := range atoms {
		switch atom {
		case SelfAtom:
		case ParentAtom:
			if len(stack) == 0 {
				return nil, errors.New(errors.CodeValidationError, "parent atom escapes the symbol root")
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, atom)
		}
	}
	return stack, nil
}

// FirstAtom returns the first atom as a single-atom reference.
func (s Symbol) FirstAtom() Symbol {
	if len(s.atoms) == 0 {
		return Symbol{}
	}
	return Symbol{atoms: []string{s.atoms[0]}}
}

// LastAtom returns the last atom as a single-atom reference.
func (s Symbol) LastAtom() Symbol {
	if len(s.atoms) == 0 {
		return Symbol{}
	}
	return Symbol{atoms: []string{s.atoms[len(s.atoms)-1]}}
}

// Parent drops the last atom. The parent of the root is the root.
func (s Symbol) Parent() Symbol {
	if len(s.atoms) == 0 {
		return s
	}
	return Symbol{atoms: append([]string(nil), s.atoms[:len(s.atoms)-1]...), qualified: s.qualified}
}

// HasPrefix reports whether s equals prefix or descends from it.
func (s Symbol) HasPrefix(prefix Symbol) bool {
	if s.qualified != prefix.qualified || len(prefix.atoms) > len(s.atoms) {
		return false
	}
	for i := range prefix.atoms {
		if s.atoms[i] != prefix.atoms[i] {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether s strictly descends from ancestor.
func (s Symbol) IsDescendantOf(ancestor Symbol) bool {
	return len(s.atoms) > len(ancestor.atoms) && s.HasPrefix(ancestor)
}

// RelativeTo returns the atoms of s beyond ancestor as a reference. The
// second result is false unless s strictly descends from ancestor.
func (s Symbol) RelativeTo(ancestor Symbol) (Symbol, bool) {
	if !s.IsDescendantOf(ancestor) {
		return Symbol{}, false
	}
	return Symbol{atoms: append([]string(nil), s.atoms[len(ancestor.atoms):]...)}, true
}

// Tail returns the last n atoms as a reference, or all atoms when n exceeds
// the length.
func (s Symbol) Tail(n int) Symbol {
	if n > len(s.atoms) {
		n = len(s.atoms)
	}
	return Symbol{atoms: append([]string(nil), s.atoms[len(s.atoms)-n:]...)}
}
