package extractor

import (
	"testing"

	"nscope/internal/core/errors"
	"nscope/internal/engine/resolution"
)

func extractRendered(t *testing.T, source string) string {
	t.Helper()
	contexts, err := NewExtractor(nil, nil).Extract([]byte(source))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return contexts.Render(nil)
}

func assertRendered(t *testing.T, source, want string) {
	t.Helper()
	if got := extractRendered(t, source); got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
}

const classBodies = `
    $object = new namespace \ ClassA ;

    interface InterfaceA
    {
        public function functionA ( ) ;
    }

    interface InterfaceB
    {
        public function functionB ( ) ;
        public function functionC ( ) ;
    }

    interface InterfaceC extends InterfaceA , InterfaceB
    {
    }

    class ClassB
    {
    }

    class ClassC implements InterfaceA
    {
        public function functionA()
        {
        }
    }

    class ClassD implements InterfaceA , InterfaceB
    {
        public function functionA()
        {
        }
    }
`

const useBlock = `
    use ClassF ;

    use ClassG as ClassH ;

    use NamespaceD \ ClassI ;

    use NamespaceE \ ClassJ as ClassK ;

    use NamespaceF \ NamespaceG \ ClassL ;
`

const renderedUseBlock = `use ClassF;
use ClassG as ClassH;
use NamespaceD\ClassI;
use NamespaceE\ClassJ as ClassK;
use NamespaceF\NamespaceG\ClassL;
`

func TestExtractRegularNamespaces(t *testing.T) {
	source := "<?php\n\n    declare ( ticks = 1 ) ;\n\n    namespace NamespaceA \\ NamespaceB ;\n" +
		useBlock + classBodies + `
    function FunctionA(ClassA $a, ClassB $b = null, ClassC $C = null)
    {
    }

    const CONSTANT_A = 'CONSTANT_A_VALUE';
    const CONSTANT_B = CONSTANT_C;

    $object = new namespace \ ClassA ;

    namespace NamespaceC ;

    use ClassM ;

    use ClassN ;

    class ClassE
    {
    }
`
	want := "namespace NamespaceA\\NamespaceB;\n\n" + renderedUseBlock + `
\NamespaceA\NamespaceB\InterfaceA;
\NamespaceA\NamespaceB\InterfaceB;
\NamespaceA\NamespaceB\InterfaceC;
\NamespaceA\NamespaceB\ClassB;
\NamespaceA\NamespaceB\ClassC;
\NamespaceA\NamespaceB\ClassD;
\NamespaceA\NamespaceB\FunctionA;
\NamespaceA\NamespaceB\CONSTANT_A;
\NamespaceA\NamespaceB\CONSTANT_B;

namespace NamespaceC;

use ClassM;
use ClassN;

\NamespaceC\ClassE;
`
	assertRendered(t, source, want)
}

func TestExtractBracedNamespaces(t *testing.T) {
	source := `<?php
    namespace NamespaceA \ NamespaceB
    {
        use ClassF ;

        $object = new namespace \ ClassA ;

        class ClassB
        {
            public function functionA() { if (true) { return; } }
        }
    }

    namespace
    {
        use ClassO ;

        class ClassQ
        {
        }

        function FunctionC()
        {
        }

        const CONSTANT_D = 'CONSTANT_D_VALUE';
    }
`
	want := `namespace NamespaceA\NamespaceB;

use ClassF;

\NamespaceA\NamespaceB\ClassB;

namespace;

use ClassO;

\ClassQ;
\FunctionC;
\CONSTANT_D;
`
	assertRendered(t, source, want)
}

func TestExtractNoNamespace(t *testing.T) {
	source := "<?php\n    declare ( ticks = 1 ) ;\n" + useBlock + classBodies
	want := "namespace;\n\n" + renderedUseBlock + `
\InterfaceA;
\InterfaceB;
\InterfaceC;
\ClassB;
\ClassC;
\ClassD;
`
	assertRendered(t, source, want)
}

func TestExtractNamespacesWithoutDeclarations(t *testing.T) {
	source := `<?php
    namespace NamespaceA { use ClassF ; }
    namespace NamespaceC { use ClassM ; use ClassN ; }
    namespace { }
`
	want := `namespace NamespaceA;

use ClassF;

namespace NamespaceC;

use ClassM;
use ClassN;

namespace;
`
	assertRendered(t, source, want)
}

func TestExtractEmptySource(t *testing.T) {
	contexts, err := NewExtractor(nil, nil).Extract(nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected exactly one context, got %d", len(contexts))
	}
	ctx := contexts[0]
	if !ctx.Context.PrimaryNamespace().IsRoot() || len(ctx.Context.UseStatements()) != 0 || len(ctx.Declarations) != 0 {
		t.Fatalf("expected empty root context, got %+v", ctx)
	}
	if got := contexts.Render(nil); got != "namespace;\n" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestExtractTraits(t *testing.T) {
	source := `<?php
    namespace NamespaceA;

    trait TraitA
    {
    }

    trait TraitC
    {
        use TraitA ;
    }

    class ClassD
    {
        use TraitA ;
    }
`
	want := `namespace NamespaceA;

\NamespaceA\TraitA;
\NamespaceA\TraitC;
\NamespaceA\ClassD;
`
	assertRendered(t, source, want)
}

func TestExtractUseStatementKinds(t *testing.T) {
	source := `<?php
    use ClassF ;
    use function FunctionA ;
    use function FunctionB as FunctionC ;
    use function NamespaceH \ FunctionE as FunctionF ;
    use const CONSTANT_A ;
    use const NamespaceJ \ CONSTANT_E as CONSTANT_F ;
`
	want := `namespace;

use ClassF;
use function FunctionA;
use function FunctionB as FunctionC;
use function NamespaceH\FunctionE as FunctionF;
use const CONSTANT_A;
use const NamespaceJ\CONSTANT_E as CONSTANT_F;
`
	assertRendered(t, source, want)
}

func TestExtractDeclarationKinds(t *testing.T) {
	source := `namespace A\B; use C; use D as E; class F {} function G() {} const H = 1;`
	contexts, err := NewExtractor(nil, nil).Extract([]byte(source))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected one context, got %d", len(contexts))
	}
	ctx := contexts[0]
	if got := ctx.Context.PrimaryNamespace().String(); got != `\A\B` {
		t.Fatalf("expected primary namespace \\A\\B, got %s", got)
	}
	uses := ctx.Context.UseStatements()
	if len(uses) != 2 || uses[0].String() != "use C;" || uses[1].String() != "use D as E;" {
		t.Fatalf("unexpected use statements %v", uses)
	}

	want := []struct {
		symbol string
		kind   DeclKind
	}{
		{`\A\B\F`, DeclClass},
		{`\A\B\G`, DeclFunction},
		{`\A\B\H`, DeclConstant},
	}
	if len(ctx.Declarations) != len(want) {
		t.Fatalf("expected %d declarations, got %d", len(want), len(ctx.Declarations))
	}
	for i, w := range want {
		decl := ctx.Declarations[i]
		if decl.Symbol.String() != w.symbol || decl.Kind != w.kind {
			t.Errorf("declaration %d: expected %s %s, got %s %s", i, w.kind, w.symbol, decl.Kind, decl.Symbol)
		}
	}
}

func TestExtractSkipsNonDeclarations(t *testing.T) {
	source := `<?php
namespace App;

enum Suit: string { case Hearts = 'H'; }
$name = Suit::class;
$f = function ($x) use ($y) { return $x; };
$o = new class { public function run() {} };
$s = "class NotReal { }";
// class Commented {}
/* interface Hidden {} */
$h = <<<EOT
function notAFunction() {}
EOT;
`
	want := `namespace App;

\App\Suit;
`
	assertRendered(t, source, want)
}

func TestExtractSkipsShellExec(t *testing.T) {
	source := "<?php namespace A; $out = `echo class Hidden {}`; $e = `a \\` class Escaped {}`; class Shown {}"
	assertRendered(t, source, "namespace A;\n\n\\A\\Shown;\n")
}

func TestExtractConstantList(t *testing.T) {
	source := `<?php
namespace A;

const X = 1, Y = [1, 2], Z = max(3, 4);
const W = 'w';
`
	want := `namespace A;

\A\X;
\A\Y;
\A\Z;
\A\W;
`
	assertRendered(t, source, want)

	contexts, err := NewExtractor(nil, nil).Extract([]byte(source))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, decl := range contexts[0].Declarations {
		if decl.Kind != DeclConstant {
			t.Errorf("expected %s to be a constant, got %s", decl.Symbol, decl.Kind)
		}
	}
}

func TestExtractGroupUse(t *testing.T) {
	source := `<?php
namespace App;

use Vendor\Pkg\{ClassA, Sub\ClassB as B, function helper, const LIMIT};
use function Vendor\fn_a, Vendor\fn_b;
`
	want := `namespace App;

use Vendor\Pkg\ClassA;
use Vendor\Pkg\Sub\ClassB as B;
use function Vendor\Pkg\helper;
use const Vendor\Pkg\LIMIT;
use function Vendor\fn_a;
use function Vendor\fn_b;
`
	assertRendered(t, source, want)
}

func TestExtractDeclarationsUseAliases(t *testing.T) {
	// An imported alias shadows the namespace for a declared name of the
	// same kind.
	contexts, err := NewExtractor(nil, nil).Extract([]byte(`<?php namespace A; use function X\f; function f() {} class f {}`))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	decls := contexts[0].Declarations
	if decls[0].Symbol.String() != `\X\f` || decls[1].Symbol.String() != `\A\f` {
		t.Fatalf("unexpected declarations %s %s", decls[0].Symbol, decls[1].Symbol)
	}
}

func TestExtractInvalidName(t *testing.T) {
	tokens := fixedTokenizer{
		{Kind: TokenUse, Text: "use"},
		{Kind: TokenIdentifier, Text: "A"},
		{Kind: TokenSeparator, Text: `\`},
		{Kind: TokenIdentifier, Text: "1B"},
		{Kind: TokenPunct, Text: ";"},
	}
	_, err := NewExtractor(tokens, nil).Extract(nil)
	if !errors.IsCode(err, errors.CodeInvalidAtom) {
		t.Fatalf("expected INVALID_ATOM, got %v", err)
	}
}

func TestParsedContextsLookup(t *testing.T) {
	source := "<?php\nnamespace A;\nuse X\\Y;\n\nclass C {}\n\nnamespace B;\n\nclass D {}\n"
	contexts, err := NewExtractor(nil, nil).Extract([]byte(source))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(contexts) != 2 {
		t.Fatalf("expected two contexts, got %d", len(contexts))
	}

	first := contexts[0]
	if first.Position != (Position{Line: 2, Column: 1}) {
		t.Fatalf("unexpected first position %s", first.Position)
	}
	if first.HeaderEnd != len("<?php\nnamespace A;\nuse X\\Y;") {
		t.Fatalf("unexpected header end %d", first.HeaderEnd)
	}
	if len(first.UseSpans) != 1 || source[first.UseSpans[0].Start:first.UseSpans[0].End] != "use X\\Y;" {
		t.Fatalf("unexpected use spans %+v", first.UseSpans)
	}
	if decl := first.Declarations[0]; decl.Position != (Position{Line: 5, Column: 7}) || source[decl.Offset:decl.Offset+1] != "C" {
		t.Fatalf("unexpected declaration location %+v", decl)
	}

	t.Run("At", func(t *testing.T) {
		if _, err := contexts.At(1); err != nil {
			t.Fatalf("at 1: %v", err)
		}
		if _, err := contexts.At(2); !errors.IsCode(err, errors.CodeUndefinedContext) {
			t.Fatalf("expected UNDEFINED_CONTEXT, got %v", err)
		}
	})

	t.Run("ContextAt", func(t *testing.T) {
		got, err := contexts.ContextAt(Position{Line: 9, Column: 1})
		if err != nil || got.Context.PrimaryNamespace().String() != `\B` {
			t.Fatalf("expected namespace B, got %v %v", got.Context, err)
		}
		got, err = contexts.ContextAt(Position{Line: 3, Column: 1})
		if err != nil || got.Context.PrimaryNamespace().String() != `\A` {
			t.Fatalf("expected namespace A, got %v %v", got.Context, err)
		}
		if _, err := contexts.ContextAt(Position{Line: 1, Column: 1}); !errors.IsCode(err, errors.CodeUndefinedContext) {
			t.Fatalf("expected UNDEFINED_CONTEXT before the first namespace, got %v", err)
		}
	})

	t.Run("ContextAtOffset", func(t *testing.T) {
		got, err := contexts.ContextAtOffset(len(source) - 1)
		if err != nil || got.Context.PrimaryNamespace().String() != `\B` {
			t.Fatalf("expected namespace B, got %v %v", got.Context, err)
		}
	})
}

type fixedTokenizer []Token

func (f fixedTokenizer) Tokenize([]byte) ([]Token, error) {
	return f, nil
}

func TestExtractWithCustomTokenizer(t *testing.T) {
	tokens := fixedTokenizer{
		{Kind: TokenNamespace, Text: "namespace"},
		{Kind: TokenIdentifier, Text: "Pkg"},
		{Kind: TokenPunct, Text: ";"},
		{Kind: TokenFunction, Text: "function"},
		{Kind: TokenIdentifier, Text: "run"},
		{Kind: TokenPunct, Text: "("},
		{Kind: TokenPunct, Text: ")"},
		{Kind: TokenPunct, Text: "{"},
		{Kind: TokenPunct, Text: "}"},
	}
	contexts, err := NewExtractor(tokens, resolution.NewResolver()).Extract(nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := contexts.Render(nil); got != "namespace Pkg;\n\n\\Pkg\\run;\n" {
		t.Fatalf("unexpected rendering %q", got)
	}
}
