package planner

import (
	"reflect"
	"testing"

	"nscope/internal/engine/resolution"
	"nscope/internal/engine/symbol"
)

func parseAll(names ...string) []symbol.Symbol {
	out := make([]symbol.Symbol, len(names))
	for i, name := range names {
		out[i] = symbol.MustParse(name)
	}
	return out
}

func render(uses []resolution.UseStatement) []string {
	out := make([]string, len(uses))
	for i, use := range uses {
		out[i] = use.String()
	}
	return out
}

var vendorSymbols = parseAll(
	`\VendorC\PackageC`,
	`\VendorC\PackageC`,
	`\VendorB\PackageB`,
	`\VendorA\PackageA\Foo`,
	`\VendorA\PackageA\Foo\Bar\Baz`,
	`\VendorA\PackageA\Foo\Bar\Baz\Doom`,
	`\Foo\Bar\Baz\Qux`,
	`\Doom\Bar\Baz\Qux`,
	`\Bar\Baz\Qux`,
	`\Bar\Baz\Qux`,
	`\Foo`,
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		maxAtoms int
		symbols  []symbol.Symbol
		want     []string
	}{
		{
			name:     "VendorNamespace",
			primary:  `\VendorA\PackageA`,
			maxAtoms: 3,
			symbols:  vendorSymbols,
			want: []string{
				`use Bar\Baz\Qux as BarBazQux;`,
				`use Doom\Bar\Baz\Qux as DoomBarBazQux;`,
				`use Foo;`,
				`use Foo\Bar\Baz\Qux as FooBarBazQux;`,
				`use VendorA\PackageA\Foo\Bar\Baz\Doom;`,
				`use VendorB\PackageB;`,
				`use VendorC\PackageC;`,
			},
		},
		{
			name:     "GlobalNamespace",
			primary:  `\`,
			maxAtoms: 3,
			symbols:  vendorSymbols,
			want: []string{
				`use Doom\Bar\Baz\Qux as DoomBarBazQux;`,
				`use Foo\Bar\Baz\Qux as FooBarBazQux;`,
				`use VendorA\PackageA\Foo\Bar\Baz;`,
				`use VendorA\PackageA\Foo\Bar\Baz\Doom;`,
			},
		},
		{
			name:     "CollidingSuffixes",
			primary:  `\App`,
			maxAtoms: 1,
			symbols:  parseAll(`\Bar\Baz\Qux`, `\Foo\Bar\Baz\Qux`, `\Doom\Bar\Baz\Qux`, `\Foo`),
			want: []string{
				`use Bar\Baz\Qux as BarBazQux;`,
				`use Doom\Bar\Baz\Qux as DoomBarBazQux;`,
				`use Foo;`,
				`use Foo\Bar\Baz\Qux as FooBarBazQux;`,
			},
		},
		{
			name:     "GlobalNamespaceSingleAtomIsImplicit",
			primary:  `\`,
			maxAtoms: 1,
			symbols:  parseAll(`\Bar\Baz\Qux`, `\Foo\Bar\Baz\Qux`, `\Foo`),
			want: []string{
				`use Bar\Baz\Qux as BarBazQux;`,
				`use Foo\Bar\Baz\Qux as FooBarBazQux;`,
			},
		},
		{
			name:     "ShadowedImplicitName",
			primary:  `\App`,
			maxAtoms: 1,
			symbols:  parseAll(`\App\Logger`, `\Vendor\Log\Logger`),
			want:     []string{`use Vendor\Log\Logger as LogLogger;`},
		},
		{
			name:     "Empty",
			primary:  `\App`,
			maxAtoms: 1,
			symbols:  nil,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uses, err := NewPlanner(tt.maxAtoms).Plan(symbol.MustParse(tt.primary), tt.symbols)
			if err != nil {
				t.Fatalf("plan: %v", err)
			}
			if got := render(uses); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPlanTargetsSeparatesKinds(t *testing.T) {
	targets := []Target{
		{Symbol: symbol.MustParse(`\A\helper`), Kind: resolution.KindFunction},
		{Symbol: symbol.MustParse(`\B\helper`), Kind: resolution.KindClass},
		{Symbol: symbol.MustParse(`\C\LIMIT`), Kind: resolution.KindConstant},
		{Symbol: symbol.MustParse(`\D\LIMIT`), Kind: resolution.KindConstant},
	}
	uses, err := NewPlanner(0).PlanTargets(symbol.MustParse(`\App`), targets)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []string{
		`use B\helper;`,
		`use const C\LIMIT as CLIMIT;`,
		`use const D\LIMIT as DLIMIT;`,
		`use function A\helper;`,
	}
	if got := render(uses); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlannedAliasesResolveBack(t *testing.T) {
	primary := symbol.MustParse(`\VendorA\PackageA`)
	uses, err := NewPlanner(3).Plan(primary, vendorSymbols)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	ctx := resolution.NewContext(primary, uses)
	r := resolution.NewResolver()
	for _, sym := range vendorSymbols {
		short := r.Relative(ctx, sym, resolution.KindClass)
		back, err := r.Resolve(ctx, short, resolution.KindClass)
		if err != nil {
			t.Fatalf("resolve %s: %v", short, err)
		}
		if !back.Equal(sym) {
			t.Errorf("%s shortened to %s resolves to %s", sym, short, back)
		}
	}
}

func TestNewPlannerDefault(t *testing.T) {
	if got := NewPlanner(-2).MaxReferenceAtoms(); got != DefaultMaxReferenceAtoms {
		t.Fatalf("expected default %d, got %d", DefaultMaxReferenceAtoms, got)
	}
}
