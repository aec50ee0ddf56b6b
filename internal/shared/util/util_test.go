package util

import (
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./src/Models  ", expected: "src/Models"},
		{name: "Relative", input: "src/../lib", expected: "lib"},
		{name: "Backslashes", input: `src\Http\Kernel.php`, expected: "src/Http/Kernel.php"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Exact", path: "src/Models", prefix: "src/Models", expected: true},
		{name: "Nested", path: "src/Models/User.php", prefix: "src/Models", expected: true},
		{name: "Neighbor", path: "src/ModelsExtra", prefix: "src/Models", expected: false},
		{name: "Shorter", path: "src", prefix: "src/Models", expected: false},
		{name: "MixedSeparators", path: `src\Models\User.php`, prefix: "src/Models", expected: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	keys := SortedStringKeys(map[string]int{"b.php": 2, "a.php": 1, "c.php": 3})
	expected := []string{"a.php", "b.php", "c.php"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestPathFilter(t *testing.T) {
	t.Parallel()

	f, err := NewPathFilter([]string{".php", " .PHTML "}, []string{"vendor", ".*"}, []string{"*Test.php", "*.blade.php"})
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}

	dirs := map[string]bool{
		"project/vendor":     true,
		"project/.git":       true,
		"project/src":        false,
		"project/vendorlike": false,
	}
	for dir, want := range dirs {
		if got := f.SkipDir(dir); got != want {
			t.Errorf("SkipDir(%q): expected %v, got %v", dir, want, got)
		}
	}

	files := map[string]bool{
		"src/User.php":           true,
		"src/View.PHTML":         true,
		"src/UserTest.php":       false,
		"views/home.blade.php":   false,
		"README.md":              false,
		"src/Models/Invoice.php": true,
	}
	for file, want := range files {
		if got := f.Accept(file); got != want {
			t.Errorf("Accept(%q): expected %v, got %v", file, want, got)
		}
	}

	if _, err := NewPathFilter(nil, []string{"["}, nil); err == nil {
		t.Fatal("expected error for invalid glob")
	}
}

func TestPathFilter_NoExtensions(t *testing.T) {
	t.Parallel()

	f, err := NewPathFilter(nil, nil, nil)
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	if !f.Accept("anything.txt") {
		t.Fatal("expected empty extension set to accept every file")
	}
}
