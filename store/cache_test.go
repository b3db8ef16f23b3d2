package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/rpal/compiler"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openTestCache(t)

	if _, err := c.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := c.Put("k1", Entry{Output: "hello\n", Result: "dummy", Steps: 12}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, err := c.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Output != "hello\n" {
		t.Errorf("Output = %q, want %q", e.Output, "hello\n")
	}
	if e.Result != "dummy" {
		t.Errorf("Result = %q, want %q", e.Result, "dummy")
	}
	if e.Steps != 12 {
		t.Errorf("Steps = %d, want 12", e.Steps)
	}
	if e.Created.IsZero() {
		t.Error("Created is zero")
	}
}

func TestPutReplaces(t *testing.T) {
	c := openTestCache(t)

	if err := c.Put("k", Entry{Output: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("k", Entry{Output: "b"}); err != nil {
		t.Fatal(err)
	}
	n, err := c.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
	e, err := c.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if e.Output != "b" {
		t.Errorf("Output = %q, want %q", e.Output, "b")
	}
}

func TestClear(t *testing.T) {
	c := openTestCache(t)
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, Entry{Output: k}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d, want 0", n)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("k", Entry{Output: "kept"}); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	e, err := c.Get("k")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if e.Output != "kept" {
		t.Errorf("Output = %q, want %q", e.Output, "kept")
	}
}

func TestKeyIgnoresLayout(t *testing.T) {
	parse := func(src string) *compiler.Node {
		t.Helper()
		root, err := compiler.Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		return root
	}

	k1, err := Key(parse("let x = 1 in Print x"))
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Key(parse("let  x=1 // one\nin Print x"))
	if err != nil {
		t.Fatal(err)
	}
	k3, err := Key(parse("let x = 2 in Print x"))
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Errorf("keys differ for equivalent sources: %s vs %s", k1, k2)
	}
	if k1 == k3 {
		t.Error("keys equal for different programs")
	}
	if len(k1) != 64 {
		t.Errorf("key length = %d, want 64", len(k1))
	}
}
