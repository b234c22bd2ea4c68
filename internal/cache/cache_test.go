package cache

import (
	"errors"
	"testing"
)

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := New[string, int](2, func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b survived eviction")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if s := c.Stats(); s.Evictions != 1 || s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestGetOrLoad(t *testing.T) {
	c := New[string, int](0, nil)
	loads := 0
	load := func() (int, error) {
		loads++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != 42 {
			t.Fatalf("GetOrLoad = %d, %v", v, err)
		}
	}
	if loads != 1 {
		t.Errorf("load ran %d times, want 1", loads)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed load was cached")
	}
}

func TestReplaceDeleteClear(t *testing.T) {
	released := map[int]bool{}
	c := New[string, int](0, func(_ string, v int) { released[v] = true })

	c.Set("a", 1)
	c.Set("a", 2)
	if !released[1] {
		t.Error("replaced value not released")
	}
	if !c.Delete("a") || c.Delete("a") {
		t.Error("Delete result wrong")
	}
	if !released[2] {
		t.Error("deleted value not released")
	}

	c.Set("x", 10)
	c.Set("y", 11)
	c.Clear()
	if c.Len() != 0 || !released[10] || !released[11] {
		t.Errorf("Clear left %d entries, released %v", c.Len(), released)
	}
}
