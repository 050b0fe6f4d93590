package storage

import (
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestNewStoreIsEmpty(t *testing.T) {
	t.Parallel()

	store := New()
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d keys", store.Len())
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected missing key to be absent")
	}
}

func TestSetAndTypedGetters(t *testing.T) {
	t.Parallel()

	store := New()
	store.Set("NAME", "scaffold")
	store.Set("CELERY", map[string]any{"broker": "pyamqp://"})
	store.Set("SECRET", nil)

	if got, ok := store.String("NAME"); !ok || got != "scaffold" {
		t.Fatalf("unexpected string value %q (ok=%v)", got, ok)
	}
	if _, ok := store.String("CELERY"); ok {
		t.Fatalf("expected mapping not to be returned as string")
	}
	if m, ok := store.Mapping("CELERY"); !ok || m["broker"] != "pyamqp://" {
		t.Fatalf("unexpected mapping %v (ok=%v)", m, ok)
	}
	if !store.Has("SECRET") {
		t.Fatalf("expected nil value to count as set")
	}
}

func TestUpdateIsShallow(t *testing.T) {
	t.Parallel()

	store := New()
	store.Set("section", map[string]any{"a": "1", "b": "2"})
	store.Set("keep", true)

	store.Update(map[string]any{
		"section": map[string]any{"c": "3"},
		"added":   42,
	})

	section, _ := store.Mapping("section")
	if len(section) != 1 || section["c"] != "3" {
		t.Fatalf("expected nested mapping to be replaced, got %v", section)
	}
	if want := []string{"added", "keep", "section"}; !slices.Equal(store.Keys(), want) {
		t.Fatalf("expected keys %v, got %v", want, store.Keys())
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	store := New()
	store.Set("section", map[string]any{"key": "val"})
	store.Set("list", []any{"a"})

	snap := store.Snapshot()
	snap["section"].(map[string]any)["key"] = "changed"
	snap["list"].([]any)[0] = "changed"
	snap["new"] = 1

	section, _ := store.Mapping("section")
	if section["key"] != "val" {
		t.Fatalf("expected snapshot mutation not to leak, got %v", section)
	}
	list, _ := store.Get("list")
	if list.([]any)[0] != "a" {
		t.Fatalf("expected list copy, got %v", list)
	}
	if store.Has("new") {
		t.Fatalf("expected snapshot key not to leak into store")
	}
}

func TestStoreConcurrentReads(t *testing.T) {
	store := New()
	for i := 0; i < 16; i++ {
		store.Set(fmt.Sprintf("KEY_%d", i), i)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, ok := store.Get(fmt.Sprintf("KEY_%d", i%16)); !ok {
				t.Errorf("expected key %d", i%16)
			}
			_ = store.Snapshot()
		}(i)
	}
	wg.Wait()
}
