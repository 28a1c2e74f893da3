package keyed

import (
	"errors"
	"testing"
)

type note struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func TestPutGetTake(t *testing.T) {
	s := NewMemoryStore()

	if err := Put(s, DefaultCodec, "notes", "n1", note{ID: "n1", Title: "first"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := Get[note](s, DefaultCodec, "notes", "n1")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v, %v)", got, ok, err)
	}
	if got.Title != "first" {
		t.Errorf("Title = %q, want first", got.Title)
	}

	_, ok, err = Get[note](s, DefaultCodec, "notes", "missing")
	if ok || err != nil {
		t.Errorf("Get(missing) = (%v, %v), want (false, nil)", ok, err)
	}

	taken, ok, err := Take[note](s, DefaultCodec, "notes", "n1")
	if err != nil || !ok || taken.ID != "n1" {
		t.Errorf("Take = (%v, %v, %v)", taken, ok, err)
	}
	if s.Length("notes") != 0 {
		t.Error("Take should remove the entry")
	}
}

func TestFindAndAll(t *testing.T) {
	s := NewMemoryStore()
	_ = Put(s, DefaultCodec, "notes", "a", note{ID: "a", Title: "alpha"})
	_ = Put(s, DefaultCodec, "notes", "b", note{ID: "b", Title: "beta"})

	found, ok, err := Find(s, DefaultCodec, "notes", func(_ string, n note) bool {
		return n.Title == "beta"
	})
	if err != nil || !ok || found.ID != "b" {
		t.Errorf("Find = (%v, %v, %v), want b", found, ok, err)
	}

	all, err := All[note](s, DefaultCodec, "notes")
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Errorf("All = %v, want [a b]", all)
	}
}

func TestFind_SkipsUndecodable(t *testing.T) {
	s := NewMemoryStore()
	s.Insert("notes", "bad", []byte("{not json"))
	_ = Put(s, DefaultCodec, "notes", "good", note{ID: "good"})

	found, ok, err := Find(s, DefaultCodec, "notes", func(_ string, n note) bool { return true })
	if !ok || found.ID != "good" {
		t.Errorf("Find should skip undecodable entries, got (%v, %v)", found, ok)
	}
	if err == nil {
		t.Error("Find should report the decode error")
	}
}

func TestTypedHelpers_NilStore(t *testing.T) {
	if err := Put[note](nil, DefaultCodec, "c", "k", note{}); !errors.Is(err, ErrNilStore) {
		t.Errorf("Put(nil) = %v, want ErrNilStore", err)
	}
	if _, _, err := Get[note](nil, DefaultCodec, "c", "k"); !errors.Is(err, ErrNilStore) {
		t.Errorf("Get(nil) = %v, want ErrNilStore", err)
	}
}

func TestDefaultCodec_SortedMapKeys(t *testing.T) {
	a, err := DefaultCodec.Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(a) != `{"a":1,"b":2,"c":3}` {
		t.Errorf("Marshal = %s, want sorted keys", a)
	}
}
