package index

import (
	"sync"
	"testing"
)

func TestVocabularyGetOrAdd(t *testing.T) {
	v := NewSharedVocabulary[string]()

	id1 := v.GetOrAdd("chat")
	id2 := v.GetOrAdd("chien")
	id3 := v.GetOrAdd("chat")

	if id1 != id3 {
		t.Errorf("same term must keep its id: %d vs %d", id1, id3)
	}
	if id1 == id2 {
		t.Error("distinct terms must get distinct ids")
	}
	if v.Len() != 2 {
		t.Errorf("expected 2 terms, got %d", v.Len())
	}
}

func TestVocabularyDenseIds(t *testing.T) {
	v := NewSharedVocabulary[int]()
	for i := 0; i < 100; i++ {
		if id := v.GetOrAdd(i * 7); id != TermId(i) {
			t.Fatalf("expected dense id %d, got %d", i, id)
		}
	}
}

func TestVocabularyGetUnknown(t *testing.T) {
	v := NewSharedVocabulary[string]()
	if _, ok := v.Get("inconnu"); ok {
		t.Error("unknown term must not resolve")
	}
}

func TestVocabularyConcurrentGetOrAdd(t *testing.T) {
	v := NewSharedVocabulary[int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				v.GetOrAdd(i)
			}
		}()
	}
	wg.Wait()

	if v.Len() != 500 {
		t.Fatalf("expected 500 terms, got %d", v.Len())
	}
	// Les ids doivent rester un ensemble dense 0..499 sans doublon.
	seen := make(map[TermId]bool)
	v.Each(func(_ int, id TermId) {
		if seen[id] {
			t.Fatalf("duplicate term id %d", id)
		}
		if id >= 500 {
			t.Fatalf("id %d out of dense range", id)
		}
		seen[id] = true
	})
}

func TestVocabularyTermsSnapshot(t *testing.T) {
	v := NewSharedVocabulary[string]()
	v.GetOrAdd("a")
	v.GetOrAdd("b")

	terms := v.Terms()
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(terms))
	}
}
