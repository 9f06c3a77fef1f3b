package index

import (
	"bytes"
	"testing"

	"github.com/CurrySoftware/perlin-core/storage"
)

func TestSnapshotRoundtrip(t *testing.T) {
	pmgr := storage.NewMemPageManager()
	cache := storage.NewRamPageCache(pmgr)
	defer cache.Close()

	vocab := NewSharedVocabulary[string]()
	ix := NewIndex(cache, vocab)
	ix.IndexDocument(seqOf("chat", "chien"))
	ix.IndexDocument(seqOf("chat", "loup"))
	ix.IndexDocument(seqOf("loup"))
	if err := ix.Commit(); err != nil {
		t.Fatal(err)
	}

	var snap bytes.Buffer
	if err := ix.WriteSnapshot(&snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	// Relecture sur le même cache : mêmes pages, annuaire reconstruit.
	ix2, err := ReadSnapshot(bytes.NewReader(snap.Bytes()), cache, vocab)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if ix2.DocCount() != 3 {
		t.Errorf("expected 3 documents, got %d", ix2.DocCount())
	}
	if ix2.LastDocId() != 2 {
		t.Errorf("expected last doc id 2, got %d", ix2.LastDocId())
	}
	if got := docIds(ix2.QueryAtom("chat")); !equalDocs(got, 0, 1) {
		t.Errorf("query chat: got %v", got)
	}
	if got := docIds(ix2.QueryAtom("loup")); !equalDocs(got, 1, 2) {
		t.Errorf("query loup: got %v", got)
	}
	if got := docIds(ix2.QueryAtom("ours")); len(got) != 0 {
		t.Errorf("unknown term: got %v", got)
	}
}

func TestSnapshotRejectsUncommitted(t *testing.T) {
	cache := newTestCache()
	defer cache.Close()

	ix := NewIndex(cache, NewSharedVocabulary[string]())
	ix.IndexDocument(seqOf("chat"))

	var snap bytes.Buffer
	if err := ix.WriteSnapshot(&snap); err == nil {
		t.Fatal("expected error on uncommitted listing")
	}
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	cache := newTestCache()
	defer cache.Close()

	if _, err := ReadSnapshot(bytes.NewReader([]byte("not a snapshot")), cache, NewSharedVocabulary[string]()); err == nil {
		t.Fatal("expected error on garbage input")
	}
}

func TestVocabularyPersistence(t *testing.T) {
	v := NewSharedVocabulary[string]()
	id1 := v.GetOrAdd("chat")
	id2 := v.GetOrAdd("chien")

	var buf bytes.Buffer
	if err := SaveVocabulary(v, &buf); err != nil {
		t.Fatal(err)
	}
	v2, err := LoadVocabulary(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := v2.Get("chat"); !ok || got != id1 {
		t.Errorf("chat: got %d %v", got, ok)
	}
	if got, ok := v2.Get("chien"); !ok || got != id2 {
		t.Errorf("chien: got %d %v", got, ok)
	}
	if v2.Len() != 2 {
		t.Errorf("expected 2 terms, got %d", v2.Len())
	}
	// Les attributions reprennent densément après rechargement.
	if id := v2.GetOrAdd("loup"); id != TermId(2) {
		t.Errorf("expected next dense id 2, got %d", id)
	}
}

func TestSnapshotFullIndexReopen(t *testing.T) {
	// Cycle complet sur fichier : indexer, sauver, fermer, rouvrir.
	dir := t.TempDir()
	pagePath := dir + "/pages.bin"

	pmgr, err := storage.NewFsPageManager(pagePath)
	if err != nil {
		t.Fatal(err)
	}
	cache := storage.NewRamPageCache(pmgr)
	vocab := NewSharedVocabulary[string]()
	ix := NewIndex(cache, vocab)
	for d := 0; d < 50; d++ {
		terms := []string{"commun"}
		if d%2 == 0 {
			terms = append(terms, "pair")
		}
		ix.IndexDocument(seqOf(terms...))
	}
	if err := ix.Commit(); err != nil {
		t.Fatal(err)
	}

	var snap, voc bytes.Buffer
	if err := ix.WriteSnapshot(&snap); err != nil {
		t.Fatal(err)
	}
	if err := SaveVocabulary(vocab, &voc); err != nil {
		t.Fatal(err)
	}
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}

	pmgr2, err := storage.NewFsPageManager(pagePath)
	if err != nil {
		t.Fatal(err)
	}
	cache2 := storage.NewRamPageCache(pmgr2)
	defer cache2.Close()
	vocab2, err := LoadVocabulary(&voc)
	if err != nil {
		t.Fatal(err)
	}
	ix2, err := ReadSnapshot(bytes.NewReader(snap.Bytes()), cache2, vocab2)
	if err != nil {
		t.Fatal(err)
	}

	if got := docIds(ix2.QueryAtom("commun")); len(got) != 50 {
		t.Fatalf("query commun: expected 50 docs, got %d", len(got))
	}
	got := docIds(ix2.QueryAtom("pair"))
	if len(got) != 25 {
		t.Fatalf("query pair: expected 25 docs, got %d", len(got))
	}
	for i, d := range got {
		if d != DocId(i*2) {
			t.Fatalf("query pair doc %d: got %d", i, d)
		}
	}
}
