package index

import (
	"iter"
	"math"
	"math/rand"
	"testing"
)

// vocSize applique la loi de Heaps : taille de vocabulaire attendue pour un
// nombre de tokens donné.
func vocSize(k float64, b float64, tokens int) int {
	return int(k * math.Pow(float64(tokens), b))
}

// zipfDocument tire un document de documentSize termes selon une
// distribution de Zipf sur le vocabulaire.
func zipfDocument(z *rand.Zipf, documentSize int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := 0; i < documentSize; i++ {
			if !yield(z.Uint64()) {
				return
			}
		}
	}
}

func benchIndexing(b *testing.B, documents, documentSize int) {
	rng := rand.New(rand.NewSource(42))
	voc := vocSize(20, 0.5, documents*documentSize)
	zipf := rand.NewZipf(rng, 1.3, 1, uint64(voc))

	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		cache := newTestCache()
		ix := NewIndex(cache, NewSharedVocabulary[uint64]())
		for d := 0; d < documents; d++ {
			if _, err := ix.IndexDocument(zipfDocument(zipf, documentSize)); err != nil {
				b.Fatal(err)
			}
		}
		if err := ix.Commit(); err != nil {
			b.Fatal(err)
		}
		cache.Close()
	}
}

func BenchmarkIndex500Docs100Terms(b *testing.B)  { benchIndexing(b, 500, 100) }
func BenchmarkIndex100Docs1000Terms(b *testing.B) { benchIndexing(b, 100, 1000) }

func BenchmarkQueryAtom(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	documents, documentSize := 1000, 200
	voc := vocSize(20, 0.5, documents*documentSize)
	zipf := rand.NewZipf(rng, 1.3, 1, uint64(voc))

	cache := newTestCache()
	defer cache.Close()
	ix := NewIndex(cache, NewSharedVocabulary[uint64]())
	for d := 0; d < documents; d++ {
		ix.IndexDocument(zipfDocument(zipf, documentSize))
	}
	if err := ix.Commit(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		it := ix.QueryAtom(uint64(n % 100))
		for {
			if _, ok := it.Next(); !ok {
				break
			}
		}
	}
}

func BenchmarkNextSeek(b *testing.B) {
	cache := newTestCache()
	defer cache.Close()

	listing := NewListing()
	for i := 0; i < 100_000; i++ {
		listing.Add([]Posting{Posting(i * 3)}, cache)
	}
	if err := listing.Commit(cache); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		dec := listing.PostingDecoder(cache)
		for target := Posting(0); target < 300_000; target += 997 {
			dec.NextSeek(target)
		}
	}
}
