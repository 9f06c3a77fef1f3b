package index

import (
	"fmt"
	"iter"
	"slices"

	"github.com/CurrySoftware/perlin-core/storage"
)

// Index est la structure centrale de perlin-core : un cache de pages, une
// table TermId → Listing et un vocabulaire partageable. Les identifiants de
// documents émis sont strictement croissants ; violer cette monotonie est
// une erreur de programmation fatale.
type Index[T comparable] struct {
	cache     *storage.RamPageCache
	listings  map[TermId]*Listing
	vocab     *SharedVocabulary[T]
	lastDocId DocId
	docCount  int
}

// NewIndex crée un index vide sur le cache et le vocabulaire donnés.
// Passer le même vocabulaire à plusieurs index le partage entre eux.
func NewIndex[T comparable](cache *storage.RamPageCache, vocab *SharedVocabulary[T]) *Index[T] {
	return &Index[T]{
		cache:     cache,
		listings:  make(map[TermId]*Listing),
		vocab:     vocab,
		lastDocId: DocIdNone,
	}
}

// Cache retourne le cache de pages de l'index.
func (ix *Index[T]) Cache() *storage.RamPageCache {
	return ix.cache
}

// Vocabulary retourne le vocabulaire de l'index.
func (ix *Index[T]) Vocabulary() *SharedVocabulary[T] {
	return ix.vocab
}

// DocCount retourne le nombre de documents indexés.
func (ix *Index[T]) DocCount() int {
	return ix.docCount
}

// LastDocId retourne le dernier identifiant de document émis,
// ou DocIdNone si aucun document n'a été indexé.
func (ix *Index[T]) LastDocId() DocId {
	return ix.lastDocId
}

// NumListings retourne le nombre de listings de l'index.
func (ix *Index[T]) NumListings() int {
	return len(ix.listings)
}

// IndexTerm ajoute une occurrence du terme dans le document donné.
// docId doit être >= au dernier identifiant vu.
func (ix *Index[T]) IndexTerm(term T, docId DocId) error {
	if ix.lastDocId != DocIdNone && docId < ix.lastDocId {
		panic(fmt.Sprintf("index: doc id %d violates monotonicity (last is %d)", docId, ix.lastDocId))
	}
	ix.lastDocId = docId
	return ix.addPosting(ix.vocab.GetOrAdd(term), docId)
}

func (ix *Index[T]) addPosting(tid TermId, docId DocId) error {
	listing, ok := ix.listings[tid]
	if !ok {
		listing = NewListing()
		ix.listings[tid] = listing
	}
	return listing.Add([]Posting{Posting(docId)}, ix.cache)
}

// IndexDocument indexe un document avec le prochain identifiant libre et le
// retourne. Le document doit être committé pour devenir interrogeable.
func (ix *Index[T]) IndexDocument(document iter.Seq[T]) (DocId, error) {
	docId := DocId(0)
	if ix.lastDocId != DocIdNone {
		docId = ix.lastDocId + 1
	}
	return ix.indexDocument(document, docId)
}

// IndexDocumentWithId indexe un document sous un identifiant imposé, qui
// doit être strictement supérieur au dernier identifiant émis.
func (ix *Index[T]) IndexDocumentWithId(document iter.Seq[T], docId DocId) (DocId, error) {
	if ix.lastDocId != DocIdNone && docId <= ix.lastDocId {
		panic(fmt.Sprintf("index: doc id %d violates monotonicity (last is %d)", docId, ix.lastDocId))
	}
	return ix.indexDocument(document, docId)
}

func (ix *Index[T]) indexDocument(document iter.Seq[T], docId DocId) (DocId, error) {
	ix.lastDocId = docId
	ix.docCount++

	var termIds []TermId
	for term := range document {
		termIds = append(termIds, ix.vocab.GetOrAdd(term))
	}
	slices.Sort(termIds)
	termIds = slices.Compact(termIds)

	for _, tid := range termIds {
		if err := ix.addPosting(tid, docId); err != nil {
			return docId, err
		}
	}
	return docId, nil
}

// Commit committe tous les listings ; l'index devient interrogeable.
// Parcours en ordre de TermId décroissant : les listings récents quittent
// la construction en premier.
func (ix *Index[T]) Commit() error {
	tids := make([]TermId, 0, len(ix.listings))
	for tid := range ix.listings {
		tids = append(tids, tid)
	}
	slices.SortFunc(tids, func(a, b TermId) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	for _, tid := range tids {
		if err := ix.listings[tid].Commit(ix.cache); err != nil {
			return fmt.Errorf("index: commit term %d: %w", tid, err)
		}
	}
	return nil
}

// QueryAtom retourne l'itérateur de postings du terme, ou l'itérateur vide
// si le terme est inconnu du vocabulaire ou sans listing dans cet index.
func (ix *Index[T]) QueryAtom(atom T) PostingIterator {
	if tid, ok := ix.vocab.Get(atom); ok {
		return ix.QueryTerm(tid)
	}
	return EmptyIterator()
}

// QueryTerm retourne l'itérateur de postings du TermId donné, ou
// l'itérateur vide. Utile en itérant un vocabulaire partagé.
func (ix *Index[T]) QueryTerm(tid TermId) PostingIterator {
	if listing, ok := ix.listings[tid]; ok {
		return DecoderIterator(listing.PostingDecoder(ix.cache))
	}
	return EmptyIterator()
}

// TermDf retourne la fréquence documentaire du terme : le nombre de
// documents de son listing, ou 0 s'il est inconnu.
func (ix *Index[T]) TermDf(tid TermId) int {
	if listing, ok := ix.listings[tid]; ok {
		return listing.Len()
	}
	return 0
}

// String résume l'index.
func (ix *Index[T]) String() string {
	last := "none"
	if ix.lastDocId != DocIdNone {
		last = fmt.Sprintf("%d", ix.lastDocId)
	}
	return fmt.Sprintf("Index with %d documents; last doc id %s; %d listings",
		ix.docCount, last, len(ix.listings))
}
