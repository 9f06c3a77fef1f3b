// Package index implémente le cœur de perlin-core : un index inversé
// compressé par blocs, construit au-dessus de la couche storage.
// Il ne connaît ni les chaînes, ni la langue, ni les documents : les termes
// sont opaques et les documents sont des identifiants denses.
package index

import "math"

// SamplingThreshold est la taille en dessous de laquelle l'intersection de
// deux listings est comptée exactement plutôt qu'estimée par échantillonnage.
const SamplingThreshold = 200

// DefaultSampleSize est la taille d'échantillon par défaut pour
// l'estimation d'intersection.
const DefaultSampleSize = 100

// DocId identifie un document. Les identifiants émis par un index sont
// strictement croissants.
type DocId uint32

// DocIdNone est la valeur sentinelle "aucun document".
const DocIdNone DocId = math.MaxUint32

// Posting est une occurrence d'un terme dans un document. Le type est
// delta-codable : il se code par différence avec une base additive.
type Posting DocId

// PostingNone est la valeur sentinelle "aucun posting".
const PostingNone = Posting(DocIdNone)

// DocId retourne l'identifiant de document du posting.
func (p Posting) DocId() DocId {
	return DocId(p)
}

// PostingIterator itère sur les postings d'un listing. La variante vide
// répond aux termes inconnus de l'index.
type PostingIterator struct {
	dec *PostingDecoder
}

// EmptyIterator retourne l'itérateur vide.
func EmptyIterator() PostingIterator {
	return PostingIterator{}
}

// DecoderIterator enveloppe un décodeur.
func DecoderIterator(dec *PostingDecoder) PostingIterator {
	return PostingIterator{dec: dec}
}

// Next retourne le posting suivant, ou false à épuisement.
func (it PostingIterator) Next() (Posting, bool) {
	if it.dec == nil {
		return PostingNone, false
	}
	return it.dec.Next()
}

// NextSeek retourne le premier posting >= target, ou false s'il n'existe pas.
func (it PostingIterator) NextSeek(target Posting) (Posting, bool) {
	if it.dec == nil {
		return PostingNone, false
	}
	return it.dec.NextSeek(target)
}

// Len retourne le nombre total de postings du listing sous-jacent.
func (it PostingIterator) Len() int {
	if it.dec == nil {
		return 0
	}
	return it.dec.Len()
}

// Err retourne la première erreur d'E/S rencontrée en itérant.
func (it PostingIterator) Err() error {
	if it.dec == nil {
		return nil
	}
	return it.dec.Err()
}

// Collect draine l'itérateur dans une slice.
func (it PostingIterator) Collect() []Posting {
	out := make([]Posting, 0, it.Len())
	for {
		p, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

// IntersectionSize compte exactement la taille de l'intersection de deux
// itérateurs de postings.
func IntersectionSize(lhs, rhs PostingIterator) int {
	if lhs.dec == nil || rhs.dec == nil {
		return 0
	}
	return intersectionSize(lhs.dec, rhs.dec)
}

// EstimateIntersectionSize estime la taille de l'intersection par
// échantillonnage : on échantillonne sampleSize pas sur le plus court des
// deux listings et on extrapole. Sous SamplingThreshold, le compte est exact.
func EstimateIntersectionSize(lhs, rhs PostingIterator, sampleSize int) int {
	if lhs.dec == nil || rhs.dec == nil {
		return 0
	}

	// Le plus court pilote l'échantillonnage.
	shorter, longer := lhs.dec, rhs.dec
	if longer.Len() < shorter.Len() {
		shorter, longer = longer, shorter
	}

	if shorter.Len() < SamplingThreshold {
		return intersectionSize(shorter, longer)
	}
	return intersectionSizeLimit(shorter, longer, sampleSize) * (shorter.Len() / sampleSize)
}

func intersectionSize(shorter, longer *PostingDecoder) int {
	count := 0
	focus, ok := shorter.Next()
	if !ok {
		return 0
	}
	for {
		r, ok := longer.NextSeek(focus)
		if !ok {
			return count
		}
		if r == focus {
			count++
			if focus, ok = shorter.Next(); !ok {
				return count
			}
			continue
		}
		if focus, ok = shorter.NextSeek(r); !ok {
			return count
		}
		if r == focus {
			count++
			if focus, ok = shorter.Next(); !ok {
				return count
			}
		}
	}
}

func intersectionSizeLimit(shorter, longer *PostingDecoder, limit int) int {
	count := 0
	focus, ok := shorter.Next()
	if !ok {
		return 0
	}
	for i := 0; i < limit; i++ {
		r, ok := longer.NextSeek(focus)
		if !ok {
			return count
		}
		if r == focus {
			count++
			if focus, ok = shorter.Next(); !ok {
				return count
			}
			continue
		}
		if focus, ok = shorter.NextSeek(r); !ok {
			return count
		}
		if r == focus {
			count++
			if focus, ok = shorter.Next(); !ok {
				return count
			}
		}
	}
	return count
}
