package query

import (
	"github.com/CurrySoftware/perlin-core/index"
)

// Run analyse et évalue une requête sur l'index. Les identifiants de
// documents retournés sont triés par ordre croissant.
func Run(input string, ix *index.Index[string]) ([]index.DocId, error) {
	expr, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return Evaluate(expr, ix)
}

// Evaluate évalue une expression booléenne sur l'index.
func Evaluate(expr *Expr, ix *index.Index[string]) ([]index.DocId, error) {
	var result []index.DocId
	for _, and := range expr.Or {
		docs, err := evalAnd(and, ix)
		if err != nil {
			return nil, err
		}
		result = mergeUnion(result, docs)
	}
	return result, nil
}

// EstimateAtoms estime la taille de l'intersection de deux atomes par
// échantillonnage (exacte sous le seuil).
func EstimateAtoms(ix *index.Index[string], lhs, rhs string, sampleSize int) int {
	return index.EstimateIntersectionSize(ix.QueryAtom(lhs), ix.QueryAtom(rhs), sampleSize)
}

// postingSource unifie les itérateurs de postings du cœur et les résultats
// intermédiaires matérialisés.
type postingSource interface {
	next() (index.Posting, bool)
	nextSeek(target index.Posting) (index.Posting, bool)
	len() int
}

type decoderSource struct {
	it index.PostingIterator
}

func (s decoderSource) next() (index.Posting, bool) { return s.it.Next() }
func (s decoderSource) nextSeek(t index.Posting) (index.Posting, bool) {
	return s.it.NextSeek(t)
}
func (s decoderSource) len() int { return s.it.Len() }

type sliceSource struct {
	docs []index.DocId
	pos  int
}

func (s *sliceSource) next() (index.Posting, bool) {
	if s.pos >= len(s.docs) {
		return index.PostingNone, false
	}
	p := index.Posting(s.docs[s.pos])
	s.pos++
	return p, true
}

func (s *sliceSource) nextSeek(t index.Posting) (index.Posting, bool) {
	for {
		p, ok := s.next()
		if !ok {
			return index.PostingNone, false
		}
		if p >= t {
			return p, true
		}
	}
}

func (s *sliceSource) len() int { return len(s.docs) }

func (f *Factor) source(ix *index.Index[string]) (postingSource, error) {
	if f.Sub != nil {
		docs, err := Evaluate(f.Sub, ix)
		if err != nil {
			return nil, err
		}
		return &sliceSource{docs: docs}, nil
	}
	return decoderSource{it: ix.QueryAtom(f.Atom)}, nil
}

// evalAnd intersecte les facteurs d'une conjonction par sauts : le facteur
// le plus court pilote, les autres cherchent par NextSeek.
func evalAnd(and *AndExpr, ix *index.Index[string]) ([]index.DocId, error) {
	sources := make([]postingSource, 0, len(and.Factors))
	for _, f := range and.Factors {
		src, err := f.source(ix)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(sources) == 1 {
		return collect(sources[0]), nil
	}

	// Le plus court en tête réduit le nombre de candidats.
	driver := 0
	for i, s := range sources {
		if s.len() < sources[driver].len() {
			driver = i
		}
	}
	sources[0], sources[driver] = sources[driver], sources[0]

	var result []index.DocId
	// last[i] est la dernière valeur rendue par la source i (si seen[i]) ;
	// elle est réutilisée tant qu'elle n'est pas dépassée par focus.
	last := make([]index.Posting, len(sources))
	seen := make([]bool, len(sources))
	focus, ok := sources[0].next()
	if !ok {
		return nil, nil
	}
outer:
	for {
		for i := 1; i < len(sources); i++ {
			r := last[i]
			if !seen[i] || r < focus {
				if r, ok = sources[i].nextSeek(focus); !ok {
					break outer
				}
				last[i], seen[i] = r, true
			}
			if r != focus {
				// Redémarrer le tour avec un candidat plus grand.
				if focus, ok = sources[0].nextSeek(r); !ok {
					break outer
				}
				continue outer
			}
		}
		result = append(result, focus.DocId())
		if focus, ok = sources[0].next(); !ok {
			break
		}
	}
	return result, nil
}

func collect(s postingSource) []index.DocId {
	var out []index.DocId
	for {
		p, ok := s.next()
		if !ok {
			return out
		}
		out = append(out, p.DocId())
	}
}

// mergeUnion fusionne deux listes triées en éliminant les doublons.
func mergeUnion(a, b []index.DocId) []index.DocId {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]index.DocId, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
