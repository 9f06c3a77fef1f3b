package index

import (
	"sort"

	"github.com/CurrySoftware/perlin-core/storage"
)

// PostingDecoder restitue les postings d'un listing à partir de son
// itérateur de blocs et de sa liste de biais. Invariant : biasList contient
// toujours les biais des blocs pas encore consommés (la tête est la base du
// prochain bloc).
type PostingDecoder struct {
	blocks   *storage.BlockIter
	biasList []Posting
	buf      *BiasedRingBuffer
	pos      uint32
	length   uint32
	avgBlock uint32 // cardinalité moyenne d'un bloc, pour Progress après un saut
}

// NewPostingDecoder construit un décodeur.
func NewPostingDecoder(blocks *storage.BlockIter, biasList []Posting, length uint32) *PostingDecoder {
	avg := uint32(1)
	if n := uint32(len(biasList)); n > 0 {
		avg = length / n
	}
	return &PostingDecoder{
		blocks:   blocks,
		biasList: biasList,
		buf:      NewBiasedRingBuffer(),
		length:   length,
		avgBlock: avg,
	}
}

// Len retourne le nombre total de postings du listing. Le décodeur est de
// taille exacte : il produit exactement Len éléments.
func (d *PostingDecoder) Len() int {
	return int(d.length)
}

// Progress retourne l'avancement du parcours.
func (d *PostingDecoder) Progress() Progress {
	return ProgressFrom(d.pos, d.length)
}

// Err retourne la première erreur d'E/S rencontrée.
func (d *PostingDecoder) Err() error {
	return d.blocks.Err()
}

// Next retourne le posting suivant, ou false à épuisement.
func (d *PostingDecoder) Next() (Posting, bool) {
	if d.buf.Count() == 0 {
		block, ok := d.blocks.Next()
		if !ok || len(d.biasList) == 0 {
			return PostingNone, false
		}
		bias := d.biasList[0]
		d.biasList = d.biasList[1:]
		d.buf.SetBase(bias)
		usedCompressor.Decompress(block, d.buf)
	}
	p, ok := d.buf.PopFront()
	if ok {
		d.pos++
	}
	return p, ok
}

// NextSeek retourne le premier posting >= target, ou false s'il n'existe
// pas. Les biais étant les bases des blocs restants, une recherche binaire
// désigne le bloc susceptible de contenir la cible ; les blocs qui la
// précèdent sont sautés sans être décodés.
func (d *PostingDecoder) NextSeek(target Posting) (Posting, bool) {
	idx := sort.Search(len(d.biasList), func(i int) bool {
		return d.biasList[i] >= target
	})
	// idx == 0 : la cible est dans le bloc déjà chargé (ou avant) ;
	// parcours linéaire. Un biais égal à la cible désigne le dernier
	// posting du bloc précédent, d'où idx et non idx+1.
	if idx > 0 {
		d.pos += uint32(d.buf.Count())
		d.buf.Flush()
		if idx > 1 {
			d.blocks.SkipBlocks(idx - 1)
			d.pos += uint32(idx-1) * d.avgBlock
			d.biasList = d.biasList[idx-1:]
		}
	}
	for {
		p, ok := d.Next()
		if !ok {
			return PostingNone, false
		}
		if p >= target {
			return p, true
		}
	}
}
