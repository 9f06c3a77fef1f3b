package index

import (
	"github.com/CurrySoftware/perlin-core/storage"
)

// Listing contient les postings d'un terme : son étendue physique (Pages),
// la liste des biais (un par bloc compressé, la base de delta-codage du
// bloc), le compte total de postings et la file de construction.
//
// Un listing committé est immuable ; des ajouts ultérieurs rouvrent ou
// remplacent sa page terminale puis allouent de nouvelles pages.
type Listing struct {
	pages    storage.Pages
	biasList []Posting
	length   uint32
	buf      *BiasedRingBuffer

	cur        storage.PageId  // page de construction courante
	cursor     storage.BlockId // prochain bloc libre dans cur
	sharedTail bool            // cur est la page partielle rouverte
}

// NewListing crée un listing vide.
func NewListing() *Listing {
	return &Listing{
		buf: NewBiasedRingBuffer(),
		cur: storage.PageIdNone,
	}
}

// Len retourne le nombre total de postings du listing.
func (l *Listing) Len() int {
	return int(l.length)
}

// Add pousse des postings dans la file puis expédie vers le cache tous les
// blocs que le compresseur sature.
func (l *Listing) Add(postings []Posting, cache *storage.RamPageCache) error {
	if len(postings) == 0 {
		return nil
	}
	if l.pages.Unfull != nil && l.cur == storage.PageIdNone {
		// Reprise après un commit qui s'est terminé sur une page partielle.
		if err := l.reopenTail(cache); err != nil {
			return err
		}
	}
	for _, p := range postings {
		l.buf.PushBack(p)
	}
	l.length += uint32(len(postings))
	return l.compressAndShip(cache, false)
}

// Commit draine la file et flushe la dernière page. Le listing devient
// interrogeable via PostingDecoder.
func (l *Listing) Commit(cache *storage.RamPageCache) error {
	if err := l.compressAndShip(cache, true); err != nil {
		return err
	}
	if l.cur == storage.PageIdNone {
		// Vide, ou terminé pile sur une frontière de page.
		return nil
	}

	u, err := cache.FlushUnfull(l.cur, l.cursor)
	if err != nil {
		return err
	}
	if l.sharedTail {
		// Prolongement de la page partielle existante : l'intervalle
		// retourné commence là où l'ancien s'arrêtait.
		l.pages.Unfull.To = u.To
		l.sharedTail = false
	} else {
		// La page courante quitte la liste pleine et devient l'entrée
		// partielle terminale.
		l.pages.Full = l.pages.Full[:len(l.pages.Full)-1]
		l.pages.Unfull = &u
	}
	l.cur = storage.PageIdNone
	l.cursor = 0
	return nil
}

// compressAndShip expédie tous les blocs saturés, plus un bloc final forcé
// si force est vrai et que la file n'est pas vide.
func (l *Listing) compressAndShip(cache *storage.RamPageCache, force bool) error {
	for {
		bias := l.buf.Base()
		block, ok := usedCompressor.Compress(l.buf)
		if !ok {
			break
		}
		l.biasList = append(l.biasList, bias)
		if err := l.ship(cache, block); err != nil {
			return err
		}
	}
	if force && l.buf.Count() > 0 {
		bias := l.buf.Base()
		block := usedCompressor.ForceCompress(l.buf)
		l.biasList = append(l.biasList, bias)
		if err := l.ship(cache, block); err != nil {
			return err
		}
	}
	return nil
}

// ship place un bloc dans la page de construction courante, en allouant une
// page neuve au besoin. Une page qui se remplit est flushée immédiatement.
func (l *Listing) ship(cache *storage.RamPageCache, block storage.Block) error {
	if l.cur == storage.PageIdNone {
		pid, err := cache.StoreBlock(block)
		if err != nil {
			return err
		}
		l.pages.Full = append(l.pages.Full, pid)
		l.cur = pid
		l.cursor = storage.FirstBlock + 1
		return nil
	}

	cache.StoreInPlace(l.cur, l.cursor, block)
	l.cursor++
	if int(l.cursor) == storage.PageSize {
		return l.closeFullPage(cache)
	}
	return nil
}

// closeFullPage clôt la page courante quand son dernier bloc est écrit.
func (l *Listing) closeFullPage(cache *storage.RamPageCache) error {
	if l.sharedTail {
		// La page partielle rouverte est montée jusqu'au bout : le listing
		// la possède désormais en entier, elle rejoint la liste pleine.
		if _, err := cache.FlushUnfull(l.cur, storage.BlockId(storage.PageSize)); err != nil {
			return err
		}
		l.pages.Unfull = nil
		l.pages.Full = append(l.pages.Full, l.cur)
		l.sharedTail = false
	} else if err := cache.FlushPage(l.cur); err != nil {
		return err
	}
	l.cur = storage.PageIdNone
	l.cursor = 0
	return nil
}

// reopenTail reprend l'écriture après un commit terminé sur une page
// partielle : en place si l'intervalle du listing commence au bloc 0 et que
// la page partagée n'a pas bougé depuis, sinon en recopiant les blocs du
// tail dans une page fraîche.
func (l *Listing) reopenTail(cache *storage.RamPageCache) error {
	u := *l.pages.Unfull
	if u.From == 0 && cache.TryExtendUnfull(u) {
		l.cur = u.Page
		l.cursor = u.To
		l.sharedTail = true
		return nil
	}

	page, err := cache.GetPage(u.Page)
	if err != nil {
		return err
	}
	pid, err := cache.StoreBlock(page.Block(u.From))
	if err != nil {
		return err
	}
	for i := storage.BlockId(1); i < storage.BlockId(u.Len()); i++ {
		cache.StoreInPlace(pid, i, page.Block(u.From+i))
	}
	// Les blocs abandonnés dans l'ancienne page restent morts ; la perte
	// est bornée par une page.
	l.pages.Full = append(l.pages.Full, pid)
	l.pages.Unfull = nil
	l.cur = pid
	l.cursor = storage.BlockId(u.Len())
	l.sharedTail = false
	return nil
}

// PostingDecoder construit un décodeur sur l'étendue committée du listing.
func (l *Listing) PostingDecoder(cache *storage.RamPageCache) *PostingDecoder {
	bias := make([]Posting, len(l.biasList))
	copy(bias, l.biasList)
	// Copie de l'étendue : un commit ultérieur ne doit pas être visible
	// des décodeurs déjà ouverts.
	pages := storage.Pages{Full: append([]storage.PageId(nil), l.pages.Full...)}
	if l.pages.Unfull != nil {
		u := *l.pages.Unfull
		pages.Unfull = &u
	}
	return NewPostingDecoder(storage.NewBlockIter(cache, pages), bias, l.length)
}

// committed rapporte si le listing n'a ni file en attente ni page ouverte.
func (l *Listing) committed() bool {
	return l.buf.Count() == 0 && l.cur == storage.PageIdNone
}
