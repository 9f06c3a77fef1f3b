package storage

// BlockIter lit les blocs d'une étendue Pages dans l'ordre, avec saut
// aléatoire. Un compteur monotone unique (ptr) détermine la page et le bloc
// courants, ce qui couvre uniformément les pages pleines et la page
// partielle terminale.
type BlockIter struct {
	cache     *RamPageCache
	pages     Pages
	page      *Page
	pageIndex int // index de la page chargée, -1 au départ
	ptr       int // nombre de blocs consommés ou sautés
	err       error
}

// NewBlockIter crée un itérateur sur l'étendue donnée.
func NewBlockIter(cache *RamPageCache, pages Pages) *BlockIter {
	return &BlockIter{
		cache:     cache,
		pages:     pages,
		pageIndex: -1,
	}
}

// Next retourne le bloc suivant, ou false si l'étendue est épuisée.
// Une erreur d'E/S arrête l'itération ; voir Err.
func (it *BlockIter) Next() (Block, bool) {
	if it.err != nil {
		return Block{}, false
	}
	target := it.ptr / PageSize
	if target != it.pageIndex {
		pid, ok := it.pages.Get(target)
		if !ok {
			return Block{}, false
		}
		page, err := it.cache.GetPage(pid)
		if err != nil {
			it.err = err
			return Block{}, false
		}
		it.page = page
		it.pageIndex = target
	}

	bid := BlockId(it.ptr % PageSize)
	if it.pages.Unfull != nil && target == it.pages.Len()-1 {
		bid += it.pages.Unfull.From
		if bid >= it.pages.Unfull.To {
			return Block{}, false
		}
	}
	it.ptr++
	return it.page.Block(bid), true
}

// SkipBlocks avance de n blocs sans les lire. Paresseux : la page cible
// n'est chargée qu'au prochain Next.
func (it *BlockIter) SkipBlocks(n int) {
	it.ptr += n
}

// Err retourne la première erreur d'E/S rencontrée, le cas échéant.
func (it *BlockIter) Err() error {
	return it.err
}
