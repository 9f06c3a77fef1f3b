package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"

	"github.com/CurrySoftware/perlin-core/storage"
)

// Snapshot layout (avant compression snappy) :
//
//	[lastDocId u32][docCount u64][numListings u64]
//	pour chaque listing :
//	    [termId u64][length u32]
//	    [numBias u32][bias u32 ...]
//	    [numFull u32][pageId u32 ...]
//	    [hasUnfull u8]([pageId u32][from u16][to u16])
//
// Fichier : magic "PCSN" + version u32 + payload snappy.
// Le snapshot est l'annuaire hors-bande des listings : le fichier de pages
// seul ne suffit pas à rouvrir un index (il n'a ni en-tête ni répertoire).

var snapshotMagic = [4]byte{'P', 'C', 'S', 'N'}

const snapshotVersion = 1

// ErrCorruptSnapshot signale un snapshot illisible.
var ErrCorruptSnapshot = errors.New("snapshot: corrupt or truncated")

// WriteSnapshot persiste l'annuaire des listings de l'index. Tous les
// listings doivent être committés.
func (ix *Index[T]) WriteSnapshot(w io.Writer) error {
	for tid, l := range ix.listings {
		if !l.committed() {
			return fmt.Errorf("snapshot: listing %d is not committed", tid)
		}
	}

	var raw []byte
	raw = binary.LittleEndian.AppendUint32(raw, uint32(ix.lastDocId))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(ix.docCount))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(len(ix.listings)))

	for tid, l := range ix.listings {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(tid))
		raw = binary.LittleEndian.AppendUint32(raw, l.length)
		raw = binary.LittleEndian.AppendUint32(raw, uint32(len(l.biasList)))
		for _, b := range l.biasList {
			raw = binary.LittleEndian.AppendUint32(raw, uint32(b))
		}
		raw = binary.LittleEndian.AppendUint32(raw, uint32(len(l.pages.Full)))
		for _, pid := range l.pages.Full {
			raw = binary.LittleEndian.AppendUint32(raw, uint32(pid))
		}
		if u := l.pages.Unfull; u != nil {
			raw = append(raw, 1)
			raw = binary.LittleEndian.AppendUint32(raw, uint32(u.Page))
			raw = binary.LittleEndian.AppendUint16(raw, uint16(u.From))
			raw = binary.LittleEndian.AppendUint16(raw, uint16(u.To))
		} else {
			raw = append(raw, 0)
		}
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], snapshotVersion)
	if _, err := w.Write(version[:]); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if _, err := w.Write(snappy.Encode(nil, raw)); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reconstruit un index à partir d'un snapshot et du cache de
// pages ouvert sur le même fichier de pages. Le vocabulaire est fourni par
// l'appelant (voir SaveVocabulary / LoadVocabulary pour les termes string).
func ReadSnapshot[T comparable](r io.Reader, cache *storage.RamPageCache, vocab *SharedVocabulary[T]) (*Index[T], error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	if [4]byte(header[:4]) != snapshotMagic {
		return nil, ErrCorruptSnapshot
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != snapshotVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", v)
	}
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("snapshot: snappy decode: %w", err)
	}

	rd := byteReader{buf: raw}
	ix := NewIndex(cache, vocab)
	ix.lastDocId = DocId(rd.u32())
	ix.docCount = int(rd.u64())
	numListings := rd.u64()

	for i := uint64(0); i < numListings; i++ {
		tid := TermId(rd.u64())
		l := NewListing()
		l.length = rd.u32()
		numBias := rd.u32()
		l.biasList = make([]Posting, numBias)
		for j := range l.biasList {
			l.biasList[j] = Posting(rd.u32())
		}
		numFull := rd.u32()
		l.pages.Full = make([]storage.PageId, numFull)
		for j := range l.pages.Full {
			l.pages.Full[j] = storage.PageId(rd.u32())
		}
		if rd.u8() == 1 {
			l.pages.Unfull = &storage.UnfullPage{
				Page: storage.PageId(rd.u32()),
				From: storage.BlockId(rd.u16()),
				To:   storage.BlockId(rd.u16()),
			}
		}
		ix.listings[tid] = l
	}
	if rd.failed {
		return nil, ErrCorruptSnapshot
	}
	return ix, nil
}

// SaveVocabulary persiste un vocabulaire à termes string :
// [numTerms u64] puis [termId u64][len u16][bytes] par terme, snappy.
func SaveVocabulary(v *SharedVocabulary[string], w io.Writer) error {
	v.mu.RLock()
	var raw []byte
	raw = binary.LittleEndian.AppendUint64(raw, uint64(len(v.terms)))
	for term, tid := range v.terms {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(tid))
		raw = binary.LittleEndian.AppendUint16(raw, uint16(len(term)))
		raw = append(raw, term...)
	}
	v.mu.RUnlock()

	if _, err := w.Write(snappy.Encode(nil, raw)); err != nil {
		return fmt.Errorf("vocabulary: %w", err)
	}
	return nil
}

// LoadVocabulary recharge un vocabulaire persisté par SaveVocabulary.
func LoadVocabulary(r io.Reader) (*SharedVocabulary[string], error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: snappy decode: %w", err)
	}

	rd := byteReader{buf: raw}
	n := rd.u64()
	v := NewSharedVocabulary[string]()
	for i := uint64(0); i < n; i++ {
		tid := TermId(rd.u64())
		l := int(rd.u16())
		term := rd.bytes(l)
		if rd.failed {
			return nil, ErrCorruptSnapshot
		}
		v.terms[string(term)] = tid
	}
	return v, nil
}

// byteReader décode séquentiellement un tampon little-endian ; failed passe
// à vrai à la première lecture hors bornes.
type byteReader struct {
	buf    []byte
	off    int
	failed bool
}

func (r *byteReader) bytes(n int) []byte {
	if r.off+n > len(r.buf) {
		r.failed = true
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *byteReader) u8() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *byteReader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *byteReader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *byteReader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}
