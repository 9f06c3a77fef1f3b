package index

import (
	"fmt"

	"github.com/CurrySoftware/perlin-core/storage"
)

// Compressor encode un préfixe borné d'une file delta-codée dans un bloc,
// et décode un bloc vers une file. Le nombre d'éléments par bloc est une
// propriété de l'implémentation ; le décodeur doit restituer exactement les
// éléments, pas nécessairement le même compte d'un bloc à l'autre.
type Compressor interface {
	// Compress encode et consomme assez d'éléments pour saturer un bloc.
	// Si la file n'en contient pas assez, elle est laissée intacte et le
	// second retour est false.
	Compress(buf *BiasedRingBuffer) (storage.Block, bool)

	// ForceCompress encode tout ce qui reste dans la file dans un bloc
	// unique, complété par des zéros. Le reste doit tenir dans un bloc.
	ForceCompress(buf *BiasedRingBuffer) storage.Block

	// Decompress ajoute à la file les éléments encodés dans le bloc.
	// L'appelant a positionné la base de la file sur le biais du bloc.
	Decompress(b storage.Block, buf *BiasedRingBuffer)
}

// usedCompressor est le codec de blocs employé par les listings.
var usedCompressor Compressor = VByteCompressor{}

// VByteCompressor delta-code les postings puis encode chaque delta en VByte :
// groupes de 7 bits poids fort en tête, bit 7 levé sur le dernier octet.
// Un encodage minimal ne commence jamais par un octet nul, donc les zéros de
// bourrage en fin de bloc sont inoffensifs au décodage.
type VByteCompressor struct{}

// vbyteLen retourne la taille de l'encodage VByte de v.
func vbyteLen(v uint32) int {
	n := 1
	for v >= 128 {
		v /= 128
		n++
	}
	return n
}

// putVByte écrit l'encodage VByte de v dans dst et retourne sa taille.
func putVByte(dst []byte, v uint32) int {
	n := vbyteLen(v)
	for i := n - 1; i >= 0; i-- {
		dst[i] = byte(v % 128)
		v /= 128
	}
	dst[n-1] |= 0x80
	return n
}

// Compress encode le plus long préfixe de la file qui sature un bloc.
// Retourne false si la file entière tient dans un bloc non saturé.
func (VByteCompressor) Compress(buf *BiasedRingBuffer) (storage.Block, bool) {
	prev := buf.Base()
	size, n := 0, 0
	for n < buf.Count() {
		v := buf.At(n)
		l := vbyteLen(uint32(v) - uint32(prev))
		if size+l > storage.BlockSize {
			break
		}
		size += l
		prev = v
		n++
	}
	if n == buf.Count() {
		// Pas saturé : on attend plus d'éléments.
		return storage.Block{}, false
	}
	return encodeBlock(buf, n), true
}

// ForceCompress encode tous les éléments restants, zéro-paddé.
func (VByteCompressor) ForceCompress(buf *BiasedRingBuffer) storage.Block {
	prev := buf.Base()
	size := 0
	for i := 0; i < buf.Count(); i++ {
		v := buf.At(i)
		size += vbyteLen(uint32(v) - uint32(prev))
		prev = v
	}
	if size > storage.BlockSize {
		panic(fmt.Sprintf("compressor: force_compress overflow (%d bytes)", size))
	}
	return encodeBlock(buf, buf.Count())
}

// encodeBlock consomme n éléments de la file et les delta-encode.
func encodeBlock(buf *BiasedRingBuffer, n int) storage.Block {
	var block storage.Block
	prev := buf.Base()
	off := 0
	for i := 0; i < n; i++ {
		v, _ := buf.PopFront()
		off += putVByte(block[off:], uint32(v)-uint32(prev))
		prev = v
	}
	return block
}

// Decompress reconstruit les postings du bloc et les ajoute à la file.
func (VByteCompressor) Decompress(b storage.Block, buf *BiasedRingBuffer) {
	prev := uint32(buf.Base())
	var acc uint32
	for _, by := range b {
		acc = acc<<7 | uint32(by&0x7f)
		if by >= 0x80 {
			prev += acc
			buf.PushBack(Posting(prev))
			acc = 0
		}
	}
	// Les octets de bourrage terminaux (jamais terminés) sont ignorés.
}
