package index

import (
	"testing"

	"github.com/CurrySoftware/perlin-core/storage"
)

func TestVByteRoundtrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 129, 16383, 16384, 1 << 21, 1<<28 - 1, 1 << 28, ^uint32(0)}
	for _, v := range cases {
		var buf [8]byte
		n := putVByte(buf[:], v)
		if n != vbyteLen(v) {
			t.Errorf("value %d: put wrote %d bytes, len says %d", v, n, vbyteLen(v))
		}
		var acc uint32
		got := uint32(0)
		decoded := false
		for _, b := range buf[:n] {
			acc = acc<<7 | uint32(b&0x7f)
			if b >= 0x80 {
				got = acc
				decoded = true
			}
		}
		if !decoded || got != v {
			t.Errorf("roundtrip of %d failed: got %d", v, got)
		}
	}
}

func TestCompressLeavesSmallBufferUntouched(t *testing.T) {
	c := VByteCompressor{}
	buf := NewBiasedRingBuffer()
	buf.PushBack(Posting(0))
	buf.PushBack(Posting(5))

	if _, ok := c.Compress(buf); ok {
		t.Fatal("compress must not emit an unsaturated block")
	}
	if buf.Count() != 2 {
		t.Fatalf("buffer must stay untouched, count=%d", buf.Count())
	}
}

func TestCompressEmitsSaturatedBlock(t *testing.T) {
	c := VByteCompressor{}
	buf := NewBiasedRingBuffer()
	// Deltas d'un octet : il faut plus de BlockSize éléments pour saturer.
	for i := 0; i < storage.BlockSize+10; i++ {
		buf.PushBack(Posting(i))
	}
	block, ok := c.Compress(buf)
	if !ok {
		t.Fatal("expected a saturated block")
	}
	if buf.Count() != 10 {
		t.Fatalf("expected %d leftovers, got %d", 10, buf.Count())
	}
	if buf.Base() != Posting(storage.BlockSize-1) {
		t.Fatalf("base should be the last consumed posting, got %d", buf.Base())
	}

	// Décodage avec la base du bloc : la séquence d'origine.
	out := NewBiasedRingBuffer()
	out.SetBase(Posting(0))
	c.Decompress(block, out)
	if out.Count() != storage.BlockSize {
		t.Fatalf("expected %d decoded postings, got %d", storage.BlockSize, out.Count())
	}
	for i := 0; i < storage.BlockSize; i++ {
		p, _ := out.PopFront()
		if p != Posting(i) {
			t.Fatalf("posting %d: got %d", i, p)
		}
	}
}

func TestForceCompressPadsWithZeros(t *testing.T) {
	c := VByteCompressor{}
	buf := NewBiasedRingBuffer()
	buf.SetBase(Posting(100))
	buf.PushBack(Posting(101))
	buf.PushBack(Posting(300))
	buf.PushBack(Posting(5000))

	block := c.ForceCompress(buf)
	if buf.Count() != 0 {
		t.Fatal("force_compress must drain the buffer")
	}

	out := NewBiasedRingBuffer()
	out.SetBase(Posting(100))
	c.Decompress(block, out)
	want := []Posting{101, 300, 5000}
	if out.Count() != len(want) {
		t.Fatalf("padding decoded as postings: count=%d", out.Count())
	}
	for _, w := range want {
		p, _ := out.PopFront()
		if p != w {
			t.Fatalf("expected %d, got %d", w, p)
		}
	}
}

func TestCompressChainedBlocksBiases(t *testing.T) {
	c := VByteCompressor{}
	buf := NewBiasedRingBuffer()
	n := 1000
	for i := 0; i < n; i++ {
		buf.PushBack(Posting(i * 3))
	}

	var decoded []Posting
	out := NewBiasedRingBuffer()
	for {
		bias := buf.Base()
		block, ok := c.Compress(buf)
		if !ok {
			break
		}
		out.SetBase(bias)
		c.Decompress(block, out)
		for {
			p, ok := out.PopFront()
			if !ok {
				break
			}
			decoded = append(decoded, p)
		}
	}
	bias := buf.Base()
	block := c.ForceCompress(buf)
	out.SetBase(bias)
	c.Decompress(block, out)
	for {
		p, ok := out.PopFront()
		if !ok {
			break
		}
		decoded = append(decoded, p)
	}

	if len(decoded) != n {
		t.Fatalf("expected %d postings, got %d", n, len(decoded))
	}
	for i, p := range decoded {
		if p != Posting(i*3) {
			t.Fatalf("posting %d: expected %d, got %d", i, i*3, p)
		}
	}
}

func TestDecompressZeroDeltaFirstPosting(t *testing.T) {
	// Premier posting d'un index : DocId 0 avec base 0, delta nul.
	c := VByteCompressor{}
	buf := NewBiasedRingBuffer()
	buf.PushBack(Posting(0))
	block := c.ForceCompress(buf)

	out := NewBiasedRingBuffer()
	out.SetBase(Posting(0))
	c.Decompress(block, out)
	if out.Count() != 1 {
		t.Fatalf("expected exactly one posting, got %d", out.Count())
	}
	p, _ := out.PopFront()
	if p != Posting(0) {
		t.Fatalf("expected posting 0, got %d", p)
	}
}
