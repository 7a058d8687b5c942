package entropy

import (
	"math"
	"testing"

	"golang.org/x/crypto/blake2b"

	"hatchery/pkg/domain"
)

func TestMixIsDeterministic(t *testing.T) {
	seed := SeedFromHash([]byte("block-1"))
	a := Mix(seed, "alice", 3)
	b := Mix(seed, "alice", 3)
	if a != b {
		t.Fatalf("expected identical output for identical inputs")
	}
}

func TestMixVariesWithEveryInput(t *testing.T) {
	seed := SeedFromHash([]byte("block-1"))
	base := Mix(seed, "alice", 0)
	if Mix(SeedFromHash([]byte("block-2")), "alice", 0) == base {
		t.Fatalf("seed must influence output")
	}
	if Mix(seed, "bob", 0) == base {
		t.Fatalf("caller must influence output")
	}
	if Mix(seed, "alice", 1) == base {
		t.Fatalf("operation index must influence output")
	}
}

func TestMixMatchesDocumentedEncoding(t *testing.T) {
	var seed domain.Seed
	seed[0] = 0x01
	payload := append([]byte{}, seed[:]...)
	payload = append(payload, 0x02, 'a', 'b')
	payload = append(payload, 0x05, 0x00, 0x00, 0x00)
	h, err := blake2b.New(16, nil)
	if err != nil {
		t.Fatalf("blake2b: %v", err)
	}
	h.Write(payload)
	var want domain.Genome
	copy(want[:], h.Sum(nil))
	if got := Mix(seed, "ab", 5); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestMixerReadsSource(t *testing.T) {
	block := NewBlock(SeedFromHash([]byte("seed")))
	mixer := NewMixer(block)
	first := mixer.Derive("1")
	if first != Mix(block.CurrentSeed(), "1", 0) {
		t.Fatalf("mixer must use the source's seed and index")
	}
	block.Advance()
	if block.OperationIndex() != 1 {
		t.Fatalf("expected index 1, got %d", block.OperationIndex())
	}
	if mixer.Derive("1") == first {
		t.Fatalf("advancing the block must change the derived genome")
	}
	block.Reset(SeedFromHash([]byte("seed")))
	if block.OperationIndex() != 0 || mixer.Derive("1") != first {
		t.Fatalf("reset must restore index zero")
	}
	block.SetPosition(9)
	if mixer.Derive("1") != Mix(block.CurrentSeed(), "1", 9) {
		t.Fatalf("explicit index not honoured")
	}
}

func TestBlockPositionsPastIndexRangeStayDistinct(t *testing.T) {
	seed := SeedFromHash([]byte("seed"))
	block := NewBlock(seed)
	block.SetPosition(math.MaxUint32)
	if block.CurrentSeed() != seed || block.OperationIndex() != math.MaxUint32 {
		t.Fatalf("the first 2^32 positions use the block seed")
	}
	last := Mix(block.CurrentSeed(), "1", block.OperationIndex())

	block.Advance()
	if block.Position() != 1<<32 || block.OperationIndex() != 0 {
		t.Fatalf("expected position 2^32 at index 0, got %d/%d", block.Position(), block.OperationIndex())
	}
	if block.CurrentSeed() == seed {
		t.Fatalf("crossing 2^32 must move to a new seed")
	}
	wrapped := Mix(block.CurrentSeed(), "1", 0)
	if wrapped == Mix(seed, "1", 0) || wrapped == last {
		t.Fatalf("wrapped position repeated an earlier genome")
	}

	other := NewBlock(seed)
	other.SetPosition(2<<32 | 5)
	if other.OperationIndex() != 5 || other.CurrentSeed() == block.CurrentSeed() {
		t.Fatalf("each epoch needs its own seed")
	}
}
