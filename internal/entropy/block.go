package entropy

import (
	"encoding/binary"
	"sync"

	"hatchery/pkg/domain"
)

// Block is an in-process entropy source modelling one host block: a seed
// fixed for the block and an index that distinguishes the calls executed in
// it.
//
// The block tracks a 64-bit position. The low 32 bits are the operation index;
// the high 32 bits select an epoch, and every epoch after the first uses a
// seed derived from the block seed and the epoch number. Positions past 2^32
// therefore never repeat a (seed, index) pair.
type Block struct {
	mu       sync.RWMutex
	seed     domain.Seed
	position uint64
}

var _ domain.EntropySource = (*Block)(nil)

// NewBlock starts a block with the given seed at operation index zero.
func NewBlock(seed domain.Seed) *Block {
	return &Block{seed: seed}
}

// CurrentSeed implements domain.EntropySource.
func (b *Block) CurrentSeed() domain.Seed {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return epochSeed(b.seed, b.position>>32)
}

// OperationIndex implements domain.EntropySource.
func (b *Block) OperationIndex() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint32(b.position)
}

// Position reports the full 64-bit position of the block.
func (b *Block) Position() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.position
}

// Advance moves to the next operation within the block. The host calls it
// once per dispatched call whether or not the call succeeded.
func (b *Block) Advance() {
	b.mu.Lock()
	b.position++
	b.mu.Unlock()
}

// Reset begins a new block with seed.
func (b *Block) Reset(seed domain.Seed) {
	b.mu.Lock()
	b.seed = seed
	b.position = 0
	b.mu.Unlock()
}

// SetPosition moves the block to position, for hosts that resume numbering
// from persisted state such as the creature counter.
func (b *Block) SetPosition(position uint64) {
	b.mu.Lock()
	b.position = position
	b.mu.Unlock()
}

func epochSeed(seed domain.Seed, epoch uint64) domain.Seed {
	if epoch == 0 {
		return seed
	}
	material := binary.BigEndian.AppendUint64(append([]byte(nil), seed[:]...), epoch)
	return SeedFromHash(material)
}
