// Package entropy derives per-call pseudo-random genomes from host-supplied
// seed material.
//
// The derivation is a fixed public function of (seed, caller, operation
// index). Anyone who knows or can influence the seed can predict every genome
// and breeding selector, so it must not be used where outcomes carry value
// that a caller could game.
package entropy

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"hatchery/pkg/domain"
)

// Mixer combines an entropy source with a caller identity.
type Mixer struct {
	source domain.EntropySource
}

// NewMixer constructs a mixer reading from source.
func NewMixer(source domain.EntropySource) *Mixer {
	return &Mixer{source: source}
}

// Derive returns the 128-bit digest of the current seed, the caller and the
// current operation index.
func (m *Mixer) Derive(caller domain.AccountID) domain.Genome {
	return Mix(m.source.CurrentSeed(), caller, m.source.OperationIndex())
}

// Mix is the pure mixing function behind Mixer.Derive:
// blake2b-128(seed || uvarint(len(caller)) || caller || uint32le(index)).
func Mix(seed domain.Seed, caller domain.AccountID, index uint32) domain.Genome {
	payload := make([]byte, 0, domain.SeedSize+binary.MaxVarintLen64+len(caller)+4)
	payload = append(payload, seed[:]...)
	payload = binary.AppendUvarint(payload, uint64(len(caller)))
	payload = append(payload, caller...)
	payload = binary.LittleEndian.AppendUint32(payload, index)

	h, err := blake2b.New(domain.GenomeSize, nil)
	if err != nil {
		// only returned for invalid sizes or keys
		panic(err)
	}
	_, _ = h.Write(payload)
	var out domain.Genome
	copy(out[:], h.Sum(nil))
	return out
}

// SeedFromHash derives a seed from arbitrary material, e.g. a configured
// phrase or a parent block hash.
func SeedFromHash(material []byte) domain.Seed {
	return domain.Seed(blake2b.Sum256(material))
}
