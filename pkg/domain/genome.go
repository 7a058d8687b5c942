package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// RecordSize is the length of an encoded creature record: genome followed by
// the big-endian id, no padding.
const RecordSize = GenomeSize + 8

// CombineGenomes derives a child genome bit by bit: where the selector bit is
// set the bit comes from first, otherwise from second.
func CombineGenomes(first, second, selector Genome) Genome {
	var child Genome
	for i := range child {
		child[i] = combineByte(first[i], second[i], selector[i])
	}
	return child
}

func combineByte(a, b, selector byte) byte {
	return (selector & a) | (^selector & b)
}

// String renders the genome as lowercase hex.
func (g Genome) String() string {
	return hex.EncodeToString(g[:])
}

// MarshalText implements encoding.TextMarshaler.
func (g Genome) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(GenomeSize))
	hex.Encode(out, g[:])
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Genome) UnmarshalText(text []byte) error {
	if len(text) != hex.EncodedLen(GenomeSize) {
		return fmt.Errorf("genome: expected %d hex characters, got %d", hex.EncodedLen(GenomeSize), len(text))
	}
	var decoded Genome
	if _, err := hex.Decode(decoded[:], text); err != nil {
		return fmt.Errorf("genome: %w", err)
	}
	*g = decoded
	return nil
}

// EncodeRecord produces the stable external encoding of a creature record.
func EncodeRecord(id CreatureID, c Creature) []byte {
	buf := make([]byte, RecordSize)
	copy(buf, c.Genome[:])
	binary.BigEndian.PutUint64(buf[GenomeSize:], uint64(id))
	return buf
}

// DecodeRecord parses a record produced by EncodeRecord.
func DecodeRecord(buf []byte) (CreatureID, Creature, error) {
	if len(buf) != RecordSize {
		return 0, Creature{}, fmt.Errorf("creature record: expected %d bytes, got %d", RecordSize, len(buf))
	}
	var c Creature
	copy(c.Genome[:], buf[:GenomeSize])
	return CreatureID(binary.BigEndian.Uint64(buf[GenomeSize:])), c, nil
}
