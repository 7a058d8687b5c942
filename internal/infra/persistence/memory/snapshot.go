package memory

import (
	"sort"

	"hatchery/pkg/domain"
)

// Snapshot captures a point-in-time copy of the registry. Listings hold each
// owner's creatures in insertion order as stable-encoded records; the primary
// store and reverse index are rebuilt from them on import.
type Snapshot struct {
	Counter  CreatureID             `json:"counter"`
	Listings map[AccountID][][]byte `json:"listings"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Counter:  state.counter,
		Listings: make(map[AccountID][][]byte, len(state.listings)),
	}
	for owner, listing := range state.listings {
		records := make([][]byte, 0, len(listing))
		for _, entry := range listing {
			records = append(records, domain.EncodeRecord(entry.ID, entry.Creature))
		}
		s.Listings[owner] = records
	}
	return s
}

// memoryStateFromSnapshot expects a normalized snapshot.
func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	state.counter = s.Counter
	for owner, records := range s.Listings {
		for _, raw := range records {
			id, c, err := domain.DecodeRecord(raw)
			if err != nil {
				continue
			}
			state.creatures[ownedKey{owner: owner, id: id}] = c
			state.owners[id] = owner
			state.listings[owner] = append(state.listings[owner], OwnedCreature{ID: id, Creature: c})
		}
	}
	return state
}

// normalizeSnapshot repairs snapshots written by older or foreign writers so
// that the imported state satisfies the registry invariants: undecodable
// records and ids already claimed by another listing are dropped, empty
// listings are removed, and the counter is raised to the highest id present.
func normalizeSnapshot(snapshot Snapshot) Snapshot {
	out := Snapshot{Counter: snapshot.Counter, Listings: make(map[AccountID][][]byte, len(snapshot.Listings))}
	owners := make([]AccountID, 0, len(snapshot.Listings))
	for owner := range snapshot.Listings {
		owners = append(owners, owner)
	}
	// deterministic winner when two listings claim the same id
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	seen := make(map[CreatureID]struct{})
	for _, owner := range owners {
		if owner == "" {
			continue
		}
		var kept [][]byte
		for _, raw := range snapshot.Listings[owner] {
			id, _, err := domain.DecodeRecord(raw)
			if err != nil || id == 0 {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, append([]byte(nil), raw...))
			if id > out.Counter {
				out.Counter = id
			}
		}
		if len(kept) > 0 {
			out.Listings[owner] = kept
		}
	}
	return out
}
