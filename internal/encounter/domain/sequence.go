package domain

import (
	"fmt"
	"sort"
)

// EntryKind discriminates turn sequence entries.
type EntryKind int

const (
	// EntryUnspecified represents an invalid entry kind.
	EntryUnspecified EntryKind = iota
	// EntryCombatant references a combatant by id.
	EntryCombatant
	// EntryMarker is a synthetic environmental marker (lair actions) at a
	// fixed initiative count. Markers are not stored entities.
	EntryMarker
)

// TurnEntry is one slot in the turn sequence: either a combatant reference
// or an environmental marker.
type TurnEntry struct {
	Kind        EntryKind
	CombatantID string // set when Kind == EntryCombatant
	Initiative  int    // marker initiative count, set when Kind == EntryMarker
}

// MarkerID derives the marker identity from its initiative count. One
// marker exists per distinct lair-action initiative.
func (e TurnEntry) MarkerID() string {
	return fmt.Sprintf("lair-%d", e.Initiative)
}

// entryRank returns the (initiative, tie-breaker) sort pair for an entry.
// Markers rank with a tie-breaker of zero; their tie-losing rule is handled
// at insertion, not here.
func entryRank(entry TurnEntry, combatants map[string]Combatant) (int, float64) {
	if entry.Kind == EntryCombatant {
		if combatant, ok := combatants[entry.CombatantID]; ok {
			return combatant.Initiative, combatant.TieBreaker
		}
		return 0, 0
	}
	return entry.Initiative, 0
}

// BuildOrder derives the turn sequence from the combatant set plus
// environmental initiative counts.
//
// Combatants sort by initiative descending, tie-breaker descending. Markers
// participate at their fixed initiative but always lose ties: each marker is
// placed immediately after the last entry whose initiative is greater than
// or equal to the marker's value. A marker with no combatant at or above its
// initiative lands at the end of the sequence.
func BuildOrder(combatants map[string]Combatant, environmentalInitiatives []int) []TurnEntry {
	sorted := make([]Combatant, 0, len(combatants))
	for _, combatant := range combatants {
		sorted = append(sorted, combatant)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Initiative != sorted[j].Initiative {
			return sorted[i].Initiative > sorted[j].Initiative
		}
		if sorted[i].TieBreaker != sorted[j].TieBreaker {
			return sorted[i].TieBreaker > sorted[j].TieBreaker
		}
		return sorted[i].ID < sorted[j].ID
	})

	order := make([]TurnEntry, 0, len(sorted)+len(environmentalInitiatives))
	for _, combatant := range sorted {
		order = append(order, TurnEntry{Kind: EntryCombatant, CombatantID: combatant.ID})
	}

	for _, initiative := range dedupeDescending(environmentalInitiatives) {
		idx := len(order)
		for i, entry := range order {
			rank, _ := entryRank(entry, combatants)
			if rank < initiative {
				idx = i
				break
			}
		}
		order = append(order[:idx], append([]TurnEntry{{Kind: EntryMarker, Initiative: initiative}}, order[idx:]...)...)
	}

	return order
}

// InsertNew places a mid-combat addition into an existing sequence: before
// the first entry whose (initiative, tie-breaker) pair is strictly less than
// the new combatant's, or at the end when no such entry exists.
func InsertNew(order []TurnEntry, combatant Combatant, combatants map[string]Combatant) []TurnEntry {
	entry := TurnEntry{Kind: EntryCombatant, CombatantID: combatant.ID}
	idx := len(order)
	for i, existing := range order {
		rank, tie := entryRank(existing, combatants)
		if rank < combatant.Initiative || (rank == combatant.Initiative && tie < combatant.TieBreaker) {
			idx = i
			break
		}
	}
	out := make([]TurnEntry, 0, len(order)+1)
	out = append(out, order[:idx]...)
	out = append(out, entry)
	out = append(out, order[idx:]...)
	return out
}

// SidekickIndex maps a combatant id to the ids of combatants linked to it.
// The index is recomputed on demand rather than held as live references so
// removals cannot leave stale pointers.
func SidekickIndex(combatants map[string]Combatant) map[string][]string {
	index := make(map[string][]string)
	for _, combatant := range combatants {
		if combatant.LinkedTo == "" {
			continue
		}
		index[combatant.LinkedTo] = append(index[combatant.LinkedTo], combatant.ID)
	}
	for _, ids := range index {
		sort.Strings(ids)
	}
	return index
}

// PropagateSidekicks force-sets every combatant linked to leaderID to the
// leader's initiative with a tie-breaker half a point lower, so a sidekick
// resolves ties immediately after its linked combatant and never before it.
// The input map is not mutated; a new map is returned.
func PropagateSidekicks(combatants map[string]Combatant, leaderID string) map[string]Combatant {
	leader, ok := combatants[leaderID]
	if !ok {
		return combatants
	}

	out := make(map[string]Combatant, len(combatants))
	for id, combatant := range combatants {
		out[id] = combatant
	}
	for _, sidekickID := range SidekickIndex(combatants)[leaderID] {
		sidekick := out[sidekickID].Clone()
		sidekick.Initiative = leader.Initiative
		sidekick.TieBreaker = leader.TieBreaker - 0.5
		out[sidekickID] = sidekick
	}
	return out
}

func dedupeDescending(values []int) []int {
	seen := make(map[int]bool, len(values))
	out := make([]int, 0, len(values))
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
