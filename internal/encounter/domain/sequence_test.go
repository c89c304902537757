package domain

import (
	"sort"
	"testing"
)

func combatantMap(combatants ...Combatant) map[string]Combatant {
	out := make(map[string]Combatant, len(combatants))
	for _, combatant := range combatants {
		out[combatant.ID] = combatant
	}
	return out
}

func TestBuildOrderSortsByInitiativeThenTieBreaker(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "Archer", Initiative: 12, TieBreaker: 1},
		Combatant{ID: "b", Name: "Bard", Initiative: 15, TieBreaker: 3},
		Combatant{ID: "c", Name: "Cleric", Initiative: 15, TieBreaker: 7},
		Combatant{ID: "d", Name: "Druid", Initiative: 20},
	)

	order := BuildOrder(combatants, nil)

	var ids []string
	for _, entry := range order {
		ids = append(ids, entry.CombatantID)
	}
	want := []string{"d", "c", "b", "a"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}

func TestBuildOrderIsSortedForAnyInput(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "A", Initiative: 3, TieBreaker: 0.2},
		Combatant{ID: "b", Name: "B", Initiative: 18, TieBreaker: 0.9},
		Combatant{ID: "c", Name: "C", Initiative: 3, TieBreaker: 0.7},
		Combatant{ID: "d", Name: "D", Initiative: 11},
		Combatant{ID: "e", Name: "E", Initiative: 18, TieBreaker: 0.1},
	)

	order := BuildOrder(combatants, nil)

	sorted := sort.SliceIsSorted(order, func(i, j int) bool {
		a := combatants[order[i].CombatantID]
		b := combatants[order[j].CombatantID]
		if a.Initiative != b.Initiative {
			return a.Initiative > b.Initiative
		}
		return a.TieBreaker > b.TieBreaker
	})
	if !sorted {
		t.Fatalf("expected order sorted by (initiative desc, tieBreaker desc), got %+v", order)
	}
}

func TestBuildOrderMarkersLoseTies(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "Dragon", Initiative: 20, TieBreaker: 2},
		Combatant{ID: "b", Name: "Rogue", Initiative: 15},
	)

	order := BuildOrder(combatants, []int{20})

	if len(order) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(order))
	}
	if order[0].CombatantID != "a" {
		t.Fatalf("expected dragon first, got %+v", order[0])
	}
	if order[1].Kind != EntryMarker || order[1].Initiative != 20 {
		t.Fatalf("expected lair marker after the tied combatant, got %+v", order[1])
	}
	if order[2].CombatantID != "b" {
		t.Fatalf("expected rogue last, got %+v", order[2])
	}
}

func TestBuildOrderOrphanMarkerAppends(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "Goblin", Initiative: 8},
	)

	order := BuildOrder(combatants, []int{3})

	if len(order) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(order))
	}
	last := order[len(order)-1]
	if last.Kind != EntryMarker || last.Initiative != 3 {
		t.Fatalf("expected orphan marker appended, got %+v", last)
	}
}

func TestBuildOrderDedupesMarkerInitiatives(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "Dragon", Initiative: 20},
	)

	order := BuildOrder(combatants, []int{20, 20, 15})

	markers := 0
	for _, entry := range order {
		if entry.Kind == EntryMarker {
			markers++
		}
	}
	if markers != 2 {
		t.Fatalf("expected one marker per distinct initiative, got %d", markers)
	}
}

func TestInsertNewPlacesBeforeFirstLesserEntry(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "A", Initiative: 20},
		Combatant{ID: "b", Name: "B", Initiative: 10},
	)
	order := BuildOrder(combatants, nil)

	incoming := Combatant{ID: "c", Name: "C", Initiative: 15}
	combatants["c"] = incoming
	order = InsertNew(order, incoming, combatants)

	if len(order) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(order))
	}
	if order[1].CombatantID != "c" {
		t.Fatalf("expected new combatant in the middle, got %+v", order)
	}
}

func TestInsertNewAppendsWhenLowest(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "A", Initiative: 20},
	)
	order := BuildOrder(combatants, nil)

	// Mid-combat additions default to initiative 0 unless pre-rolled.
	incoming := Combatant{ID: "b", Name: "B"}
	combatants["b"] = incoming
	order = InsertNew(order, incoming, combatants)

	if order[len(order)-1].CombatantID != "b" {
		t.Fatalf("expected new combatant appended, got %+v", order)
	}
}

func TestInsertNewWinsTiesAgainstMarkers(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "a", Name: "Dragon", Initiative: 20, TieBreaker: 1, LairInitiatives: []int{15}},
	)
	order := BuildOrder(combatants, []int{15})

	incoming := Combatant{ID: "b", Name: "B", Initiative: 15, TieBreaker: 0.5}
	combatants["b"] = incoming
	order = InsertNew(order, incoming, combatants)

	if order[1].CombatantID != "b" {
		t.Fatalf("expected combatant before the equal-initiative marker, got %+v", order)
	}
	if order[2].Kind != EntryMarker {
		t.Fatalf("expected marker pushed after the new combatant, got %+v", order)
	}
}

func TestPropagateSidekicks(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "leader", Name: "Ranger", Initiative: 17, TieBreaker: 4},
		Combatant{ID: "wolf", Name: "Wolf", LinkedTo: "leader", Initiative: 2},
		Combatant{ID: "hawk", Name: "Hawk", LinkedTo: "leader", Initiative: 9},
		Combatant{ID: "other", Name: "Other", Initiative: 12},
	)

	out := PropagateSidekicks(combatants, "leader")

	for _, id := range []string{"wolf", "hawk"} {
		sidekick := out[id]
		if sidekick.Initiative != 17 {
			t.Fatalf("expected sidekick %s initiative 17, got %d", id, sidekick.Initiative)
		}
		if sidekick.TieBreaker != 3.5 {
			t.Fatalf("expected sidekick %s tie-breaker 3.5, got %v", id, sidekick.TieBreaker)
		}
	}
	if out["other"].Initiative != 12 {
		t.Fatalf("expected unlinked combatant untouched")
	}
	if combatants["wolf"].Initiative != 2 {
		t.Fatalf("expected input map not mutated")
	}
}

func TestPropagateSidekicksUnknownLeaderIsNoop(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "wolf", Name: "Wolf", LinkedTo: "gone", Initiative: 2},
	)
	out := PropagateSidekicks(combatants, "gone")
	if out["wolf"].Initiative != 2 {
		t.Fatalf("expected no propagation from a removed leader")
	}
}

func TestSidekickIndex(t *testing.T) {
	combatants := combatantMap(
		Combatant{ID: "leader", Name: "Ranger"},
		Combatant{ID: "b-wolf", Name: "Wolf", LinkedTo: "leader"},
		Combatant{ID: "a-hawk", Name: "Hawk", LinkedTo: "leader"},
	)

	index := SidekickIndex(combatants)
	ids := index["leader"]
	if len(ids) != 2 || ids[0] != "a-hawk" || ids[1] != "b-wolf" {
		t.Fatalf("expected deterministic sidekick index, got %v", ids)
	}
}
