package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCreateEncounter(t *testing.T) {
	encounter, err := CreateEncounter("Goblin Ambush", time.Now())
	if err != nil {
		t.Fatalf("create encounter: %v", err)
	}
	if !IsLocalID(encounter.ID) {
		t.Fatalf("expected temporary local id, got %q", encounter.ID)
	}
	if encounter.Status != StatusPreparing {
		t.Fatalf("expected preparing status, got %v", encounter.Status)
	}
	if encounter.Round != 1 {
		t.Fatalf("expected round 1, got %d", encounter.Round)
	}

	if _, err := CreateEncounter("  ", time.Now()); !errors.Is(err, ErrEncounterNameEmpty) {
		t.Fatalf("expected ErrEncounterNameEmpty, got %v", err)
	}
}

func TestAddCombatantValidatesLink(t *testing.T) {
	encounter, err := CreateEncounter("Test", time.Now())
	if err != nil {
		t.Fatalf("create encounter: %v", err)
	}

	_, err = encounter.AddCombatant(Combatant{ID: "wolf", Name: "Wolf", HPMax: 11, HP: 11, LinkedTo: "missing"})
	if !errors.Is(err, ErrLinkUnknown) {
		t.Fatalf("expected ErrLinkUnknown, got %v", err)
	}
}

func TestAddCombatantDerivesSidekickInitiative(t *testing.T) {
	encounter, err := CreateEncounter("Test", time.Now())
	if err != nil {
		t.Fatalf("create encounter: %v", err)
	}
	encounter, err = encounter.AddCombatant(Combatant{ID: "ranger", Name: "Ranger", HPMax: 40, HP: 40, Initiative: 17, TieBreaker: 4})
	if err != nil {
		t.Fatalf("add ranger: %v", err)
	}
	encounter, err = encounter.AddCombatant(Combatant{ID: "wolf", Name: "Wolf", HPMax: 11, HP: 11, LinkedTo: "ranger"})
	if err != nil {
		t.Fatalf("add wolf: %v", err)
	}

	wolf := encounter.Combatants["wolf"]
	// Tie-breaker is leader minus 0.5.
	if wolf.Initiative != 17 || wolf.TieBreaker != 3.5 {
		t.Fatalf("expected wolf at (17, 3.5), got (%d, %v)", wolf.Initiative, wolf.TieBreaker)
	}
}

func TestAddCombatantMidCombatInsertsIntoSequence(t *testing.T) {
	encounter := activeEncounter(t,
		Combatant{ID: "a", Name: "A", HPMax: 10, HP: 10, Initiative: 20},
		Combatant{ID: "b", Name: "B", HPMax: 10, HP: 10, Initiative: 10},
	)
	encounter.Turn = 1 // B acting

	next, err := encounter.AddCombatant(Combatant{ID: "c", Name: "C", HPMax: 10, HP: 10, Initiative: 15})
	if err != nil {
		t.Fatalf("add combatant: %v", err)
	}
	if len(next.Order) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(next.Order))
	}
	if next.Order[1].CombatantID != "c" {
		t.Fatalf("expected insertion between A and B, got %+v", next.Order)
	}
	// B was acting at index 1; the insertion shifted it to index 2 and the
	// pointer must follow.
	if next.Turn != 2 {
		t.Fatalf("expected pointer to follow the active entry, got %d", next.Turn)
	}
	active, _ := next.ActiveEntry()
	if active.CombatantID != "b" {
		t.Fatalf("expected B still active, got %+v", active)
	}
}

func TestRemoveCombatantPrunesOrphanMarkers(t *testing.T) {
	dragon := Combatant{ID: "dragon", Name: "Dragon", HPMax: 200, HP: 200, Initiative: 20, LairInitiatives: []int{15}}
	rogue := Combatant{ID: "rogue", Name: "Rogue", HPMax: 40, HP: 40, Initiative: 10}
	encounter := activeEncounter(t, dragon, rogue)

	markers := 0
	for _, entry := range encounter.Order {
		if entry.Kind == EntryMarker {
			markers++
		}
	}
	if markers != 1 {
		t.Fatalf("expected a lair marker in the opening order, got %d", markers)
	}

	next, err := encounter.RemoveCombatant("dragon")
	if err != nil {
		t.Fatalf("remove combatant: %v", err)
	}
	for _, entry := range next.Order {
		if entry.Kind == EntryMarker {
			t.Fatalf("expected orphaned marker pruned, got %+v", next.Order)
		}
		if entry.CombatantID == "dragon" {
			t.Fatalf("expected dragon entry removed, got %+v", next.Order)
		}
	}
	if _, ok := next.Combatants["dragon"]; ok {
		t.Fatal("expected dragon removed from the collection")
	}
}

func TestRemoveCombatantKeepsSharedMarkers(t *testing.T) {
	a := Combatant{ID: "a", Name: "A", HPMax: 10, HP: 10, Initiative: 20, LairInitiatives: []int{15}}
	b := Combatant{ID: "b", Name: "B", HPMax: 10, HP: 10, Initiative: 10, LairInitiatives: []int{15}}
	encounter := activeEncounter(t, a, b)

	next, err := encounter.RemoveCombatant("a")
	if err != nil {
		t.Fatalf("remove combatant: %v", err)
	}
	found := false
	for _, entry := range next.Order {
		if entry.Kind == EntryMarker && entry.Initiative == 15 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected marker kept while another combatant shares the lair group")
	}
}

func TestRemoveCombatantAdjustsPointer(t *testing.T) {
	encounter := activeEncounter(t,
		Combatant{ID: "a", Name: "A", HPMax: 10, HP: 10, Initiative: 20},
		Combatant{ID: "b", Name: "B", HPMax: 10, HP: 10, Initiative: 15},
		Combatant{ID: "c", Name: "C", HPMax: 10, HP: 10, Initiative: 10},
	)
	encounter.Turn = 2 // C acting

	next, err := encounter.RemoveCombatant("a")
	if err != nil {
		t.Fatalf("remove combatant: %v", err)
	}
	active, ok := next.ActiveEntry()
	if !ok || active.CombatantID != "c" {
		t.Fatalf("expected C still active after removal before the pointer, got %+v", active)
	}

	if _, err := next.RemoveCombatant("missing"); !errors.Is(err, ErrCombatantNotFound) {
		t.Fatalf("expected ErrCombatantNotFound, got %v", err)
	}
}

func TestRemoveCombatantPointerSurvivesOrphanMarkerPrune(t *testing.T) {
	// Removing B drops two entries before the pointer: B itself and the
	// lair marker only B contributes.
	encounter := activeEncounter(t,
		Combatant{ID: "x", Name: "X", HPMax: 10, HP: 10, Initiative: 30},
		Combatant{ID: "y", Name: "Y", HPMax: 10, HP: 10, Initiative: 25},
		Combatant{ID: "b", Name: "B", HPMax: 10, HP: 10, Initiative: 20, LairInitiatives: []int{10}},
		Combatant{ID: "d", Name: "D", HPMax: 10, HP: 10, Initiative: 5},
	)
	if len(encounter.Order) != 5 {
		t.Fatalf("expected 5 entries including the marker, got %+v", encounter.Order)
	}
	encounter.Turn = 4 // D acting

	next, err := encounter.RemoveCombatant("b")
	if err != nil {
		t.Fatalf("remove combatant: %v", err)
	}
	if next.Turn != 2 {
		t.Fatalf("expected pointer shifted by both dropped entries, got turn %d", next.Turn)
	}
	active, ok := next.ActiveEntry()
	if !ok || active.CombatantID != "d" {
		t.Fatalf("expected D still active after removal, got %+v", active)
	}
}

func TestUpdateCombatantPropagatesSidekicks(t *testing.T) {
	encounter := activeEncounter(t,
		Combatant{ID: "ranger", Name: "Ranger", HPMax: 40, HP: 40, Initiative: 17, TieBreaker: 4},
		Combatant{ID: "wolf", Name: "Wolf", HPMax: 11, HP: 11, LinkedTo: "ranger"},
		Combatant{ID: "goblin", Name: "Goblin", HPMax: 7, HP: 7, Initiative: 12},
	)

	newInitiative := 9
	newTie := 2.0
	next, err := encounter.UpdateCombatant("ranger", PatchCombatantInput{Initiative: &newInitiative, TieBreaker: &newTie})
	if err != nil {
		t.Fatalf("update combatant: %v", err)
	}

	wolf := next.Combatants["wolf"]
	if wolf.Initiative != 9 || wolf.TieBreaker != 1.5 {
		t.Fatalf("expected sidekick forced to (9, 1.5), got (%d, %v)", wolf.Initiative, wolf.TieBreaker)
	}

	// The sequence was re-derived: goblin now leads, ranger before wolf.
	var ids []string
	for _, entry := range next.Order {
		ids = append(ids, entry.CombatantID)
	}
	want := []string{"goblin", "ranger", "wolf"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}

func TestUpdateCombatantKeepsOrderForIrrelevantFields(t *testing.T) {
	encounter := activeEncounter(t,
		Combatant{ID: "a", Name: "A", HPMax: 10, HP: 10, Initiative: 20},
		Combatant{ID: "b", Name: "B", HPMax: 10, HP: 10, Initiative: 10},
	)
	before := append([]TurnEntry(nil), encounter.Order...)

	ac := 18
	next, err := encounter.UpdateCombatant("b", PatchCombatantInput{ArmorClass: &ac})
	if err != nil {
		t.Fatalf("update combatant: %v", err)
	}
	for i := range before {
		if !sameEntry(before[i], next.Order[i]) {
			t.Fatalf("expected order untouched by non-ordering patch")
		}
	}
}

func TestUpdateCombatantRejectsInvalidPatch(t *testing.T) {
	encounter := activeEncounter(t, Combatant{ID: "a", Name: "A", HPMax: 10, HP: 10})

	bad := -50
	_, err := encounter.UpdateCombatant("a", PatchCombatantInput{HPMaxModifier: &bad})
	if !errors.Is(err, ErrInvalidMaxHP) {
		t.Fatalf("expected ErrInvalidMaxHP, got %v", err)
	}

	self := "a"
	if _, err := encounter.UpdateCombatant("a", PatchCombatantInput{LinkedTo: &self}); !errors.Is(err, ErrLinkUnknown) {
		t.Fatalf("expected ErrLinkUnknown on self link, got %v", err)
	}
}

func TestApplyHPDeltaToReportsTransition(t *testing.T) {
	mage := Combatant{ID: "mage", Name: "Mage", HPMax: 20, HP: 20, TempHP: 3, Concentrating: true}
	encounter := activeEncounter(t, mage)

	next, transition, err := encounter.ApplyHPDeltaTo("mage", HPDelta{Kind: HPDeltaDamage, Amount: 14})
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if next.Combatants["mage"].HP != 9 || next.Combatants["mage"].TempHP != 0 {
		t.Fatalf("unexpected pools %+v", next.Combatants["mage"])
	}
	if !transition.Bloodied {
		t.Fatal("expected bloodied notification: 20/20 to 9/20 crosses half")
	}
	if !transition.Concentration.Required || transition.Concentration.DC != 10 {
		t.Fatalf("expected concentration check at dc 10, got %+v", transition.Concentration)
	}
	// The prior snapshot is immutable.
	if encounter.Combatants["mage"].HP != 20 {
		t.Fatal("expected prior snapshot untouched")
	}
}

func TestEncounterCloneIsDeep(t *testing.T) {
	encounter := activeEncounter(t, Combatant{
		ID: "dragon", Name: "Dragon", HPMax: 200, HP: 200,
		RechargeAbilities: []RechargeAbility{{Name: "Breath", Recharge: "5-6", Available: true}},
	})

	clone := encounter.Clone()
	clone.Combatants["dragon"].RechargeAbilities[0].Available = false
	if !encounter.Combatants["dragon"].RechargeAbilities[0].Available {
		t.Fatal("expected deep copy of nested slices")
	}
}
