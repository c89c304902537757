package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	"github.com/louisbranch/initiative/internal/encounter/storage"
)

func testEncounter(id string, now time.Time) domain.Encounter {
	return domain.Encounter{
		ID:     id,
		Name:   "Goblin Ambush",
		Status: domain.StatusActive,
		Round:  2,
		Turn:   1,
		Combatants: map[string]domain.Combatant{
			"goblin": {
				ID:         "goblin",
				Name:       "Goblin",
				HP:         5,
				HPMax:      7,
				ArmorClass: 15,
				Initiative: 14,
				TieBreaker: 2,
				RechargeAbilities: []domain.RechargeAbility{
					{Name: "Fire Breath", Recharge: "5-6", Available: false},
				},
				LairInitiatives: []int{20},
			},
			"ranger": {
				ID:            "ranger",
				Name:          "Ranger",
				HP:            20,
				HPMax:         24,
				TempHP:        3,
				Player:        true,
				Initiative:    17,
				Concentrating: true,
				SpellSlots: []domain.SpellSlots{
					{Level: 1, Current: 2, Max: 4},
				},
				DailyUses: []domain.DailyUse{
					{Name: "Favored Foe", Current: 1, Max: 2},
				},
			},
		},
		Order: []domain.TurnEntry{
			{Kind: domain.EntryMarker, Initiative: 20},
			{Kind: domain.EntryCombatant, CombatantID: "ranger"},
			{Kind: domain.EntryCombatant, CombatantID: "goblin"},
		},
		PendingRecharges: []domain.RechargePrompt{
			{ID: "prompt-1", CombatantID: "goblin", Ability: "Fire Breath", Threshold: 5},
		},
		PendingConcentration: []domain.ConcentrationPrompt{
			{ID: "prompt-2", CombatantID: "ranger", Damage: 12, DC: 10},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEncounterRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir() + "/encounters.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	want := testEncounter("enc-1", now)
	if err := store.SaveEncounter(context.Background(), want); err != nil {
		t.Fatalf("save encounter: %v", err)
	}

	got, err := store.GetEncounter(context.Background(), "enc-1")
	if err != nil {
		t.Fatalf("get encounter: %v", err)
	}
	if got.Name != want.Name || got.Status != want.Status || got.Round != want.Round || got.Turn != want.Turn {
		t.Fatalf("encounter header mismatch: got %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps mismatch: created %v updated %v", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.Order) != 3 || got.Order[0].Kind != domain.EntryMarker || got.Order[0].Initiative != 20 {
		t.Fatalf("order mismatch: %+v", got.Order)
	}
	if len(got.Combatants) != 2 {
		t.Fatalf("expected 2 combatants, got %d", len(got.Combatants))
	}
	goblin := got.Combatants["goblin"]
	if goblin.HP != 5 || goblin.ArmorClass != 15 || len(goblin.RechargeAbilities) != 1 {
		t.Fatalf("goblin mismatch: %+v", goblin)
	}
	if goblin.RechargeAbilities[0].Recharge != "5-6" || goblin.RechargeAbilities[0].Available {
		t.Fatalf("recharge ability mismatch: %+v", goblin.RechargeAbilities[0])
	}
	if len(goblin.LairInitiatives) != 1 || goblin.LairInitiatives[0] != 20 {
		t.Fatalf("lair initiatives mismatch: %+v", goblin.LairInitiatives)
	}
	ranger := got.Combatants["ranger"]
	if !ranger.Player || !ranger.Concentrating || ranger.TempHP != 3 {
		t.Fatalf("ranger mismatch: %+v", ranger)
	}
	if len(ranger.SpellSlots) != 1 || ranger.SpellSlots[0].Current != 2 {
		t.Fatalf("spell slots mismatch: %+v", ranger.SpellSlots)
	}
	if len(got.PendingRecharges) != 1 || got.PendingRecharges[0].Threshold != 5 {
		t.Fatalf("pending recharges mismatch: %+v", got.PendingRecharges)
	}
	if len(got.PendingConcentration) != 1 || got.PendingConcentration[0].DC != 10 {
		t.Fatalf("pending concentration mismatch: %+v", got.PendingConcentration)
	}
}

func TestSaveEncounterColumnsMatchSchema(t *testing.T) {
	store, err := Open(t.TempDir() + "/encounters.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	encounter := domain.Encounter{
		ID:     "enc-raw",
		Name:   "Lair Assault",
		Status: domain.StatusPreparing,
		Round:  1,
		Combatants: map[string]domain.Combatant{
			"dragon": {
				ID:                        "dragon",
				Name:                      "Dragon",
				HP:                        200,
				HPMax:                     200,
				LegendaryActionsRemaining: 3,
				LegendaryPoints:           4,
				LegendaryPointsMax:        5,
				LegendaryResists:          1,
				LegendaryResistsMax:       2,
				LairInitiatives:           []int{20},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.SaveEncounter(context.Background(), encounter); err != nil {
		t.Fatalf("save encounter: %v", err)
	}

	// Read raw columns so a misordered bind list cannot hide behind a
	// symmetrically misordered scan.
	var (
		actions, points, pointsMax int
		resists, resistsMax        int
		lairJSON                   string
	)
	row := store.sqlDB.QueryRowContext(context.Background(),
		`SELECT legendary_actions_remaining, legendary_points, legendary_points_max,
		   legendary_resists, legendary_resists_max, lair_initiatives
		 FROM combatants WHERE encounter_id = ? AND id = ?`,
		"enc-raw", "dragon")
	if err := row.Scan(&actions, &points, &pointsMax, &resists, &resistsMax, &lairJSON); err != nil {
		t.Fatalf("scan raw columns: %v", err)
	}
	if actions != 3 || points != 4 || pointsMax != 5 {
		t.Fatalf("legendary action columns mismatch: %d %d %d", actions, points, pointsMax)
	}
	if resists != 1 || resistsMax != 2 {
		t.Fatalf("legendary resist columns mismatch: %d %d", resists, resistsMax)
	}
	if lairJSON != "[20]" {
		t.Fatalf("lair_initiatives column mismatch: %q", lairJSON)
	}
}

func TestSaveEncounterUpsertReplacesCombatants(t *testing.T) {
	store, err := Open(t.TempDir() + "/encounters.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	first := testEncounter("enc-1", now)
	if err := store.SaveEncounter(context.Background(), first); err != nil {
		t.Fatalf("save encounter: %v", err)
	}

	second := first
	second.Name = "Goblin Ambush II"
	second.Round = 3
	second.Combatants = map[string]domain.Combatant{
		"ranger": first.Combatants["ranger"],
	}
	second.UpdatedAt = now.Add(time.Minute)
	if err := store.SaveEncounter(context.Background(), second); err != nil {
		t.Fatalf("resave encounter: %v", err)
	}

	got, err := store.GetEncounter(context.Background(), "enc-1")
	if err != nil {
		t.Fatalf("get encounter: %v", err)
	}
	if got.Name != "Goblin Ambush II" || got.Round != 3 {
		t.Fatalf("upsert did not replace header: %+v", got)
	}
	if len(got.Combatants) != 1 {
		t.Fatalf("expected removed combatant to stay removed, got %d", len(got.Combatants))
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created at should be stable across upserts, got %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("updated at mismatch: %v", got.UpdatedAt)
	}
}

func TestGetEncounterNotFound(t *testing.T) {
	store, err := Open(t.TempDir() + "/encounters.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, err := store.GetEncounter(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEncounter(t *testing.T) {
	store, err := Open(t.TempDir() + "/encounters.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	if err := store.SaveEncounter(context.Background(), testEncounter("enc-1", now)); err != nil {
		t.Fatalf("save encounter: %v", err)
	}
	if err := store.DeleteEncounter(context.Background(), "enc-1"); err != nil {
		t.Fatalf("delete encounter: %v", err)
	}
	if _, err := store.GetEncounter(context.Background(), "enc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteEncounter(context.Background(), "enc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListEncountersPagination(t *testing.T) {
	store, err := Open(t.TempDir() + "/encounters.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	for _, id := range []string{"enc-a", "enc-b", "enc-c"} {
		if err := store.SaveEncounter(context.Background(), testEncounter(id, now)); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	page, err := store.ListEncounters(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(page.Encounters) != 2 {
		t.Fatalf("expected 2 encounters, got %d", len(page.Encounters))
	}
	if page.Encounters[0].ID != "enc-a" || page.Encounters[1].ID != "enc-b" {
		t.Fatalf("unexpected page order: %+v", page.Encounters)
	}
	if page.Encounters[0].CombatantCount != 2 {
		t.Fatalf("expected combatant count 2, got %d", page.Encounters[0].CombatantCount)
	}
	if page.NextPageToken == "" {
		t.Fatal("expected a next page token")
	}

	rest, err := store.ListEncounters(context.Background(), 2, page.NextPageToken)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(rest.Encounters) != 1 || rest.Encounters[0].ID != "enc-c" {
		t.Fatalf("unexpected second page: %+v", rest.Encounters)
	}
	if rest.NextPageToken != "" {
		t.Fatalf("expected empty token on final page, got %q", rest.NextPageToken)
	}
}
