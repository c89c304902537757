package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleContent = `monsters:
  - name: Adult Red Dragon
    hp: 256
    armorClass: 19
    initiativeMod: 0
    legendaryPoints: 3
    legendaryResists: 3
    lairInitiatives: [20]
    rechargeAbilities:
      - name: Fire Breath
        recharge: "5-6"
  - name: Goblin
    hp: 7
    armorClass: 15
    initiativeMod: 2
  - name: Archmage
    hp: 99
    armorClass: 12
    concentrationMod: 6
    spellSlots:
      - level: 1
        max: 4
      - level: 9
        max: 1
    dailyUses:
      - name: Mind Blank
        max: 1
`

func writeContent(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write content file: %v", err)
	}
	return dir
}

func TestLoadAndLookup(t *testing.T) {
	library, err := Load(writeContent(t, "monsters.yaml", sampleContent))
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	if library.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", library.Len())
	}

	input, err := library.Lookup("adult red dragon")
	if err != nil {
		t.Fatalf("lookup dragon: %v", err)
	}
	if input.Name != "Adult Red Dragon" || input.HPMax != 256 || input.ArmorClass != 19 {
		t.Fatalf("dragon mapping mismatch: %+v", input)
	}
	if input.LegendaryPointsMax != 3 || input.LegendaryResistsMax != 3 {
		t.Fatalf("legendary mapping mismatch: %+v", input)
	}
	if len(input.LairInitiatives) != 1 || input.LairInitiatives[0] != 20 {
		t.Fatalf("lair initiatives mismatch: %+v", input.LairInitiatives)
	}
	if len(input.RechargeAbilities) != 1 {
		t.Fatalf("expected one recharge ability, got %d", len(input.RechargeAbilities))
	}
	breath := input.RechargeAbilities[0]
	if breath.Recharge != "5-6" || !breath.Available {
		t.Fatalf("recharge mapping mismatch: %+v", breath)
	}
}

func TestLookupMapsResources(t *testing.T) {
	library, err := Load(writeContent(t, "monsters.yml", sampleContent))
	if err != nil {
		t.Fatalf("load content: %v", err)
	}

	input, err := library.Lookup("Archmage")
	if err != nil {
		t.Fatalf("lookup archmage: %v", err)
	}
	if input.ConcentrationMod != 6 {
		t.Fatalf("concentration mod mismatch: %+v", input)
	}
	if len(input.SpellSlots) != 2 || input.SpellSlots[1].Level != 9 || input.SpellSlots[1].Current != 1 {
		t.Fatalf("spell slot mapping mismatch: %+v", input.SpellSlots)
	}
	if len(input.DailyUses) != 1 || input.DailyUses[0].Current != 1 {
		t.Fatalf("daily use mapping mismatch: %+v", input.DailyUses)
	}
}

func TestLookupUnknownName(t *testing.T) {
	library, err := Load(writeContent(t, "monsters.yaml", sampleContent))
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	if _, err := library.Lookup("Tarrasque"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRejectsNamelessRecord(t *testing.T) {
	if _, err := Load(writeContent(t, "bad.yaml", "monsters:\n  - hp: 10\n")); err == nil {
		t.Fatal("expected an error for a nameless record")
	}
}

func TestNamesSorted(t *testing.T) {
	library, err := Load(writeContent(t, "monsters.yaml", sampleContent))
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	names := library.Names()
	if len(names) != 3 || names[0] != "Adult Red Dragon" || names[2] != "Goblin" {
		t.Fatalf("unexpected names: %v", names)
	}
}
