// Package content loads monster records from YAML files and maps them into
// combatant creation input. The encounter core never sees the YAML shape.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

// ErrNotFound indicates no record matches the requested name.
var ErrNotFound = apperrors.New(apperrors.CodeContentNotFound, "content record not found")

// Record is one monster entry as written in a content file.
type Record struct {
	Name          string `yaml:"name"`
	HP            int    `yaml:"hp"`
	ArmorClass    int    `yaml:"armorClass"`
	InitiativeMod int    `yaml:"initiativeMod"`

	ConcentrationMod int `yaml:"concentrationMod"`

	SpellSlots []struct {
		Level int `yaml:"level"`
		Max   int `yaml:"max"`
	} `yaml:"spellSlots"`
	DailyUses []struct {
		Name string `yaml:"name"`
		Max  int    `yaml:"max"`
	} `yaml:"dailyUses"`
	RechargeAbilities []struct {
		Name     string `yaml:"name"`
		Recharge string `yaml:"recharge"`
	} `yaml:"rechargeAbilities"`

	LegendaryPoints  int   `yaml:"legendaryPoints"`
	LegendaryResists int   `yaml:"legendaryResists"`
	LairInitiatives  []int `yaml:"lairInitiatives"`
}

// file is the top-level shape of one content YAML document.
type file struct {
	Monsters []Record `yaml:"monsters"`
}

// Library is an in-memory index of monster records keyed by lowercase name.
type Library struct {
	records map[string]Record
}

// Load reads every .yaml and .yml file under dir into a library. Later
// files override earlier records with the same name.
func Load(dir string) (*Library, error) {
	cleanDir := filepath.Clean(dir)
	entries, err := os.ReadDir(cleanDir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	library := &Library{records: make(map[string]Record)}
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(cleanDir, name))
		if err != nil {
			return nil, fmt.Errorf("read content file %s: %w", name, err)
		}
		var doc file
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse content file %s: %w", name, err)
		}
		for _, record := range doc.Monsters {
			key := strings.ToLower(strings.TrimSpace(record.Name))
			if key == "" {
				return nil, fmt.Errorf("content file %s: record without a name", name)
			}
			library.records[key] = record
		}
	}
	return library, nil
}

// Len returns the number of loaded records.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}

// Names returns the loaded record names sorted for stable listings.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.records))
	for _, record := range l.records {
		names = append(names, record.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a record by case-insensitive name into combatant
// creation input.
func (l *Library) Lookup(name string) (domain.CreateCombatantInput, error) {
	if l == nil {
		return domain.CreateCombatantInput{}, ErrNotFound
	}
	record, ok := l.records[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.CreateCombatantInput{}, ErrNotFound
	}

	input := domain.CreateCombatantInput{
		Name:                record.Name,
		HPMax:               record.HP,
		ArmorClass:          record.ArmorClass,
		InitiativeMod:       record.InitiativeMod,
		ConcentrationMod:    record.ConcentrationMod,
		LegendaryPointsMax:  record.LegendaryPoints,
		LegendaryResistsMax: record.LegendaryResists,
		LairInitiatives:     append([]int(nil), record.LairInitiatives...),
	}
	for _, slots := range record.SpellSlots {
		input.SpellSlots = append(input.SpellSlots, domain.SpellSlots{
			Level: slots.Level, Current: slots.Max, Max: slots.Max,
		})
	}
	for _, use := range record.DailyUses {
		input.DailyUses = append(input.DailyUses, domain.DailyUse{
			Name: use.Name, Current: use.Max, Max: use.Max,
		})
	}
	for _, ability := range record.RechargeAbilities {
		input.RechargeAbilities = append(input.RechargeAbilities, domain.RechargeAbility{
			Name: ability.Name, Recharge: ability.Recharge, Available: true,
		})
	}
	return input, nil
}
