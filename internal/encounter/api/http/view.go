package http

import (
	"sort"

	"github.com/louisbranch/initiative/internal/encounter/domain"
)

// View types decouple the wire shape from the domain structs.

type encounterView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	Round      int             `json:"round"`
	Turn       int             `json:"turn"`
	Combatants []combatantView `json:"combatants"`
	Order      []turnEntryView `json:"order"`

	PendingRecharges     []rechargePromptView      `json:"pendingRecharges,omitempty"`
	PendingConcentration []concentrationPromptView `json:"pendingConcentration,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

type combatantView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	HP            int     `json:"hp"`
	HPMax         int     `json:"hpMax"`
	HPMaxModifier int     `json:"hpMaxModifier,omitempty"`
	TempHP        int     `json:"tempHp,omitempty"`
	ArmorClass    int     `json:"armorClass"`
	Initiative    int     `json:"initiative"`
	TieBreaker    float64 `json:"tieBreaker,omitempty"`
	InitiativeMod int     `json:"initiativeMod,omitempty"`
	Player        bool    `json:"player,omitempty"`
	LinkedTo      string  `json:"linkedTo,omitempty"`

	Concentrating    bool `json:"concentrating,omitempty"`
	ConcentrationMod int  `json:"concentrationMod,omitempty"`

	SpellSlots        []domain.SpellSlots      `json:"spellSlots,omitempty"`
	DailyUses         []domain.DailyUse        `json:"dailyUses,omitempty"`
	RechargeAbilities []domain.RechargeAbility `json:"rechargeAbilities,omitempty"`

	LegendaryActionsRemaining int   `json:"legendaryActionsRemaining,omitempty"`
	LegendaryPoints           int   `json:"legendaryPoints,omitempty"`
	LegendaryPointsMax        int   `json:"legendaryPointsMax,omitempty"`
	LegendaryResists          int   `json:"legendaryResists,omitempty"`
	LegendaryResistsMax       int   `json:"legendaryResistsMax,omitempty"`
	LairInitiatives           []int `json:"lairInitiatives,omitempty"`

	ReactionUsed       bool `json:"reactionUsed,omitempty"`
	DeathSaveSuccesses int  `json:"deathSaveSuccesses,omitempty"`
	DeathSaveFailures  int  `json:"deathSaveFailures,omitempty"`
}

type turnEntryView struct {
	Kind        string `json:"kind"`
	CombatantID string `json:"combatantId,omitempty"`
	Initiative  int    `json:"initiative,omitempty"`
}

type rechargePromptView struct {
	ID          string `json:"id"`
	CombatantID string `json:"combatantId"`
	Ability     string `json:"ability"`
	Threshold   int    `json:"threshold"`
}

type concentrationPromptView struct {
	ID          string `json:"id"`
	CombatantID string `json:"combatantId"`
	Damage      int    `json:"damage"`
	DC          int    `json:"dc"`
}

func newEncounterView(encounter domain.Encounter) encounterView {
	view := encounterView{
		ID:        encounter.ID,
		Name:      encounter.Name,
		Status:    encounter.Status.String(),
		Round:     encounter.Round,
		Turn:      encounter.Turn,
		CreatedAt: encounter.CreatedAt.UTC().UnixMilli(),
		UpdatedAt: encounter.UpdatedAt.UTC().UnixMilli(),
	}

	view.Combatants = make([]combatantView, 0, len(encounter.Combatants))
	for _, combatant := range encounter.Combatants {
		view.Combatants = append(view.Combatants, newCombatantView(combatant))
	}
	sort.Slice(view.Combatants, func(i, j int) bool {
		return view.Combatants[i].ID < view.Combatants[j].ID
	})

	view.Order = make([]turnEntryView, 0, len(encounter.Order))
	for _, entry := range encounter.Order {
		kind := "combatant"
		if entry.Kind == domain.EntryMarker {
			kind = "marker"
		}
		view.Order = append(view.Order, turnEntryView{
			Kind:        kind,
			CombatantID: entry.CombatantID,
			Initiative:  entry.Initiative,
		})
	}

	for _, prompt := range encounter.PendingRecharges {
		view.PendingRecharges = append(view.PendingRecharges, rechargePromptView(prompt))
	}
	for _, prompt := range encounter.PendingConcentration {
		view.PendingConcentration = append(view.PendingConcentration, concentrationPromptView(prompt))
	}
	return view
}

func newCombatantView(combatant domain.Combatant) combatantView {
	return combatantView{
		ID:                        combatant.ID,
		Name:                      combatant.Name,
		HP:                        combatant.HP,
		HPMax:                     combatant.HPMax,
		HPMaxModifier:             combatant.HPMaxModifier,
		TempHP:                    combatant.TempHP,
		ArmorClass:                combatant.ArmorClass,
		Initiative:                combatant.Initiative,
		TieBreaker:                combatant.TieBreaker,
		InitiativeMod:             combatant.InitiativeMod,
		Player:                    combatant.Player,
		LinkedTo:                  combatant.LinkedTo,
		Concentrating:             combatant.Concentrating,
		ConcentrationMod:          combatant.ConcentrationMod,
		SpellSlots:                combatant.SpellSlots,
		DailyUses:                 combatant.DailyUses,
		RechargeAbilities:         combatant.RechargeAbilities,
		LegendaryActionsRemaining: combatant.LegendaryActionsRemaining,
		LegendaryPoints:           combatant.LegendaryPoints,
		LegendaryPointsMax:        combatant.LegendaryPointsMax,
		LegendaryResists:          combatant.LegendaryResists,
		LegendaryResistsMax:       combatant.LegendaryResistsMax,
		LairInitiatives:           combatant.LairInitiatives,
		ReactionUsed:              combatant.ReactionUsed,
		DeathSaveSuccesses:        combatant.DeathSaveSuccesses,
		DeathSaveFailures:         combatant.DeathSaveFailures,
	}
}
