package domain

import (
	"strings"

	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

var (
	// ErrCombatantNameEmpty indicates a missing combatant name.
	ErrCombatantNameEmpty = apperrors.New(apperrors.CodeCombatantNameEmpty, "combatant name is required")
	// ErrInvalidMaxHP indicates a non-positive base maximum or a modifier that drives the effective maximum below zero.
	ErrInvalidMaxHP = apperrors.New(apperrors.CodeCombatantInvalidMaxHP, "combatant effective max hp must not be negative")
	// ErrInvalidHP indicates hit points outside [0, effective max].
	ErrInvalidHP = apperrors.New(apperrors.CodeCombatantInvalidHP, "combatant hp must be between 0 and effective max")
	// ErrInvalidTempHP indicates negative temporary hit points.
	ErrInvalidTempHP = apperrors.New(apperrors.CodeCombatantInvalidTempHP, "combatant temporary hp must not be negative")
	// ErrInvalidLegendary indicates legendary points outside [0, max].
	ErrInvalidLegendary = apperrors.New(apperrors.CodeCombatantInvalidLegendary, "combatant legendary points must be between 0 and max")
	// ErrInvalidDeathSaves indicates death save counters outside [0, 3].
	ErrInvalidDeathSaves = apperrors.New(apperrors.CodeCombatantInvalidDeathSaves, "combatant death save counters must be between 0 and 3")
)

// SpellSlots tracks spell slots for a single level.
type SpellSlots struct {
	Level   int
	Current int
	Max     int
}

// DailyUse tracks a named limited-use counter that refreshes daily.
type DailyUse struct {
	Name    string
	Current int
	Max     int
}

// RechargeAbility is a limited-use action gated behind a recharge roll.
// Recharge holds the printed range, e.g. "5-6" or "6"; the threshold is the
// lower bound of that range.
type RechargeAbility struct {
	Name      string
	Recharge  string
	Available bool
}

// Combatant is one participant in an encounter.
type Combatant struct {
	ID   string
	Name string

	HP            int
	HPMax         int // base maximum before modifier
	HPMaxModifier int // additive, can be negative
	TempHP        int
	ArmorClass    int

	Initiative    int
	TieBreaker    float64
	InitiativeMod int

	// Player marks a player-controlled entity: initiative and
	// concentration checks wait for human input instead of auto-rolling.
	Player bool

	// LinkedTo is a non-owning back-reference to another combatant's id.
	// A combatant with LinkedTo set is a sidekick: its initiative is
	// derived from the linked combatant rather than rolled.
	LinkedTo string

	Concentrating    bool
	ConcentrationMod int

	SpellSlots        []SpellSlots
	DailyUses         []DailyUse
	RechargeAbilities []RechargeAbility

	LegendaryActionsRemaining int
	LegendaryPoints           int
	LegendaryPointsMax        int
	LegendaryResists          int
	LegendaryResistsMax       int

	// LairInitiatives lists the initiative counts at which this
	// combatant's lair acts. The encounter derives environmental markers
	// from the union across combatants.
	LairInitiatives []int

	ReactionUsed bool

	DeathSaveSuccesses int
	DeathSaveFailures  int
}

// EffectiveMaxHP returns the base maximum plus the additive modifier,
// never below zero.
func (c Combatant) EffectiveMaxHP() int {
	max := c.HPMax + c.HPMaxModifier
	if max < 0 {
		return 0
	}
	return max
}

// Legendary reports whether this combatant participates in the per-round
// legendary resource reset.
func (c Combatant) Legendary() bool {
	return c.LegendaryPointsMax > 0
}

// Validate checks the combatant invariants.
func (c Combatant) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrCombatantNameEmpty
	}
	if c.HPMax < 0 || c.HPMax+c.HPMaxModifier < 0 {
		return ErrInvalidMaxHP
	}
	if c.HP < 0 || c.HP > c.EffectiveMaxHP() {
		return ErrInvalidHP
	}
	if c.TempHP < 0 {
		return ErrInvalidTempHP
	}
	if c.LegendaryPointsMax < 0 || c.LegendaryPoints < 0 || c.LegendaryPoints > c.LegendaryPointsMax {
		return ErrInvalidLegendary
	}
	if c.LegendaryResistsMax < 0 || c.LegendaryResists < 0 || c.LegendaryResists > c.LegendaryResistsMax {
		return ErrInvalidLegendary
	}
	if c.DeathSaveSuccesses < 0 || c.DeathSaveSuccesses > 3 || c.DeathSaveFailures < 0 || c.DeathSaveFailures > 3 {
		return ErrInvalidDeathSaves
	}
	for _, ability := range c.RechargeAbilities {
		if _, err := ParseRechargeThreshold(ability.Recharge); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the combatant.
func (c Combatant) Clone() Combatant {
	out := c
	out.SpellSlots = append([]SpellSlots(nil), c.SpellSlots...)
	out.DailyUses = append([]DailyUse(nil), c.DailyUses...)
	out.RechargeAbilities = append([]RechargeAbility(nil), c.RechargeAbilities...)
	out.LairInitiatives = append([]int(nil), c.LairInitiatives...)
	return out
}

// CreateCombatantInput describes the fields needed to create a combatant.
type CreateCombatantInput struct {
	Name          string
	HP            *int // nil defaults to the effective maximum
	HPMax         int
	HPMaxModifier int
	ArmorClass    int
	Initiative    int
	TieBreaker    float64
	InitiativeMod int
	Player        bool
	LinkedTo      string

	Concentrating    bool
	ConcentrationMod int

	SpellSlots        []SpellSlots
	DailyUses         []DailyUse
	RechargeAbilities []RechargeAbility

	LegendaryPointsMax  int
	LegendaryResistsMax int
	LairInitiatives     []int
}

// CreateCombatant creates a new combatant with a fresh id, defaulting hit
// points to the effective maximum and legendary pools to full.
func CreateCombatant(input CreateCombatantInput) (Combatant, error) {
	id, err := NewID()
	if err != nil {
		return Combatant{}, err
	}

	combatant := Combatant{
		ID:                        id,
		Name:                      input.Name,
		HPMax:                     input.HPMax,
		HPMaxModifier:             input.HPMaxModifier,
		ArmorClass:                input.ArmorClass,
		Initiative:                input.Initiative,
		TieBreaker:                input.TieBreaker,
		InitiativeMod:             input.InitiativeMod,
		Player:                    input.Player,
		LinkedTo:                  input.LinkedTo,
		Concentrating:             input.Concentrating,
		ConcentrationMod:          input.ConcentrationMod,
		SpellSlots:                append([]SpellSlots(nil), input.SpellSlots...),
		DailyUses:                 append([]DailyUse(nil), input.DailyUses...),
		RechargeAbilities:         append([]RechargeAbility(nil), input.RechargeAbilities...),
		LegendaryActionsRemaining: 3,
		LegendaryPoints:           input.LegendaryPointsMax,
		LegendaryPointsMax:        input.LegendaryPointsMax,
		LegendaryResists:          input.LegendaryResistsMax,
		LegendaryResistsMax:       input.LegendaryResistsMax,
		LairInitiatives:           append([]int(nil), input.LairInitiatives...),
	}
	combatant.HP = combatant.EffectiveMaxHP()
	if input.HP != nil {
		combatant.HP = *input.HP
	}

	if err := combatant.Validate(); err != nil {
		return Combatant{}, err
	}
	return combatant, nil
}

// PatchCombatantInput describes optional fields for patching a combatant.
// HP and temporary HP changes do not go through here; they are routed
// through ApplyHPDelta so the temp-HP shielding rules hold.
type PatchCombatantInput struct {
	Name               *string
	HPMaxModifier      *int
	ArmorClass         *int
	Initiative         *int
	TieBreaker         *float64
	InitiativeMod      *int
	LinkedTo           *string
	Concentrating      *bool
	ConcentrationMod   *int
	SpellSlots         []SpellSlots
	DailyUses          []DailyUse
	RechargeAbilities  []RechargeAbility
	LairInitiatives    []int
	ReactionUsed       *bool
	DeathSaveSuccesses *int
	DeathSaveFailures  *int
}

// OrderingRelevant reports whether applying the patch can change the turn
// sequence, requiring the order to be re-derived.
func (p PatchCombatantInput) OrderingRelevant() bool {
	return p.Initiative != nil || p.TieBreaker != nil || p.LairInitiatives != nil || p.LinkedTo != nil
}

// PatchCombatant applies a patch to an existing combatant, returning a new
// combatant. HP is re-clamped when the max-HP modifier shrinks the
// effective maximum below the current value.
func PatchCombatant(existing Combatant, patch PatchCombatantInput) (Combatant, error) {
	result := existing.Clone()

	if patch.Name != nil {
		result.Name = *patch.Name
	}
	if patch.HPMaxModifier != nil {
		result.HPMaxModifier = *patch.HPMaxModifier
		if result.HP > result.EffectiveMaxHP() {
			result.HP = result.EffectiveMaxHP()
		}
	}
	if patch.ArmorClass != nil {
		result.ArmorClass = *patch.ArmorClass
	}
	if patch.Initiative != nil {
		result.Initiative = *patch.Initiative
	}
	if patch.TieBreaker != nil {
		result.TieBreaker = *patch.TieBreaker
	}
	if patch.InitiativeMod != nil {
		result.InitiativeMod = *patch.InitiativeMod
	}
	if patch.LinkedTo != nil {
		result.LinkedTo = *patch.LinkedTo
	}
	if patch.Concentrating != nil {
		result.Concentrating = *patch.Concentrating
	}
	if patch.ConcentrationMod != nil {
		result.ConcentrationMod = *patch.ConcentrationMod
	}
	if patch.SpellSlots != nil {
		result.SpellSlots = append([]SpellSlots(nil), patch.SpellSlots...)
	}
	if patch.DailyUses != nil {
		result.DailyUses = append([]DailyUse(nil), patch.DailyUses...)
	}
	if patch.RechargeAbilities != nil {
		result.RechargeAbilities = append([]RechargeAbility(nil), patch.RechargeAbilities...)
	}
	if patch.LairInitiatives != nil {
		result.LairInitiatives = append([]int(nil), patch.LairInitiatives...)
	}
	if patch.ReactionUsed != nil {
		result.ReactionUsed = *patch.ReactionUsed
	}
	if patch.DeathSaveSuccesses != nil {
		result.DeathSaveSuccesses = *patch.DeathSaveSuccesses
	}
	if patch.DeathSaveFailures != nil {
		result.DeathSaveFailures = *patch.DeathSaveFailures
	}

	if err := result.Validate(); err != nil {
		return Combatant{}, err
	}
	return result, nil
}
