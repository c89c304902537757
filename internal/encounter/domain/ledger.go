package domain

import (
	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

// ErrInvalidHPDelta indicates a malformed hit-point delta.
var ErrInvalidHPDelta = apperrors.New(apperrors.CodeEncounterInvalidHPDelta, "hp delta amount must not be negative")

// HPDeltaKind selects how a hit-point delta is interpreted.
type HPDeltaKind int

const (
	// HPDeltaUnspecified represents an invalid delta kind.
	HPDeltaUnspecified HPDeltaKind = iota
	// HPDeltaHeal increases hit points up to the effective maximum.
	HPDeltaHeal
	// HPDeltaDamage reduces temporary hit points first, then hit points.
	HPDeltaDamage
	// HPDeltaSet replaces hit points with an absolute value.
	HPDeltaSet
)

// HPDelta is a single hit-point transition input.
type HPDelta struct {
	Kind   HPDeltaKind
	Amount int
}

// HPDeltaResult holds the hit-point values after applying a delta.
type HPDeltaResult struct {
	HP     int
	TempHP int
}

// ApplyHPDelta computes the hit-point transition for one combatant.
//
// Healing raises hp, clamped to the effective maximum, and never touches
// temporary hit points. Damage drains temporary hit points before hp, and
// hp never drops below zero. An absolute set replaces hp directly, clamped
// to [0, effective max], bypassing temporary hit points entirely. The
// asymmetry is a rule, not an accident: temp HP shields damage but is
// invisible to healing and sets.
func ApplyHPDelta(combatant Combatant, delta HPDelta) (HPDeltaResult, error) {
	if delta.Amount < 0 {
		return HPDeltaResult{}, ErrInvalidHPDelta
	}

	result := HPDeltaResult{HP: combatant.HP, TempHP: combatant.TempHP}
	max := combatant.EffectiveMaxHP()

	switch delta.Kind {
	case HPDeltaHeal:
		result.HP += delta.Amount
		if result.HP > max {
			result.HP = max
		}
	case HPDeltaDamage:
		if result.TempHP >= delta.Amount {
			result.TempHP -= delta.Amount
		} else {
			remainder := delta.Amount - result.TempHP
			result.TempHP = 0
			result.HP -= remainder
			if result.HP < 0 {
				result.HP = 0
			}
		}
	case HPDeltaSet:
		result.HP = delta.Amount
		if result.HP > max {
			result.HP = max
		}
	default:
		return HPDeltaResult{}, apperrors.New(apperrors.CodeEncounterInvalidHPDelta, "hp delta kind is required")
	}

	return result, nil
}

// DetectBloodied reports whether the transition from before to after crossed
// the bloodied line: at or above half of the effective maximum before, and
// strictly between zero and half after. It is a notification trigger only.
func DetectBloodied(before, after, effectiveMax int) bool {
	if effectiveMax <= 0 {
		return false
	}
	wasHealthy := before*2 >= effectiveMax
	isBloodied := after > 0 && after*2 < effectiveMax
	return wasHealthy && isBloodied
}

// ConcentrationCheck describes whether a concentration saving throw is
// required and at what difficulty.
type ConcentrationCheck struct {
	Required bool
	Damage   int
	DC       int
}

// CheckConcentration inspects a hit-point transition and reports whether the
// combatant must make a concentration saving throw. The damage used for the
// DC is max(hpDrop, tempDrop, hpDrop+tempDrop); the rule keeps all three
// terms even though the sum dominates.
func CheckConcentration(combatant Combatant, hpBefore, tempBefore, hpAfter, tempAfter int) ConcentrationCheck {
	if !combatant.Concentrating {
		return ConcentrationCheck{}
	}

	hpDrop := hpBefore - hpAfter
	tempDrop := tempBefore - tempAfter
	if hpDrop < 0 {
		hpDrop = 0
	}
	if tempDrop < 0 {
		tempDrop = 0
	}
	if hpDrop == 0 && tempDrop == 0 {
		return ConcentrationCheck{}
	}

	damage := hpDrop
	if tempDrop > damage {
		damage = tempDrop
	}
	if hpDrop+tempDrop > damage {
		damage = hpDrop + tempDrop
	}

	dc := damage / 2
	if dc < 10 {
		dc = 10
	}

	return ConcentrationCheck{Required: true, Damage: damage, DC: dc}
}

// ResolveConcentration applies a concentration saving throw result, clearing
// the concentration flag when the total misses the DC.
func ResolveConcentration(combatant Combatant, total, dc int) Combatant {
	result := combatant.Clone()
	if total < dc {
		result.Concentrating = false
	}
	return result
}
