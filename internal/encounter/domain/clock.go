package domain

import (
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

// ErrInvalidRechargeRange indicates a recharge range that cannot be parsed.
var ErrInvalidRechargeRange = apperrors.New(apperrors.CodeRechargeRangeInvalid, "recharge range must be a d6 value or range like 5-6")

// legendaryActionsPerRound is the number of legendary actions restored at
// the top of each round.
const legendaryActionsPerRound = 3

// RechargePrompt records an ability awaiting an external d6 recharge roll.
// The clock transition schedules the prompt; the roll resolves later.
type RechargePrompt struct {
	ID          string
	CombatantID string
	Ability     string
	Threshold   int
}

// ConcentrationPrompt records a concentration saving throw awaiting human
// resolution for a player-controlled combatant.
type ConcentrationPrompt struct {
	ID          string
	CombatantID string
	Damage      int
	DC          int
}

// ParseRechargeThreshold parses a printed recharge range into its trigger
// threshold: "5-6" recharges on 5, "6" only on 6. En dashes are accepted.
func ParseRechargeThreshold(recharge string) (int, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(recharge), "–", "-")
	low, _, _ := strings.Cut(normalized, "-")
	threshold, err := strconv.Atoi(strings.TrimSpace(low))
	if err != nil || threshold < 1 || threshold > 6 {
		return 0, apperrors.WithMetadata(apperrors.CodeRechargeRangeInvalid,
			"recharge range must be a d6 value or range like 5-6",
			map[string]string{"range": recharge})
	}
	return threshold, nil
}

// StartCombat derives the turn sequence and activates the clock. It fails
// when no combatants are present.
func (e Encounter) StartCombat() (Encounter, error) {
	if e.Status == StatusCompleted {
		return Encounter{}, ErrEncounterCompleted
	}
	if len(e.Combatants) == 0 {
		return Encounter{}, ErrEmptySequence
	}
	out := e.Clone()
	out.Order = BuildOrder(out.Combatants, out.lairInitiatives())
	out.Round = 1
	out.Turn = 0
	out.Status = StatusActive
	return out, nil
}

// EndCombat marks the encounter completed. The sequence is retained for
// review; markers are hidden by presentation outside active combat.
func (e Encounter) EndCombat() (Encounter, error) {
	if e.Status == StatusCompleted {
		return Encounter{}, ErrEncounterCompleted
	}
	out := e.Clone()
	out.Status = StatusCompleted
	return out, nil
}

// NextTurn advances the pointer. Wrapping to the top of the order starts a
// new round: legendary pools refill and the round counter increments. The
// newly active combatant has its reaction cleared, and a recharge prompt is
// scheduled for each of its unavailable recharge abilities.
func (e Encounter) NextTurn() (Encounter, error) {
	if e.Status == StatusCompleted {
		return Encounter{}, ErrEncounterCompleted
	}
	if e.Status != StatusActive {
		return Encounter{}, ErrCombatNotActive
	}
	if len(e.Order) == 0 {
		return Encounter{}, ErrEmptySequence
	}

	out := e.Clone()
	out.Turn = (out.Turn + 1) % len(out.Order)
	if out.Turn == 0 {
		out.Round++
		for id, combatant := range out.Combatants {
			if !combatant.Legendary() {
				continue
			}
			combatant.LegendaryActionsRemaining = legendaryActionsPerRound
			combatant.LegendaryPoints = combatant.LegendaryPointsMax
			out.Combatants[id] = combatant
		}
	}

	active, _ := out.ActiveEntry()
	if active.Kind == EntryCombatant {
		combatant, ok := out.Combatants[active.CombatantID]
		if ok {
			combatant.ReactionUsed = false
			out.Combatants[active.CombatantID] = combatant
			if err := out.scheduleRecharges(combatant); err != nil {
				return Encounter{}, err
			}
		}
	}
	return out, nil
}

// PrevTurn retreats the pointer. Wrapping backwards decrements the round,
// floored at 1, and deliberately does not restore any resources; the
// asymmetry with NextTurn is part of the rules.
func (e Encounter) PrevTurn() (Encounter, error) {
	if e.Status == StatusCompleted {
		return Encounter{}, ErrEncounterCompleted
	}
	if e.Status != StatusActive {
		return Encounter{}, ErrCombatNotActive
	}
	if len(e.Order) == 0 {
		return Encounter{}, ErrEmptySequence
	}

	out := e.Clone()
	out.Turn = (out.Turn - 1 + len(out.Order)) % len(out.Order)
	if out.Turn == len(out.Order)-1 && out.Round > 1 {
		out.Round--
	}
	return out, nil
}

// ResetCombat clears initiative values, hit-point deltas, and per-combat
// conditions, empties the sequence, and returns the encounter to the
// preparing state.
func (e Encounter) ResetCombat() (Encounter, error) {
	out := e.Clone()
	for id, combatant := range out.Combatants {
		combatant.Initiative = 0
		combatant.TieBreaker = 0
		combatant.HP = combatant.EffectiveMaxHP()
		combatant.TempHP = 0
		combatant.Concentrating = false
		combatant.ReactionUsed = false
		combatant.DeathSaveSuccesses = 0
		combatant.DeathSaveFailures = 0
		combatant.LegendaryActionsRemaining = legendaryActionsPerRound
		combatant.LegendaryPoints = combatant.LegendaryPointsMax
		combatant.LegendaryResists = combatant.LegendaryResistsMax
		for i := range combatant.RechargeAbilities {
			combatant.RechargeAbilities[i].Available = true
		}
		out.Combatants[id] = combatant
	}
	out.Round = 1
	out.Turn = 0
	out.Order = nil
	out.Status = StatusPreparing
	out.PendingRecharges = nil
	out.PendingConcentration = nil
	return out, nil
}

// scheduleRecharges appends a pending prompt for each unavailable recharge
// ability that does not already have one.
func (e *Encounter) scheduleRecharges(combatant Combatant) error {
	pending := make(map[string]bool, len(e.PendingRecharges))
	for _, prompt := range e.PendingRecharges {
		if prompt.CombatantID == combatant.ID {
			pending[prompt.Ability] = true
		}
	}
	for _, ability := range combatant.RechargeAbilities {
		if ability.Available || pending[ability.Name] {
			continue
		}
		threshold, err := ParseRechargeThreshold(ability.Recharge)
		if err != nil {
			return err
		}
		id, err := NewID()
		if err != nil {
			return err
		}
		e.PendingRecharges = append(e.PendingRecharges, RechargePrompt{
			ID:          id,
			CombatantID: combatant.ID,
			Ability:     ability.Name,
			Threshold:   threshold,
		})
	}
	return nil
}

// ApplyRechargeResult resolves a pending recharge prompt with the rolled
// total: the ability becomes available again when the roll meets the
// threshold, and the prompt is cleared either way.
func (e Encounter) ApplyRechargeResult(promptID string, total int) (Encounter, error) {
	idx := -1
	for i, prompt := range e.PendingRecharges {
		if prompt.ID == promptID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Encounter{}, ErrPromptNotFound
	}

	out := e.Clone()
	prompt := out.PendingRecharges[idx]
	out.PendingRecharges = append(out.PendingRecharges[:idx], out.PendingRecharges[idx+1:]...)

	combatant, ok := out.Combatants[prompt.CombatantID]
	if !ok {
		return out, nil
	}
	if total >= prompt.Threshold {
		for i, ability := range combatant.RechargeAbilities {
			if ability.Name == prompt.Ability {
				combatant.RechargeAbilities[i].Available = true
			}
		}
		out.Combatants[prompt.CombatantID] = combatant
	}
	return out, nil
}

// AddConcentrationPrompt records a concentration check awaiting external
// resolution and returns the prompt id.
func (e Encounter) AddConcentrationPrompt(combatantID string, damage, dc int) (Encounter, string, error) {
	if _, ok := e.Combatants[combatantID]; !ok {
		return Encounter{}, "", ErrCombatantNotFound
	}
	id, err := NewID()
	if err != nil {
		return Encounter{}, "", err
	}
	out := e.Clone()
	out.PendingConcentration = append(out.PendingConcentration, ConcentrationPrompt{
		ID:          id,
		CombatantID: combatantID,
		Damage:      damage,
		DC:          dc,
	})
	return out, id, nil
}

// ResolveConcentrationPrompt applies a saving throw total against a pending
// concentration prompt, clearing concentration on a miss.
func (e Encounter) ResolveConcentrationPrompt(promptID string, total int) (Encounter, error) {
	idx := -1
	for i, prompt := range e.PendingConcentration {
		if prompt.ID == promptID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Encounter{}, ErrPromptNotFound
	}

	out := e.Clone()
	prompt := out.PendingConcentration[idx]
	out.PendingConcentration = append(out.PendingConcentration[:idx], out.PendingConcentration[idx+1:]...)

	combatant, ok := out.Combatants[prompt.CombatantID]
	if !ok {
		return out, nil
	}
	out.Combatants[prompt.CombatantID] = ResolveConcentration(combatant, total, prompt.DC)
	return out, nil
}
