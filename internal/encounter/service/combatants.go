package service

import (
	"context"
	"fmt"

	"github.com/louisbranch/initiative/internal/encounter/domain"
)

// AddCombatant creates a combatant and inserts it into the encounter.
func (s *Service) AddCombatant(ctx context.Context, encounterID string, input domain.CreateCombatantInput) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "AddCombatant")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	combatant, err := domain.CreateCombatant(input)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.AddCombatant(combatant)
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventCombatantAdded)
}

// AddCombatantByName looks a record up in the content library and adds the
// mapped combatant to the encounter.
func (s *Service) AddCombatantByName(ctx context.Context, encounterID, name string) (domain.Encounter, error) {
	if s.library == nil {
		return domain.Encounter{}, fmt.Errorf("content library is not configured")
	}
	input, err := s.library.Lookup(name)
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.AddCombatant(ctx, encounterID, input)
}

// RemoveCombatant removes a combatant, pruning markers its lair actions
// introduced when no other combatant shares them.
func (s *Service) RemoveCombatant(ctx context.Context, encounterID, combatantID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "RemoveCombatant")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.RemoveCombatant(combatantID)
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventCombatantRemoved)
}

// UpdateCombatant applies a field patch. Ordering-relevant changes re-derive
// the sequence and propagate linked sidekick initiatives.
func (s *Service) UpdateCombatant(ctx context.Context, encounterID, combatantID string, patch domain.PatchCombatantInput) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "UpdateCombatant")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.UpdateCombatant(combatantID, patch)
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventCombatantUpdated)
}

// ApplyHPDelta routes a heal, damage, or absolute set through the resource
// ledger. Bloodied transitions notify. A triggered concentration check is
// auto-resolved with a d20 for non-player combatants and recorded as a
// pending prompt for players, or when the roller is unavailable.
func (s *Service) ApplyHPDelta(ctx context.Context, encounterID, combatantID string, delta domain.HPDelta) (domain.Encounter, domain.HPTransition, error) {
	ctx, span := s.startSpan(ctx, "ApplyHPDelta")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, domain.HPTransition{}, err
	}
	next, transition, err := snapshot.ApplyHPDeltaTo(combatantID, delta)
	if err != nil {
		return domain.Encounter{}, domain.HPTransition{}, err
	}

	events := []Event{EventHPChanged}
	if transition.Bloodied {
		events = append(events, EventBloodied)
	}

	if transition.Concentration.Required {
		combatant := next.Combatants[combatantID]
		resolved := false
		if !combatant.Player && s.roller != nil {
			total, rollErr := s.roller.Roll(fmt.Sprintf("1d20%+d", combatant.ConcentrationMod))
			if rollErr == nil {
				next.Combatants[combatantID] = domain.ResolveConcentration(combatant, total, transition.Concentration.DC)
				events = append(events, EventConcentrationResult)
				resolved = true
			}
		}
		if !resolved {
			withPrompt, _, promptErr := next.AddConcentrationPrompt(combatantID, transition.Concentration.Damage, transition.Concentration.DC)
			if promptErr != nil {
				return domain.Encounter{}, domain.HPTransition{}, promptErr
			}
			next = withPrompt
			events = append(events, EventConcentrationPrompt)
		}
	}

	committed, err := s.commit(ctx, next, events...)
	if err != nil {
		return domain.Encounter{}, domain.HPTransition{}, err
	}
	return committed, transition, nil
}
