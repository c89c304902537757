package service

import (
	"context"

	"github.com/louisbranch/initiative/internal/encounter/domain"
)

// StartCombat derives the turn sequence and activates the encounter.
func (s *Service) StartCombat(ctx context.Context, encounterID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "StartCombat")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.StartCombat()
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventCombatStarted)
}

// EndCombat marks the encounter completed.
func (s *Service) EndCombat(ctx context.Context, encounterID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "EndCombat")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.EndCombat()
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventCombatEnded)
}

// ResetCombat returns the encounter to its pre-combat shape.
func (s *Service) ResetCombat(ctx context.Context, encounterID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "ResetCombat")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.ResetCombat()
	if err != nil {
		return domain.Encounter{}, err
	}
	delete(s.staged, encounterID)
	return s.commit(ctx, next, EventCombatReset)
}

// NextTurn advances the pointer. Recharge prompts the clock schedules for
// the newly active combatant are auto-rolled with a d6 when the combatant
// is not player-controlled; the rest stay pending until resolved.
func (s *Service) NextTurn(ctx context.Context, encounterID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "NextTurn")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.NextTurn()
	if err != nil {
		return domain.Encounter{}, err
	}

	events := []Event{EventTurnAdvanced}
	if len(next.PendingRecharges) > len(snapshot.PendingRecharges) {
		events = append(events, EventRechargePrompt)
	}
	next, rolled := s.resolveNPCRecharges(next)
	if rolled {
		events = append(events, EventRechargeResult)
	}
	return s.commit(ctx, next, events...)
}

// resolveNPCRecharges rolls pending recharge prompts for non-player
// combatants. Prompts whose roll fails stay pending.
func (s *Service) resolveNPCRecharges(snapshot domain.Encounter) (domain.Encounter, bool) {
	if s.roller == nil {
		return snapshot, false
	}
	rolled := false
	for _, prompt := range append([]domain.RechargePrompt(nil), snapshot.PendingRecharges...) {
		combatant, ok := snapshot.Combatants[prompt.CombatantID]
		if !ok || combatant.Player {
			continue
		}
		total, err := s.roller.Roll("1d6")
		if err != nil {
			continue
		}
		next, err := snapshot.ApplyRechargeResult(prompt.ID, total)
		if err != nil {
			continue
		}
		snapshot = next
		rolled = true
	}
	return snapshot, rolled
}

// PrevTurn retreats the pointer without reversing any per-round resets.
func (s *Service) PrevTurn(ctx context.Context, encounterID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "PrevTurn")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.PrevTurn()
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventTurnRewound)
}

// ResolveRecharge applies an externally rolled recharge result to a
// pending prompt.
func (s *Service) ResolveRecharge(ctx context.Context, encounterID, promptID string, total int) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "ResolveRecharge")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.ApplyRechargeResult(promptID, total)
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventRechargeResult)
}

// ResolveConcentration applies an externally rolled saving throw to a
// pending concentration prompt.
func (s *Service) ResolveConcentration(ctx context.Context, encounterID, promptID string, total int) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "ResolveConcentration")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	next, err := snapshot.ResolveConcentrationPrompt(promptID, total)
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, next, EventConcentrationResult)
}
