package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

// stagedInitiative holds initiative values collected between Begin and
// Commit. The committed snapshot is never touched until Commit, so Cancel
// leaves it byte-identical.
type stagedInitiative struct {
	values   map[string]stagedValue
	failures map[string]string
}

type stagedValue struct {
	initiative int
	tieBreaker *float64
}

// InitiativeStatus reports the staged collection: which combatants have a
// value, which are still awaited, and which automatic rolls failed. Failed
// combatants stay in Awaited until a value is submitted for them.
type InitiativeStatus struct {
	Rolled  map[string]int
	Awaited []string
	Failed  map[string]string
}

// BeginInitiative starts an initiative collection. Non-player combatants
// are rolled immediately with d20 plus their initiative modifier; player
// combatants wait for SubmitInitiative. Sidekicks are skipped, their
// initiative derives from their leader at commit. A failed automatic roll
// is reported in the returned status and the combatant stays awaited until
// a value is submitted.
func (s *Service) BeginInitiative(ctx context.Context, encounterID string) (InitiativeStatus, error) {
	ctx, span := s.startSpan(ctx, "BeginInitiative")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return InitiativeStatus{}, err
	}
	if _, ok := s.staged[encounterID]; ok {
		return InitiativeStatus{}, ErrRollInProgress
	}

	staged := &stagedInitiative{
		values:   make(map[string]stagedValue),
		failures: make(map[string]string),
	}
	for id, combatant := range snapshot.Combatants {
		if combatant.LinkedTo != "" || combatant.Player {
			continue
		}
		if s.roller == nil {
			continue
		}
		total, rollErr := s.roller.Roll(fmt.Sprintf("1d20%+d", combatant.InitiativeMod))
		if rollErr != nil {
			staged.failures[id] = rollErr.Error()
			continue
		}
		staged.values[id] = stagedValue{initiative: total}
	}
	s.staged[encounterID] = staged
	return s.initiativeStatus(snapshot, staged), nil
}

// SubmitInitiative records an externally rolled value for one combatant.
func (s *Service) SubmitInitiative(ctx context.Context, encounterID, combatantID string, initiative int, tieBreaker *float64) (InitiativeStatus, error) {
	ctx, span := s.startSpan(ctx, "SubmitInitiative")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return InitiativeStatus{}, err
	}
	staged, ok := s.staged[encounterID]
	if !ok {
		return InitiativeStatus{}, ErrRollNotStarted
	}
	if _, ok := snapshot.Combatants[combatantID]; !ok {
		return InitiativeStatus{}, domain.ErrCombatantNotFound
	}
	staged.values[combatantID] = stagedValue{initiative: initiative, tieBreaker: tieBreaker}
	delete(staged.failures, combatantID)
	return s.initiativeStatus(snapshot, staged), nil
}

// CommitInitiative applies every staged value to the encounter, propagating
// sidekick initiatives and re-deriving the sequence when combat is active.
// Every non-sidekick player combatant must have a submitted value.
func (s *Service) CommitInitiative(ctx context.Context, encounterID string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "CommitInitiative")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, encounterID)
	if err != nil {
		return domain.Encounter{}, err
	}
	staged, ok := s.staged[encounterID]
	if !ok {
		return domain.Encounter{}, ErrRollNotStarted
	}
	var missing []string
	for id, combatant := range snapshot.Combatants {
		if combatant.LinkedTo != "" {
			continue
		}
		if _, ok := staged.values[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return domain.Encounter{}, apperrors.WithMetadata(
			apperrors.CodeEncounterRollValueMissing,
			"initiative value missing for combatant",
			map[string]string{"combatant_ids": strings.Join(missing, ",")},
		)
	}

	// Deterministic application order keeps repeated commits identical.
	ids := make([]string, 0, len(staged.values))
	for id := range staged.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	next := snapshot
	for _, id := range ids {
		value := staged.values[id]
		initiative := value.initiative
		patch := domain.PatchCombatantInput{Initiative: &initiative}
		if value.tieBreaker != nil {
			patch.TieBreaker = value.tieBreaker
		}
		next, err = next.UpdateCombatant(id, patch)
		if err != nil {
			return domain.Encounter{}, err
		}
	}

	committed, err := s.commit(ctx, next, EventInitiativeCommitted)
	if err != nil {
		return domain.Encounter{}, err
	}
	delete(s.staged, encounterID)
	return committed, nil
}

// CancelInitiative discards the staged collection. The committed snapshot
// is untouched.
func (s *Service) CancelInitiative(ctx context.Context, encounterID string) error {
	_, span := s.startSpan(ctx, "CancelInitiative")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.staged[encounterID]; !ok {
		return ErrRollNotStarted
	}
	delete(s.staged, encounterID)
	return nil
}

func (s *Service) initiativeStatus(snapshot domain.Encounter, staged *stagedInitiative) InitiativeStatus {
	status := InitiativeStatus{Rolled: make(map[string]int, len(staged.values))}
	for id, value := range staged.values {
		status.Rolled[id] = value.initiative
	}
	if len(staged.failures) > 0 {
		status.Failed = make(map[string]string, len(staged.failures))
		for id, message := range staged.failures {
			status.Failed[id] = message
		}
	}
	for id, combatant := range snapshot.Combatants {
		if combatant.LinkedTo != "" {
			continue
		}
		if _, ok := staged.values[id]; !ok {
			status.Awaited = append(status.Awaited, id)
		}
	}
	sort.Strings(status.Awaited)
	return status
}
