package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

// Status describes the lifecycle of an encounter.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusPreparing indicates combat has not started.
	StatusPreparing
	// StatusActive indicates combat is running and the turn pointer is live.
	StatusActive
	// StatusCompleted indicates combat has ended.
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPreparing:
		return "preparing"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return "unspecified"
	}
}

var (
	// ErrEncounterNameEmpty indicates a missing encounter name.
	ErrEncounterNameEmpty = apperrors.New(apperrors.CodeEncounterNameEmpty, "encounter name is required")
	// ErrEncounterCompleted indicates a mutation against a completed encounter.
	ErrEncounterCompleted = apperrors.New(apperrors.CodeEncounterCompleted, "encounter is completed")
	// ErrCombatNotActive indicates a turn operation outside active combat.
	ErrCombatNotActive = apperrors.New(apperrors.CodeEncounterInvalidStatus, "combat is not active")
	// ErrEmptySequence indicates a turn operation against an empty sequence.
	ErrEmptySequence = apperrors.New(apperrors.CodeEncounterEmptySequence, "turn sequence is empty")
	// ErrCombatantNotFound indicates an unknown combatant id.
	ErrCombatantNotFound = apperrors.New(apperrors.CodeCombatantNotFound, "combatant not found")
	// ErrLinkUnknown indicates a sidekick link to an unknown combatant.
	ErrLinkUnknown = apperrors.New(apperrors.CodeCombatantLinkUnknown, "linked combatant not found")
	// ErrPromptNotFound indicates an unknown pending prompt id.
	ErrPromptNotFound = apperrors.New(apperrors.CodeEncounterPromptNotFound, "pending prompt not found")
)

// Encounter is the owning aggregate: combatant collection, turn sequence,
// clock position, and the prompts awaiting external resolution. Every
// mutation returns a new snapshot; previously returned snapshots are never
// mutated in place, so the persistence boundary can roll back by restoring
// the prior value.
type Encounter struct {
	ID     string
	Name   string
	Status Status

	Round int // 1-based
	Turn  int // zero-based index into Order

	Combatants map[string]Combatant
	Order      []TurnEntry

	PendingRecharges     []RechargePrompt
	PendingConcentration []ConcentrationPrompt

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateEncounter creates an empty encounter with a temporary local id. The
// id is replaced with a durable one by the persistence layer on first save.
func CreateEncounter(name string, now time.Time) (Encounter, error) {
	if strings.TrimSpace(name) == "" {
		return Encounter{}, ErrEncounterNameEmpty
	}
	id, err := NewLocalID()
	if err != nil {
		return Encounter{}, err
	}
	return Encounter{
		ID:         id,
		Name:       name,
		Status:     StatusPreparing,
		Round:      1,
		Combatants: map[string]Combatant{},
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, nil
}

// Clone returns a deep copy of the encounter snapshot.
func (e Encounter) Clone() Encounter {
	out := e
	out.Combatants = make(map[string]Combatant, len(e.Combatants))
	for id, combatant := range e.Combatants {
		out.Combatants[id] = combatant.Clone()
	}
	out.Order = append([]TurnEntry(nil), e.Order...)
	out.PendingRecharges = append([]RechargePrompt(nil), e.PendingRecharges...)
	out.PendingConcentration = append([]ConcentrationPrompt(nil), e.PendingConcentration...)
	return out
}

// ActiveEntry returns the turn entry under the pointer, if any.
func (e Encounter) ActiveEntry() (TurnEntry, bool) {
	if len(e.Order) == 0 || e.Turn < 0 || e.Turn >= len(e.Order) {
		return TurnEntry{}, false
	}
	return e.Order[e.Turn], true
}

// lairInitiatives collects the environmental initiative counts contributed
// by the current combatant set.
func (e Encounter) lairInitiatives() []int {
	var out []int
	for _, combatant := range e.Combatants {
		out = append(out, combatant.LairInitiatives...)
	}
	return out
}

// AddCombatant inserts a combatant into the encounter. During active combat
// the combatant is placed into the running sequence without disturbing the
// rest of the order; new lair markers it contributes are inserted under the
// same tie-losing rule.
func (e Encounter) AddCombatant(combatant Combatant) (Encounter, error) {
	if e.Status == StatusCompleted {
		return Encounter{}, ErrEncounterCompleted
	}
	if err := combatant.Validate(); err != nil {
		return Encounter{}, err
	}
	if combatant.LinkedTo != "" {
		leader, ok := e.Combatants[combatant.LinkedTo]
		if !ok || combatant.LinkedTo == combatant.ID {
			return Encounter{}, ErrLinkUnknown
		}
		combatant = combatant.Clone()
		combatant.Initiative = leader.Initiative
		combatant.TieBreaker = leader.TieBreaker - 0.5
	}

	out := e.Clone()
	out.Combatants[combatant.ID] = combatant.Clone()

	if out.Status == StatusActive {
		idx := insertionIndex(out.Order, combatant, out.Combatants)
		out.Order = InsertNew(out.Order, combatant, out.Combatants)
		if idx <= out.Turn && len(out.Order) > 1 {
			out.Turn++
		}
		out.Order = insertMissingMarkers(out.Order, out.Combatants, combatant.LairInitiatives, &out.Turn)
	}
	return out, nil
}

// RemoveCombatant deletes a combatant, its turn entry, and any
// environmental markers no remaining combatant contributes.
func (e Encounter) RemoveCombatant(id string) (Encounter, error) {
	if _, ok := e.Combatants[id]; !ok {
		return Encounter{}, ErrCombatantNotFound
	}

	out := e.Clone()
	delete(out.Combatants, id)

	remaining := make(map[int]bool)
	for _, initiative := range out.lairInitiatives() {
		remaining[initiative] = true
	}

	order := out.Order[:0]
	turn := out.Turn
	for i, entry := range out.Order {
		drop := false
		switch entry.Kind {
		case EntryCombatant:
			drop = entry.CombatantID == id
		case EntryMarker:
			drop = !remaining[entry.Initiative]
		}
		if drop {
			// Compare against the original pointer so each dropped entry
			// below it counts once.
			if i < out.Turn {
				turn--
			}
			continue
		}
		order = append(order, entry)
	}
	out.Order = order
	if len(out.Order) == 0 {
		turn = 0
	} else if turn >= len(out.Order) {
		turn = 0
	}
	out.Turn = turn

	out.PendingRecharges = filterRecharges(out.PendingRecharges, id)
	out.PendingConcentration = filterConcentration(out.PendingConcentration, id)
	return out, nil
}

// UpdateCombatant applies a patch. Initiative and tie-breaker changes
// propagate to sidekicks and, in active combat, re-derive the sequence; the
// active entry keeps the pointer when it survives the resort.
func (e Encounter) UpdateCombatant(id string, patch PatchCombatantInput) (Encounter, error) {
	existing, ok := e.Combatants[id]
	if !ok {
		return Encounter{}, ErrCombatantNotFound
	}
	if patch.LinkedTo != nil && *patch.LinkedTo != "" {
		if _, ok := e.Combatants[*patch.LinkedTo]; !ok || *patch.LinkedTo == id {
			return Encounter{}, ErrLinkUnknown
		}
	}

	updated, err := PatchCombatant(existing, patch)
	if err != nil {
		return Encounter{}, err
	}

	out := e.Clone()
	out.Combatants[id] = updated

	if patch.Initiative != nil || patch.TieBreaker != nil {
		out.Combatants = PropagateSidekicks(out.Combatants, id)
	}
	if patch.OrderingRelevant() && out.Status == StatusActive {
		out.rebuildOrder()
	}
	return out, nil
}

// HPTransition reports the observable effects of a hit-point delta.
type HPTransition struct {
	CombatantID   string
	HPBefore      int
	TempHPBefore  int
	HPAfter       int
	TempHPAfter   int
	Bloodied      bool
	Concentration ConcentrationCheck
}

// ApplyHPDeltaTo routes a hit-point delta through the resource ledger and
// returns the new snapshot together with the transition report the caller
// uses for bloodied and concentration notifications.
func (e Encounter) ApplyHPDeltaTo(id string, delta HPDelta) (Encounter, HPTransition, error) {
	combatant, ok := e.Combatants[id]
	if !ok {
		return Encounter{}, HPTransition{}, ErrCombatantNotFound
	}

	result, err := ApplyHPDelta(combatant, delta)
	if err != nil {
		return Encounter{}, HPTransition{}, err
	}

	transition := HPTransition{
		CombatantID:  id,
		HPBefore:     combatant.HP,
		TempHPBefore: combatant.TempHP,
		HPAfter:      result.HP,
		TempHPAfter:  result.TempHP,
	}
	transition.Bloodied = DetectBloodied(combatant.HP, result.HP, combatant.EffectiveMaxHP())
	transition.Concentration = CheckConcentration(combatant, combatant.HP, combatant.TempHP, result.HP, result.TempHP)

	out := e.Clone()
	updated := out.Combatants[id]
	updated.HP = result.HP
	updated.TempHP = result.TempHP
	out.Combatants[id] = updated
	return out, transition, nil
}

// rebuildOrder re-derives the full sequence by global sort and moves the
// pointer to follow the previously active entry when it survives.
func (e *Encounter) rebuildOrder() {
	active, hasActive := e.ActiveEntry()
	e.Order = BuildOrder(e.Combatants, e.lairInitiatives())
	if !hasActive {
		e.Turn = 0
		return
	}
	for i, entry := range e.Order {
		if sameEntry(entry, active) {
			e.Turn = i
			return
		}
	}
	if e.Turn >= len(e.Order) {
		e.Turn = 0
	}
}

func sameEntry(a, b TurnEntry) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == EntryCombatant {
		return a.CombatantID == b.CombatantID
	}
	return a.Initiative == b.Initiative
}

// insertionIndex mirrors InsertNew's placement rule so callers can adjust
// the turn pointer before the insert happens.
func insertionIndex(order []TurnEntry, combatant Combatant, combatants map[string]Combatant) int {
	for i, existing := range order {
		rank, tie := entryRank(existing, combatants)
		if rank < combatant.Initiative || (rank == combatant.Initiative && tie < combatant.TieBreaker) {
			return i
		}
	}
	return len(order)
}

// insertMissingMarkers adds markers for lair initiatives not yet present in
// the sequence, keeping the turn pointer on the same entry.
func insertMissingMarkers(order []TurnEntry, combatants map[string]Combatant, initiatives []int, turn *int) []TurnEntry {
	present := make(map[int]bool)
	for _, entry := range order {
		if entry.Kind == EntryMarker {
			present[entry.Initiative] = true
		}
	}
	for _, initiative := range dedupeDescending(initiatives) {
		if present[initiative] {
			continue
		}
		idx := len(order)
		for i, entry := range order {
			rank, _ := entryRank(entry, combatants)
			if rank < initiative {
				idx = i
				break
			}
		}
		order = append(order[:idx], append([]TurnEntry{{Kind: EntryMarker, Initiative: initiative}}, order[idx:]...)...)
		if idx <= *turn && len(order) > 1 {
			*turn++
		}
		present[initiative] = true
	}
	return order
}

func filterRecharges(prompts []RechargePrompt, combatantID string) []RechargePrompt {
	out := prompts[:0]
	for _, prompt := range prompts {
		if prompt.CombatantID != combatantID {
			out = append(out, prompt)
		}
	}
	return out
}

func filterConcentration(prompts []ConcentrationPrompt, combatantID string) []ConcentrationPrompt {
	out := prompts[:0]
	for _, prompt := range prompts {
		if prompt.CombatantID != combatantID {
			out = append(out, prompt)
		}
	}
	return out
}
