// Package service funnels encounter intents: it validates inputs, applies
// domain mutations, persists the resulting snapshot, and emits change
// notifications. Intents are processed strictly in submission order.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	"github.com/louisbranch/initiative/internal/encounter/storage"
	apperrors "github.com/louisbranch/initiative/internal/platform/errors"
)

var (
	// ErrEncounterNotFound indicates the requested encounter does not exist.
	ErrEncounterNotFound = apperrors.New(apperrors.CodeEncounterNotFound, "encounter not found")
	// ErrRollInProgress indicates an initiative collection is already staged.
	ErrRollInProgress = apperrors.New(apperrors.CodeEncounterRollInProgress, "initiative roll already in progress")
	// ErrRollNotStarted indicates no initiative collection is staged.
	ErrRollNotStarted = apperrors.New(apperrors.CodeEncounterRollNotStarted, "initiative roll not started")
	// ErrRollValueMissing indicates a combatant has no staged initiative,
	// either an unsubmitted player or a non-player whose automatic roll
	// failed.
	ErrRollValueMissing = apperrors.New(apperrors.CodeEncounterRollValueMissing, "initiative value missing for combatant")
)

// Event labels the kind of change a notification carries.
type Event string

const (
	EventEncounterCreated    Event = "encounter.created"
	EventEncounterDeleted    Event = "encounter.deleted"
	EventCombatantAdded      Event = "combatant.added"
	EventCombatantRemoved    Event = "combatant.removed"
	EventCombatantUpdated    Event = "combatant.updated"
	EventHPChanged           Event = "hp.changed"
	EventBloodied            Event = "hp.bloodied"
	EventConcentrationPrompt Event = "concentration.prompt"
	EventConcentrationResult Event = "concentration.result"
	EventRechargePrompt      Event = "recharge.prompt"
	EventRechargeResult      Event = "recharge.result"
	EventCombatStarted       Event = "combat.started"
	EventCombatEnded         Event = "combat.ended"
	EventCombatReset         Event = "combat.reset"
	EventTurnAdvanced        Event = "turn.advanced"
	EventTurnRewound         Event = "turn.rewound"
	EventInitiativeCommitted Event = "initiative.committed"
)

// Notifier receives a snapshot after every successful mutation. A nil
// notifier is valid; notifications are then dropped.
type Notifier interface {
	Notify(encounterID string, event Event, snapshot domain.Encounter)
}

// Roller resolves a dice notation into a total. Implementations must be
// safe for sequential use; the service never calls Roll concurrently.
type Roller interface {
	Roll(notation string) (int, error)
}

// Library resolves a content record name into combatant creation input.
type Library interface {
	Lookup(name string) (domain.CreateCombatantInput, error)
}

// Service serializes encounter intents behind a single mutex and keeps an
// in-memory snapshot registry. Encounters carrying a local id have not been
// persisted yet; they stay fully usable while the store is unreachable and
// are rewritten to a durable id on the first successful save.
type Service struct {
	mu sync.Mutex

	store    storage.EncounterStore
	roller   Roller
	notifier Notifier
	library  Library

	snapshots map[string]domain.Encounter
	staged    map[string]*stagedInitiative

	now    func() time.Time
	tracer trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithNotifier sets the change notification sink.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithRoller sets the dice collaborator.
func WithRoller(roller Roller) Option {
	return func(s *Service) { s.roller = roller }
}

// WithLibrary sets the content library used by AddCombatantByName.
func WithLibrary(library Library) Option {
	return func(s *Service) { s.library = library }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates an encounter service backed by the given store.
func New(store storage.EncounterStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		roller:    NewSeededRoller(),
		snapshots: make(map[string]domain.Encounter),
		staged:    make(map[string]*stagedInitiative),
		now:       func() time.Time { return time.Now().UTC() },
		tracer:    otel.Tracer("encounter.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, intent string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "encounter.service/"+intent)
}

func (s *Service) notify(snapshot domain.Encounter, events ...Event) {
	if s.notifier == nil {
		return
	}
	for _, event := range events {
		s.notifier.Notify(snapshot.ID, event, snapshot)
	}
}

// load returns the current snapshot for an encounter id, consulting the
// store for ids not in the registry. Local ids never reach the store.
func (s *Service) load(ctx context.Context, id string) (domain.Encounter, error) {
	if snapshot, ok := s.snapshots[id]; ok {
		return snapshot, nil
	}
	if domain.IsLocalID(id) {
		return domain.Encounter{}, ErrEncounterNotFound
	}
	snapshot, err := s.store.GetEncounter(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Encounter{}, ErrEncounterNotFound
		}
		return domain.Encounter{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load encounter", err)
	}
	s.snapshots[id] = snapshot
	return snapshot, nil
}

// commit persists a mutated snapshot and publishes it to the registry.
//
// Persisted encounters roll back on store failure: the registry keeps the
// previous snapshot and the caller gets a retryable error. Encounters still
// on a local id commit in memory regardless, so intents keep working while
// the store is down; the durable id is assigned on the first save that
// succeeds.
func (s *Service) commit(ctx context.Context, next domain.Encounter, events ...Event) (domain.Encounter, error) {
	next.UpdatedAt = s.now()

	if domain.IsLocalID(next.ID) {
		localID := next.ID
		durableID, err := domain.NewID()
		if err == nil {
			next.ID = durableID
			if saveErr := s.store.SaveEncounter(ctx, next); saveErr == nil {
				delete(s.snapshots, localID)
				s.snapshots[durableID] = next
				s.notify(next, events...)
				return next, nil
			}
			next.ID = localID
		}
		s.snapshots[localID] = next
		s.notify(next, events...)
		return next, nil
	}

	if err := s.store.SaveEncounter(ctx, next); err != nil {
		return domain.Encounter{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "save encounter", err)
	}
	s.snapshots[next.ID] = next
	s.notify(next, events...)
	return next, nil
}

// CreateEncounter creates a new empty encounter. The returned snapshot
// carries a durable id when the first save succeeded and a local id
// otherwise.
func (s *Service) CreateEncounter(ctx context.Context, name string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "CreateEncounter")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	encounter, err := domain.CreateEncounter(name, s.now())
	if err != nil {
		return domain.Encounter{}, err
	}
	return s.commit(ctx, encounter, EventEncounterCreated)
}

// GetEncounter returns the current snapshot for an encounter.
func (s *Service) GetEncounter(ctx context.Context, id string) (domain.Encounter, error) {
	ctx, span := s.startSpan(ctx, "GetEncounter")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, id)
}

// ListEncounters returns one page of encounter summaries from the store.
func (s *Service) ListEncounters(ctx context.Context, pageSize int, pageToken string) (storage.EncounterPage, error) {
	ctx, span := s.startSpan(ctx, "ListEncounters")
	defer span.End()

	page, err := s.store.ListEncounters(ctx, pageSize, pageToken)
	if err != nil {
		return storage.EncounterPage{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "list encounters", err)
	}
	return page, nil
}

// DeleteEncounter removes an encounter from the store and the registry.
func (s *Service) DeleteEncounter(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeleteEncounter")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !domain.IsLocalID(id) {
		if err := s.store.DeleteEncounter(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return apperrors.Wrap(apperrors.CodeStorageUnavailable, "delete encounter", err)
		}
	}
	delete(s.snapshots, id)
	delete(s.staged, id)
	s.notify(snapshot, EventEncounterDeleted)
	return nil
}
