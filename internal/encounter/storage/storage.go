// Package storage defines persistence contracts for encounter state.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/initiative/internal/encounter/domain"
)

var (
	// ErrNotFound indicates a requested encounter record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained encounter already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// EncounterPage stores one page of encounter summaries.
type EncounterPage struct {
	Encounters    []EncounterSummary
	NextPageToken string
}

// EncounterSummary is the listing projection of an encounter record.
type EncounterSummary struct {
	ID             string
	Name           string
	Status         domain.Status
	Round          int
	CombatantCount int
}

// EncounterStore persists encounter snapshots.
//
// Save must be an upsert: the service persists after every mutation and the
// same id is written repeatedly. Get returns ErrNotFound for unknown ids;
// the service never calls it for temporary local ids.
type EncounterStore interface {
	SaveEncounter(ctx context.Context, encounter domain.Encounter) error
	GetEncounter(ctx context.Context, id string) (domain.Encounter, error)
	ListEncounters(ctx context.Context, pageSize int, pageToken string) (EncounterPage, error)
	DeleteEncounter(ctx context.Context, id string) error
}
