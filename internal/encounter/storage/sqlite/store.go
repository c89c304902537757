// Package sqlite provides a SQLite-backed encounter storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	"github.com/louisbranch/initiative/internal/encounter/storage"
	"github.com/louisbranch/initiative/internal/encounter/storage/sqlite/migrations"
	sqlitemigrate "github.com/louisbranch/initiative/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists encounter snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite encounter store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func marshalColumn(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SaveEncounter upserts one encounter snapshot and its combatants. The
// combatant rows are replaced wholesale so removals persist.
func (s *Store) SaveEncounter(ctx context.Context, encounter domain.Encounter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	encounterID := strings.TrimSpace(encounter.ID)
	if encounterID == "" {
		return fmt.Errorf("encounter id is required")
	}

	orderJSON, err := marshalColumn(encounter.Order)
	if err != nil {
		return fmt.Errorf("encode turn order: %w", err)
	}
	rechargesJSON, err := marshalColumn(encounter.PendingRecharges)
	if err != nil {
		return fmt.Errorf("encode pending recharges: %w", err)
	}
	concentrationJSON, err := marshalColumn(encounter.PendingConcentration)
	if err != nil {
		return fmt.Errorf("encode pending concentration: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save encounter: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO encounters (id, name, status, round, turn, turn_order, pending_recharges, pending_concentration, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   status = excluded.status,
		   round = excluded.round,
		   turn = excluded.turn,
		   turn_order = excluded.turn_order,
		   pending_recharges = excluded.pending_recharges,
		   pending_concentration = excluded.pending_concentration,
		   updated_at = excluded.updated_at`,
		encounterID,
		encounter.Name,
		int(encounter.Status),
		encounter.Round,
		encounter.Turn,
		orderJSON,
		rechargesJSON,
		concentrationJSON,
		toMillis(encounter.CreatedAt),
		toMillis(encounter.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save encounter: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`DELETE FROM combatants WHERE encounter_id = ?`,
		encounterID,
	)
	if err != nil {
		return fmt.Errorf("clear combatants: %w", err)
	}

	for _, combatant := range encounter.Combatants {
		if err := insertCombatant(ctx, tx, encounterID, combatant); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save encounter: %w", err)
	}
	return nil
}

func insertCombatant(ctx context.Context, tx *sql.Tx, encounterID string, combatant domain.Combatant) error {
	spellSlotsJSON, err := marshalColumn(combatant.SpellSlots)
	if err != nil {
		return fmt.Errorf("encode spell slots: %w", err)
	}
	dailyUsesJSON, err := marshalColumn(combatant.DailyUses)
	if err != nil {
		return fmt.Errorf("encode daily uses: %w", err)
	}
	rechargeJSON, err := marshalColumn(combatant.RechargeAbilities)
	if err != nil {
		return fmt.Errorf("encode recharge abilities: %w", err)
	}
	lairJSON, err := marshalColumn(combatant.LairInitiatives)
	if err != nil {
		return fmt.Errorf("encode lair initiatives: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO combatants (
		   encounter_id, id, name,
		   hp, hp_max, hp_max_modifier, temp_hp, armor_class,
		   initiative, tie_breaker, initiative_mod,
		   player, linked_to, concentrating, concentration_mod,
		   spell_slots, daily_uses, recharge_abilities,
		   legendary_actions_remaining, legendary_points, legendary_points_max,
		   legendary_resists, legendary_resists_max, lair_initiatives,
		   reaction_used, death_save_successes, death_save_failures
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encounterID,
		combatant.ID,
		combatant.Name,
		combatant.HP,
		combatant.HPMax,
		combatant.HPMaxModifier,
		combatant.TempHP,
		combatant.ArmorClass,
		combatant.Initiative,
		combatant.TieBreaker,
		combatant.InitiativeMod,
		combatant.Player,
		combatant.LinkedTo,
		combatant.Concentrating,
		combatant.ConcentrationMod,
		spellSlotsJSON,
		dailyUsesJSON,
		rechargeJSON,
		combatant.LegendaryActionsRemaining,
		combatant.LegendaryPoints,
		combatant.LegendaryPointsMax,
		combatant.LegendaryResists,
		combatant.LegendaryResistsMax,
		lairJSON,
		combatant.ReactionUsed,
		combatant.DeathSaveSuccesses,
		combatant.DeathSaveFailures,
	)
	if err != nil {
		return fmt.Errorf("save combatant %s: %w", combatant.ID, err)
	}
	return nil
}

// GetEncounter loads one encounter snapshot with all of its combatants.
func (s *Store) GetEncounter(ctx context.Context, id string) (domain.Encounter, error) {
	if err := ctx.Err(); err != nil {
		return domain.Encounter{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Encounter{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Encounter{}, fmt.Errorf("encounter id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, status, round, turn, turn_order, pending_recharges, pending_concentration, created_at, updated_at
		 FROM encounters
		 WHERE id = ?`,
		id,
	)
	var (
		encounter         domain.Encounter
		status            int
		orderJSON         string
		rechargesJSON     string
		concentrationJSON string
		createdAt         int64
		updatedAt         int64
	)
	err := row.Scan(
		&encounter.ID,
		&encounter.Name,
		&status,
		&encounter.Round,
		&encounter.Turn,
		&orderJSON,
		&rechargesJSON,
		&concentrationJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Encounter{}, storage.ErrNotFound
		}
		return domain.Encounter{}, fmt.Errorf("get encounter: %w", err)
	}
	encounter.Status = domain.Status(status)
	encounter.CreatedAt = fromMillis(createdAt)
	encounter.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(orderJSON), &encounter.Order); err != nil {
		return domain.Encounter{}, fmt.Errorf("decode turn order: %w", err)
	}
	if err := json.Unmarshal([]byte(rechargesJSON), &encounter.PendingRecharges); err != nil {
		return domain.Encounter{}, fmt.Errorf("decode pending recharges: %w", err)
	}
	if err := json.Unmarshal([]byte(concentrationJSON), &encounter.PendingConcentration); err != nil {
		return domain.Encounter{}, fmt.Errorf("decode pending concentration: %w", err)
	}

	combatants, err := s.loadCombatants(ctx, id)
	if err != nil {
		return domain.Encounter{}, err
	}
	encounter.Combatants = combatants
	return encounter, nil
}

func (s *Store) loadCombatants(ctx context.Context, encounterID string) (map[string]domain.Combatant, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name,
		   hp, hp_max, hp_max_modifier, temp_hp, armor_class,
		   initiative, tie_breaker, initiative_mod,
		   player, linked_to, concentrating, concentration_mod,
		   spell_slots, daily_uses, recharge_abilities,
		   legendary_actions_remaining, legendary_points, legendary_points_max,
		   legendary_resists, legendary_resists_max, lair_initiatives,
		   reaction_used, death_save_successes, death_save_failures
		 FROM combatants
		 WHERE encounter_id = ?`,
		encounterID,
	)
	if err != nil {
		return nil, fmt.Errorf("load combatants: %w", err)
	}
	defer rows.Close()

	combatants := make(map[string]domain.Combatant)
	for rows.Next() {
		var (
			combatant      domain.Combatant
			spellSlotsJSON string
			dailyUsesJSON  string
			rechargeJSON   string
			lairJSON       string
		)
		if err := rows.Scan(
			&combatant.ID,
			&combatant.Name,
			&combatant.HP,
			&combatant.HPMax,
			&combatant.HPMaxModifier,
			&combatant.TempHP,
			&combatant.ArmorClass,
			&combatant.Initiative,
			&combatant.TieBreaker,
			&combatant.InitiativeMod,
			&combatant.Player,
			&combatant.LinkedTo,
			&combatant.Concentrating,
			&combatant.ConcentrationMod,
			&spellSlotsJSON,
			&dailyUsesJSON,
			&rechargeJSON,
			&combatant.LegendaryActionsRemaining,
			&combatant.LegendaryPoints,
			&combatant.LegendaryPointsMax,
			&combatant.LegendaryResists,
			&combatant.LegendaryResistsMax,
			&lairJSON,
			&combatant.ReactionUsed,
			&combatant.DeathSaveSuccesses,
			&combatant.DeathSaveFailures,
		); err != nil {
			return nil, fmt.Errorf("load combatants: %w", err)
		}
		if err := json.Unmarshal([]byte(spellSlotsJSON), &combatant.SpellSlots); err != nil {
			return nil, fmt.Errorf("decode spell slots: %w", err)
		}
		if err := json.Unmarshal([]byte(dailyUsesJSON), &combatant.DailyUses); err != nil {
			return nil, fmt.Errorf("decode daily uses: %w", err)
		}
		if err := json.Unmarshal([]byte(rechargeJSON), &combatant.RechargeAbilities); err != nil {
			return nil, fmt.Errorf("decode recharge abilities: %w", err)
		}
		if err := json.Unmarshal([]byte(lairJSON), &combatant.LairInitiatives); err != nil {
			return nil, fmt.Errorf("decode lair initiatives: %w", err)
		}
		combatants[combatant.ID] = combatant
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load combatants: %w", err)
	}
	return combatants, nil
}

// ListEncounters returns one page of encounter summaries ordered by id.
func (s *Store) ListEncounters(ctx context.Context, pageSize int, pageToken string) (storage.EncounterPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.EncounterPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.EncounterPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.EncounterPage{}, fmt.Errorf("page size must be greater than zero")
	}

	page := storage.EncounterPage{
		Encounters: make([]storage.EncounterSummary, 0, pageSize),
	}
	pageToken = strings.TrimSpace(pageToken)

	var (
		rows *sql.Rows
		err  error
	)
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT e.id, e.name, e.status, e.round,
			   (SELECT COUNT(*) FROM combatants c WHERE c.encounter_id = e.id)
			 FROM encounters e
			 ORDER BY e.id ASC
			 LIMIT ?`,
			pageSize+1,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT e.id, e.name, e.status, e.round,
			   (SELECT COUNT(*) FROM combatants c WHERE c.encounter_id = e.id)
			 FROM encounters e
			 WHERE e.id > ?
			 ORDER BY e.id ASC
			 LIMIT ?`,
			pageToken,
			pageSize+1,
		)
	}
	if err != nil {
		return storage.EncounterPage{}, fmt.Errorf("list encounters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			summary storage.EncounterSummary
			status  int
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&status,
			&summary.Round,
			&summary.CombatantCount,
		); err != nil {
			return storage.EncounterPage{}, fmt.Errorf("list encounters: %w", err)
		}
		summary.Status = domain.Status(status)
		page.Encounters = append(page.Encounters, summary)
	}
	if err := rows.Err(); err != nil {
		return storage.EncounterPage{}, fmt.Errorf("list encounters: %w", err)
	}
	if len(page.Encounters) > pageSize {
		page.NextPageToken = page.Encounters[pageSize-1].ID
		page.Encounters = page.Encounters[:pageSize]
	}

	return page, nil
}

// DeleteEncounter removes one encounter and its combatants.
func (s *Store) DeleteEncounter(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("encounter id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM encounters WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete encounter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete encounter: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.EncounterStore = (*Store)(nil)
