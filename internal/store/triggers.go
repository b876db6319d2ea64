package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/models"
)

const triggerColumns = `id, pet_id, hour, minute, created_at`

func scanTrigger(row rowScanner) (*models.Trigger, error) {
	var t models.Trigger
	if err := row.Scan(&t.ID, &t.PetID, &t.Hour, &t.Minute, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTrigger stores a new trigger. A second trigger for the same pet and
// time of day yields apperr.ErrAlreadyExists; an unknown pet yields
// apperr.ErrNotFound.
func (db *DB) InsertTrigger(ctx context.Context, petID int64, hour, minute int) (*models.Trigger, error) {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO scheduled_triggers (pet_id, hour, minute, created_at) VALUES (?, ?, ?, ?)
	`, petID, hour, minute, now)
	switch {
	case isUniqueViolation(err):
		return nil, fmt.Errorf("store: trigger %s for pet %d: %w", models.FormatClock(hour, minute), petID, apperr.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return nil, apperr.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("store: insert trigger: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: trigger id: %w", err)
	}
	return &models.Trigger{ID: id, PetID: petID, Hour: hour, Minute: minute, CreatedAt: now}, nil
}

// GetTrigger returns the trigger or apperr.ErrNotFound.
func (db *DB) GetTrigger(ctx context.Context, id int64) (*models.Trigger, error) {
	t, err := scanTrigger(db.conn.QueryRowContext(ctx, `SELECT `+triggerColumns+` FROM scheduled_triggers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get trigger: %w", err)
	}
	return t, nil
}

// DeleteTrigger removes a trigger and reports whether a row was deleted.
func (db *DB) DeleteTrigger(ctx context.Context, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM scheduled_triggers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete trigger: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListTriggers returns the pet's triggers ordered by time of day.
func (db *DB) ListTriggers(ctx context.Context, petID int64) ([]models.Trigger, error) {
	return db.queryTriggers(ctx, `SELECT `+triggerColumns+` FROM scheduled_triggers WHERE pet_id = ? ORDER BY hour, minute`, petID)
}

// AllTriggers returns every stored trigger.
func (db *DB) AllTriggers(ctx context.Context) ([]models.Trigger, error) {
	return db.queryTriggers(ctx, `SELECT `+triggerColumns+` FROM scheduled_triggers ORDER BY id`)
}

// DeleteTriggersForPet removes all triggers owned by the pet.
func (db *DB) DeleteTriggersForPet(ctx context.Context, petID int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM scheduled_triggers WHERE pet_id = ?`, petID); err != nil {
		return fmt.Errorf("store: delete pet triggers: %w", err)
	}
	return nil
}

func (db *DB) queryTriggers(ctx context.Context, query string, args ...any) ([]models.Trigger, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list triggers: %w", err)
	}
	defer rows.Close()

	out := []models.Trigger{}
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
