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

// RecordFeed bumps feed_count and experience by one, recomputes the level
// and inserts the feed record in a single transaction.
func (db *DB) RecordFeed(ctx context.Context, petID int64, at time.Time, source string) (*models.Pet, *models.FeedRecord, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	pet, err := scanPet(tx.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = ?`, petID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("store: load pet: %w", err)
	}

	pet.FeedCount++
	pet.Experience++
	pet.Level = models.LevelFor(pet.Experience)

	if _, err := tx.ExecContext(ctx, `
		UPDATE pets SET feed_count = ?, experience = ?, level = ? WHERE id = ?
	`, pet.FeedCount, pet.Experience, pet.Level, petID); err != nil {
		return nil, nil, fmt.Errorf("store: update pet counters: %w", err)
	}

	at = at.UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO feed_records (pet_id, fed_at, source) VALUES (?, ?, ?)
	`, petID, at, source)
	if err != nil {
		return nil, nil, fmt.Errorf("store: insert feed record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("store: feed record id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("store: commit feed: %w", err)
	}
	return pet, &models.FeedRecord{ID: id, PetID: petID, FedAt: at, Source: source}, nil
}

// FeedStatistics counts the pet's feed records inside the period window
// ending at now.
func (db *DB) FeedStatistics(ctx context.Context, petID int64, period models.Period, now time.Time) (int, error) {
	if _, err := db.GetPet(ctx, petID); err != nil {
		return 0, err
	}

	var (
		count int
		err   error
	)
	since := period.Since(now)
	if since.IsZero() {
		err = db.conn.QueryRowContext(ctx,
			`SELECT count(*) FROM feed_records WHERE pet_id = ?`, petID).Scan(&count)
	} else {
		err = db.conn.QueryRowContext(ctx,
			`SELECT count(*) FROM feed_records WHERE pet_id = ? AND fed_at >= ?`, petID, since.UTC()).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("store: feed statistics: %w", err)
	}
	return count, nil
}

// ListFeeds returns the most recent feed records of a pet, newest first.
func (db *DB) ListFeeds(ctx context.Context, petID int64, limit int) ([]models.FeedRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, pet_id, fed_at, source
		FROM feed_records
		WHERE pet_id = ?
		ORDER BY fed_at DESC, id DESC
		LIMIT ?
	`, petID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list feeds: %w", err)
	}
	defer rows.Close()

	out := []models.FeedRecord{}
	for rows.Next() {
		var r models.FeedRecord
		if err := rows.Scan(&r.ID, &r.PetID, &r.FedAt, &r.Source); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
