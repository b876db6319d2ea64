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

const petColumns = `id, name, age, photo, feed_count, experience, level, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPet(row rowScanner) (*models.Pet, error) {
	var p models.Pet
	if err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Photo, &p.FeedCount, &p.Experience, &p.Level, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePet inserts a new pet at experience zero.
func (db *DB) CreatePet(ctx context.Context, name string, age int, photo string) (*models.Pet, error) {
	now := time.Now().UTC()
	level := models.LevelFor(0)
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO pets (name, age, photo, feed_count, experience, level, created_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)
	`, name, age, photo, level, now)
	if err != nil {
		return nil, fmt.Errorf("store: insert pet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: pet id: %w", err)
	}
	return &models.Pet{
		ID:        id,
		Name:      name,
		Age:       age,
		Photo:     photo,
		Level:     level,
		CreatedAt: now,
	}, nil
}

// GetPet returns the pet or apperr.ErrNotFound.
func (db *DB) GetPet(ctx context.Context, id int64) (*models.Pet, error) {
	p, err := scanPet(db.conn.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get pet: %w", err)
	}
	return p, nil
}

// ListPets returns every pet ordered by id.
func (db *DB) ListPets(ctx context.Context) ([]models.Pet, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+petColumns+` FROM pets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list pets: %w", err)
	}
	defer rows.Close()

	out := []models.Pet{}
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeletePet removes the pet; feed records and triggers go with it through
// the ON DELETE CASCADE foreign keys.
func (db *DB) DeletePet(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM pets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete pet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetPhoto replaces the photo reference of a pet.
func (db *DB) SetPhoto(ctx context.Context, id int64, photo string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE pets SET photo = ? WHERE id = ?`, photo, id)
	if err != nil {
		return fmt.Errorf("store: set photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ClearPhotoRef blanks the photo reference on every pet pointing at photo
// and returns the affected pet ids.
func (db *DB) ClearPhotoRef(ctx context.Context, photo string) ([]int64, error) {
	if photo == "" {
		return nil, nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT id FROM pets WHERE photo = ?`, photo)
	if err != nil {
		return nil, fmt.Errorf("store: find photo refs: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE pets SET photo = '' WHERE photo = ?`, photo); err != nil {
		return nil, fmt.Errorf("store: clear photo refs: %w", err)
	}
	return ids, tx.Commit()
}
