package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ratebot/internal/models"
	"github.com/desertthunder/ratebot/internal/shared"
)

// ReactionRepository persists ratings.
//
// At most one reaction exists per (track, user); [ReactionRepository.Add] and
// [ReactionRepository.Remove] check and mutate inside one transaction.
type ReactionRepository struct {
	db *sql.DB
}

// NewReactionRepository creates a new ReactionRepository with the given database connection
func NewReactionRepository(db *sql.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Add inserts reaction with a generated ID.
//
// Fails with [shared.ErrReactionExists] when the user already rated the track.
func (r *ReactionRepository) Add(reaction *models.Reaction) error {
	if err := reaction.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		existing, err := findReaction(tx, reaction.TrackID, reaction.User)
		if err != nil && !errors.Is(err, shared.ErrReactionNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s already rated %s with %d", shared.ErrReactionExists, reaction.User, reaction.TrackID, existing.Value)
		}

		reaction.ID = shared.GenerateID()
		if reaction.CreatedAt.IsZero() {
			reaction.CreatedAt = time.Now().UTC()
		}

		query := `
			INSERT INTO reactions (id, song_id, user, reaction, created_at)
			VALUES (?, ?, ?, ?, ?)
		`

		if _, err := tx.Exec(query, reaction.ID, reaction.TrackID, reaction.User, reaction.Value, reaction.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert reaction: %w", err)
		}
		return nil
	})
}

// Remove deletes the user's reaction on a track when its stored value equals value.
//
// Fails with [shared.ErrReactionNotFound] when there is nothing to remove and
// with [shared.ErrReactionMismatch] when the stored value differs.
func (r *ReactionRepository) Remove(trackID, user string, value int) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		existing, err := findReaction(tx, trackID, user)
		if err != nil {
			return err
		}

		if existing.Value != value {
			return fmt.Errorf("%w: stored %d, removed %d", shared.ErrReactionMismatch, existing.Value, value)
		}

		if _, err := tx.Exec("DELETE FROM reactions WHERE id = ?", existing.ID); err != nil {
			return fmt.Errorf("failed to delete reaction: %w", err)
		}
		return nil
	})
}

// Get retrieves the user's reaction on a track.
func (r *ReactionRepository) Get(trackID, user string) (*models.Reaction, error) {
	return findReaction(r.db, trackID, user)
}

// ListForTrack returns all reactions on a track in the order they were made.
func (r *ReactionRepository) ListForTrack(trackID string) ([]models.Reaction, error) {
	query := `
		SELECT id, song_id, user, reaction, created_at
		FROM reactions
		WHERE song_id = ?
		ORDER BY rowid ASC
	`

	rows, err := r.db.Query(query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var reaction models.Reaction
		if err := rows.Scan(&reaction.ID, &reaction.TrackID, &reaction.User, &reaction.Value, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		reactions = append(reactions, reaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return reactions, nil
}

// Count returns the total number of stored reactions.
func (r *ReactionRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM reactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reactions: %w", err)
	}
	return count, nil
}

type rowQueryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func findReaction(q rowQueryer, trackID, user string) (*models.Reaction, error) {
	query := `
		SELECT id, song_id, user, reaction, created_at
		FROM reactions
		WHERE song_id = ? AND user = ?
		LIMIT 1
	`

	var reaction models.Reaction
	err := q.QueryRow(query, trackID, user).
		Scan(&reaction.ID, &reaction.TrackID, &reaction.User, &reaction.Value, &reaction.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrReactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reaction: %w", err)
	}

	return &reaction, nil
}
