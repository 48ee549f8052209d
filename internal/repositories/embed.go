package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/shared"
)

// EmbedRepository implements [models.Repository] for [models.Embed] persistence.
type EmbedRepository struct {
	db *sql.DB
}

// NewEmbedRepository creates a new [EmbedRepository] with the given database connection
func NewEmbedRepository(db *sql.DB) *EmbedRepository {
	return &EmbedRepository{db: db}
}

// Create inserts a new embed registration with a generated ID.
func (r *EmbedRepository) Create(embed *models.Embed) error {
	if err := embed.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	embed.SetID(id)

	query := `
		INSERT INTO embeds (id, user_id, kind, theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, embed.UserID(), embed.Kind(), embed.Theme(), embed.CreatedAt(), embed.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert embed: %w", err)
	}

	return nil
}

// Get retrieves an embed by ID, excluding revoked embeds.
func (r *EmbedRepository) Get(id string) (*models.Embed, error) {
	query := `
		SELECT id, user_id, kind, theme, created_at, updated_at, revoked_at
		FROM embeds
		WHERE id = ? AND revoked_at IS NULL
	`

	var (
		embedID   string
		userID    string
		kind      string
		theme     string
		createdAt time.Time
		updatedAt time.Time
		revokedAt sql.NullTime
	)

	err := r.db.QueryRow(query, id).Scan(&embedID, &userID, &kind, &theme, &createdAt, &updatedAt, &revokedAt)
	if err != nil {
		return nil, scanErr(err, "embed", id)
	}

	embed := models.NewEmbed(userID, kind, theme)
	embed.SetID(embedID)
	embed.SetCreatedAt(createdAt)
	embed.SetUpdatedAt(updatedAt)
	if revokedAt.Valid {
		embed.SetRevokedAt(&revokedAt.Time)
	}

	return embed, nil
}

// Update modifies an existing embed's theme.
func (r *EmbedRepository) Update(embed *models.Embed) error {
	if err := embed.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	embed.SetUpdatedAt(now)

	query := `
		UPDATE embeds
		SET theme = ?, updated_at = ?
		WHERE id = ? AND revoked_at IS NULL
	`

	result, err := r.db.Exec(query, embed.Theme(), now, embed.ID())
	if err != nil {
		return fmt.Errorf("failed to update embed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("embed %s: %w", embed.ID(), ErrNotFound)
	}

	return nil
}

// Delete revokes an embed by ID (soft delete).
func (r *EmbedRepository) Delete(id string) error {
	now := time.Now()

	result, err := r.db.Exec("UPDATE embeds SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", now, id)
	if err != nil {
		return fmt.Errorf("failed to revoke embed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("embed %s: %w", id, ErrNotFound)
	}

	return nil
}

// Authorize reports whether the embed id belongs to the given user and is
// still active. Embed requests must pass this check before any upstream call.
func (r *EmbedRepository) Authorize(embedID, userID string) (*models.Embed, error) {
	embed, err := r.Get(embedID)
	if err != nil {
		return nil, err
	}
	if embed.UserID() != userID {
		return nil, fmt.Errorf("embed %s does not belong to user %s: %w", embedID, userID, ErrNotFound)
	}
	return embed, nil
}

// ListForUser returns all active embeds owned by the given user.
func (r *EmbedRepository) ListForUser(userID string) ([]*models.Embed, error) {
	query := `
		SELECT id, user_id, kind, theme, created_at, updated_at
		FROM embeds
		WHERE user_id = ? AND revoked_at IS NULL
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeds: %w", err)
	}
	defer rows.Close()

	var embeds []*models.Embed
	for rows.Next() {
		var (
			embedID   string
			uid       string
			kind      string
			theme     string
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&embedID, &uid, &kind, &theme, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan embed: %w", err)
		}

		embed := models.NewEmbed(uid, kind, theme)
		embed.SetID(embedID)
		embed.SetCreatedAt(createdAt)
		embed.SetUpdatedAt(updatedAt)
		embeds = append(embeds, embed)
	}

	return embeds, rows.Err()
}
