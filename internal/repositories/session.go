package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tempoapp/tempo/internal/models"
	"github.com/tempoapp/tempo/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
//
// It is the store of record for authenticated sessions: the OAuth callback
// creates rows, the accessor reads them, token refreshes update them and
// sign-out deletes them.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session with a generated ID.
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)

	query := `
		INSERT INTO sessions (id, user_id, access_token, refresh_token, token_expiry, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var tokenExpiry any
	if !session.TokenExpiry().IsZero() {
		tokenExpiry = session.TokenExpiry()
	}

	_, err := r.db.Exec(query, id, session.UserID(), session.AccessToken(), session.RefreshToken(),
		tokenExpiry, session.CreatedAt(), session.UpdatedAt(), session.ExpiresAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID. Expired sessions are returned as not found
// and removed opportunistically.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, access_token, refresh_token, token_expiry, created_at, updated_at, expires_at
		FROM sessions
		WHERE id = ?
	`

	var (
		sessionID    string
		userID       string
		accessToken  string
		refreshToken string
		tokenExpiry  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		expiresAt    time.Time
	)

	err := r.db.QueryRow(query, id).Scan(&sessionID, &userID, &accessToken, &refreshToken,
		&tokenExpiry, &createdAt, &updatedAt, &expiresAt)
	if err != nil {
		return nil, scanErr(err, "session", id)
	}

	var expiry time.Time
	if tokenExpiry.Valid {
		expiry = tokenExpiry.Time
	}

	session := models.NewSession(userID, accessToken, refreshToken, expiry, expiresAt)
	session.SetID(sessionID)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)

	if session.Expired() {
		_ = r.Delete(sessionID)
		return nil, fmt.Errorf("session %s expired: %w", id, ErrNotFound)
	}

	return session, nil
}

// GetForUser retrieves the user's most recently refreshed unexpired session.
// Embed rendering resolves the owner's delegated token through this lookup.
func (r *SessionRepository) GetForUser(userID string) (*models.Session, error) {
	query := `
		SELECT id
		FROM sessions
		WHERE user_id = ? AND expires_at > ?
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var sessionID string
	if err := r.db.QueryRow(query, userID, time.Now()).Scan(&sessionID); err != nil {
		return nil, scanErr(err, "session for user", userID)
	}

	return r.Get(sessionID)
}

// Update persists token changes for an existing session.
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, token_expiry = ?, updated_at = ?
		WHERE id = ?
	`

	var tokenExpiry any
	if !session.TokenExpiry().IsZero() {
		tokenExpiry = session.TokenExpiry()
	}

	result, err := r.db.Exec(query, session.AccessToken(), session.RefreshToken(), tokenExpiry, now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", session.ID(), ErrNotFound)
	}

	return nil
}

// Delete removes a session by ID. Deleting an absent session is not an error,
// which keeps sign-out idempotent.
func (r *SessionRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteForUser removes every session belonging to the given user.
func (r *SessionRepository) DeleteForUser(userID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}
