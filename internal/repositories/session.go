package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/xferctl/internal/providers"
	"github.com/desertthunder/xferctl/internal/shared"
	"golang.org/x/oauth2"
)

// Connection is a provider account linked to the session.
type Connection struct {
	Provider    providers.Provider `json:"provider"`
	Account     string             `json:"account,omitempty"`
	ConnectedAt time.Time          `json:"connectedAt"`
}

// SessionRepository stores the single session token and its provider connections.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// SaveToken stores tok, replacing any previous session token.
func (r *SessionRepository) SaveToken(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return shared.ErrMissingToken
	}

	query := `
		INSERT INTO sessions (id, access_token, token_type, expiry, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	now := r.now()
	expiry := sql.NullTime{Time: tok.Expiry, Valid: !tok.Expiry.IsZero()}
	if _, err := r.db.Exec(query, tok.AccessToken, tok.Type(), expiry, now, now); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// Token returns the stored token, or [shared.ErrMissingToken] when nobody is signed in.
func (r *SessionRepository) Token() (*oauth2.Token, error) {
	query := `SELECT access_token, token_type, expiry FROM sessions WHERE id = 1`

	var (
		accessToken string
		tokenType   string
		expiry      sql.NullTime
	)

	err := r.db.QueryRow(query).Scan(&accessToken, &tokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrMissingToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session token: %w", err)
	}

	tok := &oauth2.Token{AccessToken: accessToken, TokenType: tokenType}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	return tok, nil
}

// AuthToken returns the bearer token to send to the transfer API.
func (r *SessionRepository) AuthToken() (string, error) {
	tok, err := r.Token()
	if err != nil {
		return "", err
	}
	if !tok.Valid() {
		return "", fmt.Errorf("%w: expired at %s", shared.ErrTokenExpired, tok.Expiry.Format(time.RFC3339))
	}
	return tok.AccessToken, nil
}

// Connect links a provider account, reviving a previous connection for the same provider.
func (r *SessionRepository) Connect(p providers.Provider, account string) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidProvider, p)
	}

	query := `
		INSERT INTO connections (provider, account, connected_at, deleted_at)
		VALUES (?, ?, ?, NULL)
		ON CONFLICT(provider) DO UPDATE SET
			account = excluded.account,
			connected_at = excluded.connected_at,
			deleted_at = NULL
	`

	if _, err := r.db.Exec(query, p.String(), account, r.now()); err != nil {
		return fmt.Errorf("failed to connect %s: %w", p.Name(), err)
	}
	return nil
}

// Disconnect soft-deletes the connection for p.
func (r *SessionRepository) Disconnect(p providers.Provider) error {
	query := `
		UPDATE connections
		SET deleted_at = ?
		WHERE provider = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, r.now(), p.String())
	if err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", p.Name(), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotConnected, p.Name())
	}
	return nil
}

// IsConnected reports whether p has a live connection. Query errors count as disconnected.
func (r *SessionRepository) IsConnected(p providers.Provider) bool {
	query := `SELECT COUNT(*) FROM connections WHERE provider = ? AND deleted_at IS NULL`

	var count int
	if err := r.db.QueryRow(query, p.String()).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// Connections lists live connections ordered by provider.
func (r *SessionRepository) Connections() ([]Connection, error) {
	query := `
		SELECT provider, account, connected_at
		FROM connections
		WHERE deleted_at IS NULL
		ORDER BY provider
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var (
			provider string
			c        Connection
		)
		if err := rows.Scan(&provider, &c.Account, &c.ConnectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		c.Provider = providers.Provider(provider)
		conns = append(conns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return conns, nil
}

// Clear signs out: the token is removed and every connection is soft-deleted.
func (r *SessionRepository) Clear() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if _, err := tx.Exec(`UPDATE connections SET deleted_at = ? WHERE deleted_at IS NULL`, r.now()); err != nil {
		return fmt.Errorf("failed to clear connections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sign out: %w", err)
	}
	return nil
}
