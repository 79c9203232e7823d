package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// StoredToken is an OAuth token persisted for one music service.
type StoredToken struct {
	ID        string
	Sequence  int
	Service   string
	Token     *oauth2.Token
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenRepository persists OAuth tokens keyed by service name.
//
// Each service holds at most one token; saving again replaces it in place.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save inserts or replaces the token for service.
func (r *TokenRepository) Save(service string, token *oauth2.Token) error {
	if service == "" {
		return fmt.Errorf("%w: service is required", shared.ErrInvalidInput)
	}
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidInput)
	}

	existing, err := r.Get(service)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return r.create(service, token)
	case err != nil:
		return err
	}

	query := `
		UPDATE tokens
		SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = existing.Token.RefreshToken
	}

	if _, err := r.db.Exec(query, token.AccessToken, refresh, token.TokenType, nullTime(token.Expiry), time.Now(), existing.ID); err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return nil
}

func (r *TokenRepository) create(service string, token *oauth2.Token) error {
	sequence, err := NextSequence(r.db, "tokens")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO tokens (id, sequence, service, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		shared.GenerateID(),
		sequence,
		service,
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		nullTime(token.Expiry),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// Get returns the stored token for service or [shared.ErrNotAuthenticated].
func (r *TokenRepository) Get(service string) (*StoredToken, error) {
	query := `
		SELECT id, sequence, service, access_token, refresh_token, token_type, expiry, created_at, updated_at
		FROM tokens
		WHERE service = ?
	`
	return r.scanOne(r.db.QueryRow(query, service))
}

// Token satisfies the token store used by service clients.
func (r *TokenRepository) Token(service string) (*oauth2.Token, error) {
	stored, err := r.Get(service)
	if err != nil {
		return nil, err
	}
	return stored.Token, nil
}

// List returns every stored token ordered by sequence.
func (r *TokenRepository) List() ([]*StoredToken, error) {
	query := `
		SELECT id, sequence, service, access_token, refresh_token, token_type, expiry, created_at, updated_at
		FROM tokens
		ORDER BY sequence ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*StoredToken
	for rows.Next() {
		token, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}
	return tokens, nil
}

// Delete removes the token for service.
func (r *TokenRepository) Delete(service string) error {
	result, err := r.db.Exec("DELETE FROM tokens WHERE service = ?", service)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, service)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *TokenRepository) scanOne(row *sql.Row) (*StoredToken, error) {
	token, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored token", shared.ErrNotAuthenticated)
	}
	return token, err
}

func (r *TokenRepository) scanRow(s scanner) (*StoredToken, error) {
	var (
		stored StoredToken
		token  oauth2.Token
		expiry sql.NullTime
	)

	err := s.Scan(
		&stored.ID,
		&stored.Sequence,
		&stored.Service,
		&token.AccessToken,
		&token.RefreshToken,
		&token.TokenType,
		&expiry,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	stored.Token = &token
	return &stored, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
