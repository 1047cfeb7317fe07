package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"syncmeet/internal/domain"
)

// CredentialRepository persiste los tokens OAuth de Google por usuario.
// Es deliberadamente angosto: la capa de calendario solo puede leer y
// reescribir tokens, nada mas del usuario.
type CredentialRepository interface {
	Get(ctx context.Context, userID string) (domain.GoogleCredential, error)
	Save(ctx context.Context, cred domain.GoogleCredential) error
	Clear(ctx context.Context, userID string) error
}

// PgCredentialRepository implementa CredentialRepository sobre la tabla users.
type PgCredentialRepository struct {
	pool *pgxpool.Pool
}

func NewPgCredentialRepository(pool *pgxpool.Pool) *PgCredentialRepository {
	return &PgCredentialRepository{pool: pool}
}

func (r *PgCredentialRepository) Get(ctx context.Context, userID string) (domain.GoogleCredential, error) {
	const query = `
		SELECT id, coalesce(google_access_token, ''), coalesce(google_refresh_token, ''), google_token_expiry
		FROM users
		WHERE id = $1
	`
	var cred domain.GoogleCredential
	var expiry *time.Time
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cred.UserID,
		&cred.AccessToken,
		&cred.RefreshToken,
		&expiry,
	)
	if err != nil {
		return domain.GoogleCredential{}, err
	}
	cred.Expiry = expiry
	return cred, nil
}

func (r *PgCredentialRepository) Save(ctx context.Context, cred domain.GoogleCredential) error {
	const query = `
		UPDATE users
		SET google_access_token = nullif($2, ''),
		    google_refresh_token = nullif($3, ''),
		    google_token_expiry = $4,
		    updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, cred.UserID, cred.AccessToken, cred.RefreshToken, cred.Expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCredentialRepository) Clear(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET google_access_token = NULL, google_refresh_token = NULL, google_token_expiry = NULL, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
