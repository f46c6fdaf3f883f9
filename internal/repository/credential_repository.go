package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/recordstore"
)

// CredentialRepository defines persistence access for account credentials.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
}

type credentialRepository struct {
	store recordstore.Store
}

// NewCredentialRepository returns a record-store backed implementation.
func NewCredentialRepository(store recordstore.Store) CredentialRepository {
	return &credentialRepository{store: store}
}

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	if cred.Identity == "" {
		cred.Identity = uuid.NewString()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now()
	}

	_, err := r.store.Insert(ctx, recordstore.TableCredentials, recordstore.Row{
		"identity":      cred.Identity,
		"email":         cred.Email,
		"password_hash": cred.PasswordHash,
		"created_at":    cred.CreatedAt,
	})
	return err
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	rows, err := r.store.Query(ctx, recordstore.TableCredentials, recordstore.Filter{"email": email})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	row := rows[0]
	return &domain.Credential{
		Identity:     rowString(row["identity"]),
		Email:        rowString(row["email"]),
		PasswordHash: rowString(row["password_hash"]),
		CreatedAt:    rowTime(row["created_at"]),
	}, nil
}
