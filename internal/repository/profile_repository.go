package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/retina-portal/internal/domain"
	"github.com/spec-kit/retina-portal/internal/recordstore"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ProfileRepository defines persistence access for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, identity string) (*domain.Profile, error)
}

type profileRepository struct {
	store recordstore.Store
}

// NewProfileRepository returns a record-store backed implementation.
func NewProfileRepository(store recordstore.Store) ProfileRepository {
	return &profileRepository{store: store}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	row := recordstore.Row{
		"id":         profile.ID,
		"user_type":  string(profile.UserType),
		"full_name":  profile.FullName,
		"email":      profile.Email,
		"created_at": profile.CreatedAt,
	}
	if profile.Phone != nil {
		row["phone"] = *profile.Phone
	}
	if profile.Specialization != nil {
		row["specialization"] = *profile.Specialization
	}
	if profile.ExperienceYears != nil {
		row["experience_years"] = *profile.ExperienceYears
	}
	if profile.AvatarURL != nil {
		row["avatar_url"] = *profile.AvatarURL
	}

	_, err := r.store.Insert(ctx, recordstore.TableProfiles, row)
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, identity string) (*domain.Profile, error) {
	rows, err := r.store.Query(ctx, recordstore.TableProfiles, recordstore.Filter{"id": identity})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return profileFromRow(rows[0]), nil
}

func profileFromRow(row recordstore.Row) *domain.Profile {
	p := &domain.Profile{
		ID:              rowString(row["id"]),
		UserType:        domain.UserType(rowString(row["user_type"])),
		FullName:        rowString(row["full_name"]),
		Email:           rowString(row["email"]),
		Phone:           rowStringPtr(row["phone"]),
		Specialization:  rowStringPtr(row["specialization"]),
		ExperienceYears: rowIntPtr(row["experience_years"]),
		AvatarURL:       rowStringPtr(row["avatar_url"]),
		CreatedAt:       rowTime(row["created_at"]),
	}
	return p
}
