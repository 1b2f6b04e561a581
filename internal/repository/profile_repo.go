package repository

import (
	"context"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, full_name, username, avatar_url, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Username,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, username, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		profile.ID,
		profile.FullName,
		profile.Username,
		profile.AvatarURL,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}
