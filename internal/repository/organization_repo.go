package repository

import (
	"context"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

type OrganizationRepository struct {
	db DBTX
}

func NewOrganizationRepository(db DBTX) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	query := `
		SELECT id, public_name, business_name, username, branding_avatar_url, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var org models.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.PublicName,
		&org.BusinessName,
		&org.Username,
		&org.BrandingAvatarURL,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) GetMember(
	ctx context.Context,
	organizationID int64,
	userID string,
) (*models.OrganizationMember, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	var member models.OrganizationMember
	err := r.db.QueryRow(ctx, query, organizationID, userID).Scan(
		&member.OrganizationID,
		&member.UserID,
		&member.Role,
		&member.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *OrganizationRepository) ListMembers(
	ctx context.Context,
	organizationID int64,
) ([]models.OrganizationMember, error) {
	query := `
		SELECT organization_id, user_id, role, created_at
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY created_at ASC, user_id ASC
	`
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.OrganizationMember, 0)
	for rows.Next() {
		var member models.OrganizationMember
		if err := rows.Scan(
			&member.OrganizationID,
			&member.UserID,
			&member.Role,
			&member.CreatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
