package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"educonnect/internal/model"
)

// CredentialRepository defines sign-in secret persistence operations.
type CredentialRepository interface {
	Create(ctx context.Context, cred *model.Credential) error
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	FindByPrincipalID(ctx context.Context, principalID string) (*model.Credential, error)
	UpdateHash(ctx context.Context, principalID, hash string) error
	UpdateEmail(ctx context.Context, principalID, email string) error
	Delete(ctx context.Context, principalID string) error
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository builds a GORM-backed repository.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	cred.Email = strings.ToLower(strings.TrimSpace(cred.Email))
	return r.db.WithContext(ctx).Create(cred).Error
}

func (r *credentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var cred model.Credential
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&cred).Error; err != nil {
		return nil, classify(err)
	}
	return &cred, nil
}

func (r *credentialRepository) FindByPrincipalID(ctx context.Context, principalID string) (*model.Credential, error) {
	var cred model.Credential
	if err := r.db.WithContext(ctx).Where("principal_id = ?", principalID).First(&cred).Error; err != nil {
		return nil, classify(err)
	}
	return &cred, nil
}

func (r *credentialRepository) UpdateHash(ctx context.Context, principalID, hash string) error {
	return r.update(ctx, principalID, "password_hash", hash)
}

func (r *credentialRepository) UpdateEmail(ctx context.Context, principalID, email string) error {
	return r.update(ctx, principalID, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *credentialRepository) update(ctx context.Context, principalID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&model.Credential{}).
		Where("principal_id = ?", principalID).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes the credential. A missing credential is not an error.
func (r *credentialRepository) Delete(ctx context.Context, principalID string) error {
	return r.db.WithContext(ctx).Where("principal_id = ?", principalID).Delete(&model.Credential{}).Error
}
