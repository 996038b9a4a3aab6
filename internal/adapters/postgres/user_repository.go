package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumioapp/auth-service/internal/domain"
	"github.com/lumioapp/auth-service/internal/ports"
)

// UserRepository is the durable user store. Uniqueness of email is enforced by
// the schema; the repository translates the violation to domain.ErrConflict.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("verification_token = ?", token).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	rec := toUserModel(user)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) (domain.User, error) {
	rec := toUserModel(user)
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", rec.UserID).
		Updates(map[string]any{
			"email":              rec.Email,
			"password_hash":      rec.PasswordHash,
			"display_name":       rec.DisplayName,
			"email_verified":     rec.EmailVerified,
			"verification_token": rec.VerificationToken,
			"token_expires_at":   rec.TokenExpiresAt,
			"updated_at":         rec.UpdatedAt,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}
