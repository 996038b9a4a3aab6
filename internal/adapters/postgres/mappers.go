package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/lumioapp/auth-service/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:            row.UserID,
		Email:             row.Email,
		PasswordHash:      row.PasswordHash,
		DisplayName:       row.DisplayName,
		EmailVerified:     row.EmailVerified,
		VerificationToken: row.VerificationToken,
		TokenExpiresAt:    row.TokenExpiresAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toUserModel(user domain.User) userModel {
	return userModel{
		UserID:            user.UserID,
		Email:             user.Email,
		PasswordHash:      user.PasswordHash,
		DisplayName:       user.DisplayName,
		EmailVerified:     user.EmailVerified,
		VerificationToken: user.VerificationToken,
		TokenExpiresAt:    user.TokenExpiresAt,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
