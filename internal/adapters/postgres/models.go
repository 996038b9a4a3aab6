package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID            uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string     `gorm:"column:email"`
	PasswordHash      string     `gorm:"column:password_hash"`
	DisplayName       string     `gorm:"column:display_name"`
	EmailVerified     bool       `gorm:"column:email_verified"`
	VerificationToken *string    `gorm:"column:verification_token"`
	TokenExpiresAt    *time.Time `gorm:"column:token_expires_at"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }
