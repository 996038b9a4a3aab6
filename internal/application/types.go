package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/domain"
	"github.com/lumioapp/auth-service/internal/ports"
)

// RequestMeta carries transport-level facts the service needs for logging.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type SignupResponse struct {
	User             UserView        `json:"user"`
	EmailSent        bool            `json:"emailSent"`
	PasswordStrength domain.Strength `json:"passwordStrength"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User   UserView
	Tokens ports.TokenPair
}

type RefreshResponse struct {
	Tokens ports.TokenPair
}

// UserView is the client-safe projection of a user record. The password hash
// never leaves the application layer.
type UserView struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:            u.UserID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}
