package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumioapp/auth-service/internal/domain"
)

// UserRepository is the user-store collaborator contract. The application
// layer never sees the backing storage; injection safety and schema mechanics
// live behind this boundary.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
}
