package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, account NewAccount) (*models.User, error) {
	user := account.model()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUsername matches case-insensitively.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return repo.First[models.User](r.DB(ctx), "LOWER(username) = ?", NormalizeUsername(username))
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.First[models.User](r.DB(ctx), "email = ?", NormalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.First[models.User](r.DB(ctx), "id = ?", id)
}

// Taken reports which of username and email already belong to an account.
func (r *Repository) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	usernameTaken, err = repo.Exists[models.User](r.DB(ctx), "LOWER(username) = ?", NormalizeUsername(username))
	if err != nil {
		return false, false, err
	}
	emailTaken, err = repo.Exists[models.User](r.DB(ctx), "email = ?", NormalizeEmail(email))
	return usernameTaken, emailTaken, err
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.setColumn(ctx, id, "last_login_at", at)
}

// UpdatePasswordHash stores a hash re-encoded under stronger parameters.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.setColumn(ctx, id, "password_hash", hash)
}

// setColumn skips hooks and updated_at so bookkeeping writes do not look like
// profile edits.
func (r *Repository) setColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
