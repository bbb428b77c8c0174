package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"healthcrm/internal/common"
	"healthcrm/internal/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

const (
	insertUserQuery = `
		INSERT INTO users (id, email, name, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (email) DO NOTHING
	`
	selectUserByIDQuery = `
		SELECT id, email, name, password_hash, roles, created_at
		FROM users
		WHERE id = $1
	`
	selectUserByEmailQuery = `
		SELECT id, email, name, password_hash, roles, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`
	listUsersQuery = `
		SELECT id, email, name, password_hash, roles, created_at
		FROM users
		ORDER BY name
		LIMIT $1 OFFSET $2
	`
)

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	tag, err := r.db.Exec(ctx, insertUserQuery, user.ID, user.Email, user.Name, user.PasswordHash, user.Roles)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user with email '%s' already exists", common.ErrValidation, user.Email)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, selectUserByIDQuery, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Roles, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, selectUserByEmailQuery, email).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Roles, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, listUsersQuery, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Roles, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type memoryUserRepo struct {
	mu    sync.RWMutex
	users []*models.User
}

// NewMemoryUserRepo keeps users in process memory.
func NewMemoryUserRepo() UserRepository {
	return &memoryUserRepo{}
}

func (r *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: user with email '%s' already exists", common.ErrValidation, user.Email)
		}
	}
	u := *user
	u.Roles = slices.Clone(user.Roles)
	r.users = append(r.users, &u)
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryUserRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := slices.Clone(r.users)
	slices.SortFunc(sorted, func(a, b *models.User) int { return strings.Compare(a.Name, b.Name) })

	users := make([]*models.User, 0)
	for i := offset; i < len(sorted) && len(users) < limit; i++ {
		u := *sorted[i]
		users = append(users, &u)
	}
	return users, nil
}
