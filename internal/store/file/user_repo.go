package file

import (
	"context"
	"fmt"
	"path/filepath"

	"predictd/internal/domain"
)

// UserRepository persists users, including their positions, to users.json.
type UserRepository struct {
	path string
}

// NewUserRepository creates a UserRepository rooted at dir.
func NewUserRepository(dir string) *UserRepository {
	return &UserRepository{path: filepath.Join(dir, usersFile)}
}

// LoadAll reads every persisted user. A missing snapshot yields an empty
// collection.
func (r *UserRepository) LoadAll(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := readCollection(r.path, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Positions == nil {
			u.Positions = make(map[string]*domain.Position)
		}
	}
	return users, nil
}

// SaveAll atomically replaces the user snapshot.
func (r *UserRepository) SaveAll(ctx context.Context, users []*domain.User) error {
	if users == nil {
		users = []*domain.User{}
	}
	return writeAtomic(r.path, users)
}

// LoadByID scans the snapshot for a single user.
func (r *UserRepository) LoadByID(ctx context.Context, id string) (*domain.User, error) {
	users, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}
