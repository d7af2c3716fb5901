package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"predictd/internal/domain"
	"predictd/internal/persist"
	"predictd/internal/store/memory"
)

// UserService registers and lists users.
type UserService struct {
	users  *memory.UserStore
	coord  *persist.Coordinator
	commit *CommitLock
	logger *slog.Logger
}

// NewUserService creates a UserService with all required dependencies.
func NewUserService(users *memory.UserStore, coord *persist.Coordinator, commit *CommitLock, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		coord:  coord,
		commit: commit,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// CreateUser registers a new user with the default starting balance. Ids are
// unique case-insensitively.
func (s *UserService) CreateUser(ctx context.Context, id string) (UserView, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	if strings.TrimSpace(id) == "" {
		return UserView{}, fmt.Errorf("%w: user id must not be empty", domain.ErrInvalidInput)
	}
	for _, u := range s.users.All() {
		if strings.EqualFold(u.ID, id) {
			return UserView{}, fmt.Errorf("%w: %q", domain.ErrDuplicateUser, id)
		}
	}

	user, err := domain.NewUser(id)
	if err != nil {
		return UserView{}, err
	}
	if err := s.users.Put(user); err != nil {
		return UserView{}, err
	}
	if err := s.coord.SaveAll(ctx); err != nil {
		return UserView{}, err
	}

	s.logger.InfoContext(ctx, "user created", slog.String("user_id", user.ID))
	return UserView{ID: user.ID}, nil
}

// ListUsers returns the public projection of every user.
func (s *UserService) ListUsers(ctx context.Context) ([]UserView, error) {
	views := []UserView{}
	for _, u := range s.users.All() {
		views = append(views, UserView{ID: u.ID})
	}
	return views, nil
}

// GetUser returns the "me" projection: balance and positions included.
func (s *UserService) GetUser(ctx context.Context, id string) (UserDetail, error) {
	user, err := s.users.Get(id)
	if err != nil {
		return UserDetail{}, err
	}
	return userDetail(user), nil
}
