package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/security"
	"github.com/kodacci/o-monitor-rest/internal/user/domain"
	"github.com/kodacci/o-monitor-rest/internal/user/repository"
)

// Password length bounds for the users API.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 255
)

// DefaultUserName is the display name of the bootstrap administrator.
const DefaultUserName = "admin"

// UserData is the outward view of a user. The password hash and session identifier are never included.
type UserData struct {
	ID        int64            `json:"id"`
	Login     string           `json:"login"`
	Name      string           `json:"name"`
	Email     string           `json:"email,omitempty"`
	Privilege domain.Privilege `json:"privilege"`
	Deleted   bool             `json:"deleted"`
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
	DeletedAt *time.Time       `json:"deletedAt,omitempty"`
}

// CreateInput holds the fields of a new user.
type CreateInput struct {
	Login     string
	Name      string
	Email     string
	Password  string
	Privilege domain.Privilege
}

// UpdateInput holds a partial update; nil fields are left unchanged. Login is immutable.
type UpdateInput struct {
	Name      *string
	Email     *string
	Password  *string
	Privilege *domain.Privilege
}

// CountResult is returned by Count and Delete.
type CountResult struct {
	Count int64 `json:"count"`
}

// UserService manages user records.
type UserService struct {
	repo   repository.Repository
	hasher security.PasswordHasher
	logger *slog.Logger
}

func NewUserService(repo repository.Repository, hasher security.PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, logger: logger.With("component", "users")}
}

func (s *UserService) FindAll(ctx context.Context) ([]UserData, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "list users")
	}
	out := make([]UserData, 0, len(users))
	for _, u := range users {
		out = append(out, toData(u))
	}
	return out, nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*UserData, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := toData(u)
	return &d, nil
}

// Create validates in, hashes the password and stores a new user. Logins are unique among live users.
func (s *UserService) Create(ctx context.Context, in CreateInput) (*UserData, error) {
	u := &domain.User{
		Login:     in.Login,
		Name:      in.Name,
		Email:     in.Email,
		Privilege: in.Privilege,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, err.Error())
	}
	if err := s.ensureLoginFree(ctx, u.Login); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "create user")
	}
	s.logger.Info("user created", "user_id", u.ID, "login", u.Login, "privilege", u.Privilege)
	d := toData(u)
	return &d, nil
}

// Update applies the non-nil fields of in. A new password is hashed before storing.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateInput) (*UserData, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Privilege != nil {
		u.Privilege = *in.Privilege
	}
	if err := u.Validate(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, err.Error())
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "update user")
	}
	d := toData(u)
	return &d, nil
}

// Delete soft-deletes the user and reports how many records were affected (0 or 1).
func (s *UserService) Delete(ctx context.Context, id int64) (CountResult, error) {
	n, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return CountResult{}, apperr.Wrap(err, apperr.CodeUserRepository, "delete user")
	}
	if n > 0 {
		s.logger.Info("user deleted", "user_id", id)
	}
	return CountResult{Count: n}, nil
}

func (s *UserService) Count(ctx context.Context) (CountResult, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return CountResult{}, apperr.Wrap(err, apperr.CodeUserRepository, "count users")
	}
	return CountResult{Count: n}, nil
}

// EnsureDefaultUser creates an ADMIN with the given credentials when no users exist.
// It reports whether a user was created.
func (s *UserService) EnsureDefaultUser(ctx context.Context, login, password string) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeUserRepository, "count users")
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Create(ctx, CreateInput{
		Login:     login,
		Name:      DefaultUserName,
		Password:  password,
		Privilege: domain.PrivilegeAdmin,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "find user by id")
	}
	if u == nil {
		return nil, apperr.Newf(apperr.CodeNotFound, "user %d not found", id)
	}
	return u, nil
}

func (s *UserService) ensureLoginFree(ctx context.Context, login string) error {
	existing, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUserRepository, "find user by login")
	}
	if existing != nil {
		return apperr.Newf(apperr.CodeBadRequest, "login %q is already taken", login)
	}
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return "", apperr.New(apperr.CodeBadRequest, "password must be between 8 and 255 characters")
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		if errors.Is(err, security.ErrEmptyPassword) {
			return "", apperr.Wrap(err, apperr.CodeBadRequest, "password is empty")
		}
		return "", apperr.Wrap(err, apperr.CodeUnknown, "hash password")
	}
	return hash, nil
}

func toData(u *domain.User) UserData {
	d := UserData{
		ID:        u.ID,
		Login:     u.Login,
		Name:      u.Name,
		Email:     u.Email,
		Privilege: u.Privilege,
		Deleted:   u.Deleted,
		DeletedAt: u.DeletedAt,
	}
	if !u.CreatedAt.IsZero() {
		t := u.CreatedAt
		d.CreatedAt = &t
	}
	if !u.UpdatedAt.IsZero() {
		t := u.UpdatedAt
		d.UpdatedAt = &t
	}
	return d
}
