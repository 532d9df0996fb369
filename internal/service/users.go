package service

import (
	"context"
	"strings"

	"opcdiary/internal/models"
	"opcdiary/internal/repository"
)

// UserService handles onboarding, login lookups and profile maintenance.
type UserService struct {
	users     repository.UserRepository
	directory *Directory
}

// NewUserService returns a new UserService. Names in directory cannot be
// claimed at onboarding.
func NewUserService(users repository.UserRepository, directory *Directory) *UserService {
	return &UserService{users: users, directory: directory}
}

// Register stores a freshly onboarded profile and remembers it as the last
// active user. A quota error is returned together with the accepted profile:
// registration succeeded for this session but may not survive a reload.
func (s *UserService) Register(ctx context.Context, profile models.UserProfile) (models.UserProfile, error) {
	profile.CompanyName = strings.TrimSpace(profile.CompanyName)
	if profile.CompanyName == "" {
		return models.UserProfile{}, models.NewValidationError("Company name is required")
	}
	if profile.Password == "" {
		return models.UserProfile{}, models.NewValidationError("Password is required")
	}
	if strings.Contains(profile.CompanyName, "_") {
		return models.UserProfile{}, models.NewValidationError("Company name cannot contain '_'")
	}
	if models.SameName(profile.CompanyName, SupervisorName) || s.directory.Reserves(profile.CompanyName) {
		return models.UserProfile{}, models.NewValidationError("Company name is reserved")
	}
	if _, exists := s.users.FindFold(ctx, profile.CompanyName); exists {
		return models.UserProfile{}, models.NewValidationError("Company name is already taken")
	}

	if err := s.users.Save(ctx, profile); err != nil {
		return profile, err
	}
	return profile, s.users.SetLastActive(ctx, profile.CompanyName)
}

// Authenticate matches name case-insensitively and password exactly. Every
// failure is the same models.ErrAuth.
func (s *UserService) Authenticate(ctx context.Context, name, password string) (models.UserProfile, error) {
	u, ok := s.users.FindFold(ctx, name)
	if !ok || u.Password != password {
		return models.UserProfile{}, models.ErrAuth
	}
	return u, nil
}

// Get returns the profile with the exact company name.
func (s *UserService) Get(ctx context.Context, name string) (models.UserProfile, error) {
	u, ok := s.users.Find(ctx, name)
	if !ok {
		return models.UserProfile{}, models.NewNotFoundError("User", name)
	}
	return u, nil
}

// List returns every profile in registration order.
func (s *UserService) List(ctx context.Context) []models.UserProfile {
	return s.users.List(ctx)
}

// Remembered returns the profile to prefill the login form with: the last
// active user, or else the most recently registered one.
func (s *UserService) Remembered(ctx context.Context) (models.UserProfile, bool) {
	if name, ok := s.users.LastActive(ctx); ok {
		if u, found := s.users.Find(ctx, name); found {
			return u, true
		}
	}
	users := s.users.List(ctx)
	if len(users) == 0 {
		return models.UserProfile{}, false
	}
	return users[len(users)-1], true
}

// UpdateProfile applies patch to name's profile. Only the owner or the
// supervisor may do so. The company name itself cannot change because every
// per-user key is derived from it.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, name string, patch models.ProfilePatch) (models.UserProfile, error) {
	if !actor.Supervisor && actor.Name != name {
		return models.UserProfile{}, models.NewForbiddenError("You can only edit your own profile")
	}
	u, ok := s.users.Find(ctx, name)
	if !ok {
		return models.UserProfile{}, models.NewNotFoundError("User", name)
	}
	if patch.Password != nil && *patch.Password == "" {
		return models.UserProfile{}, models.NewValidationError("Password cannot be empty")
	}
	patch.Apply(&u)
	return u, s.users.Save(ctx, u)
}

// Delete removes a user and cascades to their projects and supervisor
// mailbox. Supervisor only.
func (s *UserService) Delete(ctx context.Context, actor Actor, name string) error {
	if !actor.Supervisor {
		return models.NewForbiddenError("Only the supervisor can delete users")
	}
	deleted, err := s.users.Delete(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewNotFoundError("User", name)
	}
	return nil
}

// MarkActive remembers name as the last active user.
func (s *UserService) MarkActive(ctx context.Context, name string) error {
	return s.users.SetLastActive(ctx, name)
}

// ForgetActive clears the remembered last active user.
func (s *UserService) ForgetActive(ctx context.Context) error {
	return s.users.ClearLastActive(ctx)
}
