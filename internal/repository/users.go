package repository

import (
	"context"

	"opcdiary/internal/codec"
	"opcdiary/internal/kvstore"
	"opcdiary/internal/models"
)

// UserRepository persists the registered profiles as one ordered list
// (registration order) and remembers the last user to log in.
type UserRepository interface {
	List(ctx context.Context) []models.UserProfile
	// Find matches the company name exactly.
	Find(ctx context.Context, name string) (models.UserProfile, bool)
	// FindFold matches case-insensitively, as login does.
	FindFold(ctx context.Context, name string) (models.UserProfile, bool)
	// Save replaces the profile with the same exact company name or appends it.
	Save(ctx context.Context, profile models.UserProfile) error
	SaveAll(ctx context.Context, profiles []models.UserProfile) error
	// Delete removes the profile together with its projects and supervisor
	// mailbox. Peer threads and connection edges are left as they are.
	Delete(ctx context.Context, name string) (bool, error)

	LastActive(ctx context.Context) (string, bool)
	SetLastActive(ctx context.Context, name string) error
	ClearLastActive(ctx context.Context) error
}

type userRepository struct {
	users *family[[]models.UserProfile]
	store kvstore.Store
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(store kvstore.Store, c codec.Codec) UserRepository {
	return &userRepository{
		users: newFamily("users", store, c, emptySlice[models.UserProfile](), normalizeSlice[models.UserProfile](nil)),
		store: store,
	}
}

func (r *userRepository) List(ctx context.Context) []models.UserProfile {
	return r.users.load(ctx, UsersKey)
}

func (r *userRepository) Find(ctx context.Context, name string) (models.UserProfile, bool) {
	for _, u := range r.List(ctx) {
		if u.CompanyName == name {
			return u, true
		}
	}
	return models.UserProfile{}, false
}

func (r *userRepository) FindFold(ctx context.Context, name string) (models.UserProfile, bool) {
	for _, u := range r.List(ctx) {
		if models.SameName(u.CompanyName, name) {
			return u, true
		}
	}
	return models.UserProfile{}, false
}

func (r *userRepository) Save(ctx context.Context, profile models.UserProfile) error {
	users := r.List(ctx)
	replaced := false
	for i := range users {
		if users[i].CompanyName == profile.CompanyName {
			users[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, profile)
	}
	return r.users.save(ctx, UsersKey, users)
}

func (r *userRepository) SaveAll(ctx context.Context, profiles []models.UserProfile) error {
	return r.users.save(ctx, UsersKey, profiles)
}

func (r *userRepository) Delete(ctx context.Context, name string) (bool, error) {
	users := r.List(ctx)
	kept := make([]models.UserProfile, 0, len(users))
	for _, u := range users {
		if u.CompanyName != name {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return false, nil
	}
	if err := r.users.save(ctx, UsersKey, kept); err != nil {
		return false, err
	}
	if err := r.users.remove(ctx, ProjectsKey(name)); err != nil {
		return true, err
	}
	if err := r.users.remove(ctx, InstructionsKey(name)); err != nil {
		return true, err
	}
	if last, ok := r.LastActive(ctx); ok && last == name {
		if err := r.ClearLastActive(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (r *userRepository) LastActive(ctx context.Context) (string, bool) {
	v, ok, err := r.store.Get(ctx, LastActiveUserKey)
	if err != nil {
		r.users.log.LogError(ctx, err, "load", LastActiveUserKey)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *userRepository) SetLastActive(ctx context.Context, name string) error {
	if err := r.store.Set(ctx, LastActiveUserKey, name); err != nil {
		return r.users.wrapSetError(ctx, LastActiveUserKey, len(name), err)
	}
	return nil
}

func (r *userRepository) ClearLastActive(ctx context.Context) error {
	return r.users.remove(ctx, LastActiveUserKey)
}
