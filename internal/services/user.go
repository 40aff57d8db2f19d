package services

import (
	"context"
	"errors"

	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

var ErrInvalidRole = errors.New("invalid role")

// AccountRepository defines persistence operations for user accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// RoleStore defines persistence operations for role assignments.
type RoleStore interface {
	Get(ctx context.Context, userID string) (string, error)
	Exists(ctx context.Context, userID string) (bool, error)
	Set(ctx context.Context, userID, role string) (types.UserRole, error)
}

// PreferencesStore defines persistence operations for user preferences.
type PreferencesStore interface {
	Get(ctx context.Context, userID string) (types.UserPreferences, error)
	Upsert(ctx context.Context, prefs types.UserPreferences) (types.UserPreferences, error)
}

// UserService encapsulates account, role, and preference use-cases.
type UserService struct {
	repo  AccountRepository
	roles RoleStore
	prefs PreferencesStore
}

func NewUserService(repo AccountRepository, roles RoleStore, prefs PreferencesStore) *UserService {
	return &UserService{repo: repo, roles: roles, prefs: prefs}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) Update(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Update(ctx, user)
}

// Role returns the user's effective role; users never assigned one hold the
// base role.
func (s *UserService) Role(ctx context.Context, userID string) (string, error) {
	return s.roles.Get(ctx, userID)
}

// HasExplicitRole distinguishes an assigned base role from the default.
func (s *UserService) HasExplicitRole(ctx context.Context, userID string) (bool, error) {
	return s.roles.Exists(ctx, userID)
}

// SetRole assigns a role to the user.
func (s *UserService) SetRole(ctx context.Context, userID, role string) (types.UserRole, error) {
	if !types.ValidRole(role) {
		return types.UserRole{}, ErrInvalidRole
	}
	return s.roles.Set(ctx, userID, role)
}

// Preferences returns the user's saved preferences, or the documented
// defaults when none have been saved.
func (s *UserService) Preferences(ctx context.Context, userID string) (types.UserPreferences, error) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.DefaultPreferences(userID), nil
		}
		return types.UserPreferences{}, err
	}
	return prefs, nil
}

// SavePreferences persists the full preference set for the user.
func (s *UserService) SavePreferences(ctx context.Context, prefs types.UserPreferences) (types.UserPreferences, error) {
	defaults := types.DefaultPreferences(prefs.UserID)
	if prefs.Theme == "" {
		prefs.Theme = defaults.Theme
	}
	if prefs.WeightUnit == "" {
		prefs.WeightUnit = defaults.WeightUnit
	}
	return s.prefs.Upsert(ctx, prefs)
}
