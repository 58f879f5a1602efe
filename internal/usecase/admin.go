package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var settingKeyExpr = regexp.MustCompile(`^[a-z][a-z0-9_.-]{0,63}$`)

// AdminDeps wires account, settings and debug-log storage.
type AdminDeps struct {
	Users     ports.UserRepository
	Settings  ports.SettingsRepository
	DebugLogs ports.DebugLogRepository
	Clock     Clock
	Logger    *slog.Logger
}

// Admin serves the administration screens.
type Admin struct {
	users     ports.UserRepository
	settings  ports.SettingsRepository
	debugLogs ports.DebugLogRepository
	now       Clock
	logger    *slog.Logger
}

// NewAdmin constructs the admin service.
func NewAdmin(deps AdminDeps) *Admin {
	return &Admin{
		users:     deps.Users,
		settings:  deps.Settings,
		debugLogs: deps.DebugLogs,
		now:       orClock(deps.Clock),
		logger:    orLogger(deps.Logger, "admin"),
	}
}

// NewUserInput is the payload for creating a dashboard user.
type NewUserInput struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func (a *Admin) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// CreateUser stores the user with its role and default preferences. ID
// may carry the auth provider's user id; otherwise one is generated.
func (a *Admin) CreateUser(ctx context.Context, in NewUserInput, actor string) (domain.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return domain.User{}, fmt.Errorf("email %q: %w", in.Email, domain.ErrInvalid)
	}
	role := domain.RoleAgent
	if strings.TrimSpace(in.Role) != "" {
		if role, err = domain.ParseRole(in.Role); err != nil {
			return domain.User{}, err
		}
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = newID()
	}
	now := a.now()
	user := domain.User{
		ID:          id,
		Email:       strings.ToLower(addr.Address),
		FullName:    strings.TrimSpace(in.FullName),
		Role:        role,
		Preferences: domain.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	a.logger.Info("user created", "user_id", user.ID, "role", user.Role, "actor", actor)
	return user, nil
}

func (a *Admin) SetRole(ctx context.Context, id, role, actor string) (domain.User, error) {
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, err
	}
	if err := a.users.UpdateUserRole(ctx, id, parsed, a.now()); err != nil {
		return domain.User{}, err
	}
	a.logger.Info("user role changed", "user_id", id, "role", parsed, "actor", actor)
	return a.users.GetUser(ctx, id)
}

// DeleteUser removes the user with its role and preferences. Admins
// cannot delete themselves.
func (a *Admin) DeleteUser(ctx context.Context, id, actor string) error {
	if id == actor {
		return fmt.Errorf("cannot delete the signed-in user: %w", domain.ErrInvalid)
	}
	if err := a.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	a.logger.Info("user deleted", "user_id", id, "actor", actor)
	return nil
}

func (a *Admin) ListSettings(ctx context.Context) ([]domain.AppSetting, error) {
	out, err := a.settings.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.AppSetting{}
	}
	return out, nil
}

func (a *Admin) GetSetting(ctx context.Context, key string) (domain.AppSetting, error) {
	return a.settings.GetSetting(ctx, key)
}

// PutSetting upserts a setting; value must be valid JSON.
func (a *Admin) PutSetting(ctx context.Context, key string, value json.RawMessage, actor string) (domain.AppSetting, error) {
	if !settingKeyExpr.MatchString(key) {
		return domain.AppSetting{}, fmt.Errorf("setting key %q: %w", key, domain.ErrInvalid)
	}
	if len(value) == 0 || !json.Valid(value) {
		return domain.AppSetting{}, fmt.Errorf("setting %s value is not valid JSON: %w", key, domain.ErrInvalid)
	}

	setting := domain.AppSetting{
		Key:       key,
		Value:     string(value),
		UpdatedBy: actor,
		UpdatedAt: a.now(),
	}
	if err := a.settings.UpsertSetting(ctx, setting); err != nil {
		return domain.AppSetting{}, err
	}
	return setting, nil
}

func (a *Admin) DeleteSetting(ctx context.Context, key string) error {
	return a.settings.DeleteSetting(ctx, key)
}

func (a *Admin) ListDebugLogs(ctx context.Context, limit int) ([]domain.DebugLog, error) {
	out, err := a.debugLogs.ListDebugLogs(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.DebugLog{}
	}
	return out, nil
}

func (a *Admin) ClearDebugLogs(ctx context.Context, actor string) (int, error) {
	n, err := a.debugLogs.ClearDebugLogs(ctx)
	if err != nil {
		return 0, err
	}
	a.logger.Info("debug logs cleared", "count", n, "actor", actor)
	return n, nil
}
