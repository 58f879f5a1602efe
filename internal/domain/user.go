package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role grants access levels inside the dashboard.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleViewer Role = "viewer"
)

// ParseRole validates a raw role name.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleAgent, RoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("role %q: %w", raw, ErrInvalid)
}

// User is a dashboard account mirrored from the auth provider.
type User struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	FullName    string            `json:"full_name"`
	Role        Role              `json:"role"`
	Preferences map[string]string `json:"preferences,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DefaultPreferences are seeded for every new user.
func DefaultPreferences() map[string]string {
	return map[string]string{
		"theme":             "light",
		"notifications":     "on",
		"dashboard_default": "crm",
	}
}

// AppSetting is an admin-managed key with a JSON value.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DebugLog is a persisted log record.
type DebugLog struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
