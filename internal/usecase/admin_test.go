package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

func newAdminFixture(t *testing.T) *Admin {
	t.Helper()
	repo := newRepo(t)
	return NewAdmin(AdminDeps{Users: repo, Settings: repo, DebugLogs: repo, Clock: fixedClock, Logger: discardLogger()})
}

func TestAdminUserLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin := newAdminFixture(t)

	user, err := admin.CreateUser(ctx, NewUserInput{Email: "Agent@Example.com", FullName: "Sam Agent"}, "root")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Role != domain.RoleAgent || user.Email != "agent@example.com" || user.Preferences["theme"] != "light" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := admin.CreateUser(ctx, NewUserInput{Email: "agent@example.com"}, "root"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
	if _, err := admin.CreateUser(ctx, NewUserInput{Email: "not-an-email"}, "root"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid email, got %v", err)
	}

	promoted, err := admin.SetRole(ctx, user.ID, "admin", "root")
	if err != nil || promoted.Role != domain.RoleAdmin {
		t.Fatalf("set role: %+v %v", promoted, err)
	}
	if _, err := admin.SetRole(ctx, user.ID, "owner", "root"); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid role, got %v", err)
	}

	if err := admin.DeleteUser(ctx, user.ID, user.ID); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("self delete must fail, got %v", err)
	}
	if err := admin.DeleteUser(ctx, user.ID, "root"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	users, err := admin.ListUsers(ctx)
	if err != nil || len(users) != 0 {
		t.Fatalf("expected no users, got %+v %v", users, err)
	}
}

func TestPutSettingValidatesJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin := newAdminFixture(t)

	tests := []struct {
		name  string
		key   string
		value string
		want  error
	}{
		{name: "object", key: "call_window", value: `{"start":"09:00","end":"18:00"}`},
		{name: "number", key: "daily.limit", value: `200`},
		{name: "broken json", key: "call_window", value: `{"start":`, want: domain.ErrInvalid},
		{name: "empty", key: "call_window", value: ``, want: domain.ErrInvalid},
		{name: "bad key", key: "Call Window", value: `1`, want: domain.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := admin.PutSetting(ctx, tt.key, json.RawMessage(tt.value), "root")
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	got, err := admin.GetSetting(ctx, "daily.limit")
	if err != nil || got.Value != "200" || got.UpdatedBy != "root" {
		t.Fatalf("get setting: %+v %v", got, err)
	}
}

func TestDebugLogsListAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo(t)
	admin := NewAdmin(AdminDeps{Users: repo, Settings: repo, DebugLogs: repo, Clock: fixedClock, Logger: discardLogger()})

	for _, msg := range []string{"first", "second"} {
		if err := repo.InsertDebugLog(ctx, domain.DebugLog{ID: msg, Level: "ERROR", Message: msg, Attrs: "{}", CreatedAt: testNow}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	logs, err := admin.ListDebugLogs(ctx, 10)
	if err != nil || len(logs) != 2 {
		t.Fatalf("list: %+v %v", logs, err)
	}
	n, err := admin.ClearDebugLogs(ctx, "root")
	if err != nil || n != 2 {
		t.Fatalf("clear: %d %v", n, err)
	}
}
