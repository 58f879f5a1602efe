package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var _ ports.UserRepository = (*Repository)(nil)

func (r *Repository) userSelect() sq.SelectBuilder {
	return r.sb.Select("u.id", "u.email", "COALESCE(u.full_name, '')", "COALESCE(ur.role, '')", "u.created_at", "u.updated_at").
		From("users u").
		LeftJoin("user_roles ur ON ur.user_id = u.id")
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = domain.Role(role)
	return u, err
}

// ListUsers returns users with roles, ordered by email. Preferences are loaded in one extra query.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := queryAll(ctx, r.db, r.userSelect().OrderBy("u.email"), func(row rowScanner) error {
		u, err := scanUser(row)
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	prefs, err := r.loadPreferences(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Preferences = prefs[users[i].ID]
	}
	return users, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	row, err := queryRow(ctx, r.db, r.userSelect().Where(sq.Eq{"u.id": id}))
	if err != nil {
		return domain.User{}, err
	}
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", id, classify(err))
	}

	prefs, err := r.loadPreferences(ctx, []string{id})
	if err != nil {
		return domain.User{}, err
	}
	u.Preferences = prefs[id]
	return u, nil
}

func (r *Repository) loadPreferences(ctx context.Context, userIDs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(userIDs))
	err := queryAll(ctx, r.db, r.sb.Select("user_id", "pref_key", "COALESCE(pref_value, '')").
		From("user_preferences").Where(sq.Eq{"user_id": userIDs}),
		func(row rowScanner) error {
			var userID, key, value string
			if err := row.Scan(&userID, &key, &value); err != nil {
				return err
			}
			if out[userID] == nil {
				out[userID] = map[string]string{}
			}
			out[userID][key] = value
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return out, nil
}

// CreateUser writes the user, role and preference rows in one transaction.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilder(ctx, tx, r.sb.Insert("users").
			Columns("id", "email", "full_name", "created_at", "updated_at").
			Values(u.ID, u.Email, u.FullName, u.CreatedAt, u.UpdatedAt)); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		if _, err := execBuilder(ctx, tx, r.sb.Insert("user_roles").
			Columns("user_id", "role", "updated_at").
			Values(u.ID, string(u.Role), u.UpdatedAt)); err != nil {
			return fmt.Errorf("insert user role: %w", err)
		}

		if len(u.Preferences) == 0 {
			return nil
		}
		b := r.sb.Insert("user_preferences").Columns("user_id", "pref_key", "pref_value")
		for k, v := range u.Preferences {
			b = b.Values(u.ID, k, v)
		}
		if _, err := execBuilder(ctx, tx, b); err != nil {
			return fmt.Errorf("insert user preferences: %w", err)
		}
		return nil
	})
}

func (r *Repository) UpdateUserRole(ctx context.Context, id string, role domain.Role, now time.Time) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		affected, err := execBuilder(ctx, tx, r.sb.Update("users").Set("updated_at", now.UTC()).Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("touch user: %w", err)
		}
		if err := requireAffected(affected, "user", id); err != nil {
			return err
		}

		_, err = execBuilder(ctx, tx, r.sb.Insert("user_roles").
			Columns("user_id", "role", "updated_at").
			Values(id, string(role), now.UTC()).
			Suffix("ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at"))
		if err != nil {
			return fmt.Errorf("upsert user role: %w", err)
		}
		return nil
	})
}

// DeleteUser removes preferences, role and the user row together.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilder(ctx, tx, r.sb.Delete("user_preferences").Where(sq.Eq{"user_id": id})); err != nil {
			return fmt.Errorf("delete user preferences: %w", err)
		}
		if _, err := execBuilder(ctx, tx, r.sb.Delete("user_roles").Where(sq.Eq{"user_id": id})); err != nil {
			return fmt.Errorf("delete user role: %w", err)
		}
		affected, err := execBuilder(ctx, tx, r.sb.Delete("users").Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return requireAffected(affected, "user", id)
	})
}
