package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var (
	_ ports.SettingsRepository = (*Repository)(nil)
	_ ports.DebugLogRepository = (*Repository)(nil)
)

var settingColumns = []string{"setting_key", "setting_value", "COALESCE(updated_by, '')", "updated_at"}

func scanSetting(row rowScanner) (domain.AppSetting, error) {
	var s domain.AppSetting
	err := row.Scan(&s.Key, &s.Value, &s.UpdatedBy, &s.UpdatedAt)
	return s, err
}

func (r *Repository) ListSettings(ctx context.Context) ([]domain.AppSetting, error) {
	var out []domain.AppSetting
	err := queryAll(ctx, r.db, r.sb.Select(settingColumns...).From("app_settings").OrderBy("setting_key"),
		func(row rowScanner) error {
			s, err := scanSetting(row)
			if err != nil {
				return err
			}
			out = append(out, s)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return out, nil
}

func (r *Repository) GetSetting(ctx context.Context, key string) (domain.AppSetting, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(settingColumns...).From("app_settings").Where(sq.Eq{"setting_key": key}))
	if err != nil {
		return domain.AppSetting{}, err
	}
	s, err := scanSetting(row)
	if err != nil {
		return domain.AppSetting{}, fmt.Errorf("get setting %s: %w", key, classify(err))
	}
	return s, nil
}

func (r *Repository) UpsertSetting(ctx context.Context, s domain.AppSetting) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("app_settings").
		Columns("setting_key", "setting_value", "updated_by", "updated_at").
		Values(s.Key, s.Value, s.UpdatedBy, s.UpdatedAt).
		Suffix(`ON CONFLICT (setting_key) DO UPDATE SET
			setting_value = EXCLUDED.setting_value,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", s.Key, err)
	}
	return nil
}

func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Delete("app_settings").Where(sq.Eq{"setting_key": key}))
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return requireAffected(affected, "setting", key)
}

func (r *Repository) InsertDebugLog(ctx context.Context, e domain.DebugLog) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("debug_logs").
		Columns("id", "level", "message", "attrs", "source", "created_at").
		Values(e.ID, e.Level, e.Message, e.Attrs, e.Source, e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert debug log: %w", err)
	}
	return nil
}

// ListDebugLogs returns the newest records first.
func (r *Repository) ListDebugLogs(ctx context.Context, limit int) ([]domain.DebugLog, error) {
	var out []domain.DebugLog
	err := queryAll(ctx, r.db, r.sb.Select("id", "level", "message", "COALESCE(attrs, '{}')", "COALESCE(source, '')", "created_at").
		From("debug_logs").OrderBy("created_at DESC", "id").Limit(pageLimit(limit)),
		func(row rowScanner) error {
			var e domain.DebugLog
			if err := row.Scan(&e.ID, &e.Level, &e.Message, &e.Attrs, &e.Source, &e.CreatedAt); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list debug logs: %w", err)
	}
	return out, nil
}

func (r *Repository) ClearDebugLogs(ctx context.Context) (int, error) {
	affected, err := execBuilder(ctx, r.db, r.sb.Delete("debug_logs"))
	if err != nil {
		return 0, fmt.Errorf("clear debug logs: %w", err)
	}
	return int(affected), nil
}
