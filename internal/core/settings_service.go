package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsService stores the school letterhead block printed on every bill,
// receipt, and marksheet.
type SettingsService struct {
	pool *pgxpool.Pool
}

func NewSettingsService(pool *pgxpool.Pool) *SettingsService {
	return &SettingsService{pool: pool}
}

const schoolSettingsKey = "school"

// GetSettings returns the school settings; a fresh install returns the zero
// value.
func (s *SettingsService) GetSettings(ctx context.Context) (*SchoolSettings, error) {
	return getSettings(ctx, s.pool)
}

// UpdateSettings overwrites the school settings wholesale.
func (s *SettingsService) UpdateSettings(ctx context.Context, settings SchoolSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data`,
		schoolSettingsKey, string(data)); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func getSettings(ctx context.Context, q querier) (*SchoolSettings, error) {
	var raw []byte
	err := q.QueryRow(ctx, `SELECT data FROM settings WHERE key = $1`, schoolSettingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return &SchoolSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	settings := &SchoolSettings{}
	if err := json.Unmarshal(raw, settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}
