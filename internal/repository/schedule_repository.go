package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

type scheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository instantiates the repository.
func NewScheduleRepository(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepository{pool: pool}
}

func (r *scheduleRepository) Get(ctx context.Context, providerID string) (*domain.WeeklySchedule, error) {
	var payload []byte
	schedule := &domain.WeeklySchedule{ProviderID: providerID}
	err := r.pool.QueryRow(ctx, `
		SELECT entries, updated_at FROM weekly_schedules WHERE provider_id=$1`,
		providerID).Scan(&payload, &schedule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &schedule.Entries); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepository) Upsert(ctx context.Context, schedule *domain.WeeklySchedule) error {
	payload, err := json.Marshal(schedule.Entries)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO weekly_schedules (provider_id, entries, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (provider_id) DO UPDATE SET entries=EXCLUDED.entries, updated_at=NOW()
		RETURNING updated_at`,
		schedule.ProviderID, payload).Scan(&schedule.UpdatedAt)
}
