package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

const providerColumns = `provider_id, display_name, is_open, daily_patient_limit, last_ticket_number,
	current_serving_number, total_served_count, estimated_service_minutes, call_timeout_minutes,
	opening_hour, closing_hour, timezone, updated_at`

type providerRepository struct {
	pool *pgxpool.Pool
}

// NewProviderRepository instantiates the repository.
func NewProviderRepository(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepository{pool: pool}
}

func (r *providerRepository) Create(ctx context.Context, status *domain.ProviderStatus) error {
	const query = `
		INSERT INTO provider_status (
			provider_id, display_name, is_open, daily_patient_limit,
			estimated_service_minutes, call_timeout_minutes, opening_hour, closing_hour, timezone
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		status.ProviderID,
		status.DisplayName,
		status.IsOpen,
		status.DailyPatientLimit,
		status.EstimatedServiceMinutes,
		status.CallTimeoutMinutes,
		status.OpeningHour,
		status.ClosingHour,
		status.Timezone,
	).Scan(&status.UpdatedAt)
}

func (r *providerRepository) Get(ctx context.Context, providerID string) (*domain.ProviderStatus, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM provider_status WHERE provider_id=$1`, providerID)
	status, err := scanProviderStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProviderNotFound
		}
		return nil, err
	}
	return status, nil
}

func (r *providerRepository) List(ctx context.Context) ([]domain.ProviderStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM provider_status ORDER BY provider_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProviderStatus
	for rows.Next() {
		status, err := scanProviderStatus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *status)
	}
	return result, rows.Err()
}

func (r *providerRepository) UpdateSettings(ctx context.Context, status *domain.ProviderStatus) error {
	const query = `
		UPDATE provider_status
		SET display_name=$1, is_open=$2, daily_patient_limit=$3, estimated_service_minutes=$4,
			call_timeout_minutes=$5, opening_hour=$6, closing_hour=$7, timezone=$8, updated_at=NOW()
		WHERE provider_id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		status.DisplayName,
		status.IsOpen,
		status.DailyPatientLimit,
		status.EstimatedServiceMinutes,
		status.CallTimeoutMinutes,
		status.OpeningHour,
		status.ClosingHour,
		status.Timezone,
		status.ProviderID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrProviderNotFound
	}
	return nil
}

func scanProviderStatus(row pgx.Row) (*domain.ProviderStatus, error) {
	var status domain.ProviderStatus
	if err := row.Scan(
		&status.ProviderID,
		&status.DisplayName,
		&status.IsOpen,
		&status.DailyPatientLimit,
		&status.LastTicketNumber,
		&status.CurrentServingNumber,
		&status.TotalServedCount,
		&status.EstimatedServiceMinutes,
		&status.CallTimeoutMinutes,
		&status.OpeningHour,
		&status.ClosingHour,
		&status.Timezone,
		&status.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &status, nil
}
