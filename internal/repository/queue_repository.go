package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clinic-queue/internal/domain"
)

const ticketColumns = `id, ticket_number, provider_id, requester_id, patient_name, complaint,
	status, status_note, created_at, called_at, started_at, finished_at, has_been_reclaimed, medical_record`

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates the pgx-backed ticket store adapter.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

// IssueTicket assigns the next ticket number and writes the WAITING ticket
// in one transaction. The provider status row is locked first, so two
// concurrent issuances are serialized and can never share a number.
func (r *queueRepository) IssueTicket(ctx context.Context, input IssueTicketInput) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	status, err := lockProviderStatus(ctx, tx, input.ProviderID)
	if err != nil {
		return nil, err
	}
	if !status.IsOpen {
		return nil, domain.ErrProviderClosed
	}

	dayStart, dayEnd := status.DayWindow(input.Now)

	if !input.Manual {
		var exists bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM tickets
				WHERE provider_id=$1 AND requester_id=$2
					AND created_at >= $3 AND created_at < $4
					AND status IN ('WAITING','CALLED','SERVING')
			)`, input.ProviderID, input.RequesterID, dayStart, dayEnd).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrDuplicateActive
		}
	}

	var lastNumber int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(ticket_number), 0) FROM tickets
		WHERE provider_id=$1 AND created_at >= $2 AND created_at < $3`,
		input.ProviderID, dayStart, dayEnd).Scan(&lastNumber)
	if err != nil {
		return nil, err
	}
	nextNumber := lastNumber + 1
	if status.DailyPatientLimit > 0 && nextNumber > status.DailyPatientLimit {
		return nil, domain.ErrCapacityExceeded
	}

	var backlog int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets
		WHERE provider_id=$1 AND created_at >= $2 AND created_at < $3
			AND status IN ('WAITING','CALLED')`,
		input.ProviderID, dayStart, dayEnd).Scan(&backlog)
	if err != nil {
		return nil, err
	}
	if !status.HasTimeFor(backlog, input.Now) {
		return nil, domain.ErrInsufficientTime
	}

	ticket := &domain.Ticket{
		ID:           uuid.NewString(),
		TicketNumber: nextNumber,
		ProviderID:   input.ProviderID,
		RequesterID:  input.RequesterID,
		PatientName:  input.PatientName,
		Complaint:    input.Complaint,
		Status:       domain.TicketStatusWaiting,
		CreatedAt:    input.Now,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (id, ticket_number, provider_id, requester_id, patient_name, complaint, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ticket.ID, ticket.TicketNumber, ticket.ProviderID, ticket.RequesterID,
		ticket.PatientName, ticket.Complaint, ticket.Status, ticket.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE provider_status SET last_ticket_number=$1, updated_at=$2 WHERE provider_id=$3`,
		nextNumber, input.Now, input.ProviderID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// CallNext selects the earliest WAITING ticket of the current day and marks
// it CALLED. The provider row lock serializes competing calls; the serving
// check re-runs inside the same transaction.
func (r *queueRepository) CallNext(ctx context.Context, providerID string, now time.Time) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	status, err := lockProviderStatus(ctx, tx, providerID)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := status.DayWindow(now)

	var serving bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tickets
			WHERE provider_id=$1 AND status='SERVING'
				AND created_at >= $2 AND created_at < $3
		)`, providerID, dayStart, dayEnd).Scan(&serving)
	if err != nil {
		return nil, err
	}
	if serving {
		return nil, domain.ErrAlreadyServing
	}

	row := tx.QueryRow(ctx, `
		UPDATE tickets SET status='CALLED', called_at=$1
		WHERE id = (
			SELECT id FROM tickets
			WHERE provider_id=$2 AND status='WAITING'
				AND created_at >= $3 AND created_at < $4
			ORDER BY created_at ASC, ticket_number ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+ticketColumns,
		now, providerID, dayStart, dayEnd)

	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrNoWaitingTicket
		}
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ConfirmArrival transitions a non-terminal ticket to SERVING and records
// the serving slot on the provider status. A walk-in confirmed without a
// prior call gets called_at backfilled to now.
func (r *queueRepository) ConfirmArrival(ctx context.Context, ticketID string, now time.Time) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := lockTicket(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, domain.TicketStatusServing) {
		return nil, domain.ErrInvalidTicketState
	}

	status, err := lockProviderStatus(ctx, tx, current.ProviderID)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := status.DayWindow(now)

	var serving bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tickets
			WHERE provider_id=$1 AND status='SERVING'
				AND created_at >= $2 AND created_at < $3
		)`, current.ProviderID, dayStart, dayEnd).Scan(&serving)
	if err != nil {
		return nil, err
	}
	if serving {
		return nil, domain.ErrAlreadyServing
	}

	row := tx.QueryRow(ctx, `
		UPDATE tickets SET status='SERVING', started_at=$1, called_at=COALESCE(called_at, $1)
		WHERE id=$2 AND status IN ('WAITING','CALLED')
		RETURNING `+ticketColumns,
		now, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrInvalidTicketState
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE provider_status SET current_serving_number=$1, updated_at=$2 WHERE provider_id=$3`,
		ticket.TicketNumber, now, ticket.ProviderID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Complete finishes the consultation: DONE, medical record attached, served
// counter incremented, serving slot cleared.
func (r *queueRepository) Complete(ctx context.Context, ticketID string, record domain.MedicalRecord, now time.Time) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var recordPayload []byte
	if !record.IsEmpty() {
		recordPayload, err = json.Marshal(record)
		if err != nil {
			return nil, err
		}
	}

	row := tx.QueryRow(ctx, `
		UPDATE tickets SET status='DONE', finished_at=$1, medical_record=$2
		WHERE id=$3 AND status='SERVING'
		RETURNING `+ticketColumns,
		now, recordPayload, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ticketStateError(ctx, tx, ticketID)
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE provider_status
		SET current_serving_number=0, total_served_count=total_served_count+1, updated_at=$1
		WHERE provider_id=$2`,
		now, ticket.ProviderID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *queueRepository) CancelByRequester(ctx context.Context, providerID, requesterID string, now time.Time) (*domain.Ticket, error) {
	status, err := r.providerStatus(ctx, providerID)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := status.DayWindow(now)

	row := r.pool.QueryRow(ctx, `
		UPDATE tickets SET status='CANCELLED', status_note='cancelled by requester'
		WHERE id = (
			SELECT id FROM tickets
			WHERE provider_id=$1 AND requester_id=$2
				AND created_at >= $3 AND created_at < $4
				AND status IN ('WAITING','CALLED')
			LIMIT 1
		)
		RETURNING `+ticketColumns,
		providerID, requesterID, dayStart, dayEnd)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveTicket
		}
		return nil, err
	}
	return ticket, nil
}

func (r *queueRepository) CancelByID(ctx context.Context, ticketID string, now time.Time) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets SET status='CANCELLED', status_note='cancelled'
		WHERE id=$1 AND status IN ('WAITING','CALLED')
		RETURNING `+ticketColumns,
		ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveTicket
		}
		return nil, err
	}
	return ticket, nil
}

// ReclaimExpiredCalls requeues no-shows: CALLED tickets whose provider
// timeout elapsed go back to WAITING with called_at cleared. The write is
// keyed on the current CALLED state, so a confirmation that already moved
// the ticket to SERVING is never reverted. Reclaimed tickets keep their
// original created_at and ticket_number.
func (r *queueRepository) ReclaimExpiredCalls(ctx context.Context, providerID string, now time.Time) ([]domain.Ticket, error) {
	query := `
		UPDATE tickets t
		SET status='WAITING', called_at=NULL, has_been_reclaimed=TRUE
		FROM provider_status ps
		WHERE ps.provider_id = t.provider_id
			AND t.status='CALLED'
			AND t.called_at <= $1 - make_interval(mins => ps.call_timeout_minutes)`
	args := []any{now}
	if providerID != "" {
		query += ` AND t.provider_id = $2`
		args = append(args, providerID)
	}
	query += `
		RETURNING ` + prefixedTicketColumns("t")

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ExpireStaleTickets cancels leftovers from prior days, provider by
// provider so each day boundary is computed in the right timezone.
func (r *queueRepository) ExpireStaleTickets(ctx context.Context, now time.Time) (int, error) {
	statuses, err := r.listProviderStatuses(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range statuses {
		dayStart, _ := statuses[i].DayWindow(now)
		cmd, err := r.pool.Exec(ctx, `
			UPDATE tickets SET status='CANCELLED', status_note='expired: carried over from a previous day'
			WHERE provider_id=$1 AND created_at < $2 AND status IN ('WAITING','CALLED')`,
			statuses[i].ProviderID, dayStart)
		if err != nil {
			return expired, err
		}
		expired += int(cmd.RowsAffected())
	}
	return expired, nil
}

func (r *queueRepository) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *queueRepository) TodayTickets(ctx context.Context, providerID string, now time.Time) ([]domain.Ticket, error) {
	status, err := r.providerStatus(ctx, providerID)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := status.DayWindow(now)

	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE provider_id=$1 AND created_at >= $2 AND created_at < $3
		ORDER BY ticket_number ASC`,
		providerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *queueRepository) VisitHistory(ctx context.Context, requesterID string) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE requester_id=$1 AND status IN ('DONE','CANCELLED')
		ORDER BY created_at DESC`,
		requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *queueRepository) providerStatus(ctx context.Context, providerID string) (*domain.ProviderStatus, error) {
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

func (r *queueRepository) listProviderStatuses(ctx context.Context) ([]domain.ProviderStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM provider_status`)
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

func lockProviderStatus(ctx context.Context, tx pgx.Tx, providerID string) (*domain.ProviderStatus, error) {
	row := tx.QueryRow(ctx, `SELECT `+providerColumns+` FROM provider_status WHERE provider_id=$1 FOR UPDATE`, providerID)
	status, err := scanProviderStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProviderNotFound
		}
		return nil, err
	}
	return status, nil
}

func lockTicket(ctx context.Context, tx pgx.Tx, ticketID string) (*domain.Ticket, error) {
	row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func ticketStateError(ctx context.Context, tx pgx.Tx, ticketID string) error {
	var status domain.TicketStatus
	err := tx.QueryRow(ctx, `SELECT status FROM tickets WHERE id=$1`, ticketID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTicketNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrInvalidTicketState
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var recordPayload []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.ProviderID,
		&ticket.RequesterID,
		&ticket.PatientName,
		&ticket.Complaint,
		&ticket.Status,
		&ticket.StatusNote,
		&ticket.CreatedAt,
		&ticket.CalledAt,
		&ticket.StartedAt,
		&ticket.FinishedAt,
		&ticket.HasBeenReclaimed,
		&recordPayload,
	); err != nil {
		return nil, err
	}
	if len(recordPayload) > 0 {
		var record domain.MedicalRecord
		if err := json.Unmarshal(recordPayload, &record); err != nil {
			return nil, err
		}
		ticket.Record = &record
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func prefixedTicketColumns(alias string) string {
	return alias + `.id, ` + alias + `.ticket_number, ` + alias + `.provider_id, ` + alias + `.requester_id, ` +
		alias + `.patient_name, ` + alias + `.complaint, ` + alias + `.status, ` + alias + `.status_note, ` +
		alias + `.created_at, ` + alias + `.called_at, ` + alias + `.started_at, ` + alias + `.finished_at, ` +
		alias + `.has_been_reclaimed, ` + alias + `.medical_record`
}
