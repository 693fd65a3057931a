package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorium/mentorium-api/internal/models"
	"go.uber.org/zap"
)

const slotColumns = `
	id::text, mentor_id::text, to_char(slot_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), duration_minutes,
	modality, COALESCE(location, ''), max_participants, status, reserved_by::text, created_at`

// SlotRepository is the PostgreSQL availability store
type SlotRepository struct {
	pool *pgxpool.Pool
}

// NewSlotRepository creates a new slot repository
func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*models.AvailabilitySlot, error) {
	var s models.AvailabilitySlot
	var modality, location, status string
	err := row.Scan(
		&s.ID, &s.MentorID, &s.Date,
		&s.StartTime, &s.EndTime, &s.DurationMinutes,
		&modality, &location, &s.MaxParticipants, &status, &s.ReservedBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Modality = models.Modality(modality)
	s.Location = models.Location(location)
	s.Status = models.SlotStatus(status)
	return &s, nil
}

// GetByID fetches one slot
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	start := time.Now()
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`

	slot, err := scanSlot(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("getSlot", start, nil, zap.String("slot_id", id))
		return nil, ErrSlotNotFound
	}
	observe("getSlot", start, err, zap.String("slot_id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch slot: %w", err)
	}
	return slot, nil
}

// DeleteAvailable is the atomic claim: the status check and the delete are one statement
func (r *SlotRepository) DeleteAvailable(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	start := time.Now()
	q := conn(ctx, r.pool)
	query := `
		DELETE FROM availability_slots
		WHERE id = $1 AND status = 'available'
		RETURNING ` + slotColumns

	slot, err := scanSlot(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("claimSlot", start, nil, zap.String("slot_id", id), zap.Bool("claimed", false))

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM availability_slots WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check slot: %w", err)
		}
		if !exists {
			return nil, ErrSlotNotFound
		}
		return nil, ErrSlotNotAvailable
	}
	observe("claimSlot", start, err, zap.String("slot_id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to claim slot: %w", err)
	}
	return slot, nil
}

// Insert stores a new slot
func (r *SlotRepository) Insert(ctx context.Context, slot *models.AvailabilitySlot) error {
	start := time.Now()
	query := `
		INSERT INTO availability_slots (
			id, mentor_id, slot_date, start_time, end_time, duration_minutes,
			modality, location, max_participants, status, reserved_by, created_at
		) VALUES ($1, $2, $3::date, $4::time, $5::time, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		slot.ID, slot.MentorID, slot.Date, slot.StartTime, slot.EndTime, slot.DurationMinutes,
		string(slot.Modality), string(slot.Location), slot.MaxParticipants, string(slot.Status),
		slot.ReservedBy, slot.CreatedAt,
	)
	observe("insertSlot", start, err, zap.String("slot_id", slot.ID))
	if err != nil {
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

// ListAvailable returns open slots between filter.From and filter.To inclusive
func (r *SlotRepository) ListAvailable(ctx context.Context, filter models.SlotFilter) ([]*models.AvailabilitySlot, error) {
	start := time.Now()
	query := `SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE status = 'available' AND slot_date BETWEEN $1::date AND $2::date`
	args := []any{filter.From, filter.To}
	if filter.MentorID != "" {
		query += ` AND mentor_id = $3`
		args = append(args, filter.MentorID)
	}
	query += ` ORDER BY slot_date, start_time, mentor_id`

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		observe("listAvailableSlots", start, err)
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	slots := make([]*models.AvailabilitySlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			observe("listAvailableSlots", start, err)
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		observe("listAvailableSlots", start, err)
		return nil, fmt.Errorf("error iterating slot rows: %w", err)
	}

	observe("listAvailableSlots", start, nil, zap.Int("count", len(slots)))
	return slots, nil
}

// PriorInPersonSlot finds the mentor's previous in-person booking that day
func (r *SlotRepository) PriorInPersonSlot(ctx context.Context, mentorID, date, before string) (*models.AvailabilitySlot, error) {
	start := time.Now()
	query := `SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE mentor_id = $1
		  AND slot_date = $2::date
		  AND modality = 'in_person'
		  AND status = 'reserved'
		  AND end_time <= $3::time
		ORDER BY end_time DESC
		LIMIT 1`

	slot, err := scanSlot(conn(ctx, r.pool).QueryRow(ctx, query, mentorID, date, before))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("priorInPersonSlot", start, nil)
		return nil, nil
	}
	observe("priorInPersonSlot", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior slot: %w", err)
	}
	return slot, nil
}
