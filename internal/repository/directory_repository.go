package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorium/mentorium-api/internal/models"
)

// DirectoryRepository reads mentors, students and subjects
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) getContact(ctx context.Context, operation, table, id string, notFound error) (*models.Contact, error) {
	start := time.Now()
	query := fmt.Sprintf(`SELECT id::text, name, email FROM %s WHERE id = $1`, table)

	var c models.Contact
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		observe(operation, start, nil)
		return nil, notFound
	}
	observe(operation, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}
	return &c, nil
}

func (r *DirectoryRepository) GetMentor(ctx context.Context, id string) (*models.Contact, error) {
	return r.getContact(ctx, "getMentor", "mentors", id, ErrMentorNotFound)
}

func (r *DirectoryRepository) GetStudent(ctx context.Context, id string) (*models.Contact, error) {
	return r.getContact(ctx, "getStudent", "students", id, ErrStudentNotFound)
}

// GetSubject fetches a subject by ID
func (r *DirectoryRepository) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	start := time.Now()

	var s models.Subject
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT id::text, name FROM subjects WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		observe("getSubject", start, nil)
		return nil, ErrSubjectNotFound
	}
	observe("getSubject", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}
	return &s, nil
}

// MentorTeaches reports whether the mentor offers the subject
func (r *DirectoryRepository) MentorTeaches(ctx context.Context, mentorID, subjectID string) (bool, error) {
	start := time.Now()
	query := `SELECT EXISTS(SELECT 1 FROM mentor_subjects WHERE mentor_id = $1 AND subject_id = $2)`

	var ok bool
	err := conn(ctx, r.pool).QueryRow(ctx, query, mentorID, subjectID).Scan(&ok)
	observe("mentorTeaches", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check mentor subject: %w", err)
	}
	return ok, nil
}

// SubjectsForMentors returns each mentor's subjects ordered by name
func (r *DirectoryRepository) SubjectsForMentors(ctx context.Context, mentorIDs []string) (map[string][]models.Subject, error) {
	result := make(map[string][]models.Subject, len(mentorIDs))
	if len(mentorIDs) == 0 {
		return result, nil
	}

	start := time.Now()
	query := `
		SELECT ms.mentor_id::text, s.id::text, s.name
		FROM mentor_subjects ms
		JOIN subjects s ON s.id = ms.subject_id
		WHERE ms.mentor_id::text = ANY($1)
		ORDER BY s.name
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, mentorIDs)
	if err != nil {
		observe("subjectsForMentors", start, err)
		return nil, fmt.Errorf("failed to query mentor subjects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mentorID string
		var s models.Subject
		if err := rows.Scan(&mentorID, &s.ID, &s.Name); err != nil {
			observe("subjectsForMentors", start, err)
			return nil, fmt.Errorf("failed to scan mentor subject: %w", err)
		}
		result[mentorID] = append(result[mentorID], s)
	}
	if err := rows.Err(); err != nil {
		observe("subjectsForMentors", start, err)
		return nil, fmt.Errorf("error iterating mentor subjects: %w", err)
	}

	observe("subjectsForMentors", start, nil)
	return result, nil
}

// ListMentors returns contacts for the given mentor IDs
func (r *DirectoryRepository) ListMentors(ctx context.Context, ids []string) (map[string]models.Contact, error) {
	result := make(map[string]models.Contact, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	start := time.Now()
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT id::text, name, email FROM mentors WHERE id::text = ANY($1)`, ids)
	if err != nil {
		observe("listMentors", start, err)
		return nil, fmt.Errorf("failed to query mentors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email); err != nil {
			observe("listMentors", start, err)
			return nil, fmt.Errorf("failed to scan mentor: %w", err)
		}
		result[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		observe("listMentors", start, err)
		return nil, fmt.Errorf("error iterating mentors: %w", err)
	}

	observe("listMentors", start, nil)
	return result, nil
}
