package memory

import (
	"context"
	"sort"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
)

// DirectoryStore is the in-memory directory
type DirectoryStore struct {
	s *Store
}

func (v *DirectoryStore) GetMentor(ctx context.Context, id string) (*models.Contact, error) {
	var c models.Contact
	var ok bool
	v.s.read(ctx, func(st *state) { c, ok = st.mentors[id] })
	if !ok {
		return nil, repository.ErrMentorNotFound
	}
	return &c, nil
}

func (v *DirectoryStore) GetStudent(ctx context.Context, id string) (*models.Contact, error) {
	var c models.Contact
	var ok bool
	v.s.read(ctx, func(st *state) { c, ok = st.students[id] })
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	return &c, nil
}

func (v *DirectoryStore) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	var sub models.Subject
	var ok bool
	v.s.read(ctx, func(st *state) { sub, ok = st.subjects[id] })
	if !ok {
		return nil, repository.ErrSubjectNotFound
	}
	return &sub, nil
}

func (v *DirectoryStore) MentorTeaches(ctx context.Context, mentorID, subjectID string) (bool, error) {
	var ok bool
	v.s.read(ctx, func(st *state) { ok = st.mentorSubjects[mentorID][subjectID] })
	return ok, nil
}

func (v *DirectoryStore) SubjectsForMentors(ctx context.Context, mentorIDs []string) (map[string][]models.Subject, error) {
	result := make(map[string][]models.Subject, len(mentorIDs))
	v.s.read(ctx, func(st *state) {
		for _, mentorID := range mentorIDs {
			for subjectID := range st.mentorSubjects[mentorID] {
				if sub, ok := st.subjects[subjectID]; ok {
					result[mentorID] = append(result[mentorID], sub)
				}
			}
		}
	})
	for _, subs := range result {
		sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	}
	return result, nil
}

func (v *DirectoryStore) ListMentors(ctx context.Context, ids []string) (map[string]models.Contact, error) {
	result := make(map[string]models.Contact, len(ids))
	v.s.read(ctx, func(st *state) {
		for _, id := range ids {
			if c, ok := st.mentors[id]; ok {
				result[id] = c
			}
		}
	})
	return result, nil
}
