package memory

import (
	"context"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
)

// SlotStore is the in-memory availability store
type SlotStore struct {
	s *Store
}

func (v *SlotStore) GetByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	var slot *models.AvailabilitySlot
	v.s.read(ctx, func(st *state) { slot = st.slots[id].Clone() })
	if slot == nil {
		return nil, repository.ErrSlotNotFound
	}
	return slot, nil
}

func (v *SlotStore) DeleteAvailable(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	var claimed *models.AvailabilitySlot
	err := v.s.write(ctx, true, func(st *state) error {
		slot, ok := st.slots[id]
		if !ok {
			return repository.ErrSlotNotFound
		}
		if !slot.IsAvailable() {
			return repository.ErrSlotNotAvailable
		}
		delete(st.slots, id)
		claimed = slot.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (v *SlotStore) Insert(ctx context.Context, slot *models.AvailabilitySlot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	return v.s.write(ctx, true, func(st *state) error {
		if _, exists := st.slots[slot.ID]; exists {
			return repository.ErrSlotNotAvailable
		}
		st.slots[slot.ID] = slot.Clone()
		return nil
	})
}

func (v *SlotStore) ListAvailable(ctx context.Context, filter models.SlotFilter) ([]*models.AvailabilitySlot, error) {
	out := make([]*models.AvailabilitySlot, 0)
	v.s.read(ctx, func(st *state) {
		for _, slot := range st.slots {
			if !slot.IsAvailable() {
				continue
			}
			if filter.MentorID != "" && slot.MentorID != filter.MentorID {
				continue
			}
			// YYYY-MM-DD compares correctly as a string
			if slot.Date < filter.From || slot.Date > filter.To {
				continue
			}
			out = append(out, slot.Clone())
		}
	})
	sortSlots(out)
	return out, nil
}

func (v *SlotStore) PriorInPersonSlot(ctx context.Context, mentorID, date, before string) (*models.AvailabilitySlot, error) {
	var best *models.AvailabilitySlot
	v.s.read(ctx, func(st *state) {
		for _, slot := range st.slots {
			if slot.MentorID != mentorID || slot.Date != date {
				continue
			}
			if slot.Modality != models.ModalityInPerson || slot.Status != models.SlotReserved {
				continue
			}
			if slot.EndTime > before {
				continue
			}
			if best == nil || slot.EndTime > best.EndTime {
				best = slot
			}
		}
	})
	return best.Clone(), nil
}

// All returns every slot of a mentor on a date, ordered by start time
func (v *SlotStore) All(mentorID, date string) []*models.AvailabilitySlot {
	out := make([]*models.AvailabilitySlot, 0)
	v.s.locked(func(st *state) {
		for _, slot := range st.slots {
			if slot.MentorID == mentorID && slot.Date == date {
				out = append(out, slot.Clone())
			}
		}
	})
	sortSlots(out)
	return out
}
