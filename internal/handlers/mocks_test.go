package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/middleware"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Book(ctx context.Context, studentID string, req *models.BookingRequest) (*models.MentorshipSession, error) {
	args := m.Called(ctx, studentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MentorshipSession), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Get(ctx context.Context, identity *models.Identity, sessionID string) (*models.MentorshipSession, error) {
	args := m.Called(ctx, identity, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MentorshipSession), args.Error(1)
}

func (m *MockSessionService) Cancel(ctx context.Context, identity *models.Identity, sessionID string) (*models.MentorshipSession, error) {
	args := m.Called(ctx, identity, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MentorshipSession), args.Error(1)
}

type MockCalendarService struct {
	mock.Mock
}

func (m *MockCalendarService) Calendar(ctx context.Context, from, to string) (*models.Calendar, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Calendar), args.Error(1)
}

func (m *MockCalendarService) MentorSlots(ctx context.Context, mentorID, from, to string) ([]*models.AvailabilitySlot, error) {
	args := m.Called(ctx, mentorID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AvailabilitySlot), args.Error(1)
}

type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) Quote(durationMinutes int, modality models.Modality) (*models.PriceQuote, error) {
	args := m.Called(durationMinutes, modality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PriceQuote), args.Error(1)
}

// withIdentity stands in for the identity middleware
func withIdentity(identity *models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity != nil {
			c.Set(middleware.IdentityContextKey, identity)
		}
		c.Next()
	}
}

var (
	student = &models.Identity{UserID: "11111111-1111-4111-8111-111111111111", Role: models.RoleStudent, Name: "Sofia Ruiz"}
	mentor  = &models.Identity{UserID: "22222222-2222-4222-8222-222222222222", Role: models.RoleMentor, Name: "Ana Torres"}
)
