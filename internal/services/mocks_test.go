package services_test

import (
	"context"
	"errors"
	"time"

	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/payment"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, c payment.Charge) (*payment.Receipt, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Receipt), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, reference string) error {
	args := m.Called(ctx, reference)
	return args.Error(0)
}

// MockLocker is a mock implementation of lock.Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// MockKicker records dispatcher wake-ups
type MockKicker struct {
	mock.Mock
}

func (m *MockKicker) Kick() {
	m.Called()
}

// failingSessionStore wraps a session store and fails every Create
type failingSessionStore struct {
	repository.SessionStore
}

var errDiskFull = errors.New("disk full")

func (f failingSessionStore) Create(context.Context, *models.MentorshipSession) error {
	return errDiskFull
}

// failingInsertSlotStore claims slots normally but cannot write fragments
type failingInsertSlotStore struct {
	repository.SlotStore
}

func (f failingInsertSlotStore) Insert(context.Context, *models.AvailabilitySlot) error {
	return errors.New("connection reset")
}

// rollbackFailingTx runs the transaction and reports that rolling it back failed
type rollbackFailingTx struct {
	repository.TxManager
}

func (f rollbackFailingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := f.TxManager.WithinTx(ctx, fn); err != nil {
		return &repository.RollbackError{Cause: err, RollbackErr: errors.New("connection closed")}
	}
	return nil
}
