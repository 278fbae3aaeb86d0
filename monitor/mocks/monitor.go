package mocks

import (
	"context"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/stretchr/testify/mock"
)

var _ monitor.Service = (*MockService)(nil)

// MockService is a mock implementation of the monitor.Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) State(ctx context.Context) (monitor.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Status), args.Error(1)
}

func (m *MockService) Start(ctx context.Context) (monitor.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Status), args.Error(1)
}

func (m *MockService) Stop(ctx context.Context) (monitor.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Status), args.Error(1)
}

func (m *MockService) Restart(ctx context.Context) (monitor.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Status), args.Error(1)
}

// Processes returns the latest snapshot
func (m *MockService) Processes(ctx context.Context) (monitor.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.Snapshot), args.Error(1)
}

// ListAlerts lists alerts with pagination
func (m *MockService) ListAlerts(ctx context.Context, offset, limit uint64) (alert.Page, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).(alert.Page), args.Error(1)
}

func (m *MockService) ClearAlerts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockService) ListWhitelist(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockService) AddWhitelist(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockService) RemoveWhitelist(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockService) Locks(ctx context.Context) (locks.View, error) {
	args := m.Called(ctx)
	return args.Get(0).(locks.View), args.Error(1)
}

func (m *MockService) ReleaseLocks(ctx context.Context, pid int32) error {
	args := m.Called(ctx, pid)
	return args.Error(0)
}

func (m *MockService) Pause(ctx context.Context, reason string) (monitor.Status, error) {
	args := m.Called(ctx, reason)
	return args.Get(0).(monitor.Status), args.Error(1)
}

func (m *MockService) Resume(ctx context.Context, reason string) (monitor.Status, error) {
	args := m.Called(ctx, reason)
	return args.Get(0).(monitor.Status), args.Error(1)
}
