package mocks

import (
	"github.com/absmach/guardian/pkg/sdk"
	"github.com/stretchr/testify/mock"
)

var _ sdk.SDK = (*MockSDK)(nil)

// MockSDK is a mock implementation of the sdk.SDK interface
type MockSDK struct {
	mock.Mock
}

func (m *MockSDK) State() (sdk.Status, error) {
	args := m.Called()
	return args.Get(0).(sdk.Status), args.Error(1)
}

func (m *MockSDK) Start() (sdk.Status, error) {
	args := m.Called()
	return args.Get(0).(sdk.Status), args.Error(1)
}

func (m *MockSDK) Stop() (sdk.Status, error) {
	args := m.Called()
	return args.Get(0).(sdk.Status), args.Error(1)
}

func (m *MockSDK) Restart() (sdk.Status, error) {
	args := m.Called()
	return args.Get(0).(sdk.Status), args.Error(1)
}

func (m *MockSDK) Processes() (sdk.Snapshot, error) {
	args := m.Called()
	return args.Get(0).(sdk.Snapshot), args.Error(1)
}

func (m *MockSDK) ListAlerts(offset, limit uint64) (sdk.AlertPage, error) {
	args := m.Called(offset, limit)
	return args.Get(0).(sdk.AlertPage), args.Error(1)
}

func (m *MockSDK) ClearAlerts() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSDK) Whitelist() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSDK) AddWhitelist(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockSDK) RemoveWhitelist(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockSDK) Locks() (map[int32]sdk.LockRecord, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int32]sdk.LockRecord), args.Error(1)
}

func (m *MockSDK) ReleaseLocks(pid int32) error {
	args := m.Called(pid)
	return args.Error(0)
}

func (m *MockSDK) Pause(reason string) (sdk.Status, error) {
	args := m.Called(reason)
	return args.Get(0).(sdk.Status), args.Error(1)
}

func (m *MockSDK) Resume(reason string) (sdk.Status, error) {
	args := m.Called(reason)
	return args.Get(0).(sdk.Status), args.Error(1)
}
