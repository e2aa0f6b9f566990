// Package mocks provides test doubles for collector package.
package mocks

import (
	"context"

	"github.com/andreweacott/central-client/pkg/central"
	"github.com/stretchr/testify/mock"
)

// MockCentralAPI is a mock implementation of the CentralAPI interface
type MockCentralAPI struct {
	mock.Mock
}

// GetDeviceStatus implements CentralAPI.GetDeviceStatus
func (m *MockCentralAPI) GetDeviceStatus(ctx context.Context, mac central.MacAddress) (central.DeviceStatus, error) {
	args := m.Called(ctx, mac)
	return args.Get(0).(central.DeviceStatus), args.Error(1)
}

// GetTemplateAssignment implements CentralAPI.GetTemplateAssignment
func (m *MockCentralAPI) GetTemplateAssignment(ctx context.Context, serial central.SerialNumber) (string, error) {
	args := m.Called(ctx, serial)
	return args.String(0), args.Error(1)
}

// GetTemplateSyncStatus implements CentralAPI.GetTemplateSyncStatus
func (m *MockCentralAPI) GetTemplateSyncStatus(ctx context.Context, serial central.SerialNumber) (central.TemplateSyncStatus, error) {
	args := m.Called(ctx, serial)
	return args.Get(0).(central.TemplateSyncStatus), args.Error(1)
}

// GetLldpNeighbors implements CentralAPI.GetLldpNeighbors
func (m *MockCentralAPI) GetLldpNeighbors(ctx context.Context, switchManagementIP, portName string) ([]central.LldpNeighbor, error) {
	args := m.Called(ctx, switchManagementIP, portName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]central.LldpNeighbor), args.Error(1)
}
