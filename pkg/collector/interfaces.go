// Package collector provides interfaces for management API interactions.
package collector

import (
	"context"

	"github.com/andreweacott/central-client/pkg/central"
)

// CentralAPI defines the client operations the collector needs.
// *central.Client satisfies it; tests substitute mocks.
type CentralAPI interface {
	// GetDeviceStatus retrieves the reachability of one access point
	GetDeviceStatus(ctx context.Context, mac central.MacAddress) (central.DeviceStatus, error)

	// GetTemplateAssignment retrieves the template name assigned to a device
	GetTemplateAssignment(ctx context.Context, serial central.SerialNumber) (string, error)

	// GetTemplateSyncStatus retrieves whether a device matches its template
	GetTemplateSyncStatus(ctx context.Context, serial central.SerialNumber) (central.TemplateSyncStatus, error)

	// GetLldpNeighbors retrieves the LLDP neighbours on one switch port
	GetLldpNeighbors(ctx context.Context, switchManagementIP, portName string) ([]central.LldpNeighbor, error)
}
