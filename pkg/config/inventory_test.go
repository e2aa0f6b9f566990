package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andreweacott/central-client/pkg/central"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInventory = `
access_points:
  - AA-BB-CC-DD-EE-FF
  - 00:11:22:33:44:55
devices:
  - cn12345678
switches:
  - address: 10.0.0.2
    ports: ["1/1/1", "1/1/2"]
`

func TestParseInventory(t *testing.T) {
	inv, err := ParseInventory([]byte(sampleInventory))
	require.NoError(t, err)

	assert.Equal(t, []central.MacAddress{"aa:bb:cc:dd:ee:ff", "00:11:22:33:44:55"}, inv.AccessPoints)
	assert.Equal(t, []central.SerialNumber{"CN12345678"}, inv.Devices)
	require.Len(t, inv.Switches, 1)
	assert.Equal(t, "10.0.0.2", inv.Switches[0].Address)
	assert.Equal(t, []string{"1/1/1", "1/1/2"}, inv.Switches[0].Ports)
}

func TestParseInventory_InvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		message string
	}{
		{"bad mac", "access_points: [not-a-mac]", "access_points"},
		{"bad serial", "devices: ['CN-1234']", "devices"},
		{"switch without address", "switches: [{ports: ['1/1/1']}]", "address is required"},
		{"switch without ports", "switches: [{address: 10.0.0.2}]", "at least one port"},
		{"not yaml", "access_points: [", "failed to parse inventory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInventory([]byte(tt.data))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleInventory), 0o600))

	inv, err := LoadInventory(path)
	require.NoError(t, err)
	assert.Len(t, inv.AccessPoints, 2)

	_, err = LoadInventory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
