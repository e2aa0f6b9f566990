package config

import (
	"fmt"
	"os"

	"github.com/andreweacott/central-client/pkg/central"
	"gopkg.in/yaml.v3"
)

// Inventory lists the devices the exporter watches.
//
//	access_points:
//	  - aa:bb:cc:dd:ee:ff
//	devices:
//	  - CN12345678
//	switches:
//	  - address: 10.0.0.2
//	    ports: ["1/1/1", "1/1/2"]
type Inventory struct {
	AccessPoints []central.MacAddress
	Devices      []central.SerialNumber
	Switches     []SwitchPorts
}

// SwitchPorts names the ports of one switch whose LLDP neighbours are watched
type SwitchPorts struct {
	Address string   `yaml:"address"`
	Ports   []string `yaml:"ports"`
}

type inventoryFile struct {
	AccessPoints []string      `yaml:"access_points"`
	Devices      []string      `yaml:"devices"`
	Switches     []SwitchPorts `yaml:"switches"`
}

// LoadInventory reads and validates an inventory file
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return ParseInventory(data)
}

// ParseInventory decodes inventory YAML, normalizing every identifier
func ParseInventory(data []byte) (*Inventory, error) {
	var raw inventoryFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}

	inv := &Inventory{Switches: raw.Switches}
	for _, s := range raw.AccessPoints {
		mac, err := central.ParseMacAddress(s)
		if err != nil {
			return nil, fmt.Errorf("access_points: %w", err)
		}
		inv.AccessPoints = append(inv.AccessPoints, mac)
	}
	for _, s := range raw.Devices {
		sn, err := central.ParseSerialNumber(s)
		if err != nil {
			return nil, fmt.Errorf("devices: %w", err)
		}
		inv.Devices = append(inv.Devices, sn)
	}
	for i, sw := range raw.Switches {
		if sw.Address == "" {
			return nil, fmt.Errorf("switches[%d]: address is required", i)
		}
		if len(sw.Ports) == 0 {
			return nil, fmt.Errorf("switches[%d]: at least one port is required", i)
		}
	}

	return inv, nil
}
