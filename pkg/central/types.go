package central

import (
	"fmt"
	"net"
	"strings"
)

// DefaultTemplateGroup is used when ClientConfig.TemplateGroup is empty
const DefaultTemplateGroup = "group"

// ClientConfig holds the connection settings for the cloud API.
// It is copied into the Client at construction and never changed afterwards.
type ClientConfig struct {
	// BaseURL is the API gateway URL, e.g. https://apigw-eucentral3.central.arubanetworks.com
	BaseURL string
	// AccessToken is the bearer token used by the session capability
	AccessToken string
	// VerifyTLS enables certificate verification on both transports
	VerifyTLS bool
	// TemplateGroup names the configuration group whose templates are listed
	TemplateGroup string
}

// String returns a representation of the config without the token
func (c ClientConfig) String() string {
	return fmt.Sprintf("ClientConfig{BaseURL: %s, VerifyTLS: %t, TemplateGroup: %s}",
		c.BaseURL, c.VerifyTLS, c.TemplateGroup)
}

// MacAddress identifies an access point. Use ParseMacAddress to build one.
type MacAddress string

// ParseMacAddress accepts colon, hyphen or dotted notation and returns
// the lower-case colon form expected by the monitoring API.
func ParseMacAddress(s string) (MacAddress, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil || len(hw) != 6 {
		return "", &ValidationError{Field: "macaddr", Value: s, Reason: "not a valid 48-bit MAC address"}
	}
	return MacAddress(hw.String()), nil
}

// String returns the normalized address
func (m MacAddress) String() string {
	return string(m)
}

// SerialNumber identifies a managed device. Use ParseSerialNumber to build one.
type SerialNumber string

// ParseSerialNumber validates a device serial number.
// Serials are upper-cased since the configuration API keys responses that way.
func ParseSerialNumber(s string) (SerialNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: "serial", Value: s, Reason: "must not be empty"}
	}
	if len(s) > 32 {
		return "", &ValidationError{Field: "serial", Value: s, Reason: "must be at most 32 characters"}
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", &ValidationError{Field: "serial", Value: s, Reason: "must be alphanumeric"}
		}
	}
	return SerialNumber(strings.ToUpper(s)), nil
}

// String returns the serial number
func (s SerialNumber) String() string {
	return string(s)
}

// DeviceState is the reachability of a device as reported by monitoring
type DeviceState int

const (
	DeviceStateUnknown DeviceState = iota
	DeviceStateUp
	DeviceStateDown
)

// String returns the upstream spelling of the state
func (s DeviceState) String() string {
	switch s {
	case DeviceStateUp:
		return "Up"
	case DeviceStateDown:
		return "Down"
	default:
		return "Unknown"
	}
}

// MarshalText renders the state for YAML/JSON output
func (s DeviceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func parseDeviceState(raw string) DeviceState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "up":
		return DeviceStateUp
	case "down":
		return DeviceStateDown
	default:
		return DeviceStateUnknown
	}
}

// DeviceStatus is the reachability of one access point
type DeviceStatus struct {
	MAC   MacAddress  `yaml:"mac" json:"mac"`
	State DeviceState `yaml:"state" json:"state"`
}

// TemplateAssignment maps each device to the name of its configuration template
type TemplateAssignment map[SerialNumber]string

// TemplateDescriptor describes one entry of the template catalog
type TemplateDescriptor struct {
	Name       string `yaml:"name" json:"name"`
	Group      string `yaml:"group" json:"group"`
	DeviceType string `yaml:"device_type" json:"device_type"`
	Model      string `yaml:"model" json:"model"`
	Version    string `yaml:"version" json:"version"`
	Hash       string `yaml:"template_hash" json:"template_hash"`
}

// TemplateSyncStatus reports whether a device runs its assigned template
type TemplateSyncStatus struct {
	Serial    SerialNumber `yaml:"serial" json:"serial"`
	InSync    bool         `yaml:"in_sync" json:"in_sync"`
	RawDetail *string      `yaml:"raw_detail,omitempty" json:"raw_detail,omitempty"`
}

// SsidEntry is one SSID from the allow list
type SsidEntry struct {
	Name      string `yaml:"ssid" json:"ssid"`
	Broadcast bool   `yaml:"broadcast" json:"broadcast"`
}

// LldpNeighbor is a device seen on a switch port via LLDP
type LldpNeighbor struct {
	ChassisID       string `yaml:"chassis_id" json:"chassis_id"`
	PortID          string `yaml:"port_id" json:"port_id"`
	SystemName      string `yaml:"system_name,omitempty" json:"system_name,omitempty"`
	PortDescription string `yaml:"port_description,omitempty" json:"port_description,omitempty"`
	URI             string `yaml:"uri,omitempty" json:"uri,omitempty"`
}

// Response is the envelope every remote call returns before unwrapping
type Response[T any] struct {
	StatusCode int
	Payload    T
}

// Success reports whether the status code is in the 2xx range
func (r *Response[T]) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
