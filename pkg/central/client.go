// Package central implements a typed client for the network management cloud API.
//
// It provides:
//   - Typed read operations for AP status, templates, template sync state and SSIDs
//   - Direct LLDP neighbour lookups against a switch's local REST API
//   - A uniform error taxonomy (validation, not found, shape, unavailable)
//   - Requester decorators for circuit breaking and instrumentation
//
// The client keeps no state between calls beyond its configuration and the
// injected requesters, so it may be shared between goroutines. It never
// retries; callers decide whether an *UpstreamUnavailableError is worth
// another attempt.
package central

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andreweacott/central-client/pkg/logger"
)

const (
	// MaxPortNameLength bounds switch interface names accepted by GetLldpNeighbors
	MaxPortNameLength = 16
	// MaxPageSize bounds the limit accepted by paginated listings
	MaxPageSize = 1000

	defaultDeviceTimeout = 15 * time.Second

	endpointAPStatus       = "ap_status"
	endpointTemplate       = "device_template"
	endpointTemplateList   = "group_templates"
	endpointConfigDetails  = "config_details"
	endpointSsidAllow      = "ssid_allow"
	endpointLldpNeighbours = "lldp_neighbors"

	templateErrorStatusKey = "Template_error_status"
)

// Client is the management API client
type Client struct {
	cfg          ClientConfig
	cloud        Requester
	deviceClient *http.Client
	log          *logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithLogger sets the logger used for request tracing
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithDeviceHTTPClient sets the HTTP client used for direct switch calls.
// It must not carry the cloud session.
func WithDeviceHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.deviceClient = client
	}
}

// NewClient creates a client that sends cloud calls through the given requester
func NewClient(cfg ClientConfig, cloud Requester, opts ...Option) (*Client, error) {
	if cloud == nil {
		return nil, fmt.Errorf("cloud requester is required")
	}
	if cfg.TemplateGroup == "" {
		cfg.TemplateGroup = DefaultTemplateGroup
	}

	c := &Client{
		cfg:   cfg,
		cloud: cloud,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		noop, _ := logger.NewWithWriter("error", "text", io.Discard)
		c.log = noop
	}
	if c.deviceClient == nil {
		c.deviceClient = &http.Client{
			Timeout: defaultDeviceTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}, //nolint:gosec // switch certificates are commonly self-signed
			},
		}
	}

	return c, nil
}

// Config returns a copy of the client configuration
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// GetDeviceStatus returns whether the access point with the given MAC is up
func (c *Client) GetDeviceStatus(ctx context.Context, mac MacAddress) (DeviceStatus, error) {
	req := Request{
		Endpoint: endpointAPStatus,
		Path:     "/monitoring/v2/aps",
		Query:    url.Values{"macaddr": {mac.String()}, "fields": {"status"}},
	}
	payload, err := c.get(ctx, req, "access point", mac.String())
	if err != nil {
		return DeviceStatus{}, err
	}

	var body struct {
		APs *[]struct {
			MacAddr *string `json:"macaddr"`
			Status  *string `json:"status"`
		} `json:"aps"`
	}
	if err := decode(req.Endpoint, payload, &body); err != nil {
		return DeviceStatus{}, err
	}
	if body.APs == nil {
		return DeviceStatus{}, shapeError(req.Endpoint, "missing aps array", payload)
	}

	for _, ap := range *body.APs {
		// The status-only projection usually omits macaddr; trust the upstream filter then
		if ap.MacAddr != nil {
			got, err := ParseMacAddress(*ap.MacAddr)
			if err != nil || got != mac {
				continue
			}
		}
		if ap.Status == nil {
			return DeviceStatus{}, shapeError(req.Endpoint, "matching entry has no status field", payload)
		}
		return DeviceStatus{MAC: mac, State: parseDeviceState(*ap.Status)}, nil
	}

	return DeviceStatus{}, &NotFoundError{Resource: "access point", ID: mac.String(), Endpoint: req.Endpoint}
}

// GetTemplateAssignment returns the name of the template assigned to a device
func (c *Client) GetTemplateAssignment(ctx context.Context, serial SerialNumber) (string, error) {
	assignments, err := c.GetTemplateAssignments(ctx, serial)
	if err != nil {
		return "", err
	}
	return assignments[serial], nil
}

// GetTemplateAssignments returns the template assigned to each of the given devices.
// Every requested serial must be present in the response.
func (c *Client) GetTemplateAssignments(ctx context.Context, serials ...SerialNumber) (TemplateAssignment, error) {
	if len(serials) == 0 {
		return nil, &ValidationError{Field: "device_serials", Reason: "at least one serial is required"}
	}

	joined := make([]string, len(serials))
	for i, sn := range serials {
		joined[i] = sn.String()
	}
	ids := strings.Join(joined, ",")

	req := Request{
		Endpoint: endpointTemplate,
		Path:     "/configuration/v1/devices/template",
		Query:    url.Values{"device_serials": {ids}},
	}
	payload, err := c.get(ctx, req, "device", ids)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data map[string]*templateEntry `json:"data"`
	}
	if err := decode(req.Endpoint, payload, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, shapeError(req.Endpoint, "missing data object", payload)
	}

	byKey := make(map[SerialNumber]*templateEntry, len(body.Data))
	for key, entry := range body.Data {
		byKey[SerialNumber(strings.ToUpper(key))] = entry
	}

	result := make(TemplateAssignment, len(serials))
	for _, sn := range serials {
		entry, ok := byKey[sn]
		if !ok {
			return nil, &NotFoundError{Resource: "device", ID: sn.String(), Endpoint: req.Endpoint}
		}
		if entry == nil || entry.TemplateName == nil {
			return nil, shapeError(req.Endpoint, fmt.Sprintf("entry for %s has no template_name", sn), payload)
		}
		result[sn] = *entry.TemplateName
	}

	return result, nil
}

type templateEntry struct {
	TemplateName *string `json:"template_name"`
}

// GetTemplateCatalog returns one page of templates from the configured group
func (c *Client) GetTemplateCatalog(ctx context.Context, limit, offset int) ([]TemplateDescriptor, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	req := Request{
		Endpoint: endpointTemplateList,
		Path:     "/configuration/v1/groups/" + url.PathEscape(c.cfg.TemplateGroup) + "/templates",
		Query:    pageQuery(limit, offset),
	}
	payload, err := c.get(ctx, req, "group", c.cfg.TemplateGroup)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data *[]struct {
			Name       *string `json:"name"`
			Group      string  `json:"group"`
			DeviceType string  `json:"device_type"`
			Model      string  `json:"model"`
			Version    string  `json:"version"`
			Hash       string  `json:"template_hash"`
		} `json:"data"`
	}
	if err := decode(req.Endpoint, payload, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, shapeError(req.Endpoint, "missing data array", payload)
	}

	templates := make([]TemplateDescriptor, 0, len(*body.Data))
	for i, t := range *body.Data {
		if t.Name == nil {
			return nil, shapeError(req.Endpoint, fmt.Sprintf("template %d has no name", i), payload)
		}
		templates = append(templates, TemplateDescriptor{
			Name:       *t.Name,
			Group:      t.Group,
			DeviceType: t.DeviceType,
			Model:      t.Model,
			Version:    t.Version,
			Hash:       t.Hash,
		})
	}

	return templates, nil
}

// GetTemplateSyncStatus reports whether a device is in sync with its template.
// The upstream embeds the status as a JSON object inside a free-text message.
func (c *Client) GetTemplateSyncStatus(ctx context.Context, serial SerialNumber) (TemplateSyncStatus, error) {
	req := Request{
		Endpoint: endpointConfigDetails,
		Path:     "/configuration/v1/devices/" + url.PathEscape(serial.String()) + "/config_details",
		Query:    url.Values{"details": {"false"}},
		Header:   http.Header{"Accept": {"application/json"}},
	}
	payload, err := c.get(ctx, req, "device", serial.String())
	if err != nil {
		return TemplateSyncStatus{}, err
	}

	var body struct {
		Message *string `json:"message"`
	}
	if err := decode(req.Endpoint, payload, &body); err != nil {
		return TemplateSyncStatus{}, err
	}
	if body.Message == nil {
		return TemplateSyncStatus{}, shapeError(req.Endpoint, "missing message field", payload)
	}

	fragment, err := ExtractJSONObject(*body.Message)
	if err != nil {
		return TemplateSyncStatus{}, &UpstreamShapeError{Endpoint: req.Endpoint, Reason: "message has no embedded status object", Body: excerpt(payload), Cause: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &fields); err != nil {
		return TemplateSyncStatus{}, &UpstreamShapeError{Endpoint: req.Endpoint, Reason: "embedded status object is not valid JSON", Body: excerpt(payload), Cause: err}
	}
	raw, ok := fields[templateErrorStatusKey]
	if !ok {
		return TemplateSyncStatus{}, shapeError(req.Endpoint, "embedded status object has no "+templateErrorStatusKey, payload)
	}
	var inSync *bool
	if err := json.Unmarshal(raw, &inSync); err != nil {
		return TemplateSyncStatus{}, &UpstreamShapeError{Endpoint: req.Endpoint, Reason: templateErrorStatusKey + " is not a boolean", Body: excerpt(payload), Cause: err}
	}
	if inSync == nil {
		return TemplateSyncStatus{}, shapeError(req.Endpoint, templateErrorStatusKey+" is null", payload)
	}

	detail := *body.Message
	return TemplateSyncStatus{Serial: serial, InSync: *inSync, RawDetail: &detail}, nil
}

// GetBroadcastSsids returns one page of the SSID allow list, in upstream order
func (c *Client) GetBroadcastSsids(ctx context.Context, limit, offset int) ([]SsidEntry, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	req := Request{
		Endpoint: endpointSsidAllow,
		Path:     "/rapids/v1/ssid_allow",
		Query:    pageQuery(limit, offset),
	}
	payload, err := c.get(ctx, req, "ssid allow list", "")
	if err != nil {
		return nil, err
	}

	var body struct {
		SSIDs *[]struct {
			SSID      *string `json:"ssid"`
			Broadcast *bool   `json:"broadcast"`
		} `json:"ssids"`
	}
	if err := decode(req.Endpoint, payload, &body); err != nil {
		return nil, err
	}
	if body.SSIDs == nil {
		return nil, shapeError(req.Endpoint, "missing ssids array", payload)
	}

	entries := make([]SsidEntry, 0, len(*body.SSIDs))
	for i, s := range *body.SSIDs {
		if s.SSID == nil || s.Broadcast == nil {
			return nil, shapeError(req.Endpoint, fmt.Sprintf("ssid entry %d is missing ssid or broadcast", i), payload)
		}
		entries = append(entries, SsidEntry{Name: *s.SSID, Broadcast: *s.Broadcast})
	}

	return entries, nil
}

// GetLldpNeighbors lists LLDP neighbours on one switch port.
// The call goes straight to the switch's REST API and never uses the cloud session.
func (c *Client) GetLldpNeighbors(ctx context.Context, switchManagementIP, portName string) ([]LldpNeighbor, error) {
	if portName == "" {
		return nil, &ValidationError{Field: "port", Value: portName, Reason: "must not be empty"}
	}
	if len(portName) > MaxPortNameLength {
		return nil, &ValidationError{Field: "port", Value: portName, Reason: fmt.Sprintf("must be at most %d characters", MaxPortNameLength)}
	}
	host, err := switchHost(switchManagementIP)
	if err != nil {
		return nil, err
	}

	req := Request{
		Endpoint: endpointLldpNeighbours,
		Path:     "/rest/v10.04/system/interfaces/" + url.PathEscape(portName) + "/lldp_neighbors",
		Header:   http.Header{"Accept": {"application/json"}},
	}
	device := NewHTTPRequester("https://"+host, c.deviceClient)
	payload, err := c.do(ctx, device, req, "interface", portName)
	if err != nil {
		return nil, err
	}

	var body map[string]json.RawMessage
	if err := decode(req.Endpoint, payload, &body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, shapeError(req.Endpoint, "body is not an object", payload)
	}

	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	neighbors := make([]LldpNeighbor, 0, len(keys))
	for _, key := range keys {
		n, err := parseLldpNeighbor(key, body[key])
		if err != nil {
			return nil, &UpstreamShapeError{Endpoint: req.Endpoint, Reason: fmt.Sprintf("neighbour %q", key), Body: excerpt(payload), Cause: err}
		}
		neighbors = append(neighbors, n)
	}

	return neighbors, nil
}

// parseLldpNeighbor handles both the URI-only listing and the expanded (depth>=1) form
func parseLldpNeighbor(key string, raw json.RawMessage) (LldpNeighbor, error) {
	chassisID, portID, ok := strings.Cut(key, ",")
	if !ok {
		return LldpNeighbor{}, fmt.Errorf("key is not <chassis_id>,<port_id>")
	}
	n := LldpNeighbor{ChassisID: chassisID, PortID: portID}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return LldpNeighbor{}, fmt.Errorf("value is null")
	}

	var uri string
	if err := json.Unmarshal(raw, &uri); err == nil {
		n.URI = uri
		return n, nil
	}

	var expanded struct {
		ChassisID    string `json:"chassis_id"`
		PortID       string `json:"port_id"`
		NeighborInfo struct {
			ChassisName     string `json:"chassis_name"`
			PortDescription string `json:"port_description"`
		} `json:"neighbor_info"`
	}
	if err := json.Unmarshal(raw, &expanded); err != nil {
		return LldpNeighbor{}, err
	}
	if expanded.ChassisID != "" {
		n.ChassisID = expanded.ChassisID
	}
	if expanded.PortID != "" {
		n.PortID = expanded.PortID
	}
	n.SystemName = expanded.NeighborInfo.ChassisName
	n.PortDescription = expanded.NeighborInfo.PortDescription
	return n, nil
}

// switchHost validates a management address and renders it for a URL
func switchHost(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if ip := net.ParseIP(addr); ip != nil {
		if ip.To4() == nil {
			return "[" + ip.String() + "]", nil
		}
		return ip.String(), nil
	}
	if host, port, err := net.SplitHostPort(addr); err == nil && net.ParseIP(host) != nil {
		if _, err := strconv.ParseUint(port, 10, 16); err == nil {
			return net.JoinHostPort(host, port), nil
		}
	}
	return "", &ValidationError{Field: "switch_ip", Value: addr, Reason: "must be an IP address, optionally with a port"}
}

// get sends a cloud request and returns the payload of a successful response
func (c *Client) get(ctx context.Context, req Request, resource, id string) (json.RawMessage, error) {
	return c.do(ctx, c.cloud, req, resource, id)
}

func (c *Client) do(ctx context.Context, r Requester, req Request, resource, id string) (json.RawMessage, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	c.log.Debug("Sending request", "endpoint", req.Endpoint, "path", req.Path)

	resp, err := r.Do(ctx, req)
	if err != nil {
		c.log.Debug("Request failed", "endpoint", req.Endpoint, "error", err.Error())
		return nil, asTyped(req.Endpoint, err)
	}
	if resp == nil {
		return nil, &UpstreamUnavailableError{Endpoint: req.Endpoint, Cause: errors.New("no response")}
	}
	if !resp.Success() {
		c.log.Debug("Request returned error status", "endpoint", req.Endpoint, "status", resp.StatusCode)
		return nil, statusError(req.Endpoint, resource, id, resp.StatusCode, resp.Payload)
	}

	return resp.Payload, nil
}

// asTyped keeps taxonomy errors as they are and treats anything else as a transport failure
func asTyped(endpoint string, err error) error {
	var (
		validation  *ValidationError
		notFound    *NotFoundError
		shape       *UpstreamShapeError
		unavailable *UpstreamUnavailableError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound),
		errors.As(err, &shape), errors.As(err, &unavailable):
		return err
	default:
		return &UpstreamUnavailableError{Endpoint: endpoint, Cause: err}
	}
}

func decode(endpoint string, payload json.RawMessage, out any) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return &UpstreamShapeError{Endpoint: endpoint, Reason: "body is not the expected JSON", Body: excerpt(payload), Cause: err}
	}
	return nil
}

func shapeError(endpoint, reason string, payload json.RawMessage) error {
	return &UpstreamShapeError{Endpoint: endpoint, Reason: reason, Body: excerpt(payload)}
}

func validatePage(limit, offset int) error {
	if limit < 1 || limit > MaxPageSize {
		return &ValidationError{Field: "limit", Value: strconv.Itoa(limit), Reason: fmt.Sprintf("must be between 1 and %d", MaxPageSize)}
	}
	if offset < 0 {
		return &ValidationError{Field: "offset", Value: strconv.Itoa(offset), Reason: "must not be negative"}
	}
	return nil
}

func pageQuery(limit, offset int) url.Values {
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}
