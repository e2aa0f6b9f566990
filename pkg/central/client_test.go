package central

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMAC    MacAddress   = "aa:bb:cc:dd:ee:ff"
	testSerial SerialNumber = "CN12345678"
)

// newTestClient starts a cloud API stub serving routes keyed by URL path
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler, ok := routes[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL}, NewHTTPRequester(server.URL, server.Client()))
	require.NoError(t, err)
	return client, &hits
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestNewClient_RequiresRequester(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.Error(t, err)
}

func TestNewClient_DefaultTemplateGroup(t *testing.T) {
	c, err := NewClient(ClientConfig{BaseURL: "https://x"}, RequesterFunc(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplateGroup, c.Config().TemplateGroup)
}

func TestGetDeviceStatus_Up(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/monitoring/v2/aps": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "aa:bb:cc:dd:ee:ff", r.URL.Query().Get("macaddr"))
			assert.Equal(t, "status", r.URL.Query().Get("fields"))
			jsonHandler(http.StatusOK, `{"aps":[{"status":"Up"}]}`)(w, r)
		},
	})

	status, err := client.GetDeviceStatus(context.Background(), testMAC)
	require.NoError(t, err)

	assert.Equal(t, testMAC, status.MAC)
	assert.Equal(t, DeviceStateUp, status.State)
}

func TestGetDeviceStatus_MatchesMacAddress(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/monitoring/v2/aps": jsonHandler(http.StatusOK, `{"aps":[
			{"macaddr":"11:22:33:44:55:66","status":"Up"},
			{"macaddr":"AA:BB:CC:DD:EE:FF","status":"Down"}
		]}`),
	})

	status, err := client.GetDeviceStatus(context.Background(), testMAC)
	require.NoError(t, err)
	assert.Equal(t, DeviceStateDown, status.State)
}

func TestGetDeviceStatus_Failures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "no entries",
			body: `{"aps":[],"count":0}`,
			check: func(t *testing.T, err error) {
				var nf *NotFoundError
				assert.True(t, errors.As(err, &nf))
			},
		},
		{
			name: "no entry matches",
			body: `{"aps":[{"macaddr":"11:22:33:44:55:66","status":"Up"}]}`,
			check: func(t *testing.T, err error) {
				var nf *NotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Equal(t, testMAC.String(), nf.ID)
			},
		},
		{
			name: "missing aps",
			body: `{"count":1}`,
			check: func(t *testing.T, err error) {
				var se *UpstreamShapeError
				assert.True(t, errors.As(err, &se))
			},
		},
		{
			name: "missing status",
			body: `{"aps":[{"name":"ap-1"}]}`,
			check: func(t *testing.T, err error) {
				var se *UpstreamShapeError
				require.True(t, errors.As(err, &se))
				assert.Contains(t, se.Reason, "status")
			},
		},
		{
			name: "not json",
			body: `<html>gateway</html>`,
			check: func(t *testing.T, err error) {
				var se *UpstreamShapeError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, "<html>gateway</html>", se.Body)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]http.HandlerFunc{
				"/monitoring/v2/aps": jsonHandler(http.StatusOK, tt.body),
			})

			_, err := client.GetDeviceStatus(context.Background(), testMAC)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

// TestServerErrors_AllOperations tests every cloud operation maps 5xx to an unavailable error
func TestServerErrors_AllOperations(t *testing.T) {
	// Body would decode successfully if extraction were attempted
	body := `{"aps":[{"status":"Up"}],"data":{"CN12345678":{"template_name":"t"}},"ssids":[],"message":"{\"Template_error_status\":true}"}`
	handler := jsonHandler(http.StatusServiceUnavailable, body)
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/monitoring/v2/aps":                                  handler,
		"/configuration/v1/devices/template":                  handler,
		"/configuration/v1/groups/group/templates":            handler,
		"/configuration/v1/devices/CN12345678/config_details": handler,
		"/rapids/v1/ssid_allow":                               handler,
	})
	ctx := context.Background()

	ops := map[string]func() error{
		"GetDeviceStatus": func() error { _, err := client.GetDeviceStatus(ctx, testMAC); return err },
		"GetTemplateAssignment": func() error {
			_, err := client.GetTemplateAssignment(ctx, testSerial)
			return err
		},
		"GetTemplateCatalog": func() error { _, err := client.GetTemplateCatalog(ctx, 20, 0); return err },
		"GetTemplateSyncStatus": func() error {
			_, err := client.GetTemplateSyncStatus(ctx, testSerial)
			return err
		},
		"GetBroadcastSsids": func() error { _, err := client.GetBroadcastSsids(ctx, 20, 0); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()

			var ue *UpstreamUnavailableError
			require.True(t, errors.As(err, &ue), "got %v", err)
			assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
			assert.True(t, ue.Retryable())
		})
	}
}

func TestClientErrors_StatusMapping(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/configuration/v1/devices/template":                  jsonHandler(http.StatusNotFound, `{"description":"not found"}`),
		"/configuration/v1/devices/CN12345678/config_details": jsonHandler(http.StatusBadRequest, `{"description":"bad serial"}`),
	})

	_, err := client.GetTemplateAssignment(context.Background(), testSerial)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)

	_, err = client.GetTemplateSyncStatus(context.Background(), testSerial)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, http.StatusBadRequest, ve.StatusCode)
	assert.Contains(t, ve.Body, "bad serial")
}

func TestTransportFailure(t *testing.T) {
	failing := RequesterFunc(func(ctx context.Context, req Request) (*Response[json.RawMessage], error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	client, err := NewClient(ClientConfig{}, failing)
	require.NoError(t, err)

	_, err = client.GetBroadcastSsids(context.Background(), 10, 0)

	var ue *UpstreamUnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "ssid_allow", ue.Endpoint)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetTemplateAssignment(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/configuration/v1/devices/template": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "CN12345678", r.URL.Query().Get("device_serials"))
			jsonHandler(http.StatusOK, `{"data":{"CN12345678":{"template_name":"branch-switch","device_type":"CX"}}}`)(w, r)
		},
	})

	name, err := client.GetTemplateAssignment(context.Background(), testSerial)
	require.NoError(t, err)
	assert.Equal(t, "branch-switch", name)
}

func TestGetTemplateAssignment_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		notFound bool
	}{
		{"serial absent", `{"data":{"OTHER1":{"template_name":"x"}}}`, true},
		{"missing data", `{"total":0}`, false},
		{"missing template name", `{"data":{"CN12345678":{}}}`, false},
		{"null entry", `{"data":{"CN12345678":null}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]http.HandlerFunc{
				"/configuration/v1/devices/template": jsonHandler(http.StatusOK, tt.body),
			})

			_, err := client.GetTemplateAssignment(context.Background(), testSerial)

			if tt.notFound {
				var nf *NotFoundError
				assert.True(t, errors.As(err, &nf))
			} else {
				var se *UpstreamShapeError
				assert.True(t, errors.As(err, &se))
			}
		})
	}
}

func TestGetTemplateAssignments_Multiple(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/configuration/v1/devices/template": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "CN1,CN2", r.URL.Query().Get("device_serials"))
			jsonHandler(http.StatusOK, `{"data":{"cn1":{"template_name":"a"},"CN2":{"template_name":"b"}}}`)(w, r)
		},
	})

	got, err := client.GetTemplateAssignments(context.Background(), "CN1", "CN2")
	require.NoError(t, err)
	assert.Equal(t, TemplateAssignment{"CN1": "a", "CN2": "b"}, got)

	_, err = client.GetTemplateAssignments(context.Background())
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestGetTemplateCatalog(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/configuration/v1/groups/group/templates": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			assert.Equal(t, "40", r.URL.Query().Get("offset"))
			jsonHandler(http.StatusOK, `{"data":[
				{"name":"branch-ap","group":"group","device_type":"IAP","model":"ALL","version":"ALL","template_hash":"abc"},
				{"name":"core-cx","device_type":"CX"}
			],"total":42}`)(w, r)
		},
	})

	templates, err := client.GetTemplateCatalog(context.Background(), 20, 40)
	require.NoError(t, err)

	require.Len(t, templates, 2)
	assert.Equal(t, TemplateDescriptor{Name: "branch-ap", Group: "group", DeviceType: "IAP", Model: "ALL", Version: "ALL", Hash: "abc"}, templates[0])
	assert.Equal(t, "core-cx", templates[1].Name)
}

func TestGetTemplateCatalog_MissingName(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/configuration/v1/groups/group/templates": jsonHandler(http.StatusOK, `{"data":[{"device_type":"CX"}]}`),
	})

	_, err := client.GetTemplateCatalog(context.Background(), 20, 0)

	var se *UpstreamShapeError
	assert.True(t, errors.As(err, &se))
}

func TestPagination_Validation(t *testing.T) {
	client, hits := newTestClient(t, map[string]http.HandlerFunc{})
	ctx := context.Background()

	for _, page := range [][2]int{{0, 0}, {-1, 0}, {MaxPageSize + 1, 0}, {10, -1}} {
		_, err := client.GetTemplateCatalog(ctx, page[0], page[1])
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "catalog %v", page)

		_, err = client.GetBroadcastSsids(ctx, page[0], page[1])
		assert.True(t, errors.As(err, &ve), "ssids %v", page)
	}

	assert.Equal(t, int32(0), hits.Load())
}

func TestGetTemplateSyncStatus(t *testing.T) {
	tests := []struct {
		name    string
		message string
		inSync  bool
	}{
		{
			name:    "embedded false",
			message: `noise {"Template_error_status": false} trailing`,
			inSync:  false,
		},
		{
			name:    "embedded true",
			message: `Device config: {"Template_error_status": true}`,
			inSync:  true,
		},
		{
			name:    "nested fragment uses the balancing brace",
			message: `pre {"details": {"lines": 3}, "Template_error_status": true} post {"Template_error_status": false}`,
			inSync:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]string{"message": tt.message})
			require.NoError(t, err)

			client, _ := newTestClient(t, map[string]http.HandlerFunc{
				"/configuration/v1/devices/CN12345678/config_details": func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "false", r.URL.Query().Get("details"))
					assert.Equal(t, "application/json", r.Header.Get("Accept"))
					jsonHandler(http.StatusOK, string(body))(w, r)
				},
			})

			status, err := client.GetTemplateSyncStatus(context.Background(), testSerial)
			require.NoError(t, err)

			assert.Equal(t, testSerial, status.Serial)
			assert.Equal(t, tt.inSync, status.InSync)
			require.NotNil(t, status.RawDetail)
			assert.Equal(t, tt.message, *status.RawDetail)
		})
	}
}

func TestGetTemplateSyncStatus_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no message", `{"status":"ok"}`},
		{"no object in message", `{"message":"template applied"}`},
		{"unbalanced object", `{"message":"x {\"Template_error_status\": false"}`},
		{"invalid embedded json", `{"message":"x {Template_error_status: false} y"}`},
		{"key absent", `{"message":"x {\"Config_error_status\": false} y"}`},
		{"key not boolean", `{"message":"x {\"Template_error_status\": \"no\"} y"}`},
		{"key null", `{"message":"x {\"Template_error_status\": null} y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]http.HandlerFunc{
				"/configuration/v1/devices/CN12345678/config_details": jsonHandler(http.StatusOK, tt.body),
			})

			_, err := client.GetTemplateSyncStatus(context.Background(), testSerial)

			var se *UpstreamShapeError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, "config_details", se.Endpoint)
		})
	}
}

func TestGetBroadcastSsids(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/rapids/v1/ssid_allow": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			assert.Equal(t, "0", r.URL.Query().Get("offset"))
			jsonHandler(http.StatusOK, `{"ssids":[{"ssid":"corp","broadcast":true},{"ssid":"guest","broadcast":false},{"ssid":"iot","broadcast":true}]}`)(w, r)
		},
	})

	ssids, err := client.GetBroadcastSsids(context.Background(), 50, 0)
	require.NoError(t, err)

	assert.Equal(t, []SsidEntry{
		{Name: "corp", Broadcast: true},
		{Name: "guest", Broadcast: false},
		{Name: "iot", Broadcast: true},
	}, ssids)
}

func TestGetBroadcastSsids_ShapeErrors(t *testing.T) {
	for _, body := range []string{`{"count":0}`, `{"ssids":[{"ssid":"corp"}]}`, `{"ssids":[{"broadcast":true}]}`} {
		client, _ := newTestClient(t, map[string]http.HandlerFunc{
			"/rapids/v1/ssid_allow": jsonHandler(http.StatusOK, body),
		})

		_, err := client.GetBroadcastSsids(context.Background(), 10, 0)

		var se *UpstreamShapeError
		assert.True(t, errors.As(err, &se), body)
	}
}

// TestConcurrentCalls tests that parallel calls return the same results as sequential ones
func TestConcurrentCalls(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"/monitoring/v2/aps":    jsonHandler(http.StatusOK, `{"aps":[{"status":"Down"}]}`),
		"/rapids/v1/ssid_allow": jsonHandler(http.StatusOK, `{"ssids":[{"ssid":"corp","broadcast":true}]}`),
	})
	ctx := context.Background()

	wantStatus, err := client.GetDeviceStatus(ctx, testMAC)
	require.NoError(t, err)
	wantSsids, err := client.GetBroadcastSsids(ctx, 10, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, err := client.GetDeviceStatus(ctx, testMAC)
			assert.NoError(t, err)
			assert.Equal(t, wantStatus, got)
		}()
		go func() {
			defer wg.Done()
			got, err := client.GetBroadcastSsids(ctx, 10, 0)
			assert.NoError(t, err)
			assert.Equal(t, wantSsids, got)
		}()
	}
	wg.Wait()
}
