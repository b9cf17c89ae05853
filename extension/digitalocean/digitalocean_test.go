package digitalocean

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/payd-dev/payd/extension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStubbed returns a DigitalOcean extension whose godo client talks to
// a local test server.
func newStubbed(t *testing.T, cfg extension.Config, handler http.HandlerFunc) *DigitalOcean {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := New(cfg)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	d.client.BaseURL = base
	return d
}

func TestDigitalOcean_Create(t *testing.T) {
	cfg := extension.Config{"api_token": "dop_v1_test", "region": "ams3", "size": "s-1vcpu-1gb", "image": "ubuntu-24-04-x64"}
	d := newStubbed(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/droplets", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "svc-5", body["name"])
		assert.Equal(t, "ams3", body["region"])

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"droplet":{"id":3164494,"name":"svc-5"}}`))
	})

	res, err := d.Create(context.Background(), extension.Service{ID: 5, Config: extension.Config{}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3164494, res.Data["droplet_id"])
}

func TestDigitalOcean_SuspendUnsuspend(t *testing.T) {
	var actions []string
	d := newStubbed(t, extension.Config{"api_token": "t"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/droplets/3164494/actions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		actions = append(actions, body["type"].(string))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"action":{"id":1,"status":"in-progress"}}`))
	})

	svc := extension.Service{ID: 5, Config: extension.Config{"droplet_id": 3164494}}

	res, err := d.Suspend(context.Background(), svc)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = d.Unsuspend(context.Background(), svc)
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, []string{"power_off", "power_on"}, actions)
}

func TestDigitalOcean_TerminateToleratesFailingPowerOff(t *testing.T) {
	var deleted bool
	d := newStubbed(t, extension.Config{"api_token": "t"}, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			// Already powered off.
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"id":"unprocessable_entity","message":"droplet is already powered off"}`))
		case http.MethodDelete:
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		}
	})

	svc := extension.Service{ID: 5, Config: extension.Config{"droplet_id": 3164494}}
	res, err := d.Terminate(context.Background(), svc)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, deleted)
}

func TestDigitalOcean_TerminateFailsWhenDeleteFails(t *testing.T) {
	d := newStubbed(t, extension.Config{"api_token": "t"}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"id":"not_found","message":"the resource you requested could not be found"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"action":{"id":1}}`))
	})

	svc := extension.Service{ID: 5, Config: extension.Config{"droplet_id": 3164494}}
	_, err := d.Terminate(context.Background(), svc)
	require.Error(t, err)
	assert.True(t, extension.IsExternal(err))
}

func TestDigitalOcean_RequiresDropletID(t *testing.T) {
	d := New(extension.Config{"api_token": "t"})

	_, err := d.Suspend(context.Background(), extension.Service{ID: 1, Config: extension.Config{}})
	require.Error(t, err)
	assert.False(t, extension.IsExternal(err))
}

func TestDigitalOcean_LoginURL(t *testing.T) {
	d := New(extension.Config{})

	u, ok := d.LoginURL(extension.Service{ID: 1, Config: extension.Config{"droplet_id": 42}})
	require.True(t, ok)
	assert.Equal(t, "https://cloud.digitalocean.com/droplets/42", u)
}

func TestDigitalOcean_ConfigFields(t *testing.T) {
	fields := New(nil).ConfigFields(nil)

	byName := map[string]extension.Field{}
	for _, f := range fields {
		byName[f.Name] = f
	}

	require.Contains(t, byName, "api_token")
	assert.Equal(t, extension.FieldPassword, byName["api_token"].Type)
	assert.True(t, byName["api_token"].Required)
	assert.Equal(t, extension.FieldSelect, byName["region"].Type)
	assert.NotEmpty(t, byName["region"].Options)
}
