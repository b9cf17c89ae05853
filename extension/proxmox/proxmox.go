// Package proxmox provides a server extension that provisions QEMU
// virtual machines on a Proxmox VE cluster through its JSON API.
//
// Authentication uses an API token (PVEAPIToken header), so no ticket
// handling or CSRF tokens are involved. The VM identifier is stored in
// the service configuration under "vmid" after creation and drives every
// later lifecycle call.
package proxmox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payd-dev/payd/extension"
)

// Name is the registry name of this extension.
const Name = "proxmox"

// Proxmox implements extension.Server against the Proxmox VE API.
type Proxmox struct {
	cfg    extension.Config
	client *http.Client
}

var (
	_ extension.Server           = (*Proxmox)(nil)
	_ extension.LoginURLProvider = (*Proxmox)(nil)
)

// New builds a Proxmox extension bound to cfg.
func New(cfg extension.Config) *Proxmox {
	transport := &http.Transport{}
	if !cfg.Bool("verify_tls", false) {
		// Proxmox nodes ship with self-signed certificates; verification
		// is opt-in.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Proxmox{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

// Register wires this extension into the registry.
func Register(r *extension.Registry) {
	r.RegisterServer(Name, func(cfg extension.Config) extension.Server { return New(cfg) })
}

func (p *Proxmox) Metadata() extension.Metadata {
	return extension.Metadata{
		Name:        "Proxmox VE",
		Description: "Proxmox Virtual Environment server integration",
		Version:     "1.0.0",
		Author:      "payd",
		Category:    extension.CategoryServer,
	}
}

func (p *Proxmox) ConfigFields(_ extension.Config) []extension.Field {
	return []extension.Field{
		{Name: "host", Type: extension.FieldText, Label: "Proxmox Host", Description: "Proxmox server hostname or IP address", Required: true},
		{Name: "port", Type: extension.FieldNumber, Label: "Port", Description: "Proxmox API port", Default: 8006, Required: true},
		{Name: "username", Type: extension.FieldText, Label: "API Token ID", Description: "Proxmox API token ID (e.g. user@pam!tokenid)", Required: true},
		{Name: "password", Type: extension.FieldPassword, Label: "API Token Secret", Description: "Proxmox API token secret", Required: true},
		{Name: "node", Type: extension.FieldText, Label: "Node Name", Description: "Proxmox node to create VMs on", Required: true},
		{Name: "storage", Type: extension.FieldText, Label: "Storage", Description: "Storage location for VM disks", Required: true},
		{Name: "bridge", Type: extension.FieldText, Label: "Network Bridge", Description: "Network bridge name", Default: "vmbr0", Required: true},
		{Name: "verify_tls", Type: extension.FieldBoolean, Label: "Verify TLS", Description: "Verify the API server certificate", Default: false, Required: false},
	}
}

// apiResponse is the envelope every Proxmox endpoint responds with.
type apiResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors map[string]any  `json:"errors"`
}

// request performs one API call and returns the raw data payload.
func (p *Proxmox) request(ctx context.Context, method, path string, body map[string]any) (json.RawMessage, error) {
	url := fmt.Sprintf("https://%s:%d/api2/json%s", p.cfg.String("host", ""), p.cfg.Int("port", 8006), path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s=%s", p.cfg.String("username", ""), p.cfg.String("password", "")))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, extension.ExternalWrap(Name, "api request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, extension.ExternalWrap(Name, "read api response", err)
	}

	var parsed apiResponse
	if len(payload) > 0 {
		// Proxmox error bodies are not always JSON; tolerate both.
		_ = json.Unmarshal(payload, &parsed)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(parsed.Errors) > 0 {
			return nil, extension.Externalf(Name, "api error (%s): %v", resp.Status, parsed.Errors)
		}
		return nil, extension.Externalf(Name, "api error (%s): %s", resp.Status, bytes.TrimSpace(payload))
	}

	return parsed.Data, nil
}

// nextID asks the cluster for the next free VM identifier.
func (p *Proxmox) nextID(ctx context.Context) (string, error) {
	data, err := p.request(ctx, http.MethodGet, "/cluster/nextid", nil)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", extension.ExternalWrap(Name, "parse nextid response", err)
	}
	return id, nil
}

// Create allocates a VM id and creates the VM on the configured node.
func (p *Proxmox) Create(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	vmid, err := p.nextID(ctx)
	if err != nil {
		return nil, err
	}

	node := p.cfg.String("node", "")
	vmConfig := map[string]any{
		"vmid":    vmid,
		"name":    fmt.Sprintf("vm-%d", svc.ID),
		"cores":   svc.Config.Int("cores", 1),
		"memory":  svc.Config.Int("memory", 1024),
		"storage": p.cfg.String("storage", ""),
		"ostype":  "l26",
		"net0":    fmt.Sprintf("virtio,bridge=%s", p.cfg.String("bridge", "vmbr0")),
	}

	if _, err := p.request(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu", node), vmConfig); err != nil {
		return nil, err
	}

	return &extension.Result{
		Success: true,
		Message: fmt.Sprintf("VM %s created", vmid),
		Data:    map[string]any{"vmid": vmid},
	}, nil
}

// vmid extracts the VM identifier stored on the service at creation time.
func (p *Proxmox) vmid(svc extension.Service) (string, error) {
	if v := svc.Config.String("vmid", ""); v != "" {
		return v, nil
	}
	if v := svc.Config.Int("vmid", 0); v != 0 {
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("service %d has no vmid in its configuration", svc.ID)
}

// Suspend stops the VM.
func (p *Proxmox) Suspend(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	vmid, err := p.vmid(svc)
	if err != nil {
		return nil, err
	}
	node := p.cfg.String("node", "")
	if _, err := p.request(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu/%s/status/stop", node, vmid), nil); err != nil {
		return nil, err
	}
	return &extension.Result{Success: true, Message: fmt.Sprintf("VM %s suspended", vmid)}, nil
}

// Unsuspend starts the VM.
func (p *Proxmox) Unsuspend(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	vmid, err := p.vmid(svc)
	if err != nil {
		return nil, err
	}
	node := p.cfg.String("node", "")
	if _, err := p.request(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu/%s/status/start", node, vmid), nil); err != nil {
		return nil, err
	}
	return &extension.Result{Success: true, Message: fmt.Sprintf("VM %s unsuspended", vmid)}, nil
}

// Terminate stops the VM best-effort and then deletes it. The stop may
// fail when the VM is already down; only a failing delete fails the
// termination.
func (p *Proxmox) Terminate(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	vmid, err := p.vmid(svc)
	if err != nil {
		return nil, err
	}
	node := p.cfg.String("node", "")

	_, _ = p.request(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu/%s/status/stop", node, vmid), nil)

	if _, err := p.request(ctx, http.MethodDelete, fmt.Sprintf("/nodes/%s/qemu/%s", node, vmid), nil); err != nil {
		return nil, err
	}
	return &extension.Result{Success: true, Message: fmt.Sprintf("VM %s terminated", vmid)}, nil
}

// LoginURL returns the Proxmox web console URL for the service's VM.
func (p *Proxmox) LoginURL(svc extension.Service) (string, bool) {
	vmid, err := p.vmid(svc)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("https://%s:%d/#v1:0:=qemu/%s:4:5:::", p.cfg.String("host", ""), p.cfg.Int("port", 8006), vmid), true
}
