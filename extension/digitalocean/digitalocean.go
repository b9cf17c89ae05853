// Package digitalocean provides a server extension that provisions
// droplets through the DigitalOcean API.
//
// Suspend and unsuspend map to droplet power actions; termination powers
// the droplet off best-effort and then deletes it. The droplet identifier
// is stored in the service configuration under "droplet_id".
package digitalocean

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"

	"github.com/payd-dev/payd/extension"
)

// Name is the registry name of this extension.
const Name = "digitalocean"

// DigitalOcean implements extension.Server using godo.
type DigitalOcean struct {
	cfg    extension.Config
	client *godo.Client
}

var (
	_ extension.Server           = (*DigitalOcean)(nil)
	_ extension.LoginURLProvider = (*DigitalOcean)(nil)
)

// New builds a DigitalOcean extension bound to cfg.
func New(cfg extension.Config) *DigitalOcean {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.String("api_token", "")})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &DigitalOcean{cfg: cfg, client: godo.NewClient(httpClient)}
}

// Register wires this extension into the registry.
func Register(r *extension.Registry) {
	r.RegisterServer(Name, func(cfg extension.Config) extension.Server { return New(cfg) })
}

func (d *DigitalOcean) Metadata() extension.Metadata {
	return extension.Metadata{
		Name:        "DigitalOcean",
		Description: "DigitalOcean droplet provisioning",
		Version:     "1.0.0",
		Author:      "payd",
		Category:    extension.CategoryServer,
	}
}

func (d *DigitalOcean) ConfigFields(_ extension.Config) []extension.Field {
	return []extension.Field{
		{Name: "api_token", Type: extension.FieldPassword, Label: "API Token", Description: "DigitalOcean personal access token", Required: true},
		{
			Name: "region", Type: extension.FieldSelect, Label: "Region",
			Description: "Region to create droplets in",
			Options: []extension.Option{
				{Value: "nyc1", Label: "New York 1"},
				{Value: "sfo3", Label: "San Francisco 3"},
				{Value: "ams3", Label: "Amsterdam 3"},
				{Value: "sgp1", Label: "Singapore 1"},
			},
			Default: "nyc1", Required: true,
		},
		{Name: "size", Type: extension.FieldText, Label: "Droplet Size", Description: "Droplet size slug", Default: "s-1vcpu-1gb", Required: true},
		{Name: "image", Type: extension.FieldText, Label: "Image", Description: "Image slug to provision from", Default: "ubuntu-24-04-x64", Required: true},
	}
}

// dropletID extracts the droplet identifier stored on the service.
func (d *DigitalOcean) dropletID(svc extension.Service) (int, error) {
	if id := svc.Config.Int("droplet_id", 0); id != 0 {
		return id, nil
	}
	return 0, fmt.Errorf("service %d has no droplet_id in its configuration", svc.ID)
}

// Create provisions a new droplet for the service.
func (d *DigitalOcean) Create(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	req := &godo.DropletCreateRequest{
		Name:   fmt.Sprintf("svc-%d", svc.ID),
		Region: svc.Config.String("region", d.cfg.String("region", "nyc1")),
		Size:   svc.Config.String("size", d.cfg.String("size", "s-1vcpu-1gb")),
		Image:  godo.DropletCreateImage{Slug: svc.Config.String("image", d.cfg.String("image", "ubuntu-24-04-x64"))},
		Tags:   []string{"payd", fmt.Sprintf("service-%d", svc.ID)},
	}

	droplet, _, err := d.client.Droplets.Create(ctx, req)
	if err != nil {
		return nil, extension.ExternalWrap(Name, "create droplet", err)
	}

	return &extension.Result{
		Success: true,
		Message: fmt.Sprintf("droplet %d created", droplet.ID),
		Data:    map[string]any{"droplet_id": droplet.ID},
	}, nil
}

// Suspend powers the droplet off.
func (d *DigitalOcean) Suspend(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	id, err := d.dropletID(svc)
	if err != nil {
		return nil, err
	}
	if _, _, err := d.client.DropletActions.PowerOff(ctx, id); err != nil {
		return nil, extension.ExternalWrap(Name, "power off droplet", err)
	}
	return &extension.Result{Success: true, Message: fmt.Sprintf("droplet %d suspended", id)}, nil
}

// Unsuspend powers the droplet back on.
func (d *DigitalOcean) Unsuspend(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	id, err := d.dropletID(svc)
	if err != nil {
		return nil, err
	}
	if _, _, err := d.client.DropletActions.PowerOn(ctx, id); err != nil {
		return nil, extension.ExternalWrap(Name, "power on droplet", err)
	}
	return &extension.Result{Success: true, Message: fmt.Sprintf("droplet %d unsuspended", id)}, nil
}

// Terminate powers the droplet off best-effort and deletes it. The power
// off may fail when the droplet is already down; only a failing delete
// fails the termination.
func (d *DigitalOcean) Terminate(ctx context.Context, svc extension.Service) (*extension.Result, error) {
	id, err := d.dropletID(svc)
	if err != nil {
		return nil, err
	}

	_, _, _ = d.client.DropletActions.PowerOff(ctx, id)

	if _, err := d.client.Droplets.Delete(ctx, id); err != nil {
		return nil, extension.ExternalWrap(Name, "delete droplet", err)
	}
	return &extension.Result{Success: true, Message: fmt.Sprintf("droplet %d terminated", id)}, nil
}

// LoginURL returns the DigitalOcean control panel URL for the droplet.
func (d *DigitalOcean) LoginURL(svc extension.Service) (string, bool) {
	id, err := d.dropletID(svc)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("https://cloud.digitalocean.com/droplets/%d", id), true
}
