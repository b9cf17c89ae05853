// Package discord provides an other-category extension that posts event
// notifications to a Discord channel through an incoming webhook.
//
// Events map to rich embeds; per-event notify_* toggles let an
// administrator silence event types without removing the extension.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payd-dev/payd/extension"
)

// Name is the registry name of this extension.
const Name = "discordnotifications"

// Embed colours per event type.
const (
	colorGreen  = 0x00FF00
	colorBlue   = 0x0099FF
	colorOrange = 0xFF9900
)

// Discord implements extension.Other against the Discord webhook API.
type Discord struct {
	cfg    extension.Config
	client *http.Client
}

var _ extension.Other = (*Discord)(nil)

// New builds a Discord extension bound to cfg.
func New(cfg extension.Config) *Discord {
	return &Discord{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

// Register wires this extension into the registry.
func Register(r *extension.Registry) {
	r.RegisterOther(Name, func(cfg extension.Config) extension.Other { return New(cfg) })
}

func (d *Discord) Metadata() extension.Metadata {
	return extension.Metadata{
		Name:        "Discord Notifications",
		Description: "Send notifications to Discord via webhooks",
		Version:     "1.0.0",
		Author:      "payd",
		Category:    extension.CategoryOther,
	}
}

func (d *Discord) ConfigFields(_ extension.Config) []extension.Field {
	return []extension.Field{
		{Name: "webhook_url", Type: extension.FieldText, Label: "Webhook URL", Description: "Discord webhook URL", Required: true},
		{Name: "username", Type: extension.FieldText, Label: "Bot Username", Description: "Username to display for the bot", Default: "payd", Required: false},
		{Name: "avatar_url", Type: extension.FieldText, Label: "Avatar URL", Description: "URL of the avatar image", Required: false},
		{Name: "notify_new_user", Type: extension.FieldBoolean, Label: "Notify on New User", Description: "Send notification when a new user registers", Default: true},
		{Name: "notify_new_order", Type: extension.FieldBoolean, Label: "Notify on New Order", Description: "Send notification when a new order is placed", Default: true},
		{Name: "notify_payment", Type: extension.FieldBoolean, Label: "Notify on Payment", Description: "Send notification when a payment is received", Default: true},
		{Name: "notify_ticket", Type: extension.FieldBoolean, Label: "Notify on New Ticket", Description: "Send notification when a new ticket is created", Default: true},
	}
}

// embed is a Discord message embed.
type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// webhookPayload is the body posted to the Discord webhook endpoint.
type webhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []embed `json:"embeds,omitempty"`
}

// Execute sends a notification for args.Event unless the event's toggle
// is off or no embed is defined for it.
func (d *Discord) Execute(ctx context.Context, args extension.Args) (*extension.Result, error) {
	if !d.cfg.Bool("notify_"+args.Event, true) {
		return &extension.Result{Success: true, Message: "notification disabled for this event type"}, nil
	}

	e, ok := buildEmbed(args.Event, args.Data)
	if !ok {
		return &extension.Result{Success: true, Message: "no notification defined for this event type"}, nil
	}

	if err := d.send(ctx, webhookPayload{
		Username:  d.cfg.String("username", "payd"),
		AvatarURL: d.cfg.String("avatar_url", ""),
		Embeds:    []embed{e},
	}); err != nil {
		return nil, err
	}
	return &extension.Result{Success: true, Message: "notification sent"}, nil
}

// send posts the payload to the configured webhook URL.
func (d *Discord) send(ctx context.Context, payload webhookPayload) error {
	webhookURL := d.cfg.String("webhook_url", "")
	if webhookURL == "" {
		return fmt.Errorf("webhook_url not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return extension.ExternalWrap(Name, "send webhook", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return extension.Externalf(Name, "webhook error (%s): %s", resp.Status, bytes.TrimSpace(text))
	}
	return nil
}

// str pulls a display string out of the loosely typed event data.
func str(data map[string]any, key, def string) string {
	if v, ok := data[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return def
}

// buildEmbed maps an event to its embed. Unknown events produce no
// notification rather than an error so new host events degrade quietly.
func buildEmbed(event string, data map[string]any) (embed, bool) {
	switch event {
	case "new_user":
		return embed{
			Title:       "New User Registration",
			Description: fmt.Sprintf("User **%s** has registered", str(data, "name", "unknown")),
			Color:       colorGreen,
			Fields: []embedField{
				{Name: "Email", Value: str(data, "email", "N/A"), Inline: true},
				{Name: "User ID", Value: str(data, "id", "N/A"), Inline: true},
			},
			Timestamp: str(data, "created_at", ""),
		}, true
	case "new_order":
		return embed{
			Title:       "New Order",
			Description: fmt.Sprintf("Order **#%s** has been placed", str(data, "id", "?")),
			Color:       colorBlue,
			Fields: []embedField{
				{Name: "Customer", Value: str(data, "customer_name", "N/A"), Inline: true},
				{Name: "Total", Value: fmt.Sprintf("%s %s", str(data, "currency", "USD"), str(data, "total", "0")), Inline: true},
			},
			Timestamp: str(data, "created_at", ""),
		}, true
	case "payment":
		return embed{
			Title:       "Payment Received",
			Description: fmt.Sprintf("Payment for invoice **#%s**", str(data, "invoice_id", "?")),
			Color:       colorGreen,
			Fields: []embedField{
				{Name: "Amount", Value: fmt.Sprintf("%s %s", str(data, "currency", "USD"), str(data, "amount", "0")), Inline: true},
				{Name: "Customer", Value: str(data, "customer_name", "N/A"), Inline: true},
			},
			Timestamp: str(data, "paid_at", ""),
		}, true
	case "ticket":
		return embed{
			Title:       "New Support Ticket",
			Description: fmt.Sprintf("Ticket **#%s**: %s", str(data, "id", "?"), str(data, "subject", "")),
			Color:       colorOrange,
			Fields: []embedField{
				{Name: "User", Value: str(data, "user_name", "N/A"), Inline: true},
				{Name: "Priority", Value: str(data, "priority", "normal"), Inline: true},
			},
			Timestamp: str(data, "created_at", ""),
		}, true
	}
	return embed{}, false
}
