// Package stripe provides the Stripe payment gateway extension. Payments
// are initiated through Checkout Sessions; inbound webhooks are verified
// against the configured signing secret before any of their contents are
// trusted.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/payd-dev/payd/extension"
)

// Name is the registry name of this extension.
const Name = "stripe"

// Stripe implements extension.Gateway using the official Stripe SDK.
type Stripe struct {
	cfg extension.Config
	api *client.API
}

var (
	_ extension.Gateway  = (*Stripe)(nil)
	_ extension.Refunder = (*Stripe)(nil)
)

// New builds a Stripe gateway bound to cfg. The API client is scoped to
// this instance so different tenants can use different keys.
func New(cfg extension.Config) *Stripe {
	api := &client.API{}
	api.Init(cfg.String("secret_key", ""), nil)
	return &Stripe{cfg: cfg, api: api}
}

// Register wires this extension into the registry.
func Register(r *extension.Registry) {
	r.RegisterGateway(Name, func(cfg extension.Config) extension.Gateway { return New(cfg) })
}

func (s *Stripe) Metadata() extension.Metadata {
	return extension.Metadata{
		Name:        "Stripe",
		Description: "Stripe payment gateway integration",
		Version:     "1.0.0",
		Author:      "payd",
		Category:    extension.CategoryGateway,
	}
}

func (s *Stripe) ConfigFields(_ extension.Config) []extension.Field {
	return []extension.Field{
		{Name: "secret_key", Type: extension.FieldPassword, Label: "Secret Key", Description: "Stripe secret key (sk_...)", Required: true},
		{Name: "publishable_key", Type: extension.FieldText, Label: "Publishable Key", Description: "Stripe publishable key (pk_...)", Required: true},
		{Name: "webhook_secret", Type: extension.FieldPassword, Label: "Webhook Secret", Description: "Stripe webhook signing secret", Required: false},
		{
			Name: "mode", Type: extension.FieldSelect, Label: "Mode",
			Description: "Payment or subscription mode",
			Options: []extension.Option{
				{Value: "payment", Label: "One-time payment"},
				{Value: "subscription", Label: "Subscription"},
			},
			Default: "payment", Required: true,
		},
	}
}

// cents converts a decimal amount to the integer minor units Stripe
// expects.
func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Pay creates a Checkout Session for the invoice and returns the URL the
// customer should be redirected to.
func (s *Stripe) Pay(ctx context.Context, inv extension.Invoice) (*extension.PaymentResult, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(s.cfg.String("mode", "payment")),
		SuccessURL:        stripeapi.String(s.cfg.String("success_url", fmt.Sprintf("%s/invoice/%d/success", s.cfg.String("base_url", ""), inv.ID))),
		CancelURL:         stripeapi.String(s.cfg.String("cancel_url", fmt.Sprintf("%s/invoice/%d", s.cfg.String("base_url", ""), inv.ID))),
		ClientReferenceID: stripeapi.String(fmt.Sprint(inv.ID)),
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", fmt.Sprint(inv.ID))
	params.AddMetadata("user_id", fmt.Sprint(inv.UserID))

	for _, item := range inv.Items {
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency: stripeapi.String(inv.Currency),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(item.Description),
				},
				UnitAmount: stripeapi.Int64(cents(item.Price)),
			},
			Quantity: stripeapi.Int64(item.Quantity),
		})
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, extension.ExternalWrap(Name, "create checkout session", err)
	}

	return &extension.PaymentResult{
		RedirectURL: sess.URL,
		Reference:   sess.ID,
		Status:      "pending",
	}, nil
}

// Webhook verifies the Stripe-Signature header and processes the event.
// Verification is skipped only when no webhook secret is configured.
func (s *Stripe) Webhook(ctx context.Context, req extension.WebhookRequest) (*extension.WebhookResult, error) {
	var event stripeapi.Event

	if secret := s.cfg.String("webhook_secret", ""); secret != "" {
		verified, err := webhook.ConstructEventWithOptions(req.Body, req.Headers.Get("Stripe-Signature"), secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return nil, extension.ExternalWrap(Name, "webhook signature verification failed", err)
		}
		event = verified
	} else if err := json.Unmarshal(req.Body, &event); err != nil {
		return nil, extension.ExternalWrap(Name, "parse webhook event", err)
	}

	if event.Type == "checkout.session.completed" {
		var sess stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, extension.ExternalWrap(Name, "parse checkout session", err)
		}
		return &extension.WebhookResult{
			Event:     string(event.Type),
			InvoiceID: sess.Metadata["invoice_id"],
			Status:    "paid",
		}, nil
	}

	return &extension.WebhookResult{Event: string(event.Type), Status: "processed"}, nil
}

// Refund refunds the charge behind tx for its full amount.
func (s *Stripe) Refund(ctx context.Context, tx extension.Transaction) (*extension.Result, error) {
	params := &stripeapi.RefundParams{
		Charge: stripeapi.String(tx.ID),
		Amount: stripeapi.Int64(cents(tx.Amount)),
	}
	params.Context = ctx

	refund, err := s.api.Refunds.New(params)
	if err != nil {
		return nil, extension.ExternalWrap(Name, "create refund", err)
	}

	return &extension.Result{
		Success: true,
		Message: fmt.Sprintf("refunded %s %.2f", tx.Currency, tx.Amount),
		Data:    map[string]any{"refund_id": refund.ID, "status": string(refund.Status)},
	}, nil
}
