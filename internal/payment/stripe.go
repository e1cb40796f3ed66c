// Package payment creates card payment links and checks checkout results.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// ErrSessionMismatch means the checkout session was started from a payment
// link issued for a different order.
var ErrSessionMismatch = errors.New("checkout session belongs to another order")

// StripeGateway talks to Stripe.  One price object (PHOTO_PRICING_ID) is
// charged once per photo.
type StripeGateway struct {
	api     *client.API
	priceID string
	appURL  string
}

// NewStripeGateway returns a gateway using the live Stripe API.
func NewStripeGateway(secretKey, priceID, appURL string) *StripeGateway {
	return NewStripeGatewayWithBackends(secretKey, priceID, appURL, nil)
}

// NewStripeGatewayWithBackends lets callers point the client at another
// backend; tests use an httptest server.
func NewStripeGatewayWithBackends(secretKey, priceID, appURL string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:     client.New(secretKey, backends),
		priceID: priceID,
		appURL:  strings.TrimRight(appURL, "/"),
	}
}

// ConfirmationURL is where Stripe sends the customer after checkout.
// Stripe fills in the session id placeholder.
func (g *StripeGateway) ConfirmationURL(orderRef string) string {
	return fmt.Sprintf("%s/confirmation/%s/{CHECKOUT_SESSION_ID}", g.appURL, orderRef)
}

// PaymentLink creates a payment link for the order's photos.
func (g *StripeGateway) PaymentLink(ctx context.Context, o model.Order) (string, error) {
	if o.OrderRef == nil || *o.OrderRef == "" {
		return "", errors.New("payment link: order has no reference")
	}
	params := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{{
			Price:    stripe.String(g.priceID),
			Quantity: stripe.Int64(int64(o.NoOfPhotos)),
		}},
		AfterCompletion: &stripe.PaymentLinkAfterCompletionParams{
			Type: stripe.String(string(stripe.PaymentLinkAfterCompletionTypeRedirect)),
			Redirect: &stripe.PaymentLinkAfterCompletionRedirectParams{
				URL: stripe.String(g.ConfirmationURL(*o.OrderRef)),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", fmt.Sprint(o.ID))
	params.AddMetadata("order_ref", *o.OrderRef)

	link, err := g.api.PaymentLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment link: %w", err)
	}
	return link.URL, nil
}

// SessionPaid reports whether the checkout session has been paid for the
// order carrying orderRef.  The session's payment link is expanded so its
// metadata can be compared; a session from another order's link returns
// ErrSessionMismatch.
func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID, orderRef string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_link")
	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("get checkout session: %w", err)
	}
	if sessionOrderRef(s) != orderRef {
		return false, ErrSessionMismatch
	}
	switch s.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true, nil
	}
	return false, nil
}

func sessionOrderRef(s *stripe.CheckoutSession) string {
	if s.PaymentLink != nil && s.PaymentLink.Metadata["order_ref"] != "" {
		return s.PaymentLink.Metadata["order_ref"]
	}
	return s.Metadata["order_ref"]
}
