// Package service holds the order lifecycle.  Every operation checks the
// acting user's permission first, then performs a single guarded write so
// two staff members racing on the same order cannot both win.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/payment"
	"github.com/iliyamo/portrait-booth/internal/pricing"
	"github.com/iliyamo/portrait-booth/internal/queue"
	"github.com/iliyamo/portrait-booth/internal/repository"
)

// OrderService moves orders through their lifecycle.  Gateway, Storage,
// Ready and Queries are optional: without a gateway card payments answer
// ErrPaymentUnavailable, without a publisher ready events are only logged.
type OrderService struct {
	Orders   OrderStore
	Items    ItemStore
	Users    UserLookup
	Settings SettingStore
	Pricing  pricing.Pricing

	Gateway PaymentGateway
	Storage Presigner
	Ready   ReadyPublisher
	Queries OrderQueries
}

// NewOrderService wires the required stores.  It panics when one is nil.
func NewOrderService(orders OrderStore, items ItemStore, users UserLookup, settings SettingStore, p pricing.Pricing) *OrderService {
	if orders == nil || items == nil || users == nil || settings == nil {
		panic("service: nil store passed to NewOrderService")
	}
	return &OrderService{Orders: orders, Items: items, Users: users, Settings: settings, Pricing: p}
}

func allowed(actor model.User, action model.Action) error {
	if !model.Allowed(actor.Role, action) {
		return ErrNotAllowed
	}
	return nil
}

// settled turns a guarded write that matched nothing into the right error:
// not found when the order is gone, stale state otherwise.
func (s *OrderService) settled(ctx context.Context, id uint64, ok bool, err error) (model.Order, error) {
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		if _, gerr := s.Orders.GetByID(ctx, id); gerr != nil {
			return model.Order{}, gerr
		}
		return model.Order{}, ErrStaleState
	}
	return s.Orders.GetByID(ctx, id)
}

// OrderCreationAllowed reads the manager switch.  A missing row means on.
func (s *OrderService) OrderCreationAllowed(ctx context.Context) (bool, error) {
	st, err := s.Settings.Get(ctx, model.SettingAllowOrderCreation, "1")
	if err != nil {
		return false, err
	}
	return st.IsTrue(), nil
}

// Create places a new order for the acting user.
func (s *OrderService) Create(ctx context.Context, actor model.User, noOfPhotos uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionCreateOrder); err != nil {
		return model.Order{}, err
	}
	total, err := s.Pricing.Quote(noOfPhotos)
	if err != nil {
		return model.Order{}, err
	}
	open, err := s.OrderCreationAllowed(ctx)
	if err != nil {
		return model.Order{}, err
	}
	if !open {
		return model.Order{}, ErrOrderCreationDisabled
	}
	id, err := s.Orders.Create(ctx, actor.ID, noOfPhotos, total)
	if err != nil {
		return model.Order{}, err
	}
	log.Printf("order %d created by user %d (%d photos, total %d)", id, actor.ID, noOfPhotos, total)
	return s.Orders.GetByID(ctx, id)
}

// Get returns an order to its owner or to any staff member.
func (s *OrderService) Get(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !o.OwnedBy(actor.ID) && !actor.Role.IsStaff() {
		return model.Order{}, ErrNotAllowed
	}
	return o, nil
}

// ListMine returns the acting user's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, actor model.User) ([]model.Order, error) {
	if err := allowed(actor, model.ActionViewOwnOrders); err != nil {
		return nil, err
	}
	return s.Orders.ListByCustomer(ctx, actor.ID)
}

// Search finds orders by number or customer contact for the counter staff.
func (s *OrderService) Search(ctx context.Context, actor model.User, f model.OrderSearch, page, pageSize int) ([]model.UserOrder, int64, error) {
	if err := allowed(actor, model.ActionSearchOrders); err != nil {
		return nil, 0, err
	}
	if f.Empty() {
		return nil, 0, ErrInvalidSearch
	}
	if s.Queries == nil {
		return nil, 0, errors.New("order search is not configured")
	}
	return s.Queries.Search(ctx, f, page, pageSize)
}

// Delete removes the acting user's order while it is still Created.
func (s *OrderService) Delete(ctx context.Context, actor model.User, id uint64) error {
	if err := allowed(actor, model.ActionDeleteOrder); err != nil {
		return err
	}
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !o.OwnedBy(actor.ID) {
		return ErrNotAllowed
	}
	ok, err := s.Orders.DeleteCreated(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleState
	}
	return nil
}

func (s *OrderService) ownedForPayment(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionPayOrder); err != nil {
		return model.Order{}, err
	}
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !o.OwnedBy(actor.ID) {
		return model.Order{}, ErrNotAllowed
	}
	return o, nil
}

// StartPaymentCash marks the order as waiting for cash at the counter.
func (s *OrderService) StartPaymentCash(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if _, err := s.ownedForPayment(ctx, actor, id); err != nil {
		return model.Order{}, err
	}
	ok, err := s.Orders.StartPayment(ctx, id, actor.ID, model.PaymentCash, nil)
	return s.settled(ctx, id, ok, err)
}

// StartPaymentStripe moves the order to PaymentPending with a fresh order
// reference and returns a card payment link carrying that reference.
// Calling it again while the card payment is still pending re-issues the
// link for the same reference.
func (s *OrderService) StartPaymentStripe(ctx context.Context, actor model.User, id uint64) (model.Order, string, error) {
	o, err := s.ownedForPayment(ctx, actor, id)
	if err != nil {
		return model.Order{}, "", err
	}
	if s.Gateway == nil {
		return model.Order{}, "", ErrPaymentUnavailable
	}
	pendingCard := o.Status == model.StatusPaymentPending && o.ModeOfPayment == model.PaymentStripe && o.OrderRef != nil
	if !pendingCard {
		ref := uuid.NewString()
		ok, err := s.Orders.StartPayment(ctx, id, actor.ID, model.PaymentStripe, &ref)
		if o, err = s.settled(ctx, id, ok, err); err != nil {
			return model.Order{}, "", err
		}
	}
	link, err := s.Gateway.PaymentLink(ctx, o)
	if err != nil {
		log.Printf("order %d: payment link failed: %v", id, err)
		return model.Order{}, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return o, link, nil
}

// CollectPaymentCash records cash taken at the counter.
func (s *OrderService) CollectPaymentCash(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionCollectCash); err != nil {
		return model.Order{}, err
	}
	ok, err := s.Orders.CollectCash(ctx, id, actor.ID)
	return s.settled(ctx, id, ok, err)
}

// ConfirmStripe handles the redirect back from checkout.  The session is
// checked with the gateway; an unpaid session moves the order to
// PaymentError instead of Paid.  Confirming the same session twice returns
// the paid order unchanged.  A session opened from another order's payment
// link is refused with ErrForeignSession.
func (s *OrderService) ConfirmStripe(ctx context.Context, orderRef, sessionID string) (model.Order, error) {
	if orderRef == "" || sessionID == "" {
		return model.Order{}, ErrMissingPaymentRef
	}
	if s.Gateway == nil {
		return model.Order{}, ErrPaymentUnavailable
	}
	o, err := s.Orders.GetByRef(ctx, orderRef)
	if err != nil {
		return model.Order{}, err
	}
	if o.Status == model.StatusPaid && o.PaymentRef != nil && *o.PaymentRef == sessionID {
		return o, nil
	}
	paid, err := s.Gateway.SessionPaid(ctx, sessionID, orderRef)
	if errors.Is(err, payment.ErrSessionMismatch) {
		log.Printf("order %d: rejected checkout session %s from another order", o.ID, sessionID)
		return model.Order{}, ErrForeignSession
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !paid {
		return s.MarkStripePaymentError(ctx, orderRef, sessionID)
	}
	ok, err := s.Orders.ConfirmStripe(ctx, orderRef, sessionID)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, ErrStaleState
	}
	log.Printf("order %d paid by card (session %s)", o.ID, sessionID)
	return s.Orders.GetByID(ctx, o.ID)
}

// MarkStripePaymentError records a failed checkout for a pending card payment.
func (s *OrderService) MarkStripePaymentError(ctx context.Context, orderRef, paymentRef string) (model.Order, error) {
	if orderRef == "" {
		return model.Order{}, ErrMissingPaymentRef
	}
	o, err := s.Orders.GetByRef(ctx, orderRef)
	if err != nil {
		return model.Order{}, err
	}
	ok, err := s.Orders.MarkStripeError(ctx, orderRef, paymentRef)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, ErrStaleState
	}
	log.Printf("order %d: card payment failed (session %s)", o.ID, paymentRef)
	return s.Orders.GetByID(ctx, o.ID)
}

// ManagerMarkPaid overrides a pending card payment.
func (s *OrderService) ManagerMarkPaid(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionOverridePayment); err != nil {
		return model.Order{}, err
	}
	note := fmt.Sprintf("Manager override by %s,%s", actor.Name, actor.Email)
	ok, err := s.Orders.OverridePaid(ctx, id, note)
	return s.settled(ctx, id, ok, err)
}

// ManagerClearPending sends a pending or failed payment back to Created so
// the customer can choose again.
func (s *OrderService) ManagerClearPending(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionClearPending); err != nil {
		return model.Order{}, err
	}
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if o.Status != model.StatusPaymentPending && o.Status != model.StatusPaymentError {
		return model.Order{}, ErrStaleState
	}
	ok, err := s.Orders.ClearPending(ctx, id, o.Status)
	return s.settled(ctx, id, ok, err)
}

// StartUpload lets an operator begin (or reopen) the originals upload.
func (s *OrderService) StartUpload(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionUploadOriginal); err != nil {
		return model.Order{}, err
	}
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if o.Status != model.StatusPaid && o.Status != model.StatusUploaded {
		return model.Order{}, ErrStaleState
	}
	ok, err := s.Orders.StartUpload(ctx, id, actor.ID, o.Status)
	return s.settled(ctx, id, ok, err)
}

// FetchForProcessor returns the order the processor is already working on,
// or claims the oldest Uploaded order.  It returns nil when the queue is
// empty.
func (s *OrderService) FetchForProcessor(ctx context.Context, actor model.User) (*model.Order, error) {
	if err := allowed(actor, model.ActionProcess); err != nil {
		return nil, err
	}
	if o, err := s.Orders.FindActiveForProcessor(ctx, actor.ID); err != nil || o != nil {
		return o, err
	}
	claimed, err := s.Orders.ClaimOldestUploaded(ctx, actor.ID)
	if err != nil || !claimed {
		return nil, err
	}
	o, err := s.Orders.FindActiveForProcessor(ctx, actor.ID)
	if err == nil && o != nil {
		log.Printf("order %d claimed by processor %d", o.ID, actor.ID)
	}
	return o, err
}

// SkipOrder releases a claimed order back to the operators.
func (s *OrderService) SkipOrder(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionProcess); err != nil {
		return model.Order{}, err
	}
	ok, err := s.Orders.Skip(ctx, id, actor.ID)
	return s.settled(ctx, id, ok, err)
}

// MarkReadyForDelivery closes a processed order and announces it.  Download
// links are signed before the write so a storage failure leaves the order
// Processed; a failed announcement is logged and does not undo the write.
func (s *OrderService) MarkReadyForDelivery(ctx context.Context, actor model.User, id uint64) (model.Order, error) {
	if err := allowed(actor, model.ActionProcess); err != nil {
		return model.Order{}, err
	}
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if !o.ClaimedBy(actor.ID) {
		return model.Order{}, ErrNotAllowed
	}
	if o.Status != model.StatusProcessed {
		return model.Order{}, ErrStaleState
	}

	ev, err := s.readyEvent(ctx, o)
	if err != nil {
		return model.Order{}, err
	}
	ok, err := s.Orders.MarkReady(ctx, id, actor.ID)
	if o, err = s.settled(ctx, id, ok, err); err != nil {
		return model.Order{}, err
	}

	ev.ReadyAt = time.Now().UTC().Format(time.RFC3339)
	if s.Ready == nil {
		log.Printf("order %d ready for delivery; no notifier configured", id)
	} else if err := s.Ready.PublishOrderReady(ctx, ev); err != nil {
		log.Printf("order %d ready for delivery; notification failed: %v", id, err)
	}
	return o, nil
}

func (s *OrderService) readyEvent(ctx context.Context, o model.Order) (queue.OrderReadyEvent, error) {
	customer, err := s.Users.GetByID(ctx, o.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return queue.OrderReadyEvent{}, fmt.Errorf("order %d: customer missing: %w", o.ID, err)
		}
		return queue.OrderReadyEvent{}, err
	}
	items, err := s.Items.ListByOrder(ctx, o.ID, model.ModeProcessed)
	if err != nil {
		return queue.OrderReadyEvent{}, err
	}
	ev := queue.OrderReadyEvent{
		OrderID:       o.ID,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		NoOfPhotos:    o.NoOfPhotos,
		Links:         make([]queue.DownloadLink, 0, len(items)),
	}
	for _, it := range items {
		link := it.GetURL
		if s.Storage != nil {
			if link, err = s.Storage.PresignGet(ctx, it.ObjectKey, it.FileName); err != nil {
				return queue.OrderReadyEvent{}, fmt.Errorf("%w: %v", ErrUpstream, err)
			}
		}
		ev.Links = append(ev.Links, queue.DownloadLink{FileName: it.FileName, URL: link})
	}
	return ev, nil
}
