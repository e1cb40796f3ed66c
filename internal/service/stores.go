package service

import (
	"context"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/queue"
)

// OrderStore persists orders.  Every method returning bool performs one
// guarded write and reports whether a row matched the guard.
type OrderStore interface {
	Create(ctx context.Context, customerID, noOfPhotos, total uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Order, error)
	GetByRef(ctx context.Context, orderRef string) (model.Order, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.Order, error)

	DeleteCreated(ctx context.Context, id, customerID uint64) (bool, error)
	StartPayment(ctx context.Context, id, customerID uint64, mode model.PaymentMode, orderRef *string) (bool, error)
	CollectCash(ctx context.Context, id, cashierID uint64) (bool, error)
	ConfirmStripe(ctx context.Context, orderRef, paymentRef string) (bool, error)
	MarkStripeError(ctx context.Context, orderRef, paymentRef string) (bool, error)
	OverridePaid(ctx context.Context, id uint64, note string) (bool, error)
	ClearPending(ctx context.Context, id uint64, from model.OrderStatus) (bool, error)
	StartUpload(ctx context.Context, id, operatorID uint64, from model.OrderStatus) (bool, error)
	FindActiveForProcessor(ctx context.Context, processorID uint64) (*model.Order, error)
	ClaimOldestUploaded(ctx context.Context, processorID uint64) (bool, error)
	Skip(ctx context.Context, id, processorID uint64) (bool, error)
	MarkReady(ctx context.Context, id, processorID uint64) (bool, error)
	AdvanceIfComplete(ctx context.Context, id uint64, mode model.ItemMode) (bool, error)
	RevertIfIncomplete(ctx context.Context, id uint64, mode model.ItemMode) (bool, error)
}

// OrderQueries are the read-only joins used by staff screens.
type OrderQueries interface {
	Search(ctx context.Context, f model.OrderSearch, page, pageSize int) ([]model.UserOrder, int64, error)
	GetWithCustomer(ctx context.Context, id uint64) (model.UserOrder, error)
}

// ItemStore persists confirmed uploads.
type ItemStore interface {
	CountByMode(ctx context.Context, orderID uint64, mode model.ItemMode) (uint64, error)
	InsertIfRoom(ctx context.Context, it model.OrderItem) (uint64, bool, error)
	GetItem(ctx context.Context, id uint64) (model.OrderItem, error)
	ListByOrder(ctx context.Context, orderID uint64, mode model.ItemMode) ([]model.OrderItem, error)
	DeleteItem(ctx context.Context, id uint64) (bool, error)
}

type SettingStore interface {
	Get(ctx context.Context, name, def string) (model.Setting, error)
	Put(ctx context.Context, name, value string) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// PaymentGateway creates card payment links and reports checkout results.
type PaymentGateway interface {
	PaymentLink(ctx context.Context, order model.Order) (string, error)
	// SessionPaid reports whether the session is paid.  It returns
	// payment.ErrSessionMismatch when the session was not opened for orderRef.
	SessionPaid(ctx context.Context, sessionID, orderRef string) (bool, error)
}

// Presigner hands out time-limited URLs for the object store.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key, downloadName string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

// ReadyPublisher announces orders that became ready for delivery.
type ReadyPublisher interface {
	PublishOrderReady(ctx context.Context, ev queue.OrderReadyEvent) error
}
