package model

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle position of an order.  The numeric value is
// what gets stored in orders.status, so the order of the constants below is
// part of the schema and must never be reshuffled.
type OrderStatus uint8

const (
	StatusCreated          OrderStatus = iota // placed by the customer, nothing paid
	StatusPaymentPending                      // customer picked cash or card
	StatusPaymentError                        // card checkout came back unpaid
	StatusPaid                                // cash collected, card confirmed or manager override
	StatusUploading                           // operator is uploading originals
	StatusUploaded                            // every original slot is filled
	StatusInProcess                           // claimed by a processor
	StatusProcessed                           // every processed slot is filled
	StatusReadyForDelivery                    // customer has been notified
)

var orderStatusNames = [...]string{
	"Created",
	"PaymentPending",
	"PaymentError",
	"Paid",
	"Uploading",
	"Uploaded",
	"InProcess",
	"Processed",
	"ReadyForDelivery",
}

func (s OrderStatus) String() string {
	if int(s) < len(orderStatusNames) {
		return orderStatusNames[s]
	}
	return fmt.Sprintf("OrderStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s OrderStatus) Valid() bool { return int(s) < len(orderStatusNames) }

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid order status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(b []byte) error {
	v, err := ParseOrderStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseOrderStatus converts a status name back to its value.
func ParseOrderStatus(name string) (OrderStatus, error) {
	for i, n := range orderStatusNames {
		if n == name {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", name)
}

// PaymentMode records which path moved an order to Paid.
type PaymentMode uint8

const (
	PaymentNotSelected PaymentMode = iota
	PaymentCash
	PaymentStripe
	PaymentOverride
)

var paymentModeNames = [...]string{"NotSelected", "Cash", "Stripe", "Override"}

func (m PaymentMode) String() string {
	if int(m) < len(paymentModeNames) {
		return paymentModeNames[m]
	}
	return fmt.Sprintf("PaymentMode(%d)", uint8(m))
}

func (m PaymentMode) MarshalText() ([]byte, error) {
	if int(m) >= len(paymentModeNames) {
		return nil, fmt.Errorf("invalid payment mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *PaymentMode) UnmarshalText(b []byte) error {
	for i, n := range paymentModeNames {
		if n == string(b) {
			*m = PaymentMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown payment mode %q", string(b))
}

// Order mirrors a row of the `orders` table.  Staff columns are nil until
// the corresponding stage has been handled by someone.
type Order struct {
	ID            uint64      `json:"id"`                     // orders.id
	CustomerID    uint64      `json:"customer_id"`            // orders.customer_id
	CashierID     *uint64     `json:"cashier_id,omitempty"`   // orders.cashier_id (cash collections only)
	OperatorID    *uint64     `json:"operator_id,omitempty"`  // orders.operator_id
	ProcessorID   *uint64     `json:"processor_id,omitempty"` // orders.processor_id (current claimant)
	NoOfPhotos    uint64      `json:"no_of_photos"`           // orders.no_of_photos
	OrderTotal    uint64      `json:"order_total"`            // orders.order_total
	ModeOfPayment PaymentMode `json:"mode_of_payment"`        // orders.mode_of_payment
	Status        OrderStatus `json:"status"`                 // orders.status
	OrderRef      *string     `json:"order_ref,omitempty"`    // orders.order_ref, set when a card payment starts
	PaymentRef    *string     `json:"payment_ref,omitempty"`  // orders.payment_ref, checkout session id or override note
	CreatedAt     time.Time   `json:"created_at"`             // orders.created_at
	PaymentAt     *time.Time  `json:"payment_at,omitempty"`   // orders.payment_at
}

// OwnedBy reports whether the order was placed by userID.
func (o Order) OwnedBy(userID uint64) bool { return o.CustomerID == userID }

// ClaimedBy reports whether processorID currently holds the order.
func (o Order) ClaimedBy(processorID uint64) bool {
	return o.ProcessorID != nil && *o.ProcessorID == processorID
}

// UserOrder is an order joined with the customer's contact details.  It is
// what search results and staff views return.
type UserOrder struct {
	Order
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// OrderSearch holds the optional filters of a staff order search.  At least
// one of them has to be set.
type OrderSearch struct {
	OrderNo *uint64 `query:"order_no"`
	Name    *string `query:"name"`
	Email   *string `query:"email"`
	Phone   *string `query:"phone"`
}

// Empty reports whether no filter has been provided.
func (s OrderSearch) Empty() bool {
	return s.OrderNo == nil && s.Name == nil && s.Email == nil && s.Phone == nil
}
