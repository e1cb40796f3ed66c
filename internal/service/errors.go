package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/portrait-booth/internal/pricing"
)

// Validation failures.  Handlers answer these with 400.
var (
	ErrInvalidPhotoCount = pricing.ErrInvalidPhotoCount
	ErrInvalidFileName   = errors.New("unsupported file name or extension")
	ErrInvalidSearch     = errors.New("search needs at least one of order_no, name, email or phone")
	ErrForeignObjectKey  = errors.New("object key does not belong to this order")
	ErrMissingPaymentRef = errors.New("payment reference is required")
	ErrInvalidRole       = errors.New("role cannot be assigned")
)

// ErrNotAllowed is returned when the acting user's role or ownership does
// not permit the operation.  Nothing has been written when it is returned.
var ErrNotAllowed = errors.New("not allowed")

// ErrForeignSession is returned when a checkout session paid for a different
// order is presented as payment.  The order is left untouched.
var ErrForeignSession = fmt.Errorf("%w: checkout session belongs to another order", ErrNotAllowed)

// ErrStaleState means the guarded write matched no row: the order was not in
// the status the operation expects, usually because someone else moved it
// first.  Callers should refetch instead of retrying.
var ErrStaleState = errors.New("order is no longer in the expected state")

// ErrDuplicateUpload is returned when an object key is confirmed a second
// time.  The first confirmation stands.
var ErrDuplicateUpload = fmt.Errorf("%w: upload already confirmed", ErrStaleState)

var (
	ErrNoSlotsRemaining      = errors.New("all photos for this order have already been uploaded")
	ErrUploadMissing         = errors.New("uploaded object not found in storage")
	ErrOrderCreationDisabled = errors.New("order creation is currently disabled")
)

// ErrPaymentUnavailable is returned for card operations when no payment
// gateway is configured.
var ErrPaymentUnavailable = errors.New("card payments are not available")

// ErrUpstream wraps failures of the payment gateway, object storage or
// mailer.  The order is left in the state it had before the call.
var ErrUpstream = errors.New("upstream service failed")
