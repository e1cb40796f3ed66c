// Package pricing computes order totals.
package pricing

import "errors"

// Allowed number of photos per order.
const (
	MinPhotos uint64 = 1
	MaxPhotos uint64 = 3
)

// ErrInvalidPhotoCount is returned for a photo count outside the allowed range.
var ErrInvalidPhotoCount = errors.New("number of photos must be between 1 and 3")

// Pricing holds the configured prices in whole currency units.
type Pricing struct {
	BasePrice uint64 `json:"base_price"`
	UnitPrice uint64 `json:"unit_price"`
}

// Validate checks that n photos may be ordered.
func Validate(n uint64) error {
	if n < MinPhotos || n > MaxPhotos {
		return ErrInvalidPhotoCount
	}
	return nil
}

// Total returns base + unit*n.
func (p Pricing) Total(n uint64) uint64 {
	return p.BasePrice + p.UnitPrice*n
}

// Quote validates n and returns the total for it.
func (p Pricing) Quote(n uint64) (uint64, error) {
	if err := Validate(n); err != nil {
		return 0, err
	}
	return p.Total(n), nil
}
