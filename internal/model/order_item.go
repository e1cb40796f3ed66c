package model

import (
	"fmt"
	"strings"
	"time"
)

// ItemMode separates the two upload tracks of an order: the originals shot
// at the booth and the processed prints.
type ItemMode uint8

const (
	ModeOriginal ItemMode = iota
	ModeProcessed
)

func (m ItemMode) String() string {
	switch m {
	case ModeOriginal:
		return "Original"
	case ModeProcessed:
		return "Processed"
	}
	return fmt.Sprintf("ItemMode(%d)", uint8(m))
}

// PathSegment is the lower-case form used in object keys and URLs.
func (m ItemMode) PathSegment() string { return strings.ToLower(m.String()) }

func (m ItemMode) MarshalText() ([]byte, error) {
	if m > ModeProcessed {
		return nil, fmt.Errorf("invalid item mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *ItemMode) UnmarshalText(b []byte) error {
	v, err := ParseItemMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseItemMode accepts either the display name or the path segment.
func ParseItemMode(s string) (ItemMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original":
		return ModeOriginal, nil
	case "processed":
		return ModeProcessed, nil
	}
	return 0, fmt.Errorf("unknown item mode %q", s)
}

// OrderItem mirrors a row of `order_items`.  A row only exists once the
// upload behind it has been confirmed.
type OrderItem struct {
	ID         uint64     `json:"id"`                    // order_items.id
	OrderID    uint64     `json:"order_id"`              // order_items.order_id
	Mode       ItemMode   `json:"mode"`                  // order_items.mode
	FileName   string     `json:"file_name"`             // order_items.file_name (client supplied)
	ObjectKey  string     `json:"object_key"`            // order_items.object_key
	GetURL     string     `json:"get_url"`               // order_items.get_url
	PutURL     string     `json:"put_url"`               // order_items.put_url
	Uploaded   bool       `json:"uploaded"`              // order_items.uploaded
	UploadedAt *time.Time `json:"uploaded_at,omitempty"` // order_items.uploaded_at
	CreatedAt  time.Time  `json:"created_at"`            // order_items.created_at
}
