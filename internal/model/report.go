package model

// SettingAllowOrderCreation is the settings row that switches order creation
// on ("1") or off ("0").
const SettingAllowOrderCreation = "AllowOrderCreation"

// Setting mirrors a row of `settings`.
type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// IsTrue reports whether the stored value is the "1" flag.
func (s Setting) IsTrue() bool { return s.Value == "1" }

// OrderCountByStatus is one row of the status report.
type OrderCountByStatus struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

// PaymentCollection sums paid orders per collecting cashier.  Card and
// override payments have no cashier and are reported under "Stripe".
type PaymentCollection struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Count int64   `json:"count"`
	Total int64   `json:"total"`
}

// OrderCountByProcessor counts delivered orders and photos per processor.
type OrderCountByProcessor struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	OrderCount  int64  `json:"order_count"`
	PhotosCount int64  `json:"photos_count"`
}
