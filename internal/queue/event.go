// Package queue carries order.ready notifications over RabbitMQ.
package queue

// OrderReadyQueue is the durable queue ready notifications are routed to.
const OrderReadyQueue = "order.ready"

// DownloadLink is one processed photo the customer can fetch.
type DownloadLink struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

// OrderReadyEvent is published once an order reaches ReadyForDelivery.  It
// holds everything the notifier needs so the consumer never has to query
// the database.
type OrderReadyEvent struct {
	OrderID       uint64         `json:"order_id"`
	CustomerID    uint64         `json:"customer_id"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	NoOfPhotos    uint64         `json:"no_of_photos"`
	Links         []DownloadLink `json:"links"`
	ReadyAt       string         `json:"ready_at"`
}
