package models

// LocationSample is a single device position fix. Timestamp is unix
// milliseconds as delivered by the position source; samples are ephemeral
// and never persisted beyond the current tracking session.
type LocationSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// LocationUpdateRequest is the payload uploaded while an order is out for
// delivery.
type LocationUpdateRequest struct {
	OrderID   int64   `json:"orderId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Address is a customer's saved delivery address, kept in the device store.
type Address struct {
	ID        int64    `json:"id"`
	Label     string   `json:"label"`
	Line      string   `json:"line"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	IsDefault bool     `json:"isDefault"`
}
