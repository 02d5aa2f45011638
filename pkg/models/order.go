package models

// OrderStatus is the lifecycle state of an order as reported by the backend.
type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	StatusPlaced         OrderStatus = "PLACED"
	StatusAccepted       OrderStatus = "ACCEPTED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusReady          OrderStatus = "READY"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusRejected       OrderStatus = "REJECTED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Order struct {
	ID                    int64         `json:"id"`
	OrderNumber           string        `json:"orderNumber"`
	CustomerID            int64         `json:"customerId"`
	CustomerName          string        `json:"customerName"`
	CustomerMobile        string        `json:"customerMobile"`
	DeliveryBoyID         *int64        `json:"deliveryBoyId,omitempty"`
	DeliveryBoyName       string        `json:"deliveryBoyName,omitempty"`
	DeliveryBoyMobile     string        `json:"deliveryBoyMobile,omitempty"`
	Status                OrderStatus   `json:"status"`
	Subtotal              float64       `json:"subtotal"`
	DeliveryCharge        float64       `json:"deliveryCharge"`
	TotalAmount           float64       `json:"totalAmount"`
	PaymentMethod         PaymentMethod `json:"paymentMethod"`
	DeliveryAddress       string        `json:"deliveryAddress"`
	DeliveryLatitude      *float64      `json:"deliveryLatitude,omitempty"`
	DeliveryLongitude     *float64      `json:"deliveryLongitude,omitempty"`
	DeliveryCity          string        `json:"deliveryCity"`
	SpecialInstructions   string        `json:"specialInstructions,omitempty"`
	EstimatedDeliveryTime string        `json:"estimatedDeliveryTime,omitempty"`
	AcceptedAt            string        `json:"acceptedAt,omitempty"`
	ReadyAt               string        `json:"readyAt,omitempty"`
	OutForDeliveryAt      string        `json:"outForDeliveryAt,omitempty"`
	DeliveredAt           string        `json:"deliveredAt,omitempty"`
	CreatedAt             string        `json:"createdAt"`
	Items                 []OrderItem   `json:"items"`
	Payment               *Payment      `json:"payment,omitempty"`
}

type OrderItem struct {
	ID           int64   `json:"id"`
	MenuItemID   int64   `json:"menuItemId"`
	MenuItemName string  `json:"menuItemName"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Subtotal     float64 `json:"subtotal"`
}

type Payment struct {
	ID            int64         `json:"id"`
	OrderID       int64         `json:"orderId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Amount        float64       `json:"amount"`
	TransactionID string        `json:"transactionId,omitempty"`
	PaidAt        string        `json:"paidAt,omitempty"`
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// PlaceOrderRequest is the customer order placement payload.
type PlaceOrderRequest struct {
	Items               []PlaceOrderItem `json:"items"`
	PaymentMethod       PaymentMethod    `json:"paymentMethod"`
	DeliveryAddress     string           `json:"deliveryAddress"`
	DeliveryLatitude    *float64         `json:"deliveryLatitude,omitempty"`
	DeliveryLongitude   *float64         `json:"deliveryLongitude,omitempty"`
	DeliveryCity        string           `json:"deliveryCity"`
	SpecialInstructions string           `json:"specialInstructions,omitempty"`
}

type PlaceOrderItem struct {
	MenuItemID          int64  `json:"menuItemId"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}
