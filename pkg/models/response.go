package models

import "encoding/json"

// Envelope is the backend's uniform response shape. Data is decoded lazily by
// the caller since its type depends on the endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DashboardStats is the admin dashboard summary for a reporting period.
type DashboardStats struct {
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	CompletedOrders int     `json:"completedOrders"`
	RejectedOrders  int     `json:"rejectedOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	Period          string  `json:"period"`
}

// SalesReportRow is one line of the admin sales report.
type SalesReportRow struct {
	Date       string  `json:"date"`
	OrderCount int     `json:"orderCount"`
	Revenue    float64 `json:"revenue"`
}
