// Package customer is the ordering app's repository layer: menu browsing,
// order placement with local pre-validation, order history, and the
// pre-acceptance cancel. The backend re-validates everything; the local
// checks only save a doomed round trip.
package customer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/internal/lifecycle"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

// MinOrderAmount is the default minimum subtotal; the server holds the
// authoritative value.
const MinOrderAmount = 200.0

type Repository struct {
	client *api.Client
	logger *logrus.Logger
}

func NewRepository(client *api.Client, logger *logrus.Logger) *Repository {
	return &Repository{client: client, logger: logger}
}

// Menu returns the active categories and items.
func (r *Repository) Menu(ctx context.Context) ([]models.Category, []models.MenuItem, error) {
	var categories []models.Category
	if err := r.client.Get(ctx, "/customer/menu/categories", &categories); err != nil {
		return nil, nil, err
	}

	var items []models.MenuItem
	if err := r.client.Get(ctx, "/customer/menu/items", &items); err != nil {
		return nil, nil, err
	}

	return categories, items, nil
}

// ValidateOrder runs the local pre-placement checks.
func ValidateOrder(lines []models.CartLine, minAmount float64) error {
	if len(lines) == 0 {
		return &api.Error{Kind: api.KindValidation, Message: "Cart is empty"}
	}

	var subtotal float64
	for _, l := range lines {
		subtotal += l.LineTotal()
	}
	if subtotal < minAmount {
		return &api.Error{
			Kind:    api.KindValidation,
			Message: fmt.Sprintf("Minimum order amount is %.0f", minAmount),
		}
	}
	return nil
}

// PlaceOrder submits the order and returns the server's copy.
func (r *Repository) PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := r.client.Post(ctx, "/customer/orders", req, &order); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
	}).Info("Order placed")
	return &order, nil
}

// ListMine fetches the customer's order history.
func (r *Repository) ListMine(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.client.Get(ctx, "/customer/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches one order by id.
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := r.client.Get(ctx, fmt.Sprintf("/customer/orders/%d", orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Cancel withdraws an order the restaurant has not yet accepted.
func (r *Repository) Cancel(ctx context.Context, current models.Order) (*models.Order, error) {
	if !lifecycle.CanTransition(current.Status, models.StatusCancelled, lifecycle.RoleCustomer) {
		return nil, &api.Error{
			Kind:    api.KindValidation,
			Message: fmt.Sprintf("Order can no longer be cancelled in status %s", current.Status),
		}
	}

	var order models.Order
	if err := r.client.Post(ctx, fmt.Sprintf("/customer/orders/%d/cancel", current.ID), nil, &order); err != nil {
		return nil, err
	}

	r.logger.WithField("order_id", order.ID).Info("Order cancelled")
	return &order, nil
}
