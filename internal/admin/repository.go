// Package admin is the restaurant app's repository layer: order workflow
// actions, dashboard reports, menu and category management, and the
// delivery-boy roster.
package admin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/internal/lifecycle"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

type Repository struct {
	client *api.Client
	logger *logrus.Logger
}

func NewRepository(client *api.Client, logger *logrus.Logger) *Repository {
	return &Repository{client: client, logger: logger}
}

// ListOrders fetches all orders, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	path := "/admin/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}

	var orders []models.Order
	if err := r.client.Get(ctx, path, &orders); err != nil {
		return nil, err
	}
	r.logger.WithField("count", len(orders)).Info("Retrieved orders")
	return orders, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := r.client.Get(ctx, fmt.Sprintf("/admin/orders/%d", orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Accept moves a placed order to ACCEPTED.
func (r *Repository) Accept(ctx context.Context, current models.Order) (*models.Order, error) {
	if !lifecycle.CanTransition(current.Status, models.StatusAccepted, lifecycle.RoleAdmin) {
		return nil, transitionNotAllowed(current.Status, models.StatusAccepted)
	}

	var order models.Order
	if err := r.client.Post(ctx, fmt.Sprintf("/admin/orders/%d/accept", current.ID), nil, &order); err != nil {
		return nil, err
	}

	r.logger.WithField("order_id", order.ID).Info("Order accepted")
	return &order, nil
}

// Reject turns a placed order down with a reason shown to the customer.
func (r *Repository) Reject(ctx context.Context, current models.Order, reason string) (*models.Order, error) {
	if !lifecycle.CanTransition(current.Status, models.StatusRejected, lifecycle.RoleAdmin) {
		return nil, transitionNotAllowed(current.Status, models.StatusRejected)
	}

	body := map[string]string{"reason": reason}
	var order models.Order
	if err := r.client.Post(ctx, fmt.Sprintf("/admin/orders/%d/reject", current.ID), body, &order); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"reason":   reason,
	}).Info("Order rejected")
	return &order, nil
}

// UpdateStatus requests the next kitchen-side transition.
func (r *Repository) UpdateStatus(ctx context.Context, current models.Order, newStatus models.OrderStatus) (*models.Order, error) {
	if !lifecycle.CanTransition(current.Status, newStatus, lifecycle.RoleAdmin) {
		return nil, transitionNotAllowed(current.Status, newStatus)
	}

	body := map[string]models.OrderStatus{"status": newStatus}
	var order models.Order
	if err := r.client.Put(ctx, fmt.Sprintf("/admin/orders/%d/status", current.ID), body, &order); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Order status updated")
	return &order, nil
}

// AssignDelivery attaches a delivery boy to a ready order; the status itself
// does not change.
func (r *Repository) AssignDelivery(ctx context.Context, current models.Order, deliveryBoyID int64) (*models.Order, error) {
	if current.Status != models.StatusReady {
		return nil, &api.Error{
			Kind:    api.KindValidation,
			Message: fmt.Sprintf("Delivery can only be assigned to a READY order, not %s", current.Status),
		}
	}

	body := map[string]int64{"deliveryBoyId": deliveryBoyID}
	var order models.Order
	if err := r.client.Put(ctx, fmt.Sprintf("/admin/orders/%d/assign-delivery", current.ID), body, &order); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id":        order.ID,
		"delivery_boy_id": deliveryBoyID,
	}).Info("Delivery boy assigned")
	return &order, nil
}

func (r *Repository) DashboardStats(ctx context.Context, period string) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := r.client.Get(ctx, "/admin/dashboard/stats?period="+url.QueryEscape(period), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Repository) SalesReport(ctx context.Context, period string) ([]models.SalesReportRow, error) {
	var rows []models.SalesReportRow
	if err := r.client.Get(ctx, "/admin/dashboard/sales-report?period="+url.QueryEscape(period), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.client.Get(ctx, "/admin/menu/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := r.client.Post(ctx, "/admin/menu/categories", req, &category); err != nil {
		return nil, err
	}
	r.logger.WithField("category_id", category.ID).Info("Category created")
	return &category, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, categoryID int64, req models.CategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := r.client.Put(ctx, fmt.Sprintf("/admin/menu/categories/%d", categoryID), req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, categoryID int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/admin/menu/categories/%d", categoryID), nil)
}

// ToggleCategory flips the category's active flag and returns the updated
// copy.
func (r *Repository) ToggleCategory(ctx context.Context, categoryID int64) (*models.Category, error) {
	var category models.Category
	if err := r.client.Put(ctx, fmt.Sprintf("/admin/menu/categories/%d/toggle", categoryID), nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := r.client.Get(ctx, "/admin/menu/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) CreateMenuItem(ctx context.Context, req models.MenuItemRequest) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.client.Post(ctx, "/admin/menu/items", req, &item); err != nil {
		return nil, err
	}
	r.logger.WithField("menu_item_id", item.ID).Info("Menu item created")
	return &item, nil
}

func (r *Repository) UpdateMenuItem(ctx context.Context, itemID int64, req models.MenuItemRequest) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.client.Put(ctx, fmt.Sprintf("/admin/menu/items/%d", itemID), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) DeleteMenuItem(ctx context.Context, itemID int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/admin/menu/items/%d", itemID), nil)
}

func (r *Repository) ToggleMenuItem(ctx context.Context, itemID int64) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.client.Put(ctx, fmt.Sprintf("/admin/menu/items/%d/toggle", itemID), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) ListDeliveryBoys(ctx context.Context) ([]models.DeliveryBoy, error) {
	var boys []models.DeliveryBoy
	if err := r.client.Get(ctx, "/admin/delivery-boys", &boys); err != nil {
		return nil, err
	}
	return boys, nil
}

func transitionNotAllowed(current, requested models.OrderStatus) error {
	return &api.Error{
		Kind:    api.KindValidation,
		Message: fmt.Sprintf("Order cannot move from %s to %s", current, requested),
	}
}
