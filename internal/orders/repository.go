// Package orders is the delivery app's repository layer: typed wrappers over
// the delivery-side order endpoints plus the courier's availability and FCM
// token calls. Order mutations reconcile the registered view lists through
// the synchronizer: an accepted order leaves the cached pools, a delivered
// one is replaced in place, and a failed call leaves every list untouched.
package orders

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/internal/lifecycle"
	"github.com/shivdhaba/delivery-core/internal/viewsync"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

type Repository struct {
	client *api.Client
	logger *logrus.Logger
	sync   *viewsync.Synchronizer[models.Order]
}

// NewRepository wires the repository to the shared client. Any lists passed
// in are reconciled whenever an accept or deliver succeeds.
func NewRepository(client *api.Client, logger *logrus.Logger, lists ...*viewsync.List[models.Order]) *Repository {
	return &Repository{
		client: client,
		logger: logger,
		sync:   viewsync.NewSynchronizer(logger, lists...),
	}
}

// ListAvailable fetches orders that are ready and unassigned.
func (r *Repository) ListAvailable(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.client.Get(ctx, "/delivery/orders/available", &orders); err != nil {
		return nil, err
	}
	r.logger.WithField("count", len(orders)).Info("Retrieved available orders")
	return orders, nil
}

// Accept claims an order for this courier. The state machine guards the
// request locally; the server flips the order to OUT_FOR_DELIVERY and
// returns the updated copy. On success the order drops out of the cached
// pools, since it is no longer up for grabs.
func (r *Repository) Accept(ctx context.Context, current models.Order) (*models.Order, error) {
	if !lifecycle.CanTransition(current.Status, models.StatusOutForDelivery, lifecycle.RoleDelivery) {
		return nil, transitionNotAllowed(current.Status, models.StatusOutForDelivery)
	}

	var order models.Order
	path := fmt.Sprintf("/delivery/orders/%d/accept", current.ID)
	err := r.sync.MutateDelete(ctx, current.ID, func(ctx context.Context) error {
		return r.client.Post(ctx, path, nil, &order)
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Order accepted")
	return &order, nil
}

// UpdateLocation uploads a position fix for an active delivery. The backend
// takes these as query parameters.
func (r *Repository) UpdateLocation(ctx context.Context, req models.LocationUpdateRequest) error {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	if req.Address != "" {
		params.Set("address", req.Address)
	}

	path := fmt.Sprintf("/delivery/orders/%d/update-location?%s", req.OrderID, params.Encode())
	return r.client.Post(ctx, path, nil, nil)
}

// Deliver marks an out-for-delivery order as delivered and replaces the
// cached copy with the server's updated one. Cash collection confirmation
// for COD orders is advisory UI state and never blocks the call here.
func (r *Repository) Deliver(ctx context.Context, current models.Order) (*models.Order, error) {
	if !lifecycle.CanTransition(current.Status, models.StatusDelivered, lifecycle.RoleDelivery) {
		return nil, transitionNotAllowed(current.Status, models.StatusDelivered)
	}

	path := fmt.Sprintf("/delivery/orders/%d/deliver", current.ID)
	order, err := r.sync.Mutate(ctx, func(ctx context.Context) (models.Order, error) {
		var o models.Order
		err := r.client.Post(ctx, path, nil, &o)
		return o, err
	})
	if err != nil {
		return nil, err
	}

	r.logger.WithField("order_id", order.ID).Info("Order delivered")
	return &order, nil
}

// ListMine fetches every order assigned to this courier.
func (r *Repository) ListMine(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.client.Get(ctx, "/delivery/orders/my-orders", &orders); err != nil {
		return nil, err
	}
	r.logger.WithField("count", len(orders)).Info("Retrieved my orders")
	return orders, nil
}

// GetDetails finds one order by id. The delivery side has no single-order
// endpoint, so this filters ListMine client-side.
func (r *Repository) GetDetails(ctx context.Context, orderID int64) (*models.Order, error) {
	orders, err := r.ListMine(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, api.NotFound("Order not found")
}

// UpdateStatus toggles the courier's availability flags.
func (r *Repository) UpdateStatus(ctx context.Context, status models.DeliveryBoyStatus) (*models.DeliveryBoyStatus, error) {
	params := url.Values{}
	params.Set("isAvailable", strconv.FormatBool(status.IsAvailable))
	params.Set("isOnDuty", strconv.FormatBool(status.IsOnDuty))

	var updated models.DeliveryBoyStatus
	if err := r.client.Put(ctx, "/delivery/status?"+params.Encode(), nil, &updated); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"is_available": updated.IsAvailable,
		"is_on_duty":   updated.IsOnDuty,
	}).Info("Duty status updated")
	return &updated, nil
}

// UpdateFCMToken registers the device's push token with the backend.
func (r *Repository) UpdateFCMToken(ctx context.Context, token string) error {
	params := url.Values{}
	params.Set("fcmToken", token)
	return r.client.Put(ctx, "/delivery/fcm-token?"+params.Encode(), nil, nil)
}

// transitionNotAllowed is the local guard rejection: the request is never
// fired because the server is guaranteed to refuse it.
func transitionNotAllowed(current, requested models.OrderStatus) error {
	return &api.Error{
		Kind:    api.KindValidation,
		Message: fmt.Sprintf("Order cannot move from %s to %s", current, requested),
	}
}
