package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/events"
	"github.com/shivdhaba/delivery-core/internal/lifecycle"
	"github.com/shivdhaba/delivery-core/internal/websocket"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

func (s *server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (s *server) respondData(w http.ResponseWriter, code int, message string, data interface{}) {
	s.respondJSON(w, code, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (s *server) respondError(w http.ResponseWriter, code int, message string) {
	s.respondJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// transition applies a guarded status change and fans the result out to the
// event stream and connected apps.
func (s *server) transition(w http.ResponseWriter, orderID int64, to models.OrderStatus, role lifecycle.Role, rejectReason string) {
	order, err := s.store.getOrder(orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			s.respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		s.logger.WithError(err).Error("Failed to load order")
		s.respondError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	if !lifecycle.CanTransition(order.Status, to, role) {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Order cannot move from %s to %s", order.Status, to))
		return
	}

	from := order.Status
	updated, err := s.store.setStatus(orderID, to, rejectReason)
	if err != nil {
		s.logger.WithError(err).Error("Failed to update order status")
		s.respondError(w, http.StatusInternalServerError, "Failed to update order status")
		return
	}

	s.publishStatusChanged(from, updated)
	s.respondData(w, http.StatusOK, "Order updated", updated)
}

func (s *server) publishStatusChanged(from models.OrderStatus, order models.Order) {
	s.hub.BroadcastOrder(websocket.TypeStatusChanged, order)
	if s.producer == nil {
		return
	}
	err := s.producer.PublishStatusChanged(events.OrderStatusChangedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		FromStatus:    from,
		ToStatus:      order.Status,
		DeliveryBoyID: order.DeliveryBoyID,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to publish status change event")
	}
}

// --- customer ---

func (s *server) handleCustomerCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.listCategories(true)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list categories")
		s.respondError(w, http.StatusInternalServerError, "Failed to load menu")
		return
	}
	s.respondData(w, http.StatusOK, "", categories)
}

func (s *server) handleCustomerMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.listMenuItems(true)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list menu items")
		s.respondError(w, http.StatusInternalServerError, "Failed to load menu")
		return
	}
	s.respondData(w, http.StatusOK, "", items)
}

func (s *server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		s.respondError(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	if req.DeliveryAddress == "" {
		s.respondError(w, http.StatusBadRequest, "Delivery address is required")
		return
	}

	sess := sessionFrom(r)
	order, err := s.store.createOrder(sess.userID, req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create order")
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount,
	}).Info("Order placed")

	s.hub.BroadcastOrder(websocket.TypeOrderPlaced, order)
	if s.producer != nil {
		err := s.producer.PublishOrderPlaced(events.OrderPlacedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			TotalAmount: order.TotalAmount,
		})
		if err != nil {
			s.logger.WithError(err).Error("Failed to publish order placed event")
		}
	}

	s.respondData(w, http.StatusCreated, "Order placed", order)
}

func (s *server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	orders, err := s.store.listOrders("o.customer_id = $1", sess.userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list customer orders")
		s.respondError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	s.respondData(w, http.StatusOK, "", orders)
}

func (s *server) handleCustomerOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := s.store.getOrder(id)
	if err != nil || order.CustomerID != sessionFrom(r).userID {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	s.respondData(w, http.StatusOK, "", order)
}

func (s *server) handleCustomerCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := s.store.getOrder(id)
	if err != nil || order.CustomerID != sessionFrom(r).userID {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}

	s.transition(w, id, models.StatusCancelled, lifecycle.RoleCustomer, "")
}

// --- delivery ---

func (s *server) handleAvailableOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	orders, err := s.store.listOrders(
		"o.status = $1 AND (o.delivery_boy_id IS NULL OR o.delivery_boy_id = $2)",
		models.StatusReady, sess.userID,
	)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list available orders")
		s.respondError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	s.respondData(w, http.StatusOK, "", orders)
}

func (s *server) handleAcceptOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	sess := sessionFrom(r)
	order, err := s.store.getOrder(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}

	claimed, err := s.store.claimOrder(id, sess.userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to claim order")
		s.respondError(w, http.StatusInternalServerError, "Failed to accept order")
		return
	}
	if !claimed {
		s.respondError(w, http.StatusBadRequest, "Order already assigned")
		return
	}

	updated, err := s.store.getOrder(id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":        id,
		"delivery_boy_id": sess.userID,
	}).Info("Order accepted by courier")

	s.publishStatusChanged(order.Status, updated)
	s.respondData(w, http.StatusOK, "Order accepted", updated)
}

func (s *server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		s.respondError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	order, err := s.store.getOrder(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	sess := sessionFrom(r)
	if order.DeliveryBoyID == nil || *order.DeliveryBoyID != sess.userID {
		s.respondError(w, http.StatusForbidden, "Order is not assigned to you")
		return
	}

	s.hub.BroadcastLocation(id, lat, lng)
	s.respondData(w, http.StatusOK, "Location updated", nil)
}

func (s *server) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	order, err := s.store.getOrder(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	sess := sessionFrom(r)
	if order.DeliveryBoyID == nil || *order.DeliveryBoyID != sess.userID {
		s.respondError(w, http.StatusForbidden, "Order is not assigned to you")
		return
	}

	s.transition(w, id, models.StatusDelivered, lifecycle.RoleDelivery, "")
}

func (s *server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	orders, err := s.store.listOrders("o.delivery_boy_id = $1", sess.userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list courier orders")
		s.respondError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	s.respondData(w, http.StatusOK, "", orders)
}

func (s *server) handleDutyStatus(w http.ResponseWriter, r *http.Request) {
	isAvailable, errA := strconv.ParseBool(r.URL.Query().Get("isAvailable"))
	isOnDuty, errD := strconv.ParseBool(r.URL.Query().Get("isOnDuty"))
	if errA != nil || errD != nil {
		s.respondError(w, http.StatusBadRequest, "isAvailable and isOnDuty are required")
		return
	}

	sess := sessionFrom(r)
	status, err := s.store.setDutyStatus(sess.userID, models.DeliveryBoyStatus{
		IsAvailable: isAvailable,
		IsOnDuty:    isOnDuty,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to update duty status")
		s.respondError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	s.respondData(w, http.StatusOK, "Status updated", status)
}

func (s *server) handleFCMToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("fcmToken")
	if token == "" {
		s.respondError(w, http.StatusBadRequest, "fcmToken is required")
		return
	}

	sess := sessionFrom(r)
	if err := s.store.setFCMToken(sess.userID, token); err != nil {
		s.logger.WithError(err).Error("Failed to store FCM token")
		s.respondError(w, http.StatusInternalServerError, "Failed to store token")
		return
	}
	s.respondData(w, http.StatusOK, "Token updated", nil)
}

// --- admin ---

func (s *server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []models.Order
		err    error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		orders, err = s.store.listOrders("o.status = $1", status)
	} else {
		orders, err = s.store.listOrders("")
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list orders")
		s.respondError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	s.respondData(w, http.StatusOK, "", orders)
}

func (s *server) handleAdminOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	order, err := s.store.getOrder(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	s.respondData(w, http.StatusOK, "", order)
}

func (s *server) handleAdminAccept(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	s.transition(w, id, models.StatusAccepted, lifecycle.RoleAdmin, "")
}

func (s *server) handleAdminReject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	s.transition(w, id, models.StatusRejected, lifecycle.RoleAdmin, body.Reason)
}

func (s *server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		s.respondError(w, http.StatusBadRequest, "status is required")
		return
	}

	s.transition(w, id, body.Status, lifecycle.RoleAdmin, "")
}

func (s *server) handleAdminAssign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	var body struct {
		DeliveryBoyID int64 `json:"deliveryBoyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeliveryBoyID == 0 {
		s.respondError(w, http.StatusBadRequest, "deliveryBoyId is required")
		return
	}

	order, err := s.store.getOrder(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Status != models.StatusReady {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Delivery can only be assigned to a READY order, not %s", order.Status))
		return
	}

	updated, err := s.store.assignDeliveryBoy(id, body.DeliveryBoyID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to assign delivery boy")
		s.respondError(w, http.StatusInternalServerError, "Failed to assign delivery")
		return
	}

	s.hub.BroadcastOrder(websocket.TypeStatusChanged, updated)
	s.respondData(w, http.StatusOK, "Delivery assigned", updated)
}

func (s *server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "today"
	}
	stats, err := s.store.dashboardStats(period)
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute dashboard stats")
		s.respondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	s.respondData(w, http.StatusOK, "", stats)
}

func (s *server) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}
	report, err := s.store.salesReport(period)
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute sales report")
		s.respondError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}
	s.respondData(w, http.StatusOK, "", report)
}

func (s *server) handleAdminCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.listCategories(false)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list categories")
		s.respondError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}
	s.respondData(w, http.StatusOK, "", categories)
}

func (s *server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "Category name is required")
		return
	}
	category, err := s.store.createCategory(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create category")
		s.respondError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}
	s.respondData(w, http.StatusCreated, "Category created", category)
}

func (s *server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid category id")
		return
	}
	var req models.CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "Category name is required")
		return
	}
	category, err := s.store.updateCategory(id, req)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	s.respondData(w, http.StatusOK, "Category updated", category)
}

func (s *server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid category id")
		return
	}
	if err := s.store.deleteCategory(id); err != nil {
		s.respondError(w, http.StatusBadRequest, "Category has menu items attached")
		return
	}
	s.respondData(w, http.StatusOK, "Category deleted", nil)
}

func (s *server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid category id")
		return
	}
	category, err := s.store.toggleCategory(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	s.respondData(w, http.StatusOK, "Category updated", category)
}

func (s *server) handleAdminMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.listMenuItems(false)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list menu items")
		s.respondError(w, http.StatusInternalServerError, "Failed to load menu items")
		return
	}
	s.respondData(w, http.StatusOK, "", items)
}

func (s *server) handleCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req models.MenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.CategoryID == 0 {
		s.respondError(w, http.StatusBadRequest, "Name and categoryId are required")
		return
	}
	item, err := s.store.createMenuItem(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create menu item")
		s.respondError(w, http.StatusInternalServerError, "Failed to create menu item")
		return
	}
	s.respondData(w, http.StatusCreated, "Menu item created", item)
}

func (s *server) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid menu item id")
		return
	}
	var req models.MenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	item, err := s.store.updateMenuItem(id, req)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	s.respondData(w, http.StatusOK, "Menu item updated", item)
}

func (s *server) handleDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid menu item id")
		return
	}
	if err := s.store.deleteMenuItem(id); err != nil {
		s.respondError(w, http.StatusBadRequest, "Menu item is referenced by orders")
		return
	}
	s.respondData(w, http.StatusOK, "Menu item deleted", nil)
}

func (s *server) handleToggleMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid menu item id")
		return
	}
	item, err := s.store.toggleMenuItem(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	s.respondData(w, http.StatusOK, "Menu item updated", item)
}

func (s *server) handleDeliveryBoys(w http.ResponseWriter, r *http.Request) {
	boys, err := s.store.listDeliveryBoys()
	if err != nil {
		s.logger.WithError(err).Error("Failed to list delivery boys")
		s.respondError(w, http.StatusInternalServerError, "Failed to load delivery boys")
		return
	}
	s.respondData(w, http.StatusOK, "", boys)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.db.Ping(); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"service": "api-mock",
			"error":   "database connection failed",
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"service":          "api-mock",
		"websocketClients": s.hub.ClientCount(),
	})
}
