package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

// store wraps the Postgres schema behind the shapes the mobile apps expect.
type store struct {
	db *sql.DB
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			mobile VARCHAR(20) NOT NULL,
			role VARCHAR(20) NOT NULL,
			fcm_token VARCHAR(512),
			is_available BOOLEAN NOT NULL DEFAULT FALSE,
			is_on_duty BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (mobile, role)
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			image_url VARCHAR(512),
			display_order INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id SERIAL PRIMARY KEY,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price DECIMAL(10,2) NOT NULL,
			image_url VARCHAR(512),
			is_veg BOOLEAN NOT NULL DEFAULT TRUE,
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			order_number VARCHAR(32) NOT NULL UNIQUE,
			customer_id INTEGER NOT NULL REFERENCES users(id),
			delivery_boy_id INTEGER REFERENCES users(id),
			status VARCHAR(32) NOT NULL,
			subtotal DECIMAL(10,2) NOT NULL,
			delivery_charge DECIMAL(10,2) NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			payment_method VARCHAR(16) NOT NULL,
			payment_status VARCHAR(16) NOT NULL,
			delivery_address TEXT NOT NULL,
			delivery_latitude DOUBLE PRECISION,
			delivery_longitude DOUBLE PRECISION,
			delivery_city VARCHAR(255),
			special_instructions TEXT,
			reject_reason TEXT,
			accepted_at TIMESTAMP,
			ready_at TIMESTAMP,
			out_for_delivery_at TIMESTAMP,
			delivered_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id INTEGER NOT NULL REFERENCES orders(id),
			menu_item_id INTEGER NOT NULL,
			menu_item_name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL,
			price DECIMAL(10,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_delivery_boy_id ON orders(delivery_boy_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// seedMenu loads a starter menu on an empty database so the apps have
// something to show on first run.
func (s *store) seedMenu() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := map[string][]struct {
		name  string
		price float64
		veg   bool
	}{
		"Starters": {
			{"Paneer Tikka", 220, true},
			{"Chicken 65", 260, false},
		},
		"Main Course": {
			{"Dal Makhani", 240, true},
			{"Butter Chicken", 340, false},
			{"Veg Biryani", 210, true},
		},
		"Breads": {
			{"Butter Naan", 45, true},
			{"Tandoori Roti", 25, true},
		},
	}

	order := 0
	for category, items := range seed {
		order++
		var categoryID int64
		err := s.db.QueryRow(
			`INSERT INTO categories (name, display_order) VALUES ($1, $2) RETURNING id`,
			category, order,
		).Scan(&categoryID)
		if err != nil {
			return err
		}
		for _, item := range items {
			_, err := s.db.Exec(
				`INSERT INTO menu_items (category_id, name, price, is_veg) VALUES ($1, $2, $3, $4)`,
				categoryID, item.name, item.price, item.veg,
			)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// upsertUser finds or creates the account for a verified mobile number.
func (s *store) upsertUser(mobile, role string) (models.User, error) {
	var user models.User
	err := s.db.QueryRow(
		`INSERT INTO users (name, mobile, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (mobile, role) DO UPDATE SET mobile = EXCLUDED.mobile
		 RETURNING id, name, mobile, role, is_active`,
		"User "+mobile[len(mobile)-4:], mobile, role,
	).Scan(&user.ID, &user.Name, &user.Mobile, &user.Role, &user.IsActive)
	return user, err
}

func (s *store) setFCMToken(userID int64, token string) error {
	_, err := s.db.Exec(`UPDATE users SET fcm_token = $1 WHERE id = $2`, token, userID)
	return err
}

func (s *store) setDutyStatus(userID int64, status models.DeliveryBoyStatus) (models.DeliveryBoyStatus, error) {
	var updated models.DeliveryBoyStatus
	err := s.db.QueryRow(
		`UPDATE users SET is_available = $1, is_on_duty = $2 WHERE id = $3
		 RETURNING is_available, is_on_duty`,
		status.IsAvailable, status.IsOnDuty, userID,
	).Scan(&updated.IsAvailable, &updated.IsOnDuty)
	return updated, err
}

func (s *store) listDeliveryBoys() ([]models.DeliveryBoy, error) {
	rows, err := s.db.Query(
		`SELECT id, name, mobile, is_available, is_on_duty
		 FROM users WHERE role = 'DELIVERY' AND is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boys := []models.DeliveryBoy{}
	for rows.Next() {
		var b models.DeliveryBoy
		if err := rows.Scan(&b.ID, &b.Name, &b.Mobile, &b.IsAvailable, &b.IsOnDuty); err != nil {
			return nil, err
		}
		boys = append(boys, b)
	}
	return boys, rows.Err()
}

func (s *store) listCategories(activeOnly bool) ([]models.Category, error) {
	query := `SELECT id, name, COALESCE(description, ''), COALESCE(image_url, ''), display_order, is_active
		 FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY display_order, id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.DisplayOrder, &c.IsActive); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *store) createCategory(req models.CategoryRequest) (models.Category, error) {
	var c models.Category
	err := s.db.QueryRow(
		`INSERT INTO categories (name, description, image_url, display_order)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, COALESCE(description, ''), COALESCE(image_url, ''), display_order, is_active`,
		req.Name, req.Description, req.ImageURL, req.DisplayOrder,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.DisplayOrder, &c.IsActive)
	return c, err
}

func (s *store) updateCategory(id int64, req models.CategoryRequest) (models.Category, error) {
	var c models.Category
	err := s.db.QueryRow(
		`UPDATE categories SET name = $1, description = $2, image_url = $3, display_order = $4
		 WHERE id = $5
		 RETURNING id, name, COALESCE(description, ''), COALESCE(image_url, ''), display_order, is_active`,
		req.Name, req.Description, req.ImageURL, req.DisplayOrder, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.DisplayOrder, &c.IsActive)
	return c, err
}

func (s *store) deleteCategory(id int64) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE id = $1`, id)
	return err
}

func (s *store) toggleCategory(id int64) (models.Category, error) {
	var c models.Category
	err := s.db.QueryRow(
		`UPDATE categories SET is_active = NOT is_active WHERE id = $1
		 RETURNING id, name, COALESCE(description, ''), COALESCE(image_url, ''), display_order, is_active`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL, &c.DisplayOrder, &c.IsActive)
	return c, err
}

const menuItemColumns = `m.id, m.category_id, c.name, m.name, COALESCE(m.description, ''),
	 m.price, COALESCE(m.image_url, ''), m.is_veg, m.is_available`

func (s *store) listMenuItems(availableOnly bool) ([]models.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + `
		 FROM menu_items m JOIN categories c ON c.id = m.category_id`
	if availableOnly {
		query += ` WHERE m.is_available AND c.is_active`
	}
	query += ` ORDER BY c.display_order, m.id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var m models.MenuItem
		err := rows.Scan(&m.ID, &m.CategoryID, &m.CategoryName, &m.Name, &m.Description,
			&m.Price, &m.ImageURL, &m.IsVeg, &m.IsAvailable)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *store) getMenuItem(id int64) (models.MenuItem, error) {
	var m models.MenuItem
	err := s.db.QueryRow(
		`SELECT `+menuItemColumns+`
		 FROM menu_items m JOIN categories c ON c.id = m.category_id WHERE m.id = $1`,
		id,
	).Scan(&m.ID, &m.CategoryID, &m.CategoryName, &m.Name, &m.Description,
		&m.Price, &m.ImageURL, &m.IsVeg, &m.IsAvailable)
	return m, err
}

func (s *store) createMenuItem(req models.MenuItemRequest) (models.MenuItem, error) {
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO menu_items (category_id, name, description, price, image_url, is_veg)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.CategoryID, req.Name, req.Description, req.Price, req.ImageURL, req.IsVeg,
	).Scan(&id)
	if err != nil {
		return models.MenuItem{}, err
	}
	return s.getMenuItem(id)
}

func (s *store) updateMenuItem(id int64, req models.MenuItemRequest) (models.MenuItem, error) {
	_, err := s.db.Exec(
		`UPDATE menu_items SET category_id = $1, name = $2, description = $3, price = $4,
		 image_url = $5, is_veg = $6 WHERE id = $7`,
		req.CategoryID, req.Name, req.Description, req.Price, req.ImageURL, req.IsVeg, id,
	)
	if err != nil {
		return models.MenuItem{}, err
	}
	return s.getMenuItem(id)
}

func (s *store) deleteMenuItem(id int64) error {
	_, err := s.db.Exec(`DELETE FROM menu_items WHERE id = $1`, id)
	return err
}

func (s *store) toggleMenuItem(id int64) (models.MenuItem, error) {
	_, err := s.db.Exec(`UPDATE menu_items SET is_available = NOT is_available WHERE id = $1`, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	return s.getMenuItem(id)
}

const deliveryChargeFlat = 40.0

// createOrder prices the cart server-side and persists the order with its
// line items in one transaction.
func (s *store) createOrder(customerID int64, req models.PlaceOrderRequest) (models.Order, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return models.Order{}, err
	}
	defer tx.Rollback()

	var subtotal float64
	lines := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		var name string
		var price float64
		err := tx.QueryRow(
			`SELECT name, price FROM menu_items WHERE id = $1 AND is_available`,
			item.MenuItemID,
		).Scan(&name, &price)
		if err != nil {
			if err == sql.ErrNoRows {
				return models.Order{}, fmt.Errorf("menu item %d is not available", item.MenuItemID)
			}
			return models.Order{}, err
		}
		subtotal += price * float64(item.Quantity)
		lines = append(lines, models.OrderItem{
			MenuItemID:   item.MenuItemID,
			MenuItemName: name,
			Quantity:     item.Quantity,
			Price:        price,
			Subtotal:     price * float64(item.Quantity),
		})
	}

	orderNumber := "SD-" + uuid.NewString()[:8]
	var orderID int64
	err = tx.QueryRow(
		`INSERT INTO orders (order_number, customer_id, status, subtotal, delivery_charge,
		 total_amount, payment_method, payment_status, delivery_address, delivery_latitude,
		 delivery_longitude, delivery_city, special_instructions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		orderNumber, customerID, models.StatusPlaced, subtotal, deliveryChargeFlat,
		subtotal+deliveryChargeFlat, req.PaymentMethod, models.PaymentPending,
		req.DeliveryAddress, req.DeliveryLatitude, req.DeliveryLongitude,
		req.DeliveryCity, req.SpecialInstructions,
	).Scan(&orderID)
	if err != nil {
		return models.Order{}, err
	}

	for _, line := range lines {
		_, err := tx.Exec(
			`INSERT INTO order_items (order_id, menu_item_id, menu_item_name, quantity, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			orderID, line.MenuItemID, line.MenuItemName, line.Quantity, line.Price,
		)
		if err != nil {
			return models.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Order{}, err
	}
	return s.getOrder(orderID)
}

const orderColumns = `o.id, o.order_number, o.customer_id, cu.name, cu.mobile,
	 o.delivery_boy_id, COALESCE(db.name, ''), COALESCE(db.mobile, ''),
	 o.status, o.subtotal, o.delivery_charge, o.total_amount, o.payment_method, o.payment_status,
	 o.delivery_address, o.delivery_latitude, o.delivery_longitude, COALESCE(o.delivery_city, ''),
	 COALESCE(o.special_instructions, ''),
	 o.accepted_at, o.ready_at, o.out_for_delivery_at, o.delivered_at, o.created_at`

const orderJoins = ` FROM orders o
	 JOIN users cu ON cu.id = o.customer_id
	 LEFT JOIN users db ON db.id = o.delivery_boy_id`

func scanOrder(row interface{ Scan(...interface{}) error }) (models.Order, error) {
	var o models.Order
	var paymentStatus models.PaymentStatus
	var acceptedAt, readyAt, outAt, deliveredAt sql.NullTime
	var createdAt time.Time
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerMobile,
		&o.DeliveryBoyID, &o.DeliveryBoyName, &o.DeliveryBoyMobile,
		&o.Status, &o.Subtotal, &o.DeliveryCharge, &o.TotalAmount, &o.PaymentMethod, &paymentStatus,
		&o.DeliveryAddress, &o.DeliveryLatitude, &o.DeliveryLongitude, &o.DeliveryCity,
		&o.SpecialInstructions,
		&acceptedAt, &readyAt, &outAt, &deliveredAt, &createdAt,
	)
	if err != nil {
		return models.Order{}, err
	}

	o.AcceptedAt = formatNullTime(acceptedAt)
	o.ReadyAt = formatNullTime(readyAt)
	o.OutForDeliveryAt = formatNullTime(outAt)
	o.DeliveredAt = formatNullTime(deliveredAt)
	o.CreatedAt = createdAt.Format(time.RFC3339)
	o.Payment = &models.Payment{
		OrderID:       o.ID,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: paymentStatus,
		Amount:        o.TotalAmount,
	}
	return o, nil
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}

func (s *store) getOrder(id int64) (models.Order, error) {
	order, err := scanOrder(s.db.QueryRow(`SELECT `+orderColumns+orderJoins+` WHERE o.id = $1`, id))
	if err != nil {
		return models.Order{}, err
	}
	if err := s.attachItems(&order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *store) listOrders(where string, args ...interface{}) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + orderJoins
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY o.created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := s.attachItems(&orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *store) attachItems(order *models.Order) error {
	rows, err := s.db.Query(
		`SELECT id, menu_item_id, menu_item_name, quantity, price
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		order.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Items = []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.MenuItemID, &item.MenuItemName, &item.Quantity, &item.Price); err != nil {
			return err
		}
		item.Subtotal = item.Price * float64(item.Quantity)
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// statusTimestampColumn maps a transition target to the column recording
// when it happened.
func statusTimestampColumn(status models.OrderStatus) string {
	switch status {
	case models.StatusAccepted:
		return "accepted_at"
	case models.StatusReady:
		return "ready_at"
	case models.StatusOutForDelivery:
		return "out_for_delivery_at"
	case models.StatusDelivered:
		return "delivered_at"
	}
	return ""
}

func (s *store) setStatus(orderID int64, status models.OrderStatus, rejectReason string) (models.Order, error) {
	query := `UPDATE orders SET status = $1, reject_reason = NULLIF($2, '')`
	if col := statusTimestampColumn(status); col != "" {
		query += `, ` + col + ` = NOW()`
	}
	if status == models.StatusDelivered {
		// COD settles on handover in the mock.
		query += `, payment_status = '` + string(models.PaymentPaid) + `'`
	}
	query += ` WHERE id = $3`

	if _, err := s.db.Exec(query, status, rejectReason, orderID); err != nil {
		return models.Order{}, err
	}
	return s.getOrder(orderID)
}

func (s *store) assignDeliveryBoy(orderID, deliveryBoyID int64) (models.Order, error) {
	_, err := s.db.Exec(`UPDATE orders SET delivery_boy_id = $1 WHERE id = $2`, deliveryBoyID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	return s.getOrder(orderID)
}

// claimOrder atomically takes a ready order for a courier. It fails when the
// order is not READY or already belongs to someone else.
func (s *store) claimOrder(orderID, deliveryBoyID int64) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE orders SET delivery_boy_id = $1, status = $2, out_for_delivery_at = NOW()
		 WHERE id = $3 AND status = $4 AND (delivery_boy_id IS NULL OR delivery_boy_id = $1)`,
		deliveryBoyID, models.StatusOutForDelivery, orderID, models.StatusReady,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func periodCutoff(period string) time.Time {
	now := time.Now()
	switch period {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	default:
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	}
}

func (s *store) dashboardStats(period string) (models.DashboardStats, error) {
	stats := models.DashboardStats{Period: period}
	err := s.db.QueryRow(
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('PLACED', 'ACCEPTED', 'PREPARING', 'READY', 'OUT_FOR_DELIVERY')),
			COUNT(*) FILTER (WHERE status = 'DELIVERED'),
			COUNT(*) FILTER (WHERE status = 'REJECTED'),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'DELIVERED'), 0)
		 FROM orders WHERE created_at >= $1`,
		periodCutoff(period),
	).Scan(&stats.TotalOrders, &stats.PendingOrders, &stats.CompletedOrders,
		&stats.RejectedOrders, &stats.TotalRevenue)
	return stats, err
}

func (s *store) salesReport(period string) ([]models.SalesReportRow, error) {
	rows, err := s.db.Query(
		`SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM orders WHERE status = 'DELIVERED' AND created_at >= $1
		 GROUP BY created_at::date ORDER BY created_at::date`,
		periodCutoff(period),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := []models.SalesReportRow{}
	for rows.Next() {
		var row models.SalesReportRow
		if err := rows.Scan(&row.Date, &row.OrderCount, &row.Revenue); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	return report, rows.Err()
}
