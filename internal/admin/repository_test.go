package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

type staticTokens struct{}

func (staticTokens) AccessToken() string         { return "admin-token" }
func (staticTokens) RefreshToken() string        { return "" }
func (staticTokens) SetTokens(_, _ string) error { return nil }
func (staticTokens) Clear() error                { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeData(w http.ResponseWriter, data interface{}) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "",
		"data":    json.RawMessage(raw),
	})
}

func newRepository(t *testing.T, handler http.Handler) *Repository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRepository(api.NewClient(server.URL, staticTokens{}, testLogger()), testLogger())
}

func TestListOrdersWithStatusFilter(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "PLACED" {
			t.Errorf("status filter = %q, expected PLACED", got)
		}
		writeData(w, []models.Order{{ID: 1, Status: models.StatusPlaced}})
	}))

	orders, err := repo.ListOrders(context.Background(), models.StatusPlaced)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("got %d orders, expected 1", len(orders))
	}
}

func TestAcceptAndRejectGuards(t *testing.T) {
	tests := []struct {
		name       string
		current    models.OrderStatus
		run        func(repo *Repository, order models.Order) error
		expectWire bool
	}{
		{
			name:    "accept_placed_fires",
			current: models.StatusPlaced,
			run: func(repo *Repository, order models.Order) error {
				_, err := repo.Accept(context.Background(), order)
				return err
			},
			expectWire: true,
		},
		{
			name:    "accept_preparing_blocked",
			current: models.StatusPreparing,
			run: func(repo *Repository, order models.Order) error {
				_, err := repo.Accept(context.Background(), order)
				return err
			},
			expectWire: false,
		},
		{
			name:    "reject_placed_fires",
			current: models.StatusPlaced,
			run: func(repo *Repository, order models.Order) error {
				_, err := repo.Reject(context.Background(), order, "Out of stock")
				return err
			},
			expectWire: true,
		},
		{
			name:    "reject_delivered_blocked",
			current: models.StatusDelivered,
			run: func(repo *Repository, order models.Order) error {
				_, err := repo.Reject(context.Background(), order, "Too late")
				return err
			},
			expectWire: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				writeData(w, models.Order{ID: 1, Status: models.StatusAccepted})
			}))

			err := tt.run(repo, models.Order{ID: 1, Status: tt.current})
			if tt.expectWire {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !called {
					t.Error("expected request to fire")
				}
			} else {
				if err == nil {
					t.Fatal("expected guard rejection")
				}
				if called {
					t.Error("guard rejection must not fire a request")
				}
			}
		})
	}
}

func TestRejectSendsReason(t *testing.T) {
	var body map[string]string
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeData(w, models.Order{ID: 3, Status: models.StatusRejected})
	}))

	order, err := repo.Reject(context.Background(), models.Order{ID: 3, Status: models.StatusPlaced}, "Kitchen closed")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if body["reason"] != "Kitchen closed" {
		t.Errorf("reason = %q", body["reason"])
	}
	if order.Status != models.StatusRejected {
		t.Errorf("status = %s", order.Status)
	}
}

func TestUpdateStatusWalksKitchenSequence(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]models.OrderStatus
		json.NewDecoder(r.Body).Decode(&body)
		writeData(w, models.Order{ID: 5, Status: body["status"]})
	}))

	order, err := repo.UpdateStatus(context.Background(), models.Order{ID: 5, Status: models.StatusAccepted}, models.StatusPreparing)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if order.Status != models.StatusPreparing {
		t.Errorf("status = %s, expected PREPARING", order.Status)
	}

	// Skipping a step is blocked locally.
	if _, err := repo.UpdateStatus(context.Background(), models.Order{ID: 5, Status: models.StatusAccepted}, models.StatusReady); err == nil {
		t.Error("expected guard rejection for ACCEPTED -> READY")
	}
}

func TestAssignDeliveryRequiresReady(t *testing.T) {
	var called bool
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeData(w, models.Order{ID: 8, Status: models.StatusReady})
	}))

	if _, err := repo.AssignDelivery(context.Background(), models.Order{ID: 8, Status: models.StatusPreparing}, 2); err == nil {
		t.Error("expected rejection for non-READY order")
	}
	if called {
		t.Error("guard rejection must not fire a request")
	}

	order, err := repo.AssignDelivery(context.Background(), models.Order{ID: 8, Status: models.StatusReady}, 2)
	if err != nil {
		t.Fatalf("AssignDelivery failed: %v", err)
	}
	if order.Status != models.StatusReady {
		t.Errorf("status = %s, assign must not change status", order.Status)
	}
}

func TestCategoryCRUD(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /admin/menu/categories":
			writeData(w, []models.Category{{ID: 1, Name: "Starters", IsActive: true}})
		case "POST /admin/menu/categories":
			writeData(w, models.Category{ID: 2, Name: "Breads", IsActive: true})
		case "PUT /admin/menu/categories/2/toggle":
			writeData(w, models.Category{ID: 2, Name: "Breads", IsActive: false})
		case "DELETE /admin/menu/categories/2":
			writeData(w, nil)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	ctx := context.Background()

	categories, err := repo.ListCategories(ctx)
	if err != nil || len(categories) != 1 {
		t.Fatalf("ListCategories = %v, %v", categories, err)
	}

	created, err := repo.CreateCategory(ctx, models.CategoryRequest{Name: "Breads"})
	if err != nil || created.ID != 2 {
		t.Fatalf("CreateCategory = %v, %v", created, err)
	}

	toggled, err := repo.ToggleCategory(ctx, 2)
	if err != nil || toggled.IsActive {
		t.Fatalf("ToggleCategory = %v, %v", toggled, err)
	}

	if err := repo.DeleteCategory(ctx, 2); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
}

func TestDashboardStats(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("period"); got != "week" {
			t.Errorf("period = %q, expected week", got)
		}
		writeData(w, models.DashboardStats{TotalOrders: 12, TotalRevenue: 5400, Period: "week"})
	}))

	stats, err := repo.DashboardStats(context.Background(), "week")
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}
	if stats.TotalOrders != 12 {
		t.Errorf("total orders = %d, expected 12", stats.TotalOrders)
	}
}
