package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/internal/viewsync"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

type staticTokens struct{ access string }

func (s *staticTokens) AccessToken() string         { return s.access }
func (s *staticTokens) RefreshToken() string        { return "" }
func (s *staticTokens) SetTokens(_, _ string) error { return nil }
func (s *staticTokens) Clear() error                { return nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 400,
		"message": "",
		"data":    json.RawMessage(raw),
	})
}

func newRepository(t *testing.T, handler http.Handler, caches ...*viewsync.List[models.Order]) *Repository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL, &staticTokens{access: "t"}, testLogger())
	return NewRepository(client, testLogger(), caches...)
}

func TestListAvailable(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/delivery/orders/available" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeData(w, http.StatusOK, []models.Order{
			{ID: 1, Status: models.StatusReady},
			{ID: 2, Status: models.StatusReady},
		})
	}))

	orders, err := repo.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("got %d orders, expected 2", len(orders))
	}
}

func TestAcceptRemovesOrderFromCachedLists(t *testing.T) {
	available := viewsync.NewList(func(o models.Order) int64 { return o.ID })
	available.Replace([]models.Order{
		{ID: 42, Status: models.StatusReady},
		{ID: 43, Status: models.StatusReady},
	})

	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/delivery/orders/42/accept" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeData(w, http.StatusOK, models.Order{ID: 42, Status: models.StatusOutForDelivery})
	}), available)

	order, err := repo.Accept(context.Background(), models.Order{ID: 42, Status: models.StatusReady})
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if order.Status != models.StatusOutForDelivery {
		t.Errorf("status = %s, expected OUT_FOR_DELIVERY", order.Status)
	}
	if _, found := available.Get(42); found {
		t.Error("accepted order is still listed as available")
	}
	if _, found := available.Get(43); !found {
		t.Error("untouched order 43 should stay in the list")
	}
}

func TestDeliverReplacesCachedCopy(t *testing.T) {
	mine := viewsync.NewList(func(o models.Order) int64 { return o.ID })
	mine.Replace([]models.Order{{ID: 42, Status: models.StatusOutForDelivery}})

	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, models.Order{ID: 42, Status: models.StatusDelivered})
	}), mine)

	if _, err := repo.Deliver(context.Background(), models.Order{ID: 42, Status: models.StatusOutForDelivery}); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	cached, found := mine.Get(42)
	if !found {
		t.Fatal("delivered order dropped from the list")
	}
	if cached.Status != models.StatusDelivered {
		t.Errorf("cached status = %s, expected DELIVERED", cached.Status)
	}
}

func TestAcceptGuardRejectsIllegalTransition(t *testing.T) {
	var called bool
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeData(w, http.StatusOK, models.Order{})
	}))

	_, err := repo.Accept(context.Background(), models.Order{ID: 42, Status: models.StatusPlaced})
	if err == nil {
		t.Fatal("expected guard rejection")
	}
	if api.KindOf(err) != api.KindValidation {
		t.Errorf("kind = %s, expected validation", api.KindOf(err))
	}
	if called {
		t.Error("guard rejection must not fire a request")
	}
}

func TestAcceptSurfacesServerRejection(t *testing.T) {
	available := viewsync.NewList(func(o models.Order) int64 { return o.ID })
	available.Replace([]models.Order{{ID: 42, Status: models.StatusReady}})

	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Order already assigned",
		})
	}), available)

	_, err := repo.Accept(context.Background(), models.Order{ID: 42, Status: models.StatusReady})
	if err == nil {
		t.Fatal("expected error")
	}
	if api.KindOf(err) != api.KindValidation {
		t.Errorf("kind = %s, expected validation", api.KindOf(err))
	}
	if err.Error() != "Order already assigned (400)" {
		t.Errorf("message = %q, expected the server message verbatim", err.Error())
	}
	if _, found := available.Get(42); !found {
		t.Error("failed accept must leave the cached list untouched")
	}
}

func TestUpdateLocationSendsQueryParams(t *testing.T) {
	var gotQuery map[string][]string
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/delivery/orders/7/update-location" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		writeData(w, http.StatusOK, nil)
	}))

	err := repo.UpdateLocation(context.Background(), models.LocationUpdateRequest{
		OrderID:   7,
		Latitude:  28.9845,
		Longitude: 77.7064,
		Address:   "Abu Lane",
	})
	if err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	if got := gotQuery["latitude"]; len(got) != 1 || got[0] != "28.9845" {
		t.Errorf("latitude = %v", got)
	}
	if got := gotQuery["address"]; len(got) != 1 || got[0] != "Abu Lane" {
		t.Errorf("address = %v", got)
	}
}

func TestDeliverCODWithoutConfirmationStillSucceeds(t *testing.T) {
	// Cash confirmation is advisory UI state; the repository call goes
	// through regardless and the server decides.
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, models.Order{
			ID:            42,
			Status:        models.StatusDelivered,
			PaymentMethod: models.PaymentCOD,
		})
	}))

	order, err := repo.Deliver(context.Background(), models.Order{
		ID:            42,
		Status:        models.StatusOutForDelivery,
		PaymentMethod: models.PaymentCOD,
	})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if order.Status != models.StatusDelivered {
		t.Errorf("status = %s, expected DELIVERED", order.Status)
	}
}

func TestGetDetailsFiltersListMine(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/delivery/orders/my-orders" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeData(w, http.StatusOK, []models.Order{
			{ID: 1, Status: models.StatusDelivered},
			{ID: 2, Status: models.StatusOutForDelivery},
		})
	}))

	order, err := repo.GetDetails(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetDetails failed: %v", err)
	}
	if order.ID != 2 {
		t.Errorf("id = %d, expected 2", order.ID)
	}

	_, err = repo.GetDetails(context.Background(), 99)
	if api.KindOf(err) != api.KindNotFound {
		t.Errorf("kind = %s, expected not_found for unknown id", api.KindOf(err))
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newRepository(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/delivery/status" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("isAvailable") != "true" {
			t.Errorf("isAvailable = %s", r.URL.Query().Get("isAvailable"))
		}
		writeData(w, http.StatusOK, models.DeliveryBoyStatus{IsAvailable: true, IsOnDuty: true})
	}))

	status, err := repo.UpdateStatus(context.Background(), models.DeliveryBoyStatus{IsAvailable: true, IsOnDuty: true})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if !status.IsAvailable || !status.IsOnDuty {
		t.Errorf("status = %+v", status)
	}
}
