package lifecycle

import (
	"testing"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

var allStatuses = []models.OrderStatus{
	models.StatusPendingPayment,
	models.StatusPlaced,
	models.StatusAccepted,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusOutForDelivery,
	models.StatusDelivered,
	models.StatusRejected,
	models.StatusCancelled,
	models.OrderStatus("GARBAGE"),
	models.OrderStatus(""),
}

var allRoles = []Role{RoleCustomer, RoleAdmin, RoleDelivery, Role(99)}

func TestCanTransitionAllowedEdges(t *testing.T) {
	tests := []struct {
		name      string
		current   models.OrderStatus
		requested models.OrderStatus
		role      Role
		allowed   bool
	}{
		{"admin_accepts_placed", models.StatusPlaced, models.StatusAccepted, RoleAdmin, true},
		{"admin_rejects_placed", models.StatusPlaced, models.StatusRejected, RoleAdmin, true},
		{"admin_starts_preparing", models.StatusAccepted, models.StatusPreparing, RoleAdmin, true},
		{"admin_marks_ready", models.StatusPreparing, models.StatusReady, RoleAdmin, true},
		{"admin_cannot_skip_to_ready", models.StatusPlaced, models.StatusReady, RoleAdmin, false},
		{"admin_cannot_deliver", models.StatusOutForDelivery, models.StatusDelivered, RoleAdmin, false},
		{"admin_cannot_go_backward", models.StatusReady, models.StatusPreparing, RoleAdmin, false},
		{"delivery_accepts_ready", models.StatusReady, models.StatusOutForDelivery, RoleDelivery, true},
		{"delivery_completes", models.StatusOutForDelivery, models.StatusDelivered, RoleDelivery, true},
		{"delivery_cannot_accept_placed", models.StatusPlaced, models.StatusOutForDelivery, RoleDelivery, false},
		{"delivery_cannot_skip_to_delivered", models.StatusReady, models.StatusDelivered, RoleDelivery, false},
		{"customer_cancels_placed", models.StatusPlaced, models.StatusCancelled, RoleCustomer, true},
		{"customer_cannot_cancel_accepted", models.StatusAccepted, models.StatusCancelled, RoleCustomer, false},
		{"customer_cannot_accept", models.StatusPlaced, models.StatusAccepted, RoleCustomer, false},
		{"pending_payment_is_frozen", models.StatusPendingPayment, models.StatusPlaced, RoleAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.current, tt.requested, tt.role); got != tt.allowed {
				t.Errorf("CanTransition(%s, %s, %s) = %v, expected %v",
					tt.current, tt.requested, tt.role, got, tt.allowed)
			}
		})
	}
}

func TestCanTransitionTerminalStatesRejectEverything(t *testing.T) {
	terminals := []models.OrderStatus{
		models.StatusDelivered,
		models.StatusRejected,
		models.StatusCancelled,
	}

	for _, current := range terminals {
		for _, requested := range allStatuses {
			for _, role := range allRoles {
				if CanTransition(current, requested, role) {
					t.Errorf("CanTransition(%s, %s, %s) = true, terminal states must reject all transitions",
						current, requested, role)
				}
			}
		}
	}
}

func TestCanTransitionIsTotal(t *testing.T) {
	// Every combination must return without panicking, including garbage
	// statuses and roles.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("CanTransition panicked: %v", r)
		}
	}()

	for _, current := range allStatuses {
		for _, requested := range allStatuses {
			for _, role := range allRoles {
				CanTransition(current, requested, role)
			}
		}
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  models.OrderStatus
		role     Role
		expected models.OrderStatus
		ok       bool
	}{
		{"delivery_from_ready", models.StatusReady, RoleDelivery, models.StatusOutForDelivery, true},
		{"delivery_from_out_for_delivery", models.StatusOutForDelivery, RoleDelivery, models.StatusDelivered, true},
		{"delivery_from_delivered", models.StatusDelivered, RoleDelivery, "", false},
		{"delivery_from_placed", models.StatusPlaced, RoleDelivery, "", false},
		{"admin_from_placed", models.StatusPlaced, RoleAdmin, models.StatusAccepted, true},
		{"admin_from_accepted", models.StatusAccepted, RoleAdmin, models.StatusPreparing, true},
		{"admin_from_preparing", models.StatusPreparing, RoleAdmin, models.StatusReady, true},
		{"admin_from_ready", models.StatusReady, RoleAdmin, "", false},
		{"customer_has_no_forward_step", models.StatusPlaced, RoleCustomer, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextStatus(tt.current, tt.role)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("NextStatus(%s, %s) = (%s, %v), expected (%s, %v)",
					tt.current, tt.role, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestRequiresCashConfirmation(t *testing.T) {
	if !RequiresCashConfirmation(models.PaymentCOD, models.StatusDelivered) {
		t.Error("COD delivery should prompt for cash confirmation")
	}
	if RequiresCashConfirmation(models.PaymentOnline, models.StatusDelivered) {
		t.Error("online payment should not prompt for cash confirmation")
	}
	if RequiresCashConfirmation(models.PaymentCOD, models.StatusOutForDelivery) {
		t.Error("only the delivered transition prompts for cash confirmation")
	}
}

func TestRoleString(t *testing.T) {
	tests := []struct {
		role     Role
		expected string
	}{
		{RoleCustomer, "customer"},
		{RoleAdmin, "admin"},
		{RoleDelivery, "delivery"},
		{Role(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.role.String(); got != tt.expected {
			t.Errorf("Role(%d).String() = %s, expected %s", tt.role, got, tt.expected)
		}
	}
}
