// Package lifecycle implements the client-side order status state machine.
// It is a guard only: it keeps the apps from firing requests the backend is
// guaranteed to reject. The backend remains the sole authority and validates
// every transition again server-side.
package lifecycle

import "github.com/shivdhaba/delivery-core/pkg/models"

// Role identifies which app is requesting a transition.
type Role int

const (
	RoleCustomer Role = iota
	RoleAdmin
	RoleDelivery
)

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleAdmin:
		return "admin"
	case RoleDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the given role may request moving an order
// from current to requested. It is pure and total: any unknown status or role
// yields false, never a panic. Terminal statuses admit no transitions.
func CanTransition(current, requested models.OrderStatus, role Role) bool {
	if current.Terminal() {
		return false
	}

	switch role {
	case RoleAdmin:
		switch current {
		case models.StatusPlaced:
			return requested == models.StatusAccepted || requested == models.StatusRejected
		case models.StatusAccepted:
			return requested == models.StatusPreparing
		case models.StatusPreparing:
			return requested == models.StatusReady
		}
	case RoleDelivery:
		switch current {
		case models.StatusReady:
			return requested == models.StatusOutForDelivery
		case models.StatusOutForDelivery:
			return requested == models.StatusDelivered
		}
	case RoleCustomer:
		// A customer may withdraw an order only before the restaurant
		// accepts it.
		return current == models.StatusPlaced && requested == models.StatusCancelled
	}

	return false
}

// NextStatus returns the single forward step the role would normally take
// from current, or false when the role has no move. The delivery app derives
// its action button from this.
func NextStatus(current models.OrderStatus, role Role) (models.OrderStatus, bool) {
	switch role {
	case RoleAdmin:
		switch current {
		case models.StatusPlaced:
			return models.StatusAccepted, true
		case models.StatusAccepted:
			return models.StatusPreparing, true
		case models.StatusPreparing:
			return models.StatusReady, true
		}
	case RoleDelivery:
		switch current {
		case models.StatusReady:
			return models.StatusOutForDelivery, true
		case models.StatusOutForDelivery:
			return models.StatusDelivered, true
		}
	}
	return "", false
}

// RequiresCashConfirmation reports whether the UI should ask for a cash
// collection confirmation before requesting the transition. The confirmation
// is advisory local state: skipping it does not block the server call.
func RequiresCashConfirmation(method models.PaymentMethod, requested models.OrderStatus) bool {
	return method == models.PaymentCOD && requested == models.StatusDelivered
}
