package auth

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

// Repository wraps the OTP login endpoints. Verification returns the token
// pair and profile; callers hand the response to Store.SetSession.
type Repository struct {
	client *api.Client
	logger *logrus.Logger
}

func NewRepository(client *api.Client, logger *logrus.Logger) *Repository {
	return &Repository{client: client, logger: logger}
}

// SendOtp requests a one-time password for the customer and delivery apps.
func (r *Repository) SendOtp(ctx context.Context, mobile string) error {
	r.logger.WithField("mobile", mobile).Info("Requesting OTP")
	return r.client.Post(ctx, "/auth/otp/send", models.OtpRequest{Mobile: mobile}, nil)
}

// SendAdminOtp requests a one-time password for the admin app.
func (r *Repository) SendAdminOtp(ctx context.Context, mobile string) error {
	r.logger.WithField("mobile", mobile).Info("Requesting admin OTP")
	return r.client.Post(ctx, "/auth/admin/otp/send", models.OtpRequest{Mobile: mobile}, nil)
}

func (r *Repository) VerifyCustomerOtp(ctx context.Context, mobile, otp string) (*models.AuthResponse, error) {
	return r.verify(ctx, "/auth/otp/verify/customer", mobile, otp)
}

func (r *Repository) VerifyDeliveryOtp(ctx context.Context, mobile, otp string) (*models.AuthResponse, error) {
	return r.verify(ctx, "/auth/otp/verify/delivery", mobile, otp)
}

func (r *Repository) VerifyAdminOtp(ctx context.Context, mobile, otp string) (*models.AuthResponse, error) {
	return r.verify(ctx, "/auth/admin/otp/verify", mobile, otp)
}

func (r *Repository) verify(ctx context.Context, path, mobile, otp string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := r.client.Post(ctx, path, models.OtpVerifyRequest{Mobile: mobile, Otp: otp}, &resp)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": resp.User.ID,
		"role":    resp.User.Role,
	}).Info("OTP verified")

	return &resp, nil
}
