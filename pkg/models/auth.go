package models

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

type OtpRequest struct {
	Mobile string `json:"mobile"`
}

type OtpVerifyRequest struct {
	Mobile string `json:"mobile"`
	Otp    string `json:"otp"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type TokenRefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// DeliveryBoyStatus mirrors the availability flags on the delivery profile.
// isAvailable without isOnDuty is accepted by the client; the server decides
// whether the combination is meaningful.
type DeliveryBoyStatus struct {
	IsAvailable bool `json:"isAvailable"`
	IsOnDuty    bool `json:"isOnDuty"`
}

type DeliveryBoy struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	IsAvailable bool   `json:"isAvailable"`
	IsOnDuty    bool   `json:"isOnDuty"`
}
