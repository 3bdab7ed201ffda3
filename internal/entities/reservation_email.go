package entities

type ReminderEmailData struct {
	UserName           string
	VehiclePlate       string
	Services           string
	StartTimeFormatted string
	WashWindow         string
	CurrentYear        int
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type CreateUserRequest struct {
	Email               string `json:"email"`
	Password            string `json:"password"`
	FullName            string `json:"full_name"`
	Phone               string `json:"phone,omitempty"`
	Company             string `json:"company,omitempty"`
	IsCarwashAdmin      bool   `json:"is_carwash_admin"`
	NotificationChannel string `json:"notification_channel,omitempty"`
}
