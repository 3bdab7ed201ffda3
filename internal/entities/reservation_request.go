package entities

import (
	"time"

	"carwash/internal/carwash"
)

type ReservationRequest struct {
	UserID             string                `json:"user_id,omitempty"` // admins may book for someone else
	VehiclePlateNumber string                `json:"vehicle_plate_number"`
	Services           []carwash.ServiceType `json:"services"`
	StartDate          time.Time             `json:"start_date"`
	Private            bool                  `json:"private"`
	Mpv                bool                  `json:"mpv"`
	Comment            string                `json:"comment,omitempty"`
}

type DropoffRequest struct {
	Location string `json:"location"`
}

type TransitionRequest struct {
	CarwashComment string `json:"carwash_comment,omitempty"`
}

type ReservationResponse struct {
	carwash.Reservation
	Price       int    `json:"price"`
	PaymentURL  string `json:"payment_url,omitempty"`
	Cancellable bool   `json:"cancellable"`
}

func NewReservationResponse(r carwash.Reservation) ReservationResponse {
	return ReservationResponse{
		Reservation: r,
		Price:       carwash.Price(r.Services, r.Mpv),
		Cancellable: r.State.Cancellable(),
	}
}

type ReservationsList struct {
	Total        int                   `json:"total"`
	Reservations []ReservationResponse `json:"reservations"`
}

func NewReservationsList(rs []carwash.Reservation) ReservationsList {
	out := ReservationsList{Total: len(rs), Reservations: make([]ReservationResponse, len(rs))}
	for i, r := range rs {
		out.Reservations[i] = NewReservationResponse(r)
	}
	return out
}
