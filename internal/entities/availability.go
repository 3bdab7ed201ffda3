package entities

import (
	"time"

	"carwash/internal/carwash"
)

type FreeSlotsResponse struct {
	Unit     carwash.CapacityUnit     `json:"unit"`
	Required int                      `json:"required"`
	Slots    []carwash.SlotDescriptor `json:"slots"`
}

type SlotInfo struct {
	Label     string `json:"label"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Capacity  int    `json:"capacity"`
}

type SlotsResponse struct {
	Unit  carwash.CapacityUnit `json:"unit"`
	Slots []SlotInfo           `json:"slots"`
}

type BlockerRequest struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Comment   string     `json:"comment"`
}
