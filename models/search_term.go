package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchTerm accumulates how often a query string has been searched,
// powering the trending-searches endpoint.
type SearchTerm struct {
	ID        uuid.UUID `json:"id"`
	Term      string    `json:"term"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
