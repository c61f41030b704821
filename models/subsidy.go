package models

import (
	"time"

	"github.com/google/uuid"
)

// Subsidy is the canonical, persisted shape of one government benefit
// listing. ServiceID is the upstream catalog's stable key and is unique
// across the table; EndDate is derived from the free-text Period and a
// nil value means the listing is a standing offer with no deadline.
type Subsidy struct {
	// Primary identification
	ID        uuid.UUID `json:"id"`
	ServiceID string    `json:"service_id"`

	// Listing content (from the upstream service catalog)
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Target      string  `json:"target"`
	Region      *string `json:"region"`
	Amount      string  `json:"amount"`
	Period      string  `json:"period"`

	// Derived deadline; nil = standing offer
	EndDate *time.Time `json:"end_date"`

	// Long-form detail fields
	FullDescription   string `json:"full_description"`
	Requirements      string `json:"requirements"`
	ApplicationMethod string `json:"application_method"`
	RequiredDocs      string `json:"required_docs"`
	ContactInfo       string `json:"contact_info"`
	HostOrg           string `json:"host_org"`

	// Navigation: primary application URL plus derived fallbacks
	ServiceURL *string `json:"service_url"`
	Gov24URL   *string `json:"gov24_url"`
	SearchURL  *string `json:"search_url"`

	// Read-path counter and audit fields
	Views     int       `json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
