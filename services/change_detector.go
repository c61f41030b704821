package services

import (
	"time"

	"github.com/hyunwoolee/subsidy-backend/models"
)

// HasChanged reports whether an incoming subsidy differs from the
// stored one on the compared field set: title, period, region,
// category, target, amount, description, service URL, and end date.
// Long-form detail fields (requirements, application method, contact
// info and so on) are deliberately outside the set; they churn
// upstream without changing what the listing means.
//
// A nil existing record always counts as changed; the caller routes
// those to insert.
func HasChanged(existing, incoming *models.Subsidy) bool {
	if existing == nil {
		return true
	}

	if existing.Title != incoming.Title ||
		existing.Period != incoming.Period ||
		existing.Category != incoming.Category ||
		existing.Target != incoming.Target ||
		existing.Amount != incoming.Amount ||
		existing.Description != incoming.Description {
		return true
	}

	if !stringPtrEqual(existing.Region, incoming.Region) {
		return true
	}

	if !stringPtrEqual(existing.ServiceURL, incoming.ServiceURL) {
		return true
	}

	return !timePtrEqual(existing.EndDate, incoming.EndDate)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// timePtrEqual compares deadlines by instant; two nil deadlines are
// equal (both standing offers).
func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
