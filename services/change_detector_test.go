package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hyunwoolee/subsidy-backend/models"
)

func sampleSubsidy() *models.Subsidy {
	region := "서울"
	serviceURL := "https://apply.example.kr"
	endDate := time.Date(2026, time.May, 31, 23, 59, 59, 0, time.Local)

	return &models.Subsidy{
		ServiceID:   "SVC042",
		Title:       "소상공인 경영안정 자금",
		Description: "경영 안정 지원",
		Category:    "중소벤처기업부",
		Target:      "소상공인",
		Region:      &region,
		Amount:      "최대 2,000만원",
		Period:      "2026.05.31 까지",
		EndDate:     &endDate,
		ServiceURL:  &serviceURL,
		ContactInfo: "02-1234-5678",
	}
}

func TestHasChangedNilExisting(t *testing.T) {
	assert.True(t, HasChanged(nil, sampleSubsidy()), "first sighting is always a change")
}

func TestHasChangedIdentical(t *testing.T) {
	assert.False(t, HasChanged(sampleSubsidy(), sampleSubsidy()))
}

func TestHasChangedComparedFields(t *testing.T) {
	cases := map[string]func(*models.Subsidy){
		"title":       func(s *models.Subsidy) { s.Title = "변경된 제목" },
		"period":      func(s *models.Subsidy) { s.Period = "상시" },
		"category":    func(s *models.Subsidy) { s.Category = "고용노동부" },
		"target":      func(s *models.Subsidy) { s.Target = "청년" },
		"amount":      func(s *models.Subsidy) { s.Amount = "최대 500만원" },
		"description": func(s *models.Subsidy) { s.Description = "다른 설명" },
		"region":      func(s *models.Subsidy) { s.Region = nil },
		"service_url": func(s *models.Subsidy) { s.ServiceURL = nil },
		"end_date": func(s *models.Subsidy) {
			later := s.EndDate.AddDate(0, 1, 0)
			s.EndDate = &later
		},
	}

	for name, mutate := range cases {
		incoming := sampleSubsidy()
		mutate(incoming)
		assert.True(t, HasChanged(sampleSubsidy(), incoming), "changing %s must be detected", name)
	}
}

func TestHasChangedIgnoresUncomparedFields(t *testing.T) {
	incoming := sampleSubsidy()
	incoming.ContactInfo = "031-000-0000"
	incoming.Requirements = "새 선정 기준"
	incoming.ApplicationMethod = "방문 신청"
	incoming.RequiredDocs = "주민등록등본"
	incoming.HostOrg = "다른 기관"
	incoming.Views = 999

	assert.False(t, HasChanged(sampleSubsidy(), incoming),
		"long-form detail fields are outside the compared set")
}

func TestHasChangedEndDateNilHandling(t *testing.T) {
	existing := sampleSubsidy()
	existing.EndDate = nil
	incoming := sampleSubsidy()
	incoming.EndDate = nil
	assert.False(t, HasChanged(existing, incoming), "two standing offers are equal")

	incoming = sampleSubsidy()
	assert.True(t, HasChanged(existing, incoming), "standing to dated is a change")
}

func TestHasChangedEndDateInstantEquality(t *testing.T) {
	existing := sampleSubsidy()
	incoming := sampleSubsidy()

	// Same instant in a different location still counts as unchanged.
	utc := existing.EndDate.UTC()
	incoming.EndDate = &utc

	assert.False(t, HasChanged(existing, incoming))
}
