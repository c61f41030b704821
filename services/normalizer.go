package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyunwoolee/subsidy-backend/models"
)

// Upstream catalog field names (the gov24 API serves Korean keys).
const (
	fieldServiceID         = "서비스ID"
	fieldServiceName       = "서비스명"
	fieldDeadlineText      = "신청기한내용"
	fieldDeadline          = "신청기한"
	fieldPurposeSummary    = "서비스목적요약"
	fieldSupportContent    = "지원내용"
	fieldHostOrganization  = "소관기관명"
	fieldSupportTarget     = "지원대상"
	fieldRegion            = "지역구분"
	fieldSelectionCriteria = "선정기준내용"
	fieldApplicationMethod = "신청방법내용"
	fieldRequiredDocuments = "구비서류내용"
	fieldContactPhone      = "문의처전화번호"
	fieldOnlineApplyURL    = "온라인신청사이트URL"
)

// Normalization fallbacks for records with sparse upstream fields.
const (
	defaultTitle    = "제목 없음"
	defaultCategory = "기타"
	defaultTarget   = "전국민"
	defaultRegion   = "전국"
	defaultAmount   = "금액 미정"
	defaultPeriod   = "상시신청"
)

// Deadline parser bounds: years outside this window are treated as
// parser garbage and dropped.
const (
	minDeadlineYear = 2020
	maxDeadlineYear = 2030
)

// standingTokens mark a period as a standing offer with no deadline.
// Any of them overrides date-like substrings in the same text.
var standingTokens = []string{"상시", "연중", "수시"}

// Full-date form: 2026.03.15 / 2026-03-15 / 2026년 3월 15일.
var fullDatePattern = regexp.MustCompile(`(\d{4})[.\-년]\s*(\d{1,2})[.\-월]\s*(\d{1,2})일?`)

// Month-only form: 2026년 3월. Day defaults to 28 as a safe
// end-of-month stand-in.
var yearMonthPattern = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월`)

// ParseEndDate derives a concrete application deadline from free-text
// period descriptions. It returns nil for standing offers and for text
// with no recognizable date. When the text lists several dates (multi-
// phase programs), the latest one wins, pinned to 23:59:59 local time.
func ParseEndDate(periodText string) *time.Time {
	if periodText == "" {
		return nil
	}

	for _, token := range standingTokens {
		if strings.Contains(periodText, token) {
			return nil
		}
	}

	var candidates []time.Time

	for _, match := range fullDatePattern.FindAllStringSubmatch(periodText, -1) {
		if deadline, ok := buildDeadline(match[1], match[2], match[3]); ok {
			candidates = append(candidates, deadline)
		}
	}

	for _, match := range yearMonthPattern.FindAllStringSubmatch(periodText, -1) {
		if deadline, ok := buildDeadline(match[1], match[2], "28"); ok {
			candidates = append(candidates, deadline)
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	latest := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.After(latest) {
			latest = candidate
		}
	}

	return &latest
}

func buildDeadline(yearText, monthText, dayText string) (time.Time, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil || year < minDeadlineYear || year > maxDeadlineYear {
		return time.Time{}, false
	}

	month, err := strconv.Atoi(monthText)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, 23, 59, 59, 0, time.Local), true
}

// TransformServiceRecord normalizes one raw upstream record into the
// canonical Subsidy shape. It returns nil when the record has no
// service id, which callers treat as "skip", not an error.
func TransformServiceRecord(record models.RawServiceRecord) *models.Subsidy {
	serviceID := record.String(fieldServiceID)
	if serviceID == "" {
		return nil
	}

	title := record.StringOr(fieldServiceName, defaultTitle)

	description := record.String(fieldPurposeSummary)
	if description == "" {
		description = record.String(fieldSupportContent)
	}

	period := record.String(fieldDeadlineText)
	if period == "" {
		period = record.StringOr(fieldDeadline, defaultPeriod)
	}

	region := record.StringOr(fieldRegion, defaultRegion)

	subsidy := &models.Subsidy{
		ServiceID:         serviceID,
		Title:             title,
		Description:       description,
		Category:          record.StringOr(fieldHostOrganization, defaultCategory),
		Target:            record.StringOr(fieldSupportTarget, defaultTarget),
		Region:            &region,
		Amount:            record.StringOr(fieldSupportContent, defaultAmount),
		Period:            period,
		EndDate:           ParseEndDate(period),
		FullDescription:   record.String(fieldSupportContent),
		Requirements:      record.String(fieldSelectionCriteria),
		ApplicationMethod: record.String(fieldApplicationMethod),
		RequiredDocs:      record.String(fieldRequiredDocuments),
		ContactInfo:       record.String(fieldContactPhone),
		HostOrg:           record.String(fieldHostOrganization),
	}

	if applyURL := record.String(fieldOnlineApplyURL); applyURL != "" {
		subsidy.ServiceURL = &applyURL
	}

	gov24URL := BuildGov24URL(serviceID)
	subsidy.Gov24URL = &gov24URL

	searchURL := BuildSearchURL(title)
	subsidy.SearchURL = &searchURL

	return subsidy
}

// BuildGov24URL returns the government portal detail page for a service
// id. Always derivable, so it serves as fallback navigation when the
// primary application link is broken.
func BuildGov24URL(serviceID string) string {
	return fmt.Sprintf("https://www.gov.kr/portal/rcvfvrSvc/dtlEx/%s", serviceID)
}

// BuildSearchURL returns a web-search URL for the subsidy title as a
// last-resort discovery link.
func BuildSearchURL(title string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(title+" 신청")
}

// IsExpired reports whether a deadline has passed relative to today,
// where today is midnight of the current day. A subsidy expiring today
// is still active (strict less-than), and standing offers (nil
// deadline) never expire.
func IsExpired(endDate *time.Time, today time.Time) bool {
	if endDate == nil {
		return false
	}
	return endDate.Before(today)
}

// TodayMidnight returns midnight of the current day in local time, the
// reference point for all expiry decisions within one run.
func TodayMidnight() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}
