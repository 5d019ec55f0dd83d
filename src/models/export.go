// src/models/export.go
package models

import (
	"strings"
	"time"
)

// Export job statuses as reported by the Trading 212 exports endpoint.
// The remote side also reports transient states like "Queued"; anything
// that is not finished or failed is treated as still processing.
const (
	ExportStatusProcessing = "Processing"
	ExportStatusFinished   = "Finished"
	ExportStatusFailed     = "Failed"
)

// FullYearEndMinSecond is the earliest tolerated second value in the
// end timestamp of a full-year export. Exports created by this tool end at
// 23:59:59, but older exports were created with a few seconds of slack, so
// 23:59:55 through 23:59:59 all count as a full year end.
const FullYearEndMinSecond = 55

// ExportDataIncluded mirrors the dataIncluded block of an export request.
type ExportDataIncluded struct {
	IncludeDividends    bool `json:"includeDividends"`
	IncludeInterest     bool `json:"includeInterest"`
	IncludeOrders       bool `json:"includeOrders"`
	IncludeTransactions bool `json:"includeTransactions"`
}

// ExportRequest is the payload for creating a new export job. It always
// spans exactly one calendar year (or year start to "now" for the current
// year) and is not retained after submission.
type ExportRequest struct {
	DataIncluded ExportDataIncluded `json:"dataIncluded"`
	TimeFrom     time.Time          `json:"timeFrom"`
	TimeTo       time.Time          `json:"timeTo"`
}

// NewYearExportRequest builds an export request covering the given calendar
// year in UTC, with all data categories enabled. For the current year the
// range ends at now instead of Dec 31.
func NewYearExportRequest(year int, now time.Time) ExportRequest {
	now = now.UTC()
	timeFrom := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	timeTo := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	if year == now.Year() {
		timeTo = now
	}
	return ExportRequest{
		DataIncluded: ExportDataIncluded{
			IncludeDividends:    true,
			IncludeInterest:     true,
			IncludeOrders:       true,
			IncludeTransactions: true,
		},
		TimeFrom: timeFrom,
		TimeTo:   timeTo,
	}
}

// ExportDescriptor is the client-side mirror of a server-created export job.
type ExportDescriptor struct {
	ReportID     int64     `json:"reportId"`
	TimeFrom     time.Time `json:"timeFrom"`
	TimeTo       time.Time `json:"timeTo"`
	Status       string    `json:"status"`
	DownloadLink string    `json:"downloadLink,omitempty"`
}

// IsFinished reports whether the export completed successfully.
func (d ExportDescriptor) IsFinished() bool {
	return strings.EqualFold(d.Status, ExportStatusFinished)
}

// IsFailed reports whether the export failed server-side.
func (d ExportDescriptor) IsFailed() bool {
	return strings.EqualFold(d.Status, ExportStatusFailed)
}

// IsFullCalendarYearRange reports whether the [timeFrom, timeTo] range of an
// export spans exactly one calendar year in UTC, and which year that is.
// timeFrom must be exactly Jan 1 00:00:00 UTC. For past years timeTo must be
// Dec 31 23:59:ss with ss >= FullYearEndMinSecond; for the current year any
// end timestamp within the year qualifies, since those exports end at the
// moment they were requested.
func IsFullCalendarYearRange(timeFrom, timeTo, now time.Time) (int, bool) {
	from := timeFrom.UTC()
	to := timeTo.UTC()
	year := from.Year()

	startOfYear := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !from.Equal(startOfYear) {
		return 0, false
	}

	if year == now.UTC().Year() {
		if to.Year() == year && !to.Before(from) {
			return year, true
		}
		return 0, false
	}

	if to.Year() != year || to.Month() != time.December || to.Day() != 31 {
		return 0, false
	}
	if to.Hour() != 23 || to.Minute() != 59 || to.Second() < FullYearEndMinSecond {
		return 0, false
	}
	return year, true
}

// AccountCash is the account snapshot returned by the cash endpoint.
// Only used as an authentication probe.
type AccountCash struct {
	Free     float64 `json:"free"`
	Total    float64 `json:"total"`
	Invested float64 `json:"invested"`
	Result   float64 `json:"result"`
	PieCash  float64 `json:"pieCash"`
	Blocked  float64 `json:"blocked"`
}
