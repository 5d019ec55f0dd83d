// src/services/ingest_service.go
package services

import (
	"context"
	"sort"
	"sync"

	"github.com/xdubnickas/trading212-tracker/src/logger"
	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/parsers"
)

// IngestSummary describes the merged transaction list for display.
type IngestSummary struct {
	TotalTransactions int              `json:"totalTransactions"`
	TotalReports      int              `json:"totalReports"`
	SkippedReports    int              `json:"skippedReports"`
	SkippedRows       int              `json:"skippedRows"`
	DateRange         models.DateRange `json:"dateRange"`
	DataTypes         []string         `json:"dataTypes"`
}

// IngestResult is the unified transaction list plus its summary.
type IngestResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Summary      IngestSummary        `json:"summary"`
}

// IngestService downloads and parses finished exports into one merged,
// chronologically sorted transaction list.
type IngestService struct {
	fetcher       CSVFetcher
	maxConcurrent int
}

// NewIngestService creates the ingestion service. maxConcurrent bounds the
// parallel CSV downloads; values below 1 mean sequential.
func NewIngestService(fetcher CSVFetcher, maxConcurrent int) *IngestService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &IngestService{fetcher: fetcher, maxConcurrent: maxConcurrent}
}

// reportRows is the parse output of one descriptor, kept in input order so
// the merge is deterministic before sorting.
type reportRows struct {
	transactions []models.Transaction
	skippedRows  int
	failed       bool
}

// Ingest fetches and parses every finished descriptor with a download link.
// Downloads run in parallel; a failed report is logged and omitted rather
// than failing the whole ingestion. The merged list is stably sorted by the
// Time field ascending, rows with unparsable times keeping their relative
// order.
func (s *IngestService) Ingest(ctx context.Context, descriptors []models.ExportDescriptor) (*IngestResult, error) {
	var usable []models.ExportDescriptor
	for _, descriptor := range descriptors {
		if descriptor.IsFinished() && descriptor.DownloadLink != "" {
			usable = append(usable, descriptor)
		}
	}
	logger.L.Info("Ingestion starting", "reports", len(usable), "skippedDescriptors", len(descriptors)-len(usable))

	results := make([]reportRows, len(usable))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.maxConcurrent)
	for i, descriptor := range usable {
		wg.Add(1)
		go func(i int, descriptor models.ExportDescriptor) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			results[i] = s.ingestReport(ctx, descriptor)
		}(i, descriptor)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for _, report := range results {
		if report.failed {
			result.Summary.SkippedReports++
			continue
		}
		result.Summary.TotalReports++
		result.Summary.SkippedRows += report.skippedRows
		result.Transactions = append(result.Transactions, report.transactions...)
	}

	// Stable sort: rows with no parsable time compare equal to everything,
	// so they keep their position relative to their neighbors.
	sort.SliceStable(result.Transactions, func(i, j int) bool {
		ti, okI := result.Transactions[i].ParsedTime()
		tj, okJ := result.Transactions[j].ParsedTime()
		if !okI || !okJ {
			return false
		}
		return ti.Before(tj)
	})

	s.summarize(result)
	logger.L.Info("Ingestion finished",
		"transactions", result.Summary.TotalTransactions,
		"reports", result.Summary.TotalReports,
		"skippedReports", result.Summary.SkippedReports)
	return result, nil
}

// ingestReport fetches and parses one report, tagging every row with the
// report's provenance.
func (s *IngestService) ingestReport(ctx context.Context, descriptor models.ExportDescriptor) reportRows {
	text, err := s.fetcher.FetchCSV(ctx, descriptor.DownloadLink)
	if err != nil {
		logger.L.Warn("Skipping report, download failed", "reportId", descriptor.ReportID, "error", err)
		return reportRows{failed: true}
	}
	parsed, err := parsers.Parse(text)
	if err != nil {
		logger.L.Warn("Skipping report, unparsable CSV", "reportId", descriptor.ReportID, "error", err)
		return reportRows{failed: true}
	}

	report := reportRows{skippedRows: parsed.SkippedRows}
	for _, row := range parsed.Rows {
		tx := models.TransactionFromRow(row)
		tx.ReportID = descriptor.ReportID
		tx.ReportTimeFrom = descriptor.TimeFrom
		tx.ReportTimeTo = descriptor.TimeTo
		report.transactions = append(report.transactions, tx)
	}
	return report
}

// summarize fills the derived summary fields from the sorted list.
func (s *IngestService) summarize(result *IngestResult) {
	result.Summary.TotalTransactions = len(result.Transactions)

	seenTypes := make(map[string]bool)
	haveRange := false
	var earliest, latest models.Transaction
	var earliestAt, latestAt = int64(0), int64(0)
	for _, tx := range result.Transactions {
		if tx.Action != "" {
			seenTypes[tx.Action] = true
		}
		parsed, ok := tx.ParsedTime()
		if !ok {
			continue
		}
		at := parsed.Unix()
		if !haveRange || at < earliestAt {
			earliest, earliestAt = tx, at
		}
		if !haveRange || at > latestAt {
			latest, latestAt = tx, at
		}
		haveRange = true
	}
	if haveRange {
		result.Summary.DateRange = models.DateRange{Earliest: earliest.Time, Latest: latest.Time}
	}
	for action := range seenTypes {
		result.Summary.DataTypes = append(result.Summary.DataTypes, action)
	}
	sort.Strings(result.Summary.DataTypes)
}
