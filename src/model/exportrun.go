// src/model/exportrun.go
package model

import (
	"database/sql"
	"fmt"
	"time"
)

// ExportRun is one persisted orchestration run. Persistence is a
// convenience for the UI's run history; coverage is always recomputed from
// the remote exports listing, never from these rows.
type ExportRun struct {
	ID             int64           `json:"id"`
	CredentialHash string          `json:"-"`
	StartYear      int             `json:"startYear"`
	FinalDelayMs   int64           `json:"finalDelayMs"`
	CreatedAt      time.Time       `json:"createdAt"`
	Years          []ExportRunYear `json:"years"`
}

// ExportRunYear is the persisted per-year outcome of a run.
type ExportRunYear struct {
	Year     int        `json:"year"`
	Status   string     `json:"status"`
	ReportID int64      `json:"reportId,omitempty"`
	TimeFrom *time.Time `json:"timeFrom,omitempty"`
	TimeTo   *time.Time `json:"timeTo,omitempty"`
	Outdated bool       `json:"outdated,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// InsertExportRun stores a run and its per-year outcomes in one transaction.
func InsertExportRun(db *sql.DB, run ExportRun) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning export run insert: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO export_runs (credential_hash, start_year, final_delay_ms) VALUES (?, ?, ?)`,
		run.CredentialHash, run.StartYear, run.FinalDelayMs,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting export run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading export run id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO export_run_years
		(run_id, year, status, report_id, time_from, time_to, outdated, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing year insert: %w", err)
	}
	defer stmt.Close()
	for _, year := range run.Years {
		if _, err := stmt.Exec(
			runID, year.Year, year.Status, year.ReportID,
			year.TimeFrom, year.TimeTo, year.Outdated, year.Error,
		); err != nil {
			return 0, fmt.Errorf("inserting year %d: %w", year.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing export run: %w", err)
	}
	return runID, nil
}

// ListExportRuns returns the most recent runs of one credential, newest
// first, with their per-year outcomes.
func ListExportRuns(db *sql.DB, credentialHash string, limit int) ([]ExportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, start_year, final_delay_ms, created_at
		 FROM export_runs WHERE credential_hash = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		credentialHash, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying export runs: %w", err)
	}
	defer rows.Close()

	var runs []ExportRun
	for rows.Next() {
		run := ExportRun{CredentialHash: credentialHash}
		if err := rows.Scan(&run.ID, &run.StartYear, &run.FinalDelayMs, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning export run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating export runs: %w", err)
	}

	for i := range runs {
		years, err := listRunYears(db, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Years = years
	}
	return runs, nil
}

func listRunYears(db *sql.DB, runID int64) ([]ExportRunYear, error) {
	rows, err := db.Query(
		`SELECT year, status, report_id, time_from, time_to, outdated, error
		 FROM export_run_years WHERE run_id = ? ORDER BY year ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run years: %w", err)
	}
	defer rows.Close()

	var years []ExportRunYear
	for rows.Next() {
		var year ExportRunYear
		var reportID sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&year.Year, &year.Status, &reportID, &year.TimeFrom, &year.TimeTo, &year.Outdated, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning run year: %w", err)
		}
		year.ReportID = reportID.Int64
		year.Error = errMsg.String
		years = append(years, year)
	}
	return years, rows.Err()
}
