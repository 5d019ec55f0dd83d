package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xdubnickas/trading212-tracker/src/models"
)

// fakeFetcher serves canned CSV text per download link.
type fakeFetcher struct {
	csvs map[string]string
	errs map[string]error
}

func (f *fakeFetcher) FetchCSV(ctx context.Context, downloadLink string) (string, error) {
	if err, ok := f.errs[downloadLink]; ok {
		return "", err
	}
	text, ok := f.csvs[downloadLink]
	if !ok {
		return "", errors.New("unknown link")
	}
	return text, nil
}

func finishedExport(reportID int64, year int, link string) models.ExportDescriptor {
	d := fullYearExport(reportID, year)
	d.DownloadLink = link
	return d
}

func TestIngestMergesAndSortsReports(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{csvs: map[string]string{
		"link-2022": "Action,Time,Total\n" +
			"Deposit,2022-03-01 10:00:00,500\n" +
			"Market buy,2022-07-15 09:30:00,100\n",
		"link-2021": "Action,Time,Total\n" +
			"Deposit,2021-05-01 10:00:00,200\n",
	}}
	service := NewIngestService(fetcher, 2)

	descriptors := []models.ExportDescriptor{
		finishedExport(1, 2022, "link-2022"),
		finishedExport(2, 2021, "link-2021"),
	}
	result, err := service.Ingest(context.Background(), descriptors)
	require.NoError(t, err)

	// Rows merge across reports and sort chronologically regardless of
	// descriptor order.
	require.Len(t, result.Transactions, 3)
	require.Equal(t, "2021-05-01 10:00:00", result.Transactions[0].Time)
	require.Equal(t, "2022-03-01 10:00:00", result.Transactions[1].Time)
	require.Equal(t, "2022-07-15 09:30:00", result.Transactions[2].Time)

	// Provenance follows each row through the merge.
	require.Equal(t, int64(2), result.Transactions[0].ReportID)
	require.Equal(t, int64(1), result.Transactions[1].ReportID)

	require.Equal(t, 3, result.Summary.TotalTransactions)
	require.Equal(t, 2, result.Summary.TotalReports)
	require.Equal(t, 0, result.Summary.SkippedReports)
	require.Equal(t, "2021-05-01 10:00:00", result.Summary.DateRange.Earliest)
	require.Equal(t, "2022-07-15 09:30:00", result.Summary.DateRange.Latest)
	require.Equal(t, []string{"Deposit", "Market buy"}, result.Summary.DataTypes)
}

func TestIngestSkipsUnusableDescriptors(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{csvs: map[string]string{
		"link-good": "Action,Time,Total\nDeposit,2022-01-01 10:00:00,50\n",
	}}
	service := NewIngestService(fetcher, 1)

	noLink := fullYearExport(1, 2020)
	processing := finishedExport(2, 2021, "link-ignored")
	processing.Status = models.ExportStatusProcessing

	result, err := service.Ingest(context.Background(), []models.ExportDescriptor{
		noLink,
		processing,
		finishedExport(3, 2022, "link-good"),
	})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	require.Equal(t, 1, result.Summary.TotalReports)
	require.Equal(t, 0, result.Summary.SkippedReports, "unusable descriptors are filtered, not failed")
}

func TestIngestOmitsFailedReports(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{
		csvs: map[string]string{
			"link-ok": "Action,Time,Total\nDeposit,2022-01-01 10:00:00,50\n",
		},
		errs: map[string]error{
			"link-broken": &ProxyFetchError{StatusCode: 403, StatusText: "403 Forbidden"},
		},
	}
	service := NewIngestService(fetcher, 2)

	result, err := service.Ingest(context.Background(), []models.ExportDescriptor{
		finishedExport(1, 2021, "link-broken"),
		finishedExport(2, 2022, "link-ok"),
	})
	require.NoError(t, err)

	// The broken report is dropped, the rest of the ingestion survives.
	require.Len(t, result.Transactions, 1)
	require.Equal(t, 1, result.Summary.TotalReports)
	require.Equal(t, 1, result.Summary.SkippedReports)
}

func TestIngestKeepsUnparsableTimesInPlace(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{csvs: map[string]string{
		"link": "Action,Time,Total\n" +
			"Deposit,2022-02-01 10:00:00,1\n" +
			"Adjustment,not-a-time,2\n" +
			"Deposit,2022-01-01 10:00:00,3\n",
	}}
	service := NewIngestService(fetcher, 1)

	result, err := service.Ingest(context.Background(), []models.ExportDescriptor{
		finishedExport(1, 2022, "link"),
	})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)

	// The stable sort treats the unparsable row as equal to its neighbors,
	// so it stays between them while the dated rows order around it.
	times := []string{result.Transactions[0].Time, result.Transactions[1].Time, result.Transactions[2].Time}
	require.Contains(t, times, "not-a-time")
	require.Equal(t, "2022-02-01 10:00:00", result.Summary.DateRange.Latest)
	require.Equal(t, "2022-01-01 10:00:00", result.Summary.DateRange.Earliest)
}

func TestIngestCountsSkippedRows(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{csvs: map[string]string{
		"link": "Action,Time,Ticker,Total,Currency (Total)\n" +
			"Deposit,2022-01-01 10:00:00,,50,EUR\n" +
			"bad,row\n", // far off the header arity
	}}
	service := NewIngestService(fetcher, 1)

	result, err := service.Ingest(context.Background(), []models.ExportDescriptor{
		finishedExport(1, 2022, "link"),
	})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	require.Equal(t, 1, result.Summary.SkippedRows)
}

func TestIngestEmptyDescriptorList(t *testing.T) {
	t.Parallel()
	service := NewIngestService(&fakeFetcher{}, 4)
	result, err := service.Ingest(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, result.Transactions)
	require.Equal(t, 0, result.Summary.TotalReports)
	require.Equal(t, models.DateRange{}, result.Summary.DateRange)
}

func TestIngestCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{errs: map[string]error{"link": ctx.Err()}}
	service := NewIngestService(fetcher, 1)
	_, err := service.Ingest(ctx, []models.ExportDescriptor{finishedExport(1, 2022, "link")})
	require.ErrorIs(t, err, context.Canceled)
}
