package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xdubnickas/trading212-tracker/src/models"
)

func TestTradingProcessor(t *testing.T) {
	t.Parallel()
	transactions := []models.Transaction{
		{Action: "Market buy", Time: "2023-01-10 10:00:00", Ticker: "AAPL", Name: "Apple", Shares: "2", Total: "300"},
		{Action: "Limit buy", Time: "2023-02-10 10:00:00", Ticker: "AAPL", Name: "Apple", Shares: "1", Total: "160"},
		{Action: "Market sell", Time: "2023-03-10 10:00:00", Ticker: "AAPL", Name: "Apple", Shares: "3", Total: "510", Result: "50"},
		{Action: "Market buy", Time: "2023-03-15 10:00:00", Ticker: "MSFT", Name: "Microsoft", Shares: "1", Total: "250"},
		{Action: "Stop sell", Time: "2023-04-01 10:00:00", Ticker: "MSFT", Name: "Microsoft", Shares: "0.5", Total: "110", Result: "-15"},
		{Action: "Dividend (Dividend)", Time: "2023-04-02 10:00:00", Ticker: "AAPL", Total: "5"},
	}

	summary := NewTradingProcessor().Process(transactions)

	require.Equal(t, 3, summary.BuyCount)
	require.Equal(t, 2, summary.SellCount)
	require.Equal(t, 710.0, summary.TotalInvested)
	require.Equal(t, 620.0, summary.TotalProceeds)
	require.Equal(t, 50.0, summary.RealizedGains)
	require.Equal(t, 15.0, summary.RealizedLosses)

	// AAPL is fully closed: 3 bought, 3 sold.
	aapl := summary.Positions["AAPL"]
	require.Equal(t, 3.0, aapl.SharesBought)
	require.Equal(t, 3.0, aapl.SharesSold)
	require.Equal(t, 0.0, aapl.NetShares)
	require.True(t, aapl.Closed)
	require.Equal(t, 460.0, aapl.Invested)
	require.Equal(t, 510.0, aapl.Proceeds)
	require.Equal(t, 50.0, aapl.RealizedPL)
	require.InDelta(t, 153.33, aapl.AvgBuyPrice, 0.01)

	// MSFT stays open with half a share.
	msft := summary.Positions["MSFT"]
	require.Equal(t, 0.5, msft.NetShares)
	require.False(t, msft.Closed)
	require.Equal(t, -15.0, msft.RealizedPL)

	// Month-of-year activity counts orders and sums absolute volume.
	require.Equal(t, models.MonthActivity{Buys: 1, Volume: 300}, summary.MonthlyActivity[time.January])
	march := summary.MonthlyActivity[time.March]
	require.Equal(t, 1, march.Buys)
	require.Equal(t, 1, march.Sells)
	require.Equal(t, 760.0, march.Volume)

	// Ranking by invested plus proceeds: AAPL 970 over MSFT 360.
	require.Equal(t, "AAPL", summary.TopCompanies[0].Ticker)
	require.Equal(t, 970.0, summary.TopCompanies[0].Volume)
	require.Equal(t, "MSFT", summary.TopCompanies[1].Ticker)
}

func TestTradingProcessorClosedWithFractionalDust(t *testing.T) {
	t.Parallel()
	summary := NewTradingProcessor().Process([]models.Transaction{
		{Action: "Market buy", Ticker: "VWCE", Shares: "0.1", Total: "10"},
		{Action: "Market buy", Ticker: "VWCE", Shares: "0.2", Total: "20"},
		{Action: "Market sell", Ticker: "VWCE", Shares: "0.30000000000000004", Total: "31", Result: "1"},
	})

	// Floating point dust below the epsilon still closes the position.
	require.True(t, summary.Positions["VWCE"].Closed)
}

func TestTradingProcessorNegativeAmountsNormalized(t *testing.T) {
	t.Parallel()
	summary := NewTradingProcessor().Process([]models.Transaction{
		{Action: "Market sell", Ticker: "AAPL", Shares: "-1", Total: "-150", Result: "10"},
	})
	require.Equal(t, 150.0, summary.TotalProceeds)
	require.Equal(t, 1.0, summary.Positions["AAPL"].SharesSold)
}

func TestTradingProcessorEmptyInput(t *testing.T) {
	t.Parallel()
	summary := NewTradingProcessor().Process(nil)
	require.Equal(t, 0, summary.BuyCount)
	require.Empty(t, summary.Positions)
	require.Empty(t, summary.TopCompanies)
}
