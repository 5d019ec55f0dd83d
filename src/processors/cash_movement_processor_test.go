package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xdubnickas/trading212-tracker/src/models"
)

func TestCashMovementProcessor(t *testing.T) {
	t.Parallel()
	transactions := []models.Transaction{
		{Action: "Deposit", Time: "2023-01-05 09:00:00", Total: "500", CurrencyTotal: "EUR"},
		{Action: "Deposit", Time: "2023-02-05 09:00:00", Total: "300", CurrencyTotal: "EUR"},
		{Action: "Spending cashback", Time: "2023-02-10 12:00:00", Total: "1.25", CurrencyTotal: "EUR"},
		{Action: "Withdrawal", Time: "2023-03-01 15:00:00", Total: "-200", CurrencyTotal: "EUR"},
		{Action: "Card debit", Time: "2023-03-02 15:00:00", Total: "-12.50", CurrencyTotal: "EUR", MerchantName: "Grocery", MerchantCategory: "food"},
		{Action: "Market buy", Time: "2023-03-03 15:00:00", Total: "100"},
	}

	summary := NewCashMovementProcessor().Process(transactions)

	require.Equal(t, 801.25, summary.TotalDeposits)
	require.Equal(t, 212.50, summary.TotalWithdrawals)
	require.Len(t, summary.Deposits, 3)
	require.Len(t, summary.Withdrawals, 2)

	// Withdrawal amounts are absolute.
	require.Equal(t, 200.0, summary.Withdrawals[0].Amount)
	require.Equal(t, "withdrawal", summary.Withdrawals[0].Type)

	// Card metadata follows the movement.
	require.Equal(t, "Grocery", summary.Withdrawals[1].MerchantName)
	require.Equal(t, "food", summary.Withdrawals[1].MerchantCategory)

	// Per-action totals keep the original Action spelling.
	require.Equal(t, 800.0, summary.TotalsByType["Deposit"])
	require.Equal(t, 1.25, summary.TotalsByType["Spending cashback"])
	require.Equal(t, 200.0, summary.TotalsByType["Withdrawal"])
	require.Equal(t, 12.50, summary.TotalsByType["Card debit"])

	// Month histogram covers deposits only.
	require.Equal(t, 500.0, summary.DepositsByMonth[time.January])
	require.Equal(t, 301.25, summary.DepositsByMonth[time.February])
	require.NotContains(t, summary.DepositsByMonth, time.March)

	// Movement lists are sorted by time.
	require.Equal(t, "2023-01-05 09:00:00", summary.Deposits[0].Time)
	require.Equal(t, "2023-02-10 12:00:00", summary.Deposits[2].Time)
}

func TestCashMovementProcessorEmptyInput(t *testing.T) {
	t.Parallel()
	summary := NewCashMovementProcessor().Process(nil)
	require.Equal(t, 0.0, summary.TotalDeposits)
	require.Equal(t, 0.0, summary.TotalWithdrawals)
	require.Empty(t, summary.Deposits)
	require.Empty(t, summary.Withdrawals)
}
