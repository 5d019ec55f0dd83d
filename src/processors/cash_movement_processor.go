package processors

import (
	"math"
	"strings"
	"time"

	"github.com/xdubnickas/trading212-tracker/src/models"
	"github.com/xdubnickas/trading212-tracker/src/utils"
)

// cashMovementProcessor implements the deposits/withdrawals facet.
type cashMovementProcessor struct{}

// NewCashMovementProcessor creates a new instance of CashMovementProcessor.
func NewCashMovementProcessor() CashMovementProcessor {
	return &cashMovementProcessor{}
}

// depositActions and withdrawalActions classify the Action column. Card
// spending cashback counts as money in, card debits as money out.
var depositActions = map[string]bool{
	"deposit":           true,
	"spending cashback": true,
}

var withdrawalActions = map[string]bool{
	"withdrawal": true,
	"card debit": true,
}

// Process classifies rows into deposits and withdrawals and aggregates
// totals, per-type sub-totals and a month-of-year deposit histogram.
// Withdrawal amounts are reported as absolute values.
func (p *cashMovementProcessor) Process(transactions []models.Transaction) models.CashMovementSummary {
	summary := models.CashMovementSummary{
		TotalsByType:    make(map[string]float64),
		DepositsByMonth: make(map[time.Month]float64),
	}

	for _, tx := range transactions {
		action := strings.ToLower(strings.TrimSpace(tx.Action))
		isDeposit := depositActions[action]
		isWithdrawal := withdrawalActions[action]
		if !isDeposit && !isWithdrawal {
			continue
		}

		amount := utils.ParseDecimal(tx.Total)
		movement := models.CashMovement{
			Time:             tx.Time,
			Action:           tx.Action,
			Amount:           amount,
			Currency:         tx.CurrencyOrDefault(),
			MerchantName:     tx.MerchantName,
			MerchantCategory: tx.MerchantCategory,
		}

		if isDeposit {
			movement.Type = "deposit"
			summary.TotalDeposits += amount
			summary.Deposits = append(summary.Deposits, movement)
			if at, ok := tx.ParsedTime(); ok {
				summary.DepositsByMonth[at.Month()] += amount
			}
		} else {
			movement.Type = "withdrawal"
			movement.Amount = math.Abs(amount)
			summary.TotalWithdrawals += movement.Amount
			summary.Withdrawals = append(summary.Withdrawals, movement)
		}
		summary.TotalsByType[tx.Action] += movement.Amount
	}

	sortMovementsByTime(summary.Deposits)
	sortMovementsByTime(summary.Withdrawals)
	return summary
}
