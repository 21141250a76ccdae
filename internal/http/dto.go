package http

import (
	"strings"

	"tally/internal/core"
	"tally/internal/gateway"
)

// amountField accepts the amount as a JSON number or a string, since the
// frontend sends either depending on the input locale ("12.34" vs "12,34").
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	*a = amountField(strings.Trim(string(b), `"`))
	return nil
}

// transactionRequest is the write payload. "type" matches the field name the
// frontend has always sent; amount is parsed to cents.
type transactionRequest struct {
	Type        string      `json:"type"`
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        core.Date   `json:"date"`
	Reserved    bool        `json:"reserved"`
}

type transactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	Status      string  `json:"status"`
	Reserved    bool    `json:"reserved"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID,
		Type:        string(t.Kind),
		Amount:      t.Amount.Units(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.Format("2006-01-02"),
		Status:      string(t.Status),
		Reserved:    t.Status == core.StatusReserved,
	}
	if !t.CreatedAt.IsZero() {
		resp.CreatedAt = t.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	return out
}

type trendPointResponse struct {
	Date    string  `json:"date"`
	Expense float64 `json:"expense"`
}

type categoryAmountResponse struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type summaryResponse struct {
	Month             string                   `json:"month"`
	TotalIncome       float64                  `json:"totalIncome"`
	TotalExpense      float64                  `json:"totalExpense"`
	Balance           float64                  `json:"balance"`
	ReservedBalance   float64                  `json:"reservedBalance"`
	DailyTrend        []trendPointResponse     `json:"dailyTrend"`
	CategoryBreakdown []categoryAmountResponse `json:"categoryBreakdown"`
	AverageDailySpend float64                  `json:"averageDailySpend"`
	TopCategory       string                   `json:"topCategory,omitempty"`
	SpendingWarning   bool                     `json:"spendingWarning"`
}

func toSummaryResponse(sum core.MonthSummary, warnRatio float64) summaryResponse {
	resp := summaryResponse{
		Month:             sum.Month.String(),
		TotalIncome:       sum.TotalIncome.Units(),
		TotalExpense:      sum.TotalExpense.Units(),
		Balance:           sum.Balance.Units(),
		ReservedBalance:   sum.ReservedBalance.Units(),
		DailyTrend:        make([]trendPointResponse, 0, len(sum.DailyTrend)),
		CategoryBreakdown: make([]categoryAmountResponse, 0, len(sum.CategoryBreakdown)),
		AverageDailySpend: sum.AverageDailySpend.Units(),
		TopCategory:       sum.TopCategory,
		SpendingWarning:   sum.OverThreshold(warnRatio),
	}
	for _, p := range sum.DailyTrend {
		resp.DailyTrend = append(resp.DailyTrend, trendPointResponse{
			Date:    p.Date.Format("2006-01-02"),
			Expense: p.Expense.Units(),
		})
	}
	for _, c := range sum.CategoryBreakdown {
		resp.CategoryBreakdown = append(resp.CategoryBreakdown, categoryAmountResponse{
			Category: c.Category,
			Amount:   c.Amount.Units(),
		})
	}
	return resp
}

type settingsPayload struct {
	DateFormat string `json:"dateFormat"`
	Locale     string `json:"locale"`
	Theme      string `json:"theme"`
}

func toSettingsPayload(s gateway.Settings) settingsPayload {
	return settingsPayload{DateFormat: s.DateFormat, Locale: s.Locale, Theme: s.Theme}
}

func (p settingsPayload) toSettings() gateway.Settings {
	return gateway.Settings{DateFormat: p.DateFormat, Locale: p.Locale, Theme: p.Theme}
}
