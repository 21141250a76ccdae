package core

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month int // 1-12
}

// ParseMonth parses a "YYYY-MM" month string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, errors.New("invalid month, want YYYY-MM")
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

// MonthOf returns the month a date falls in.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// CurrentMonth returns the month of the given wall clock.
func CurrentMonth(now time.Time) Month {
	return Month{Year: now.Year(), Month: int(now.Month())}
}

// Contains reports whether the date falls in this month.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// TrendPoint is one day of the expense trend.
type TrendPoint struct {
	Date    Date
	Expense Money
}

// CategoryAmount is one slice of the category breakdown.
type CategoryAmount struct {
	Category string
	Amount   Money
}

// MonthSummary is the derived view of one month of ledger activity. The three
// expense views are internally consistent: the category breakdown and the
// daily trend each sum exactly to TotalExpense.
type MonthSummary struct {
	Month             Month
	TotalIncome       Money
	TotalExpense      Money
	Balance           Money
	ReservedBalance   Money
	DailyTrend        []TrendPoint
	CategoryBreakdown []CategoryAmount
	AverageDailySpend Money
	TopCategory       string
}

// SummarizeMonth derives the month view from the full transaction set.
// Transactions outside the target month are ignored; released expenses are
// excluded from every figure. Aggregation is read-only and side-effect-free.
func SummarizeMonth(month Month, txs []Transaction) (MonthSummary, error) {
	monthly := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if month.Contains(t.Date) {
			monthly = append(monthly, t)
		}
	}

	bal, err := ComputeBalance(monthly)
	if err != nil {
		return MonthSummary{}, err
	}

	sum := MonthSummary{
		Month:           month,
		TotalIncome:     bal.TotalIncome,
		TotalExpense:    bal.TotalExpense,
		Balance:         bal.Balance,
		ReservedBalance: bal.ReservedBalance,
	}

	// Per-day expense totals; only days with at least one counted expense
	// appear in the trend.
	byDay := make(map[int]int64)
	// Category totals in first-seen order.
	byCategory := make(map[string]int)
	for _, t := range monthly {
		if t.Kind != Expense || t.Status == StatusReleased {
			continue
		}
		byDay[t.Date.Day()] += t.Amount.Cents

		idx, seen := byCategory[t.Category]
		if !seen {
			byCategory[t.Category] = len(sum.CategoryBreakdown)
			sum.CategoryBreakdown = append(sum.CategoryBreakdown, CategoryAmount{Category: t.Category, Amount: t.Amount})
		} else {
			sum.CategoryBreakdown[idx].Amount = sum.CategoryBreakdown[idx].Amount.Add(t.Amount)
		}
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)
	for _, day := range days {
		sum.DailyTrend = append(sum.DailyTrend, TrendPoint{
			Date:    NewDate(month.Year, month.Month, day),
			Expense: Money{Cents: byDay[day]},
		})
	}

	if len(sum.DailyTrend) > 0 {
		sum.AverageDailySpend = Money{Cents: sum.TotalExpense.Cents / int64(len(sum.DailyTrend))}
	}

	// Largest category wins; ties break toward the first seen.
	var top int64
	for _, ca := range sum.CategoryBreakdown {
		if ca.Amount.Cents > top {
			top = ca.Amount.Cents
			sum.TopCategory = ca.Category
		}
	}

	return sum, nil
}

// OverThreshold reports whether expenses exceed the given share of income,
// e.g. ratio 0.9 warns once spending passes 90% of what came in. Months with
// no income never warn.
func (s MonthSummary) OverThreshold(ratio float64) bool {
	if s.TotalIncome.Cents <= 0 {
		return false
	}
	return float64(s.TotalExpense.Cents) > ratio*float64(s.TotalIncome.Cents)
}
