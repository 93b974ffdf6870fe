package core

import "time"

const (
	RangeLast30Days   DateRange = "last30days"
	RangeLast3Months  DateRange = "last3months"
	RangeLast6Months  DateRange = "last6months"
	RangeLast12Months DateRange = "last12months"
)

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

type (
	// DateRange is a client-supplied range token for the analysis charts.
	DateRange string

	Granularity string

	// CashFlowPoint is one period bucket of the cash-flow trend. Period is
	// "2006-01-02" for daily buckets and "2006-01" for monthly ones.
	CashFlowPoint struct {
		Period  string
		Income  Money
		Expense Money
	}

	CategorySpending struct {
		Name  string
		Total Money
	}

	DailyBalance struct {
		Date    time.Time
		Balance Money
	}

	// KPIs are the dashboard headline figures.
	KPIs struct {
		TotalBalance    Money
		MonthlySpending Money
		MonthlyCashFlow Money
	}
)

// ParseDateRange maps a token to a chart range. Unrecognized tokens
// (including last3months, which only the transaction list honors) fall
// back to last12months.
func ParseDateRange(s string) DateRange {
	switch DateRange(s) {
	case RangeLast30Days, RangeLast6Months, RangeLast12Months:
		return DateRange(s)
	}
	return RangeLast12Months
}

// ParseListDateRange is the transaction-list variant of ParseDateRange;
// it additionally recognizes last3months.
func ParseListDateRange(s string) DateRange {
	if DateRange(s) == RangeLast3Months {
		return RangeLast3Months
	}
	return ParseDateRange(s)
}

// Granularity returns the bucket size used by the cash-flow trend.
func (r DateRange) Granularity() Granularity {
	if r == RangeLast30Days {
		return GranularityDaily
	}
	return GranularityMonthly
}

// Cutoff returns the inclusive lower bound used when the range acts as
// a plain "since" filter (cash flow, spending breakdown, transaction
// list): now minus the nominal span, no month rounding.
func (r DateRange) Cutoff(now time.Time) time.Time {
	now = midnight(now)
	switch r {
	case RangeLast30Days:
		return now.AddDate(0, 0, -30)
	case RangeLast3Months:
		return now.AddDate(0, -3, 0)
	case RangeLast6Months:
		return now.AddDate(0, -6, 0)
	default:
		return now.AddDate(0, -12, 0)
	}
}

// Window resolves the balance-trend window: last30days covers the 30
// calendar days ending today; month ranges start on the first day of
// the month N months back. Both bounds are inclusive midnights.
func (r DateRange) Window(now time.Time) (start, end time.Time) {
	end = midnight(now)
	switch r {
	case RangeLast30Days:
		start = end.AddDate(0, 0, -29)
	case RangeLast6Months:
		start = firstOfMonth(end.AddDate(0, -6, 0))
	default:
		start = firstOfMonth(end.AddDate(0, -12, 0))
	}
	return start, end
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
