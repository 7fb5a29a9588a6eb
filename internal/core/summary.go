package core

// MonthLabels are the short calendar names used to label the monthly series.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name  string `json:"name"`
	Value Money  `json:"value"`
}

// TypeTotal is one partition of a per-type aggregation.
type TypeTotal struct {
	Type  TransactionType
	Total Money
}

// MonthTypeTotal is one (month, type) cell of a monthly aggregation.
type MonthTypeTotal struct {
	Month int // 1-12
	Type  TransactionType
	Total Money
}

// Overview is the income/expense/balance summary of one owner.
type Overview struct {
	TotalIncome  Money `json:"totalIncome"`
	TotalExpense Money `json:"totalExpense"`
	TotalBalance Money `json:"totalBalance"`
}

// MonthlyEntry is one calendar-month slot of the monthly series.
type MonthlyEntry struct {
	Month   string `json:"month"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// Report is the category breakdown plus the monthly series.
type Report struct {
	CategoryData []CategoryAmount `json:"categoryData"`
	MonthlyData  []MonthlyEntry   `json:"monthlyData"`
}

// NewOverview folds per-type totals into an Overview. Spellings of the same
// type are merged; a missing side is zero.
func NewOverview(totals []TypeTotal) Overview {
	var ov Overview
	for _, t := range totals {
		switch NormalizeType(string(t.Type)) {
		case TypeIncome:
			ov.TotalIncome = ov.TotalIncome.Add(t.Total)
		case TypeExpense:
			ov.TotalExpense = ov.TotalExpense.Add(t.Total)
		}
	}
	ov.TotalBalance = ov.TotalIncome.Sub(ov.TotalExpense)
	return ov
}

// NewMonthlySeries always returns 12 entries, January first. Cells with a
// month outside 1-12 or an unknown type are dropped.
func NewMonthlySeries(cells []MonthTypeTotal) []MonthlyEntry {
	series := make([]MonthlyEntry, len(MonthLabels))
	for i, label := range MonthLabels {
		series[i].Month = label
	}
	for _, c := range cells {
		if c.Month < 1 || c.Month > 12 {
			continue
		}
		slot := &series[c.Month-1]
		switch NormalizeType(string(c.Type)) {
		case TypeIncome:
			slot.Income = slot.Income.Add(c.Total)
		case TypeExpense:
			slot.Expense = slot.Expense.Add(c.Total)
		}
	}
	return series
}

// The functions below are the in-process reductions. Stores that cannot
// aggregate natively use them, and tests use them as reference semantics.

// SumCategoryType sums the amounts of records sharing category and type with
// the target, the target included.
func SumCategoryType(txs []Transaction, category string, typ TransactionType) Money {
	want := NormalizeType(string(typ))
	var total Money
	for _, tx := range txs {
		if tx.Category == category && NormalizeType(string(tx.Type)) == want {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// SumByType partitions by normalized type, in first-seen order.
func SumByType(txs []Transaction) []TypeTotal {
	index := make(map[TransactionType]int)
	out := make([]TypeTotal, 0, 2)
	for _, tx := range txs {
		t := NormalizeType(string(tx.Type))
		i, ok := index[t]
		if !ok {
			i = len(out)
			index[t] = i
			out = append(out, TypeTotal{Type: t})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
	}
	return out
}

// SumByCategory groups by category across all types, in first-seen order.
func SumByCategory(txs []Transaction) []CategoryAmount {
	index := make(map[string]int)
	out := make([]CategoryAmount, 0)
	for _, tx := range txs {
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryAmount{Name: tx.Category})
		}
		out[i].Value = out[i].Value.Add(tx.Amount)
	}
	return out
}

// SumByMonth groups by (calendar month, normalized type). Records without a
// date are skipped.
func SumByMonth(txs []Transaction) []MonthTypeTotal {
	type key struct {
		month int
		typ   TransactionType
	}
	index := make(map[key]int)
	var out []MonthTypeTotal
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		k := key{month: tx.Date.Month(), typ: NormalizeType(string(tx.Type))}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, MonthTypeTotal{Month: k.month, Type: k.typ})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
	}
	return out
}
