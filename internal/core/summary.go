package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary is a compact aggregate over a list of records.
type Summary struct {
	Count      int
	Income     decimal.Decimal
	Expenses   decimal.Decimal // negative or zero
	Balance    decimal.Decimal
	ByCategory []CategoryAmount
}

// Total returns the arithmetic sum of every record amount.
func Total(records []FinancialRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// Summarize aggregates records; categories keep first-seen order.
func Summarize(records []FinancialRecord) Summary {
	s := Summary{
		Count:    len(records),
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	byCat := map[string]decimal.Decimal{}
	var order []string
	for _, r := range records {
		switch {
		case r.IsIncome():
			s.Income = s.Income.Add(r.Amount)
		case r.IsExpense():
			s.Expenses = s.Expenses.Add(r.Amount)
		}
		if _, seen := byCat[r.Category]; !seen {
			order = append(order, r.Category)
			byCat[r.Category] = decimal.Zero
		}
		byCat[r.Category] = byCat[r.Category].Add(r.Amount)
	}
	s.Balance = s.Income.Add(s.Expenses)
	for _, name := range order {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: byCat[name]})
	}
	return s
}
