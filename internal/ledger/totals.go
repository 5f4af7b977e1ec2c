package ledger

import "salesledger/backend/internal/domain"

// ComputeTotals derives the record-level computed fields (Month, Year and the
// four Total* aggregates) from the normalized inputs. Idempotent: recomputing
// over an unchanged record yields identical totals. ExpensesTotalCents on
// each product line is treated as input since it may carry a legacy lump sum
// with no category breakdown.
func ComputeTotals(record domain.DailyRecord) domain.DailyRecord {
	record.Month = int(record.Date.UTC().Month())
	record.Year = record.Date.UTC().Year()

	var invoices, cashRevenue, productExpenses int64
	for _, key := range domain.ProductKeys {
		line := record.Products[key]
		invoices += line.Invoices
		cashRevenue += DailyRevenue(line)
		productExpenses += line.ExpensesTotalCents
	}

	var directCosts int64
	for _, v := range record.DirectCosts {
		directCosts += v
	}

	var globalExpenses int64
	for _, v := range record.Expenses {
		globalExpenses += v
	}

	record.TotalInvoices = invoices
	record.TotalCashRevenueCents = cashRevenue
	record.TotalDirectCostsCents = directCosts
	record.TotalExpensesCents = productExpenses + globalExpenses
	return record
}

// DailyRevenue is the revenue formula behind TotalCashRevenue: the sales
// figure when one was entered, otherwise the cashRevenue fallback kept for
// records predating the sales field.
func DailyRevenue(line domain.ProductLine) int64 {
	if line.SalesCents > 0 {
		return line.SalesCents
	}
	return line.CashRevenueCents
}

// LegacyRevenue is the summation the cash position and monthly summaries are
// built on: invoice count plus cash revenue. It long predates DailyRevenue
// and historical aggregates depend on it, so the two formulas deliberately
// coexist.
func LegacyRevenue(line domain.ProductLine) int64 {
	return line.Invoices + line.CashRevenueCents
}
