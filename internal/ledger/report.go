package ledger

import "salesledger/backend/internal/domain"

// SumPeriodTotals rolls the record-level computed totals up over a period.
func SumPeriodTotals(records []domain.DailyRecord) domain.PeriodTotals {
	var totals domain.PeriodTotals
	for _, record := range records {
		totals.TotalRevenueCents += record.TotalCashRevenueCents
		totals.TotalInvoices += record.TotalInvoices
		totals.TotalCostsCents += record.TotalDirectCostsCents
		totals.TotalExpensesCents += record.TotalExpensesCents
	}
	return totals
}

// SumProductPerformance aggregates per-product invoice counts and legacy
// revenue for the current product lineup over a set of records.
func SumProductPerformance(records []domain.DailyRecord) map[string]domain.ProductPerformance {
	result := make(map[string]domain.ProductPerformance, len(domain.SummaryProductKeys))
	for _, key := range domain.SummaryProductKeys {
		result[key] = domain.ProductPerformance{}
	}
	for _, record := range records {
		for _, key := range domain.SummaryProductKeys {
			line := record.Products[key]
			entry := result[key]
			entry.Invoices += line.Invoices
			entry.RevenueCents += LegacyRevenue(line)
			result[key] = entry
		}
	}
	return result
}
