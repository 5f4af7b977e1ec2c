package ledger

import (
	"time"

	"salesledger/backend/internal/domain"
)

// BuildMonthlySummary re-derives the (year, month) summary from that month's
// records plus a snapshot of the current company cash position. Returns nil
// when the month has no records; callers skip the upsert in that case and
// any previously stored summary is left as-is.
//
// Fully derived on every call, never incremental: running it twice over the
// same records produces the same summary.
func BuildMonthlySummary(year, month int, records []domain.DailyRecord, cash domain.CompanyCashPosition, now time.Time) *domain.MonthlySummary {
	summary := domain.MonthlySummary{
		Month:         month,
		Year:          year,
		Products:      make(map[string]domain.ProductMonthly, len(domain.SummaryProductKeys)),
		CashByProduct: make(map[string]int64, len(domain.PaymentProductKeys)),
		UpdatedAt:     now,
	}
	for _, key := range domain.SummaryProductKeys {
		summary.Products[key] = domain.ProductMonthly{}
	}

	matched := 0
	for _, record := range records {
		if record.Year != year || record.Month != month {
			continue
		}
		matched++

		for _, key := range domain.SummaryProductKeys {
			line := record.Products[key]
			entry := summary.Products[key]
			entry.TotalInvoices += line.Invoices
			entry.TotalRevenueCents += LegacyRevenue(line)
			summary.Products[key] = entry
		}
		// The headline total sums the record-level sales-first revenue, so it
		// covers the legacy products too; the per-product rows above stay on
		// LegacyRevenue and cover only the current lineup.
		summary.TotalMonthlyRevenueCents += record.TotalCashRevenueCents
		summary.TotalMonthlyInvoices += record.TotalInvoices
		summary.TotalDirectCostsCents += record.TotalDirectCostsCents
		summary.TotalExpensesCents += record.TotalExpensesCents
	}
	if matched == 0 {
		return nil
	}

	for _, key := range domain.PaymentProductKeys {
		summary.CashByProduct[key] = cash.CashByProduct[key]
	}
	summary.TotalCashCents = cash.TotalCompanyCashCents

	return &summary
}
