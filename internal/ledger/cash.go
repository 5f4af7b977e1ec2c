package ledger

import (
	"time"

	"salesledger/backend/internal/domain"
)

// RecomputeCashPosition derives the company-wide cash position from the full
// daily record set. Pure: same records in, same position out, regardless of
// the order records arrive in. Per record, each payment product's bucket
// moves by its legacy revenue minus an even third of the day's direct costs
// plus any payments received against prior credit sales; misc income
// accumulates into the other-income bucket.
//
// Missing product lines, nil maps and absent keys all count as zero so a
// single sparse historical record can never block the aggregate.
func RecomputeCashPosition(records []domain.DailyRecord, now time.Time) domain.CompanyCashPosition {
	position := domain.ZeroCashPosition()

	for _, record := range records {
		// Integer division: the <=2 cent remainder of the three-way cost
		// split stays unallocated.
		costShare := record.TotalDirectCostsCents / 3

		for _, product := range domain.PaymentProductKeys {
			revenue := LegacyRevenue(record.Products[product])
			position.CashByProduct[product] += revenue - costShare + record.PaymentsReceived[product]
		}

		position.OverallDebitCents += record.TotalCashRevenueCents -
			record.TotalDirectCostsCents -
			record.TotalExpensesCents +
			record.MiscIncomeCents
		position.OtherIncomeCents += record.MiscIncomeCents
	}

	position.LastUpdated = now
	return FinalizeTotalCash(position)
}

// FinalizeTotalCash recomputes TotalCompanyCashCents from the buckets and
// other income. Every position handed out or persisted passes through here;
// the stored total is never trusted.
func FinalizeTotalCash(position domain.CompanyCashPosition) domain.CompanyCashPosition {
	var total int64
	for _, v := range position.CashByProduct {
		total += v
	}
	position.TotalCompanyCashCents = total + position.OtherIncomeCents
	return position
}
