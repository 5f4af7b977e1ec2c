package ledger

import (
	"fmt"
	"strings"
	"time"

	"salesledger/backend/internal/domain"
	"salesledger/backend/internal/store"
)

// Accepted wire formats for the entry date. Time-of-day is irrelevant and is
// always normalized away.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
}

// ParseEntryDate parses a raw date string and normalizes it to midnight UTC.
func ParseEntryDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", store.ErrInvalidRecord)
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return Midnight(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", store.ErrInvalidRecord, raw)
}

// Midnight truncates a timestamp to midnight UTC.
func Midnight(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeDailyEntry validates a raw entry payload and produces the
// canonical record fields: per-product lines with allow-listed expense maps,
// closed-set cost and expense categories, and non-negative amounts
// throughout. Every leniently coerced, clamped, or dropped value is reported
// as a data-quality note; only an unparseable date is an error.
//
// The returned record carries no identity, provenance, or computed totals;
// callers run ComputeTotals before persisting.
func NormalizeDailyEntry(req domain.DailyEntryRequest) (domain.DailyRecord, []string, error) {
	date, err := ParseEntryDate(req.Date)
	if err != nil {
		return domain.DailyRecord{}, nil, err
	}

	var notes []string

	products := make(map[string]domain.ProductLine, len(domain.ProductKeys))
	for _, key := range domain.ProductKeys {
		input, ok := req.Products[key]
		if !ok {
			products[key] = emptyProductLine()
			continue
		}
		line, lineNotes := normalizeProductLine(key, input)
		products[key] = line
		notes = append(notes, lineNotes...)
	}
	for key := range req.Products {
		if _, ok := products[key]; !ok {
			notes = append(notes, fmt.Sprintf("products.%s: unknown product dropped", key))
		}
	}

	directCosts, costNotes := normalizeAmountMap("directCosts", req.DirectCosts, domain.DirectCostKeys)
	notes = append(notes, costNotes...)

	payments, paymentNotes := normalizeAmountMap("paymentsReceived", req.PaymentsReceived, domain.PaymentProductKeys)
	notes = append(notes, paymentNotes...)

	expenses, expenseNotes := normalizeAmountMap("expenses", req.Expenses, domain.GlobalExpenseKeys)
	notes = append(notes, expenseNotes...)

	miscIncome, miscNotes := normalizeAmount("miscIncome", req.MiscIncome)
	notes = append(notes, miscNotes...)

	return domain.DailyRecord{
		Date:             date,
		Products:         products,
		DirectCosts:      directCosts,
		PaymentsReceived: payments,
		Expenses:         expenses,
		MiscIncomeCents:  miscIncome,
		MiscIncomeNote:   strings.TrimSpace(req.MiscIncomeNote),
	}, notes, nil
}

func emptyProductLine() domain.ProductLine {
	return domain.ProductLine{Expenses: map[string]int64{}}
}

// normalizeProductLine produces the canonical per-product line. The expenses
// field may arrive as a legacy bare number or as a category map; both feed
// ExpensesTotalCents, but only allow-listed positive map entries survive into
// the normalized Expenses map.
func normalizeProductLine(product string, input domain.ProductLineInput) (domain.ProductLine, []string) {
	var notes []string

	invoices, invoiceNotes := normalizeAmount(fmt.Sprintf("products.%s.invoices", product), input.Invoices)
	notes = append(notes, invoiceNotes...)
	sales, salesNotes := normalizeAmount(fmt.Sprintf("products.%s.sales", product), input.Sales)
	notes = append(notes, salesNotes...)
	cashRevenue, revenueNotes := normalizeAmount(fmt.Sprintf("products.%s.cashRevenue", product), input.CashRevenue)
	notes = append(notes, revenueNotes...)

	normalized := make(map[string]int64, len(input.Expenses.Categories))
	var expensesTotal int64
	for key, value := range input.Expenses.Categories {
		field := fmt.Sprintf("products.%s.expenses.%s", product, key)
		if !domain.AllowedProductExpenseKeys[key] {
			notes = append(notes, field+": unknown expense category dropped")
			continue
		}
		if value.Coerced {
			notes = append(notes, field+": non-numeric value coerced to 0")
		}
		if value.Cents <= 0 {
			continue
		}
		normalized[key] = value.Cents
		expensesTotal += value.Cents
	}

	if input.Expenses.IsLegacy {
		if input.Expenses.LegacyTotal.Coerced {
			notes = append(notes, fmt.Sprintf("products.%s.expenses: non-numeric legacy value coerced to 0", product))
		}
		if input.Expenses.LegacyTotal.Cents > 0 {
			expensesTotal += input.Expenses.LegacyTotal.Cents
		}
	}

	return domain.ProductLine{
		Invoices:           invoices,
		SalesCents:         sales,
		CashRevenueCents:   cashRevenue,
		Expenses:           normalized,
		ExpensesTotalCents: expensesTotal,
	}, notes
}

// normalizeAmountMap projects a raw amount map onto a closed key set. Keys
// outside the set are dropped with a note; absent keys become zero so every
// record carries the full category set.
func normalizeAmountMap(field string, raw map[string]domain.LenientCents, allowed []string) (map[string]int64, []string) {
	var notes []string
	result := make(map[string]int64, len(allowed))
	for _, key := range allowed {
		amount, amountNotes := normalizeAmount(field+"."+key, raw[key])
		result[key] = amount
		notes = append(notes, amountNotes...)
	}
	for key := range raw {
		if _, ok := result[key]; !ok {
			notes = append(notes, fmt.Sprintf("%s.%s: unknown category dropped", field, key))
		}
	}
	return result, notes
}

func normalizeAmount(field string, value domain.LenientCents) (int64, []string) {
	var notes []string
	if value.Coerced {
		notes = append(notes, field+": non-numeric value coerced to 0")
	}
	if value.Cents < 0 {
		notes = append(notes, field+": negative value clamped to 0")
		return 0, notes
	}
	return value.Cents, notes
}
