package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// All monetary amounts are stored as int64 minor units ("cents"). Legacy
// payloads may carry fractional or stringly-typed numbers; those are coerced
// at the boundary (see LenientCents) and rounded to the nearest cent.

const (
	ProductChips        = "chips"
	ProductFlavors      = "flavors"
	ProductPellets      = "pellets"
	ProductProteinChips = "proteinChips"
	ProductProteinBars  = "proteinBars"
	ProductThalgy       = "thalgy"
	ProductMacaroni     = "macaroni"
	ProductDrinks       = "drinks"
)

// ProductKeys is the fixed set of products a daily record may carry, in
// presentation order. thalgy, macaroni and drinks are legacy extras kept for
// historical records.
var ProductKeys = []string{
	ProductChips,
	ProductFlavors,
	ProductPellets,
	ProductProteinChips,
	ProductProteinBars,
	ProductThalgy,
	ProductMacaroni,
	ProductDrinks,
}

// PaymentProductKeys is the restricted subset eligible for payments received
// against prior credit sales, and for per-product cash tracking.
var PaymentProductKeys = []string{ProductChips, ProductFlavors, ProductPellets}

// CashBucketKeys is the set of cash-position buckets: the three payment
// products plus the legacy thalgy catch-all.
var CashBucketKeys = []string{ProductChips, ProductFlavors, ProductPellets, ProductThalgy}

// SummaryProductKeys is the product set aggregated into monthly summaries.
var SummaryProductKeys = []string{
	ProductChips,
	ProductFlavors,
	ProductPellets,
	ProductProteinChips,
	ProductProteinBars,
}

// DirectCostKeys is the closed set of direct factory cost categories.
var DirectCostKeys = []string{
	"directLabor",
	"indirectLabor",
	"heatAndPower",
	"factoryCommissions",
	"miscFactoryCosts",
	"contractLabor",
	"freight",
	"rawMaterials",
}

// GlobalExpenseKeys is the closed set of legacy record-level expense
// categories, distinct from per-product expenses.
var GlobalExpenseKeys = []string{
	"marketing",
	"vehicles",
	"advancePurchases",
	"charitable",
	"machinesSpares",
}

// AllowedProductExpenseKeys is the allow-list for per-product expense
// categories. Keys outside this list are dropped during normalization.
var AllowedProductExpenseKeys = map[string]bool{
	"direct_factory_costs":        true,
	"direct_labour_cost":          true,
	"indirect_labour_cost":        true,
	"contract_labour":             true,
	"heat_and_power":              true,
	"commissions_factory":         true,
	"misc_factory_costs":          true,
	"freight":                     true,
	"freight_costs":               true,
	"raw_materials_purchased":     true,
	"product_cost":                true,
	"marketing_expense":           true,
	"vehicle_expenses":            true,
	"travel_exp":                  true,
	"travel_transportation_exp":   true,
	"transportion":                true,
	"gas_oil":                     true,
	"gifts_expenses":              true,
	"maintenance_expense":         true,
	"office_supplies_expenses":    true,
	"communication_expenses":      true,
	"rent_or_lease_expense":       true,
	"office_expenses":             true,
	"utilities":                   true,
	"internet":                    true,
	"stationery":                  true,
	"salaries":                    true,
	"wages":                       true,
	"daily_allowance":             true,
	"incentive":                   true,
	"rewarding":                   true,
	"machines_spares":             true,
	"machines_puffs":              true,
	"machines_pellets":            true,
	"machines":                    true,
	"spares":                      true,
	"other_machines_equipment":    true,
	"furniture":                   true,
	"automatic_swing_door":        true,
	"legal_fee":                   true,
	"consulting":                  true,
	"other_service":               true,
	"soft_wear":                   true,
	"bank_fee":                    true,
	"tax_paid":                    true,
	"exchange_gain_loss":          true,
	"loan_benefits":               true,
	"dividends":                   true,
	"advance_purchases_clearance": true,
	"charitable_contributions":    true,
	"hospitality":                 true,
	"public_relations":            true,
	"other_assets":                true,
	"orgflavors_to_ho":            true,
	"pellets_to_ho":               true,
	"to_flavors":                  true,
	"to_sanitizers":               true,
	"flavors":                     true,
}

const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleDataEntry = "dataEntry"
)

type Actor struct {
	Username string
	Role     string
}

// ProductLine holds one product's figures within a daily record. Two revenue
// formulas coexist by contract: the record-level TotalCashRevenue uses
// SalesCents when positive, falling back to CashRevenueCents (current schema
// generation), while cash-position and monthly aggregation use the legacy
// summation Invoices + CashRevenueCents.
type ProductLine struct {
	Invoices           int64            `json:"invoices"`
	SalesCents         int64            `json:"sales"`
	CashRevenueCents   int64            `json:"cashRevenue"`
	Expenses           map[string]int64 `json:"expenses"`
	ExpensesTotalCents int64            `json:"expensesTotal"`
}

// DailyRecord is one calendar day's financial entry. Exactly one record
// exists per date; Date is always midnight UTC. The Total* fields, Month and
// Year are computed on every save and never trusted from caller input.
type DailyRecord struct {
	ID                    string                 `json:"id"`
	Date                  time.Time              `json:"date"`
	Month                 int                    `json:"month"`
	Year                  int                    `json:"year"`
	Products              map[string]ProductLine `json:"products"`
	DirectCosts           map[string]int64       `json:"directCosts"`
	PaymentsReceived      map[string]int64       `json:"paymentsReceived"`
	Expenses              map[string]int64       `json:"expenses"`
	MiscIncomeCents       int64                  `json:"miscIncome"`
	MiscIncomeNote        string                 `json:"miscIncomeNote,omitempty"`
	TotalInvoices         int64                  `json:"totalInvoices"`
	TotalCashRevenueCents int64                  `json:"totalCashRevenue"`
	TotalDirectCostsCents int64                  `json:"totalDirectCosts"`
	TotalExpensesCents    int64                  `json:"totalExpenses"`
	EnteredBy             string                 `json:"enteredBy"`
	LastModifiedBy        string                 `json:"lastModifiedBy"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// CompanyCashPosition is the company-wide singleton cash aggregate, always
// produced by a full recompute over every daily record. TotalCompanyCashCents
// is recomputed from CashByProduct + OtherIncomeCents immediately before the
// position is returned or persisted, never stored independently.
type CompanyCashPosition struct {
	CashByProduct         map[string]int64 `json:"cashByProduct"`
	OtherIncomeCents      int64            `json:"otherIncome"`
	OverallDebitCents     int64            `json:"overallDebit"`
	TotalCompanyCashCents int64            `json:"totalCompanyCash"`
	LastUpdated           time.Time        `json:"lastUpdated"`
}

// ZeroCashPosition returns the lazily-initialized all-zero position.
func ZeroCashPosition() CompanyCashPosition {
	buckets := make(map[string]int64, len(CashBucketKeys))
	for _, key := range CashBucketKeys {
		buckets[key] = 0
	}
	return CompanyCashPosition{CashByProduct: buckets}
}

type ProductMonthly struct {
	TotalInvoices     int64 `json:"totalInvoices"`
	TotalRevenueCents int64 `json:"totalRevenue"`
}

// MonthlySummary is the aggregate for one (year, month), fully re-derived
// from that month's daily records whenever any of them changes. The cash
// fields are a snapshot of the company-wide position at aggregation time,
// not month-scoped cash.
type MonthlySummary struct {
	Month                    int                       `json:"month"`
	Year                     int                       `json:"year"`
	Products                 map[string]ProductMonthly `json:"products"`
	TotalMonthlyRevenueCents int64                     `json:"totalMonthlyRevenue"`
	TotalMonthlyInvoices     int64                     `json:"totalMonthlyInvoices"`
	TotalDirectCostsCents    int64                     `json:"totalDirectCosts"`
	TotalExpensesCents       int64                     `json:"totalExpenses"`
	CashByProduct            map[string]int64          `json:"cashByProduct"`
	TotalCashCents           int64                     `json:"totalCash"`
	UpdatedAt                time.Time                 `json:"updatedAt"`
}

// LenientCents decodes a monetary amount from the permissive legacy wire
// format: a JSON number (possibly fractional), a numeric string, null, or
// anything else. Values that cannot be read as a number coerce to zero with
// Coerced set, so the normalizer can surface them as data-quality notes
// instead of failing the whole entry.
type LenientCents struct {
	Cents   int64
	Coerced bool
}

func (l *LenientCents) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		l.Cents = 0
		return nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err == nil {
		l.Cents = roundCents(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(trimmed, &str); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			l.Cents = 0
			l.Coerced = true
			return nil
		}
		l.Cents = roundCents(parsed)
		return nil
	}

	l.Cents = 0
	l.Coerced = true
	return nil
}

func roundCents(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

// ExpenseInput accepts the two historical shapes of a product's expenses
// field: a bare number (legacy single total) or an object of category
// amounts (current schema).
type ExpenseInput struct {
	LegacyTotal LenientCents
	IsLegacy    bool
	Categories  map[string]LenientCents
}

func (e *ExpenseInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '{' {
		return json.Unmarshal(trimmed, &e.Categories)
	}
	e.IsLegacy = true
	return e.LegacyTotal.UnmarshalJSON(trimmed)
}

// ProductLineInput is the raw per-product payload before normalization.
type ProductLineInput struct {
	Invoices    LenientCents `json:"invoices"`
	Sales       LenientCents `json:"sales"`
	CashRevenue LenientCents `json:"cashRevenue"`
	Expenses    ExpenseInput `json:"expenses"`
}

// DailyEntryRequest is the raw create/update payload for a daily record.
type DailyEntryRequest struct {
	Date             string                      `json:"date"`
	Products         map[string]ProductLineInput `json:"products"`
	DirectCosts      map[string]LenientCents     `json:"directCosts"`
	PaymentsReceived map[string]LenientCents     `json:"paymentsReceived"`
	Expenses         map[string]LenientCents     `json:"expenses"`
	MiscIncome       LenientCents                `json:"miscIncome"`
	MiscIncomeNote   string                      `json:"miscIncomeNote"`
}

type DailyRecordListResponse struct {
	DailySales  []DailyRecord `json:"dailySales"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int           `json:"total"`
}

// PeriodTotals is the roll-up of record-level computed totals over a period.
type PeriodTotals struct {
	TotalRevenueCents  int64 `json:"totalRevenue"`
	TotalInvoices      int64 `json:"totalInvoices"`
	TotalCostsCents    int64 `json:"totalCosts"`
	TotalExpensesCents int64 `json:"totalExpenses"`
}

type TrendPoint struct {
	Date              string `json:"date"`
	TotalRevenueCents int64  `json:"totalRevenue"`
	TotalInvoices     int64  `json:"totalInvoices"`
}

type DashboardResponse struct {
	Today        *PeriodTotals       `json:"today"`
	MTD          PeriodTotals        `json:"mtd"`
	YTD          PeriodTotals        `json:"ytd"`
	CashPosition CompanyCashPosition `json:"cashPosition"`
	Last30Days   []TrendPoint        `json:"last30Days"`
}

type MonthlyReportResponse struct {
	Summary        MonthlySummary `json:"summary"`
	DailyBreakdown []DailyRecord  `json:"dailyBreakdown"`
}

type AnnualReportResponse struct {
	MonthlySummaries []MonthlySummary `json:"monthlySummaries"`
	AnnualTotal      PeriodTotals     `json:"annualTotal"`
}

type ProductPerformance struct {
	Invoices     int64 `json:"invoices"`
	RevenueCents int64 `json:"revenue"`
}

type ProductPerformanceResponse struct {
	Products map[string]ProductPerformance `json:"products"`
	From     string                        `json:"from,omitempty"`
	To       string                        `json:"to,omitempty"`
}

type CashHistoryEntry struct {
	CompanyCashPosition
	Timestamp time.Time `json:"timestamp"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
