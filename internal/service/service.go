package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"salesledger/backend/internal/cache"
	"salesledger/backend/internal/domain"
	"salesledger/backend/internal/ledger"
	"salesledger/backend/internal/store"
	"salesledger/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service owns the write path for daily records and keeps the derived
// aggregates (cash position, monthly summaries) consistent after every
// mutation. The aggregate refresh runs under a single mutex: the cash
// position is a shared singleton and interleaved full recomputes would
// otherwise race with last-write-wins results.
type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	cacheTTL time.Duration

	aggMu sync.Mutex
}

func New(repo store.Repository, reports cache.ReportCache, cacheTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:     repo,
		reports:  reports,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) CreateDailyRecord(ctx context.Context, req domain.DailyEntryRequest) (*domain.DailyRecord, error) {
	record, notes, err := ledger.NormalizeDailyEntry(req)
	if err != nil {
		return nil, err
	}
	s.logDataQuality(record.Date, notes)

	today := ledger.Midnight(time.Now().UTC())
	if record.Date.After(today) {
		return nil, store.ErrFutureDate
	}

	actor := s.actor(ctx)
	record = ledger.ComputeTotals(record)
	record.EnteredBy = actor.Username
	record.LastModifiedBy = actor.Username

	created, err := s.repo.CreateDailyRecord(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := s.refreshAggregates(ctx, created.Year, created.Month); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "daily_record_create", "daily_record", created.ID,
		fmt.Sprintf("date=%s,revenue=%d", created.Date.Format("2006-01-02"), created.TotalCashRevenueCents))
	return created, nil
}

func (s *Service) UpdateDailyRecord(ctx context.Context, id string, req domain.DailyEntryRequest) (*domain.DailyRecord, error) {
	existing, err := s.repo.FindDailyRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The date is immutable on edit; whatever the payload carries is
	// replaced with the stored date before normalization.
	req.Date = existing.Date.Format("2006-01-02")

	record, notes, err := ledger.NormalizeDailyEntry(req)
	if err != nil {
		return nil, err
	}
	s.logDataQuality(record.Date, notes)

	record = ledger.ComputeTotals(record)
	record.ID = existing.ID
	record.EnteredBy = existing.EnteredBy
	record.CreatedAt = existing.CreatedAt
	record.LastModifiedBy = s.actor(ctx).Username

	updated, err := s.repo.UpdateDailyRecord(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := s.refreshAggregates(ctx, updated.Year, updated.Month); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "daily_record_update", "daily_record", updated.ID,
		fmt.Sprintf("date=%s,revenue=%d", updated.Date.Format("2006-01-02"), updated.TotalCashRevenueCents))
	return updated, nil
}

func (s *Service) DeleteDailyRecord(ctx context.Context, id string) error {
	existing, err := s.repo.FindDailyRecordByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteDailyRecord(ctx, id); err != nil {
		return err
	}

	if err := s.refreshAggregates(ctx, existing.Year, existing.Month); err != nil {
		return err
	}

	s.logAudit(ctx, "daily_record_delete", "daily_record", id,
		fmt.Sprintf("date=%s", existing.Date.Format("2006-01-02")))
	return nil
}

// refreshAggregates recomputes the cash position over the full record set
// and re-derives the touched month's summary, serialized so overlapping
// writes cannot interleave their recompute/persist pairs.
func (s *Service) refreshAggregates(ctx context.Context, year, month int) error {
	s.aggMu.Lock()
	defer s.aggMu.Unlock()

	records, err := s.repo.ListAllDailyRecords(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	position := ledger.RecomputeCashPosition(records, now)
	if err := s.repo.SaveCashPosition(ctx, position); err != nil {
		return err
	}

	if summary := ledger.BuildMonthlySummary(year, month, records, position, now); summary != nil {
		if err := s.repo.UpsertMonthlySummary(ctx, *summary); err != nil {
			return err
		}
	}

	if err := s.reports.Invalidate(ctx, year, month); err != nil {
		log.Printf("[service] WARN: report cache invalidation failed for %04d-%02d: %v", year, month, err)
	}
	return nil
}

func (s *Service) GetDailyRecord(ctx context.Context, id string) (*domain.DailyRecord, error) {
	return s.repo.FindDailyRecordByID(ctx, id)
}

func (s *Service) GetDailyRecordByDate(ctx context.Context, rawDate string) (*domain.DailyRecord, error) {
	date, err := ledger.ParseEntryDate(rawDate)
	if err != nil {
		return nil, err
	}
	return s.repo.FindDailyRecordByDate(ctx, date)
}

func (s *Service) ListDailyRecords(ctx context.Context, from, to *time.Time, page, limit int) (domain.DailyRecordListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 31
	}

	records, total, err := s.repo.ListDailyRecords(ctx, from, to, (page-1)*limit, limit)
	if err != nil {
		return domain.DailyRecordListResponse{}, err
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return domain.DailyRecordListResponse{
		DailySales:  records,
		TotalPages:  totalPages,
		CurrentPage: page,
		Total:       total,
	}, nil
}

func (s *Service) ListDailyRecordsByMonth(ctx context.Context, year, month int) ([]domain.DailyRecord, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", store.ErrInvalidRecord, month)
	}
	return s.repo.ListDailyRecordsInMonth(ctx, year, month)
}

// GetCompanyCashPosition returns the persisted position, lazily initializing
// the all-zero state on first access. The total is always recomputed from
// the buckets before the position leaves the service.
func (s *Service) GetCompanyCashPosition(ctx context.Context) (domain.CompanyCashPosition, error) {
	if cached, ok, err := s.reports.GetCashPosition(ctx); err == nil && ok {
		return ledger.FinalizeTotalCash(*cached), nil
	} else if err != nil {
		log.Printf("[service] WARN: cash position cache read failed: %v", err)
	}

	position, err := s.repo.GetCashPosition(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.CompanyCashPosition{}, err
		}
		zero := domain.ZeroCashPosition()
		zero.LastUpdated = time.Now().UTC()
		zero = ledger.FinalizeTotalCash(zero)
		if err := s.repo.SaveCashPosition(ctx, zero); err != nil {
			return domain.CompanyCashPosition{}, err
		}
		position = &zero
	}

	finalized := ledger.FinalizeTotalCash(*position)
	if err := s.reports.SetCashPosition(ctx, &finalized, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: cash position cache write failed: %v", err)
	}
	return finalized, nil
}

func (s *Service) GetCashHistory(ctx context.Context, limit int) ([]domain.CashHistoryEntry, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListCashHistory(ctx, limit)
}

func (s *Service) GetMonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", store.ErrInvalidRecord, month)
	}

	if cached, ok, err := s.reports.GetMonthlySummary(ctx, year, month); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: monthly summary cache read failed: %v", err)
	}

	summary, err := s.repo.GetMonthlySummary(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if err := s.reports.SetMonthlySummary(ctx, year, month, summary, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: monthly summary cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) GetMonthlyReport(ctx context.Context, year, month int) (domain.MonthlyReportResponse, error) {
	summary, err := s.GetMonthlySummary(ctx, year, month)
	if err != nil {
		return domain.MonthlyReportResponse{}, err
	}
	breakdown, err := s.repo.ListDailyRecordsInMonth(ctx, year, month)
	if err != nil {
		return domain.MonthlyReportResponse{}, err
	}
	return domain.MonthlyReportResponse{
		Summary:        *summary,
		DailyBreakdown: breakdown,
	}, nil
}

func (s *Service) GetAnnualReport(ctx context.Context, year int) (domain.AnnualReportResponse, error) {
	summaries, err := s.repo.ListMonthlySummariesInYear(ctx, year)
	if err != nil {
		return domain.AnnualReportResponse{}, err
	}
	records, err := s.repo.ListDailyRecordsInYear(ctx, year)
	if err != nil {
		return domain.AnnualReportResponse{}, err
	}
	return domain.AnnualReportResponse{
		MonthlySummaries: summaries,
		AnnualTotal:      ledger.SumPeriodTotals(records),
	}, nil
}

// GetRiskAnalysis returns stored monthly summaries, newest first. When both
// year and month are given the result is filtered to that single month; an
// unmatched filter yields an empty list rather than ErrNotFound.
func (s *Service) GetRiskAnalysis(ctx context.Context, year, month int) ([]domain.MonthlySummary, error) {
	if year > 0 && month > 0 {
		summary, err := s.GetMonthlySummary(ctx, year, month)
		if errors.Is(err, store.ErrNotFound) {
			return []domain.MonthlySummary{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []domain.MonthlySummary{*summary}, nil
	}
	return s.repo.ListAllMonthlySummaries(ctx)
}

func (s *Service) GetDashboard(ctx context.Context) (domain.DashboardResponse, error) {
	now := time.Now().UTC()
	today := ledger.Midnight(now)

	var resp domain.DashboardResponse

	todayRecord, err := s.repo.FindDailyRecordByDate(ctx, today)
	if err == nil {
		totals := ledger.SumPeriodTotals([]domain.DailyRecord{*todayRecord})
		resp.Today = &totals
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.DashboardResponse{}, err
	}

	monthRecords, err := s.repo.ListDailyRecordsInMonth(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	resp.MTD = ledger.SumPeriodTotals(monthRecords)

	yearRecords, err := s.repo.ListDailyRecordsInYear(ctx, now.Year())
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	resp.YTD = ledger.SumPeriodTotals(yearRecords)

	position, err := s.GetCompanyCashPosition(ctx)
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	resp.CashPosition = position

	from := today.AddDate(0, 0, -30)
	trendRecords, _, err := s.repo.ListDailyRecords(ctx, &from, &today, 0, 31)
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	resp.Last30Days = make([]domain.TrendPoint, 0, len(trendRecords))
	for i := len(trendRecords) - 1; i >= 0; i-- {
		record := trendRecords[i]
		resp.Last30Days = append(resp.Last30Days, domain.TrendPoint{
			Date:              record.Date.Format("2006-01-02"),
			TotalRevenueCents: record.TotalCashRevenueCents,
			TotalInvoices:     record.TotalInvoices,
		})
	}

	return resp, nil
}

func (s *Service) GetProductPerformance(ctx context.Context, from, to *time.Time) (domain.ProductPerformanceResponse, error) {
	records, err := s.repo.ListAllDailyRecords(ctx)
	if err != nil {
		return domain.ProductPerformanceResponse{}, err
	}

	inRange := make([]domain.DailyRecord, 0, len(records))
	for _, record := range records {
		if from != nil && record.Date.Before(*from) {
			continue
		}
		if to != nil && record.Date.After(*to) {
			continue
		}
		inRange = append(inRange, record)
	}

	resp := domain.ProductPerformanceResponse{
		Products: ledger.SumProductPerformance(inRange),
	}
	if from != nil {
		resp.From = from.Format("2006-01-02")
	}
	if to != nil {
		resp.To = to.Format("2006-01-02")
	}
	return resp, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from, to time.Time, limit int) ([]domain.AuditLog, error) {
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) actor(ctx context.Context) domain.Actor {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{Username: "system", Role: "system"}
	}
	return actor
}

func (s *Service) logDataQuality(date time.Time, notes []string) {
	for _, note := range notes {
		log.Printf("[aggregate] WARN: entry %s: %s", date.Format("2006-01-02"), note)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor := s.actor(ctx)

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
