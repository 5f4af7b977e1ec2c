package cache

import (
	"context"
	"time"

	"salesledger/backend/internal/domain"
)

// ReportCache fronts the two read-heavy aggregates: the company cash
// position and per-month summaries. Every daily-record write invalidates the
// cash key plus the touched month's key; a miss falls through to the store.
type ReportCache interface {
	GetCashPosition(ctx context.Context) (*domain.CompanyCashPosition, bool, error)
	SetCashPosition(ctx context.Context, value *domain.CompanyCashPosition, ttl time.Duration) error
	GetMonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, bool, error)
	SetMonthlySummary(ctx context.Context, year, month int, value *domain.MonthlySummary, ttl time.Duration) error
	Invalidate(ctx context.Context, year, month int) error
}

type NoopReportCache struct{}

func (NoopReportCache) GetCashPosition(_ context.Context) (*domain.CompanyCashPosition, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) SetCashPosition(_ context.Context, _ *domain.CompanyCashPosition, _ time.Duration) error {
	return nil
}

func (NoopReportCache) GetMonthlySummary(_ context.Context, _, _ int) (*domain.MonthlySummary, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) SetMonthlySummary(_ context.Context, _, _ int, _ *domain.MonthlySummary, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context, _, _ int) error {
	return nil
}
