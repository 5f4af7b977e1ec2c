package store

import (
	"context"
	"errors"
	"time"

	"salesledger/backend/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced record or summary does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateDate is returned when a daily record already exists for the
	// target calendar date. The existing record is left untouched.
	ErrDuplicateDate = errors.New("daily record already exists for this date")
	// ErrInvalidRecord is returned for malformed or out-of-range input.
	ErrInvalidRecord = errors.New("invalid daily record")
	// ErrFutureDate is returned when the target date is after the current date.
	ErrFutureDate = errors.New("cannot enter data for future dates")
)

// Repository is the durable store of daily records, the company cash
// position singleton, and monthly summaries. Implementations must enforce
// the one-record-per-date uniqueness constraint on daily records.
type Repository interface {
	CreateDailyRecord(ctx context.Context, record domain.DailyRecord) (*domain.DailyRecord, error)
	UpdateDailyRecord(ctx context.Context, record domain.DailyRecord) (*domain.DailyRecord, error)
	DeleteDailyRecord(ctx context.Context, id string) error
	FindDailyRecordByID(ctx context.Context, id string) (*domain.DailyRecord, error)
	FindDailyRecordByDate(ctx context.Context, date time.Time) (*domain.DailyRecord, error)
	ListDailyRecords(ctx context.Context, from, to *time.Time, offset, limit int) ([]domain.DailyRecord, int, error)
	ListDailyRecordsInMonth(ctx context.Context, year, month int) ([]domain.DailyRecord, error)
	ListDailyRecordsInYear(ctx context.Context, year int) ([]domain.DailyRecord, error)
	ListAllDailyRecords(ctx context.Context) ([]domain.DailyRecord, error)

	// GetCashPosition returns ErrNotFound when no position has been persisted
	// yet; callers lazily initialize a zero position in that case.
	GetCashPosition(ctx context.Context) (*domain.CompanyCashPosition, error)
	SaveCashPosition(ctx context.Context, position domain.CompanyCashPosition) error
	ListCashHistory(ctx context.Context, limit int) ([]domain.CashHistoryEntry, error)

	UpsertMonthlySummary(ctx context.Context, summary domain.MonthlySummary) error
	GetMonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, error)
	ListMonthlySummariesInYear(ctx context.Context, year int) ([]domain.MonthlySummary, error)
	ListAllMonthlySummaries(ctx context.Context) ([]domain.MonthlySummary, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from, to time.Time, limit int) ([]domain.AuditLog, error)
}
