package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"salesledger/backend/internal/domain"
	"salesledger/backend/internal/store"
	"salesledger/backend/internal/xid"
)

// Store is the in-memory Repository used by tests and dev mode (no
// DATABASE_URL). Uniqueness on the record date is enforced through the
// recordIDByDate index under the same mutex that guards the writes.
type Store struct {
	mu             sync.RWMutex
	recordsByID    map[string]domain.DailyRecord
	recordIDByDate map[string]string
	cashPosition   *domain.CompanyCashPosition
	cashHistory    []domain.CashHistoryEntry
	summaries      map[string]domain.MonthlySummary
	auditLogs      []domain.AuditLog
}

func New() *Store {
	return &Store{
		recordsByID:    make(map[string]domain.DailyRecord),
		recordIDByDate: make(map[string]string),
		summaries:      make(map[string]domain.MonthlySummary),
		auditLogs:      make([]domain.AuditLog, 0, 128),
	}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func summaryKey(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (s *Store) CreateDailyRecord(_ context.Context, record domain.DailyRecord) (*domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(record.Date)
	if _, exists := s.recordIDByDate[key]; exists {
		return nil, store.ErrDuplicateDate
	}
	if record.ID == "" {
		record.ID = xid.New("day")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	s.recordsByID[record.ID] = cloneRecord(record)
	s.recordIDByDate[key] = record.ID
	created := cloneRecord(record)
	return &created, nil
}

func (s *Store) UpdateDailyRecord(_ context.Context, record domain.DailyRecord) (*domain.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.recordsByID[record.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	// Date is immutable on update; the stored one wins.
	record.Date = existing.Date
	record.CreatedAt = existing.CreatedAt
	record.EnteredBy = existing.EnteredBy
	record.UpdatedAt = time.Now().UTC()

	s.recordsByID[record.ID] = cloneRecord(record)
	updated := cloneRecord(record)
	return &updated, nil
}

func (s *Store) DeleteDailyRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.recordsByID[id]
	if !exists {
		return store.ErrNotFound
	}
	delete(s.recordsByID, id)
	delete(s.recordIDByDate, dateKey(record.Date))
	return nil
}

func (s *Store) FindDailyRecordByID(_ context.Context, id string) (*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.recordsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneRecord(record)
	return &found, nil
}

func (s *Store) FindDailyRecordByDate(_ context.Context, date time.Time) (*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.recordIDByDate[dateKey(date)]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneRecord(s.recordsByID[id])
	return &found, nil
}

func (s *Store) ListDailyRecords(_ context.Context, from, to *time.Time, offset, limit int) ([]domain.DailyRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.DailyRecord, 0, len(s.recordsByID))
	for _, record := range s.recordsByID {
		if from != nil && record.Date.Before(*from) {
			continue
		}
		if to != nil && record.Date.After(*to) {
			continue
		}
		matched = append(matched, cloneRecord(record))
	}
	sortByDateDesc(matched)

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.DailyRecord{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *Store) ListDailyRecordsInMonth(_ context.Context, year, month int) ([]domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.DailyRecord, 0, 31)
	for _, record := range s.recordsByID {
		if record.Year != year || record.Month != month {
			continue
		}
		matched = append(matched, cloneRecord(record))
	}
	sortByDateAsc(matched)
	return matched, nil
}

func (s *Store) ListDailyRecordsInYear(_ context.Context, year int) ([]domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.DailyRecord, 0, 366)
	for _, record := range s.recordsByID {
		if record.Year != year {
			continue
		}
		matched = append(matched, cloneRecord(record))
	}
	sortByDateAsc(matched)
	return matched, nil
}

func (s *Store) ListAllDailyRecords(_ context.Context) ([]domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.DailyRecord, 0, len(s.recordsByID))
	for _, record := range s.recordsByID {
		all = append(all, cloneRecord(record))
	}
	sortByDateAsc(all)
	return all, nil
}

func (s *Store) GetCashPosition(_ context.Context) (*domain.CompanyCashPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cashPosition == nil {
		return nil, store.ErrNotFound
	}
	position := clonePosition(*s.cashPosition)
	return &position, nil
}

func (s *Store) SaveCashPosition(_ context.Context, position domain.CompanyCashPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := clonePosition(position)
	s.cashPosition = &saved
	s.cashHistory = append(s.cashHistory, domain.CashHistoryEntry{
		CompanyCashPosition: clonePosition(position),
		Timestamp:           position.LastUpdated,
	})
	return nil
}

func (s *Store) ListCashHistory(_ context.Context, limit int) ([]domain.CashHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashHistoryEntry, 0, len(s.cashHistory))
	for _, entry := range s.cashHistory {
		dup := entry
		dup.CompanyCashPosition = clonePosition(entry.CompanyCashPosition)
		result = append(result, dup)
	}
	slices.SortFunc(result, func(a, b domain.CashHistoryEntry) int {
		if a.Timestamp.Equal(b.Timestamp) {
			return 0
		}
		if a.Timestamp.After(b.Timestamp) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) UpsertMonthlySummary(_ context.Context, summary domain.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[summaryKey(summary.Year, summary.Month)] = cloneSummary(summary)
	return nil
}

func (s *Store) GetMonthlySummary(_ context.Context, year, month int) (*domain.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, exists := s.summaries[summaryKey(year, month)]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneSummary(summary)
	return &found, nil
}

func (s *Store) ListMonthlySummariesInYear(_ context.Context, year int) ([]domain.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MonthlySummary, 0, 12)
	for _, summary := range s.summaries {
		if summary.Year != year {
			continue
		}
		result = append(result, cloneSummary(summary))
	}
	slices.SortFunc(result, func(a, b domain.MonthlySummary) int {
		return a.Month - b.Month
	})
	return result, nil
}

func (s *Store) ListAllMonthlySummaries(_ context.Context) ([]domain.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MonthlySummary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		result = append(result, cloneSummary(summary))
	}
	slices.SortFunc(result, func(a, b domain.MonthlySummary) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortByDateAsc(records []domain.DailyRecord) {
	slices.SortFunc(records, func(a, b domain.DailyRecord) int {
		if a.Date.Equal(b.Date) {
			return cmpString(a.ID, b.ID)
		}
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	})
}

func sortByDateDesc(records []domain.DailyRecord) {
	slices.SortFunc(records, func(a, b domain.DailyRecord) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneRecord(src domain.DailyRecord) domain.DailyRecord {
	dup := src
	dup.Products = make(map[string]domain.ProductLine, len(src.Products))
	for key, line := range src.Products {
		lineDup := line
		lineDup.Expenses = cloneAmounts(line.Expenses)
		dup.Products[key] = lineDup
	}
	dup.DirectCosts = cloneAmounts(src.DirectCosts)
	dup.PaymentsReceived = cloneAmounts(src.PaymentsReceived)
	dup.Expenses = cloneAmounts(src.Expenses)
	return dup
}

func clonePosition(src domain.CompanyCashPosition) domain.CompanyCashPosition {
	dup := src
	dup.CashByProduct = cloneAmounts(src.CashByProduct)
	return dup
}

func cloneSummary(src domain.MonthlySummary) domain.MonthlySummary {
	dup := src
	dup.Products = make(map[string]domain.ProductMonthly, len(src.Products))
	for key, entry := range src.Products {
		dup.Products[key] = entry
	}
	dup.CashByProduct = cloneAmounts(src.CashByProduct)
	return dup
}

func cloneAmounts(src map[string]int64) map[string]int64 {
	if src == nil {
		return nil
	}
	dup := make(map[string]int64, len(src))
	for key, value := range src {
		dup[key] = value
	}
	return dup
}
