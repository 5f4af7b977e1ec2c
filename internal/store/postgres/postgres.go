package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salesledger/backend/internal/domain"
	"salesledger/backend/internal/store"
	"salesledger/backend/internal/xid"
)

// Store is the PostgreSQL Repository. Product lines and the category maps
// are stored as JSONB; the unique index on daily_records.date enforces the
// one-record-per-day constraint and 23505 maps to ErrDuplicateDate. The cash
// position lives in a single fixed row (id = 1).
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const dailyRecordColumns = `
	id, date, month, year, products, direct_costs, payments_received, expenses,
	misc_income_cents, misc_income_note, total_invoices, total_cash_revenue_cents,
	total_direct_costs_cents, total_expenses_cents, entered_by, last_modified_by,
	created_at, updated_at`

func (s *Store) CreateDailyRecord(ctx context.Context, record domain.DailyRecord) (*domain.DailyRecord, error) {
	if record.ID == "" {
		record.ID = xid.New("day")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	products, err := json.Marshal(record.Products)
	if err != nil {
		return nil, err
	}
	directCosts, err := json.Marshal(record.DirectCosts)
	if err != nil {
		return nil, err
	}
	payments, err := json.Marshal(record.PaymentsReceived)
	if err != nil {
		return nil, err
	}
	expenses, err := json.Marshal(record.Expenses)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_records (
			id, date, month, year, products, direct_costs, payments_received, expenses,
			misc_income_cents, misc_income_note, total_invoices, total_cash_revenue_cents,
			total_direct_costs_cents, total_expenses_cents, entered_by, last_modified_by,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, record.ID, record.Date, record.Month, record.Year, products, directCosts, payments, expenses,
		record.MiscIncomeCents, record.MiscIncomeNote, record.TotalInvoices, record.TotalCashRevenueCents,
		record.TotalDirectCostsCents, record.TotalExpensesCents, record.EnteredBy, record.LastModifiedBy,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateDate
		}
		return nil, err
	}

	created := record
	return &created, nil
}

func (s *Store) UpdateDailyRecord(ctx context.Context, record domain.DailyRecord) (*domain.DailyRecord, error) {
	products, err := json.Marshal(record.Products)
	if err != nil {
		return nil, err
	}
	directCosts, err := json.Marshal(record.DirectCosts)
	if err != nil {
		return nil, err
	}
	payments, err := json.Marshal(record.PaymentsReceived)
	if err != nil {
		return nil, err
	}
	expenses, err := json.Marshal(record.Expenses)
	if err != nil {
		return nil, err
	}
	record.UpdatedAt = time.Now().UTC()

	// Date, entered_by and created_at are immutable once written.
	res, err := s.db.ExecContext(ctx, `
		UPDATE daily_records
		SET products = $2, direct_costs = $3, payments_received = $4, expenses = $5,
			misc_income_cents = $6, misc_income_note = $7, total_invoices = $8,
			total_cash_revenue_cents = $9, total_direct_costs_cents = $10,
			total_expenses_cents = $11, last_modified_by = $12, month = $13, year = $14,
			updated_at = $15
		WHERE id = $1
	`, record.ID, products, directCosts, payments, expenses,
		record.MiscIncomeCents, record.MiscIncomeNote, record.TotalInvoices,
		record.TotalCashRevenueCents, record.TotalDirectCostsCents,
		record.TotalExpensesCents, record.LastModifiedBy, record.Month, record.Year,
		record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.FindDailyRecordByID(ctx, record.ID)
}

func (s *Store) DeleteDailyRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM daily_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindDailyRecordByID(ctx context.Context, id string) (*domain.DailyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_records
		WHERE id = $1
	`, id)
	return scanDailyRecordRow(row)
}

func (s *Store) FindDailyRecordByDate(ctx context.Context, date time.Time) (*domain.DailyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_records
		WHERE date = $1
	`, date)
	return scanDailyRecordRow(row)
}

func (s *Store) ListDailyRecords(ctx context.Context, from, to *time.Time, offset, limit int) ([]domain.DailyRecord, int, error) {
	if limit < 1 {
		limit = 31
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int
		FROM daily_records
		WHERE ($1::timestamptz IS NULL OR date >= $1)
			AND ($2::timestamptz IS NULL OR date <= $2)
	`, nullDatePtr(from), nullDatePtr(to)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_records
		WHERE ($1::timestamptz IS NULL OR date >= $1)
			AND ($2::timestamptz IS NULL OR date <= $2)
		ORDER BY date DESC
		OFFSET $3 LIMIT $4
	`, nullDatePtr(from), nullDatePtr(to), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := collectDailyRecords(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *Store) ListDailyRecordsInMonth(ctx context.Context, year, month int) ([]domain.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_records
		WHERE year = $1 AND month = $2
		ORDER BY date ASC
	`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDailyRecords(rows, 31)
}

func (s *Store) ListDailyRecordsInYear(ctx context.Context, year int) ([]domain.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_records
		WHERE year = $1
		ORDER BY date ASC
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDailyRecords(rows, 366)
}

func (s *Store) ListAllDailyRecords(ctx context.Context) ([]domain.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dailyRecordColumns+`
		FROM daily_records
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDailyRecords(rows, 512)
}

func (s *Store) GetCashPosition(ctx context.Context) (*domain.CompanyCashPosition, error) {
	var position domain.CompanyCashPosition
	var buckets []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT cash_by_product, other_income_cents, overall_debit_cents,
			total_company_cash_cents, last_updated
		FROM company_cash_position
		WHERE id = 1
	`).Scan(&buckets, &position.OtherIncomeCents, &position.OverallDebitCents,
		&position.TotalCompanyCashCents, &position.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(buckets, &position.CashByProduct); err != nil {
		return nil, err
	}
	position.LastUpdated = position.LastUpdated.UTC()
	return &position, nil
}

func (s *Store) SaveCashPosition(ctx context.Context, position domain.CompanyCashPosition) error {
	buckets, err := json.Marshal(position.CashByProduct)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO company_cash_position (
			id, cash_by_product, other_income_cents, overall_debit_cents,
			total_company_cash_cents, last_updated
		)
		VALUES (1,$1,$2,$3,$4,$5)
		ON CONFLICT (id)
		DO UPDATE SET cash_by_product = EXCLUDED.cash_by_product,
			other_income_cents = EXCLUDED.other_income_cents,
			overall_debit_cents = EXCLUDED.overall_debit_cents,
			total_company_cash_cents = EXCLUDED.total_company_cash_cents,
			last_updated = EXCLUDED.last_updated
	`, buckets, position.OtherIncomeCents, position.OverallDebitCents,
		position.TotalCompanyCashCents, position.LastUpdated)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_position_history (
			id, cash_by_product, other_income_cents, overall_debit_cents,
			total_company_cash_cents, recorded_at
		)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, xid.New("cash"), buckets, position.OtherIncomeCents, position.OverallDebitCents,
		position.TotalCompanyCashCents, position.LastUpdated)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) ListCashHistory(ctx context.Context, limit int) ([]domain.CashHistoryEntry, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cash_by_product, other_income_cents, overall_debit_cents,
			total_company_cash_cents, recorded_at
		FROM cash_position_history
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.CashHistoryEntry, 0, limit)
	for rows.Next() {
		var entry domain.CashHistoryEntry
		var buckets []byte
		if err := rows.Scan(&buckets, &entry.OtherIncomeCents, &entry.OverallDebitCents,
			&entry.TotalCompanyCashCents, &entry.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(buckets, &entry.CashByProduct); err != nil {
			return nil, err
		}
		entry.Timestamp = entry.Timestamp.UTC()
		entry.LastUpdated = entry.Timestamp
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) UpsertMonthlySummary(ctx context.Context, summary domain.MonthlySummary) error {
	products, err := json.Marshal(summary.Products)
	if err != nil {
		return err
	}
	buckets, err := json.Marshal(summary.CashByProduct)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monthly_summaries (
			year, month, products, total_monthly_revenue_cents, total_monthly_invoices,
			total_direct_costs_cents, total_expenses_cents, cash_by_product,
			total_cash_cents, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (year, month)
		DO UPDATE SET products = EXCLUDED.products,
			total_monthly_revenue_cents = EXCLUDED.total_monthly_revenue_cents,
			total_monthly_invoices = EXCLUDED.total_monthly_invoices,
			total_direct_costs_cents = EXCLUDED.total_direct_costs_cents,
			total_expenses_cents = EXCLUDED.total_expenses_cents,
			cash_by_product = EXCLUDED.cash_by_product,
			total_cash_cents = EXCLUDED.total_cash_cents,
			updated_at = EXCLUDED.updated_at
	`, summary.Year, summary.Month, products, summary.TotalMonthlyRevenueCents,
		summary.TotalMonthlyInvoices, summary.TotalDirectCostsCents, summary.TotalExpensesCents,
		buckets, summary.TotalCashCents, summary.UpdatedAt)
	return err
}

func (s *Store) GetMonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT year, month, products, total_monthly_revenue_cents, total_monthly_invoices,
			total_direct_costs_cents, total_expenses_cents, cash_by_product,
			total_cash_cents, updated_at
		FROM monthly_summaries
		WHERE year = $1 AND month = $2
	`, year, month)

	summary, err := scanMonthlySummary(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return summary, nil
}

func (s *Store) ListMonthlySummariesInYear(ctx context.Context, year int) ([]domain.MonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, products, total_monthly_revenue_cents, total_monthly_invoices,
			total_direct_costs_cents, total_expenses_cents, cash_by_product,
			total_cash_cents, updated_at
		FROM monthly_summaries
		WHERE year = $1
		ORDER BY month ASC
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.MonthlySummary, 0, 12)
	for rows.Next() {
		summary, err := scanMonthlySummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) ListAllMonthlySummaries(ctx context.Context) ([]domain.MonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, products, total_monthly_revenue_cents, total_monthly_invoices,
			total_direct_costs_cents, total_expenses_cents, cash_by_product,
			total_cash_cents, updated_at
		FROM monthly_summaries
		ORDER BY year DESC, month DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.MonthlySummary, 0, 24)
	for rows.Next() {
		summary, err := scanMonthlySummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyRecordRow(row rowScanner) (*domain.DailyRecord, error) {
	record, err := scanDailyRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func scanDailyRecord(scan func(dest ...any) error) (*domain.DailyRecord, error) {
	var record domain.DailyRecord
	var products, directCosts, payments, expenses []byte
	err := scan(
		&record.ID,
		&record.Date,
		&record.Month,
		&record.Year,
		&products,
		&directCosts,
		&payments,
		&expenses,
		&record.MiscIncomeCents,
		&record.MiscIncomeNote,
		&record.TotalInvoices,
		&record.TotalCashRevenueCents,
		&record.TotalDirectCostsCents,
		&record.TotalExpensesCents,
		&record.EnteredBy,
		&record.LastModifiedBy,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(products, &record.Products); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(directCosts, &record.DirectCosts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payments, &record.PaymentsReceived); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(expenses, &record.Expenses); err != nil {
		return nil, err
	}
	record.Date = record.Date.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}

func collectDailyRecords(rows *sql.Rows, sizeHint int) ([]domain.DailyRecord, error) {
	records := make([]domain.DailyRecord, 0, sizeHint)
	for rows.Next() {
		record, err := scanDailyRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanMonthlySummary(scan func(dest ...any) error) (*domain.MonthlySummary, error) {
	var summary domain.MonthlySummary
	var products, buckets []byte
	err := scan(
		&summary.Year,
		&summary.Month,
		&products,
		&summary.TotalMonthlyRevenueCents,
		&summary.TotalMonthlyInvoices,
		&summary.TotalDirectCostsCents,
		&summary.TotalExpensesCents,
		&buckets,
		&summary.TotalCashCents,
		&summary.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(products, &summary.Products); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(buckets, &summary.CashByProduct); err != nil {
		return nil, err
	}
	summary.UpdatedAt = summary.UpdatedAt.UTC()
	return &summary, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullDatePtr(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
