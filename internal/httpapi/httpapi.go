package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"salesledger/backend/internal/domain"
	"salesledger/backend/internal/ledger"
	"salesledger/backend/internal/service"
	"salesledger/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *TokenVerifier
	allowedOrigin string
	writeLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *TokenVerifier, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		writeLimiter:  newAttemptLimiter(30, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/daily-sales", a.requireAuth(a.handleDailySales, domain.RoleDataEntry, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/daily-sales/", a.requireAuth(a.handleDailySalesActions, domain.RoleDataEntry, domain.RoleManager, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/company-cash", a.requireAuth(a.handleCompanyCash, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/company-cash/history", a.requireAuth(a.handleCashHistory, domain.RoleManager, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/reports/dashboard", a.requireAuth(a.handleDashboard, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/monthly/", a.requireAuth(a.handleMonthlyReport, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/annual/", a.requireAuth(a.handleAnnualReport, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/cash-position", a.requireAuth(a.handleCashPositionReport, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/product-performance", a.requireAuth(a.handleProductPerformance, domain.RoleManager, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/risk-analysis", a.requireAuth(a.handleRiskAnalysis, domain.RoleManager, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// checkCSRF enforces CSRF token validation for state-changing methods (POST/PUT/PATCH).
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return true
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func todayUTC() time.Time {
	return ledger.Midnight(time.Now().UTC())
}

func (a *API) handleDailySales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDailySales(w, r)
	case http.MethodPost:
		a.createDailySale(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) listDailySales(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())

	page := parsePositiveLimit(r.URL.Query().Get("page"), 1, 0)
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 31, 100)

	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Data entry staff only ever see the day they are filling in.
	if actor.Role == domain.RoleDataEntry {
		today := todayUTC()
		from, to = &today, &today
		page = 1
	}

	resp, err := a.service.ListDailyRecords(r.Context(), from, to, page, limit)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) createDailySale(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role == domain.RoleManager {
		writeError(w, http.StatusForbidden, errors.New("managers cannot record daily sales"))
		return
	}

	var req domain.DailyEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if actor.Role == domain.RoleDataEntry {
		date, err := ledger.ParseEntryDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !date.Equal(todayUTC()) {
			writeError(w, http.StatusForbidden, errors.New("data entry may only record today's sales"))
			return
		}
	}

	created, err := a.service.CreateDailyRecord(r.Context(), req)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"dailyRecord": created})
}

func (a *API) handleDailySalesActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/daily-sales/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusBadRequest, errors.New("invalid daily sales path"))
		return
	}

	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("daily record id required"))
		return
	}

	if rawDate, ok := strings.CutPrefix(tail, "date/"); ok {
		a.getDailySaleByDate(w, r, strings.Trim(rawDate, "/"))
		return
	}
	if monthPath, ok := strings.CutPrefix(tail, "month/"); ok {
		a.getDailySalesByMonth(w, r, strings.Trim(monthPath, "/"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getDailySale(w, r, tail)
	case http.MethodPut:
		a.updateDailySale(w, r, tail)
	case http.MethodDelete:
		a.deleteDailySale(w, r, tail)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) getDailySale(w http.ResponseWriter, r *http.Request, id string) {
	record, err := a.service.GetDailyRecord(r.Context(), id)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role == domain.RoleDataEntry && !record.Date.Equal(todayUTC()) {
		writeError(w, http.StatusForbidden, errors.New("data entry may only view today's record"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dailyRecord": record})
}

func (a *API) getDailySaleByDate(w http.ResponseWriter, r *http.Request, rawDate string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if rawDate == "" {
		writeError(w, http.StatusBadRequest, errors.New("date required"))
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role == domain.RoleDataEntry && rawDate != todayUTC().Format("2006-01-02") {
		writeError(w, http.StatusForbidden, errors.New("data entry may only view today's record"))
		return
	}

	record, err := a.service.GetDailyRecordByDate(r.Context(), rawDate)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dailyRecord": record})
}

func (a *API) getDailySalesByMonth(w http.ResponseWriter, r *http.Request, monthPath string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role == domain.RoleDataEntry {
		writeError(w, http.StatusForbidden, errors.New("data entry may only view today's record"))
		return
	}

	year, month, err := parseYearMonthPath(monthPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := a.service.ListDailyRecordsByMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dailySales": records})
}

func (a *API) updateDailySale(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role == domain.RoleManager {
		writeError(w, http.StatusForbidden, errors.New("managers cannot edit daily sales"))
		return
	}

	if actor.Role == domain.RoleDataEntry {
		existing, err := a.service.GetDailyRecord(r.Context(), id)
		if err != nil {
			writeError(w, recordErrorStatus(err), err)
			return
		}
		if !existing.Date.Equal(todayUTC()) {
			writeError(w, http.StatusForbidden, errors.New("data entry may only edit today's record"))
			return
		}
		if existing.EnteredBy != actor.Username {
			writeError(w, http.StatusForbidden, errors.New("data entry may only edit their own record"))
			return
		}
	}

	var req domain.DailyEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := a.service.UpdateDailyRecord(r.Context(), id, req)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dailyRecord": updated})
}

func (a *API) deleteDailySale(w http.ResponseWriter, r *http.Request, id string) {
	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, errors.New("admin role required"))
		return
	}

	if err := a.service.DeleteDailyRecord(r.Context(), id); err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleCompanyCash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	position, err := a.service.GetCompanyCashPosition(r.Context())
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cashPosition": position})
}

func (a *API) handleCashHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	history, err := a.service.GetCashHistory(r.Context(), limit)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	dashboard, err := a.service.GetDashboard(r.Context())
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (a *API) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/reports/monthly/"
	year, month, err := parseYearMonthPath(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := a.service.GetMonthlyReport(r.Context(), year, month)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleAnnualReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/reports/annual/"
	rawYear := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	year, err := strconv.Atoi(rawYear)
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", rawYear))
		return
	}

	report, err := a.service.GetAnnualReport(r.Context(), year)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleCashPositionReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	position, err := a.service.GetCompanyCashPosition(r.Context())
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cashPosition": position})
}

func (a *API) handleProductPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.GetProductPerformance(r.Context(), from, to)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	// The filter applies only when both year and month are present.
	var year, month int
	if rawYear, rawMonth := r.URL.Query().Get("year"), r.URL.Query().Get("month"); rawYear != "" && rawMonth != "" {
		var err error
		year, err = strconv.Atoi(rawYear)
		if err != nil || year < 2000 || year > 2200 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year %q", rawYear))
			return
		}
		month, err = strconv.Atoi(rawMonth)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid month %q", rawMonth))
			return
		}
	}

	summaries, err := a.service.GetRiskAnalysis(r.Context(), year, month)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"monthlySummaries": summaries})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	var from, to time.Time
	if fromParam, err := parseDateParam(r.URL.Query().Get("from")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	} else if fromParam != nil {
		from = *fromParam
	}
	if toParam, err := parseDateParam(r.URL.Query().Get("to")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	} else if toParam != nil {
		// Inclusive day bound.
		to = toParam.AddDate(0, 0, 1)
	}

	logs, err := a.service.ListAuditLogs(r.Context(), from, to, limit)
	if err != nil {
		writeError(w, recordErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete {
			if !a.writeLimiter.Allow("write:" + clientKey(r)) {
				writeError(w, http.StatusTooManyRequests, errors.New("too many write requests"))
				return
			}
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func recordErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidRecord),
		errors.Is(err, store.ErrDuplicateDate),
		errors.Is(err, store.ErrFutureDate):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func parseDateParam(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	date, err := ledger.ParseEntryDate(trimmed)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func parseYearMonthPath(tail string) (int, int, error) {
	parts := strings.Split(tail, "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected year/month path, got %q", tail)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 2000 || year > 2200 {
		return 0, 0, fmt.Errorf("invalid year %q", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", parts[1])
	}
	return year, month, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
