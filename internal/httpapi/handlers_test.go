package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salesledger/backend/internal/cache"
	"salesledger/backend/internal/domain"
	"salesledger/backend/internal/service"
	"salesledger/backend/internal/store/memory"
)

func newTestAPI() *API {
	svc := service.New(memory.New(), cache.NoopReportCache{}, time.Minute)
	return New(svc, NewTokenVerifier("test-secret"), "http://localhost:5173")
}

func tokenFor(t *testing.T, username, role string) string {
	t.Helper()
	return signToken(t, "test-secret", username, role, time.Now().Add(time.Hour))
}

func doRequest(t *testing.T, api *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-CSRF-Token", api.generateCSRFToken())

	recorder := httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func salePayload(date string, cashRevenueCents int64) map[string]any {
	return map[string]any{
		"date": date,
		"products": map[string]any{
			domain.ProductChips: map[string]any{"cashRevenue": cashRevenueCents},
		},
	}
}

func TestCreateDailySaleComputesTotals(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 50000))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		DailyRecord domain.DailyRecord `json:"dailyRecord"`
	}
	decodeBody(t, resp, &body)
	if body.DailyRecord.TotalCashRevenueCents != 50000 {
		t.Fatalf("expected totalCashRevenue 50000, got %d", body.DailyRecord.TotalCashRevenueCents)
	}
	if body.DailyRecord.EnteredBy != "budi" {
		t.Fatalf("expected enteredBy budi, got %q", body.DailyRecord.EnteredBy)
	}
}

func TestDataEntryScopedToToday(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)
	siti := tokenFor(t, "siti", domain.RoleDataEntry)

	today := time.Now().UTC().Format("2006-01-02")
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", siti, salePayload(yesterday, 100)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for data entry backdating, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", siti, salePayload(today, 50000)); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for data entry today, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload(yesterday, 70000)); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin backdated entry, got %d: %s", resp.Code, resp.Body.String())
	}

	// The listing collapses to today for data entry staff.
	listResp := doRequest(t, api, http.MethodGet, "/api/v1/daily-sales", siti, nil)
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for data entry list, got %d", listResp.Code)
	}
	var list domain.DailyRecordListResponse
	decodeBody(t, listResp, &list)
	if list.Total != 1 || len(list.DailySales) != 1 {
		t.Fatalf("expected data entry to see only today's record, got total=%d", list.Total)
	}
	if got := list.DailySales[0].Date.Format("2006-01-02"); got != today {
		t.Fatalf("expected today's record, got %s", got)
	}

	now := time.Now().UTC()
	monthPath := "/api/v1/daily-sales/month/" + now.Format("2006") + "/" + now.Format("1")
	if resp := doRequest(t, api, http.MethodGet, monthPath, siti, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for data entry month view, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodGet, "/api/v1/daily-sales/date/"+yesterday, siti, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for data entry viewing yesterday, got %d", resp.Code)
	}
}

func TestDataEntryEditsOwnTodayRecordOnly(t *testing.T) {
	api := newTestAPI()
	siti := tokenFor(t, "siti", domain.RoleDataEntry)
	rina := tokenFor(t, "rina", domain.RoleDataEntry)

	today := time.Now().UTC().Format("2006-01-02")
	createResp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", siti, salePayload(today, 50000))
	if createResp.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", createResp.Code, createResp.Body.String())
	}
	var created struct {
		DailyRecord domain.DailyRecord `json:"dailyRecord"`
	}
	decodeBody(t, createResp, &created)
	recordPath := "/api/v1/daily-sales/" + created.DailyRecord.ID

	if resp := doRequest(t, api, http.MethodPut, recordPath, rina, salePayload(today, 60000)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for edit of another user's record, got %d", resp.Code)
	}

	editResp := doRequest(t, api, http.MethodPut, recordPath, siti, salePayload(today, 60000))
	if editResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for own record edit, got %d: %s", editResp.Code, editResp.Body.String())
	}
	var edited struct {
		DailyRecord domain.DailyRecord `json:"dailyRecord"`
	}
	decodeBody(t, editResp, &edited)
	if edited.DailyRecord.TotalCashRevenueCents != 60000 {
		t.Fatalf("expected recomputed revenue 60000, got %d", edited.DailyRecord.TotalCashRevenueCents)
	}
	if edited.DailyRecord.LastModifiedBy != "siti" {
		t.Fatalf("expected lastModifiedBy siti, got %q", edited.DailyRecord.LastModifiedBy)
	}
}

func TestManagerIsReadOnly(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)
	manager := tokenFor(t, "dewi", domain.RoleManager)

	createResp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 50000))
	if createResp.Code != http.StatusCreated {
		t.Fatalf("create: %d", createResp.Code)
	}
	var created struct {
		DailyRecord domain.DailyRecord `json:"dailyRecord"`
	}
	decodeBody(t, createResp, &created)
	recordPath := "/api/v1/daily-sales/" + created.DailyRecord.ID

	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", manager, salePayload("2025-03-02", 100)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager create, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodPut, recordPath, manager, salePayload("2025-03-01", 100)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager edit, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodDelete, recordPath, manager, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager delete, got %d", resp.Code)
	}

	if resp := doRequest(t, api, http.MethodGet, "/api/v1/reports/dashboard", manager, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager dashboard, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := doRequest(t, api, http.MethodGet, "/api/v1/company-cash", manager, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager company cash, got %d", resp.Code)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)
	siti := tokenFor(t, "siti", domain.RoleDataEntry)

	createResp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 50000))
	var created struct {
		DailyRecord domain.DailyRecord `json:"dailyRecord"`
	}
	decodeBody(t, createResp, &created)
	recordPath := "/api/v1/daily-sales/" + created.DailyRecord.ID

	if resp := doRequest(t, api, http.MethodDelete, recordPath, siti, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for data entry delete, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodDelete, recordPath, admin, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin delete, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodGet, recordPath, admin, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestStatusMapping(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 100)); resp.Code != http.StatusCreated {
		t.Fatalf("create: %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 200)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate date, got %d", resp.Code)
	}

	future := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload(future, 100)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for future date, got %d", resp.Code)
	}

	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("not-a-date", 100)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage date, got %d", resp.Code)
	}

	if resp := doRequest(t, api, http.MethodGet, "/api/v1/daily-sales/day_missing", admin, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodGet, "/api/v1/daily-sales/date/2024-01-01", admin, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent date, got %d", resp.Code)
	}
}

func TestReportRoleScoping(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)
	manager := tokenFor(t, "dewi", domain.RoleManager)
	siti := tokenFor(t, "siti", domain.RoleDataEntry)

	reportPaths := []string{
		"/api/v1/reports/dashboard",
		"/api/v1/reports/cash-position",
		"/api/v1/reports/product-performance",
		"/api/v1/reports/risk-analysis",
		"/api/v1/company-cash",
		"/api/v1/company-cash/history",
	}
	for _, path := range reportPaths {
		if resp := doRequest(t, api, http.MethodGet, path, siti, nil); resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for data entry on %s, got %d", path, resp.Code)
		}
		if resp := doRequest(t, api, http.MethodGet, path, manager, nil); resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for manager on %s, got %d: %s", path, resp.Code, resp.Body.String())
		}
	}

	if resp := doRequest(t, api, http.MethodGet, "/api/v1/audit-logs", manager, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager audit logs, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodGet, "/api/v1/audit-logs", admin, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin audit logs, got %d", resp.Code)
	}
}

func TestRiskAnalysisListsStoredSummaries(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-02-10", 30000)); resp.Code != http.StatusCreated {
		t.Fatalf("create feb: %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 50000)); resp.Code != http.StatusCreated {
		t.Fatalf("create mar: %d", resp.Code)
	}

	var body struct {
		MonthlySummaries []domain.MonthlySummary `json:"monthlySummaries"`
	}

	resp := doRequest(t, api, http.MethodGet, "/api/v1/reports/risk-analysis", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	decodeBody(t, resp, &body)
	if len(body.MonthlySummaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(body.MonthlySummaries))
	}
	if body.MonthlySummaries[0].Month != 3 || body.MonthlySummaries[1].Month != 2 {
		t.Fatalf("expected newest first, got months %d,%d", body.MonthlySummaries[0].Month, body.MonthlySummaries[1].Month)
	}

	resp = doRequest(t, api, http.MethodGet, "/api/v1/reports/risk-analysis?year=2025&month=2", admin, nil)
	decodeBody(t, resp, &body)
	if len(body.MonthlySummaries) != 1 || body.MonthlySummaries[0].Month != 2 {
		t.Fatalf("expected only february, got %+v", body.MonthlySummaries)
	}

	resp = doRequest(t, api, http.MethodGet, "/api/v1/reports/risk-analysis?year=2025&month=7", admin, nil)
	decodeBody(t, resp, &body)
	if len(body.MonthlySummaries) != 0 {
		t.Fatalf("expected empty list for an unmatched filter, got %+v", body.MonthlySummaries)
	}

	if resp := doRequest(t, api, http.MethodGet, "/api/v1/reports/risk-analysis?year=banana&month=2", admin, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad year, got %d", resp.Code)
	}
}

func TestMonthlyReport(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload("2025-03-01", 50000)); resp.Code != http.StatusCreated {
		t.Fatalf("create: %d", resp.Code)
	}

	jsonResp := doRequest(t, api, http.MethodGet, "/api/v1/reports/monthly/2025/3", admin, nil)
	if jsonResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for monthly report, got %d: %s", jsonResp.Code, jsonResp.Body.String())
	}
	var report domain.MonthlyReportResponse
	decodeBody(t, jsonResp, &report)
	if report.Summary.TotalMonthlyRevenueCents != 50000 {
		t.Fatalf("expected summary revenue 50000, got %d", report.Summary.TotalMonthlyRevenueCents)
	}
	if len(report.DailyBreakdown) != 1 {
		t.Fatalf("expected 1 day in breakdown, got %d", len(report.DailyBreakdown))
	}

	if resp := doRequest(t, api, http.MethodGet, "/api/v1/reports/monthly/2025/4", admin, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty month, got %d", resp.Code)
	}
	if resp := doRequest(t, api, http.MethodGet, "/api/v1/reports/monthly/2025/13", admin, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for month 13, got %d", resp.Code)
	}
}

func TestAnnualReportAggregatesYear(t *testing.T) {
	api := newTestAPI()
	admin := tokenFor(t, "budi", domain.RoleAdmin)

	for _, entry := range []struct {
		date    string
		revenue int64
	}{
		{"2025-03-01", 50000},
		{"2025-04-01", 70000},
	} {
		if resp := doRequest(t, api, http.MethodPost, "/api/v1/daily-sales", admin, salePayload(entry.date, entry.revenue)); resp.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", entry.date, resp.Code)
		}
	}

	resp := doRequest(t, api, http.MethodGet, "/api/v1/reports/annual/2025", admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var report domain.AnnualReportResponse
	decodeBody(t, resp, &report)
	if len(report.MonthlySummaries) != 2 {
		t.Fatalf("expected 2 monthly summaries, got %d", len(report.MonthlySummaries))
	}
	if report.AnnualTotal.TotalRevenueCents != 120000 {
		t.Fatalf("expected annual revenue 120000, got %d", report.AnnualTotal.TotalRevenueCents)
	}
}
