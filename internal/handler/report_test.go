package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shxhid-in/ESSAR/internal/models"

	"github.com/gin-gonic/gin"
)

func performReport(t *testing.T, fn gin.HandlerFunc, target string) map[string]interface{} {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	fn(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != 0 {
		t.Fatalf("business code = %d, body = %s", body.Code, w.Body.String())
	}
	return body.Data
}

func TestCurrencyConverter(t *testing.T) {
	db := setupTestDB(t)
	cv := newCurrencyConverter(db)

	// seeded rates: USD 83.5, base INR at 1.0
	if got := cv.toBase(100, "USD"); got != 8350 {
		t.Errorf("toBase(100, USD) = %v, want 8350", got)
	}

	// identity conversion must not touch the amount
	if got := cv.toBase(500, "INR"); got != 500 {
		t.Errorf("toBase(500, INR) = %v, want 500", got)
	}

	// unknown currency fails open: amount comes back unconverted
	if got := cv.toBase(42, "XXX"); got != 42 {
		t.Errorf("toBase(42, XXX) = %v, want 42", got)
	}
}

func TestCurrencyConverterMissingBaseRate(t *testing.T) {
	cv := &currencyConverter{base: "INR", rates: map[string]float64{"USD": 83.5}}
	if got := cv.toBase(100, "USD"); got != 100 {
		t.Errorf("toBase with missing base rate = %v, want fail-open 100", got)
	}
}

// seedReportData creates one 100 USD invoice and one 500 INR invoice.
// With the seeded rates and INR base that is 8350 + 500 = 8850 total.
func seedReportData(t *testing.T, h *InvoiceHandler) {
	t.Helper()

	usd := invoiceDraftReq{
		CustomerName: "John Smith",
		Currency:     "USD",
		Items:        []invoiceItemReq{{ServiceName: "Flight Booking", Price: 100}},
	}
	inr := invoiceDraftReq{
		CustomerName: "Jane Doe",
		Currency:     "INR",
		Items:        []invoiceItemReq{{ServiceName: "Visa Processing", Price: 500}},
	}
	for _, draft := range []invoiceDraftReq{usd, inr} {
		if _, _, errs, err := h.createInvoice(draft); len(errs) > 0 || err != nil {
			t.Fatalf("seed invoice failed: errs=%v err=%v", errs, err)
		}
	}
}

func TestIntegration_BusinessKPIs(t *testing.T) {
	h := newTestInvoiceHandler(t)
	seedReportData(t, h)
	r := NewReportHandler(h.DB, h.Cipher)

	data := performReport(t, r.GetBusinessKPIs, "/api/reports/kpis")

	if got := data["total_revenue"].(float64); got != 8850 {
		t.Errorf("total_revenue = %v, want 8850", got)
	}
	if got := data["total_invoices"].(float64); got != 2 {
		t.Errorf("total_invoices = %v, want 2", got)
	}
	if got := data["avg_invoice_value"].(float64); got != 4425 {
		t.Errorf("avg_invoice_value = %v, want 4425", got)
	}
	// no purchase prices recorded, so profit equals revenue
	if got := data["total_profit"].(float64); got != 8850 {
		t.Errorf("total_profit = %v, want 8850", got)
	}
}

func TestIntegration_KPIServicesCountBookedOnly(t *testing.T) {
	h := newTestInvoiceHandler(t)
	r := NewReportHandler(h.DB, h.Cipher)

	// the seeded catalog has five services, but none are booked yet
	data := performReport(t, r.GetBusinessKPIs, "/api/reports/kpis")
	if got := data["total_services"].(float64); got != 0 {
		t.Errorf("total_services = %v with zero invoices, want 0", got)
	}

	seedReportData(t, h)
	data = performReport(t, r.GetBusinessKPIs, "/api/reports/kpis")
	if got := data["total_services"].(float64); got != 2 {
		t.Errorf("total_services = %v, want 2 distinct booked services", got)
	}
}

func TestIntegration_KPIDateRange(t *testing.T) {
	h := newTestInvoiceHandler(t)
	seedReportData(t, h)
	r := NewReportHandler(h.DB, h.Cipher)

	// push the USD invoice into the past, then window it out
	backdate := time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)
	if err := h.DB.Model(&models.Invoice{}).
		Where("currency = ?", "USD").
		Update("invoice_date", backdate).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	data := performReport(t, r.GetBusinessKPIs, "/api/reports/kpis?from=2024-01-01")
	if got := data["total_invoices"].(float64); got != 1 {
		t.Errorf("total_invoices = %v in window, want 1", got)
	}
	if got := data["total_revenue"].(float64); got != 500 {
		t.Errorf("total_revenue = %v in window, want 500 (INR invoice only)", got)
	}

	data = performReport(t, r.GetBusinessKPIs, "/api/reports/kpis?to=2021-12-31")
	if got := data["total_revenue"].(float64); got != 8350 {
		t.Errorf("total_revenue = %v before cutoff, want 8350 (USD invoice only)", got)
	}
}

func TestIntegration_RevenueSeries(t *testing.T) {
	h := newTestInvoiceHandler(t)
	seedReportData(t, h)
	r := NewReportHandler(h.DB, h.Cipher)

	data := performReport(t, r.GetRevenueSeries, "/api/reports/revenue?period=month")
	series := data["series"].([]interface{})
	if len(series) != 1 {
		t.Fatalf("bucket count = %d, want 1 (both invoices this month)", len(series))
	}
	bucket := series[0].(map[string]interface{})
	if got := bucket["total"].(float64); got != 8850 {
		t.Errorf("bucket total = %v, want 8850", got)
	}
	if got := bucket["count"].(float64); got != 2 {
		t.Errorf("bucket count = %v, want 2", got)
	}
}

func TestIntegration_RevenueSeriesDateRange(t *testing.T) {
	h := newTestInvoiceHandler(t)
	seedReportData(t, h)
	r := NewReportHandler(h.DB, h.Cipher)

	backdate := time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)
	if err := h.DB.Model(&models.Invoice{}).
		Where("currency = ?", "USD").
		Update("invoice_date", backdate).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	data := performReport(t, r.GetRevenueSeries, "/api/reports/revenue?period=year")
	if series := data["series"].([]interface{}); len(series) != 2 {
		t.Fatalf("bucket count = %d without window, want 2", len(series))
	}

	data = performReport(t, r.GetRevenueSeries, "/api/reports/revenue?period=year&from=2024-01-01")
	series := data["series"].([]interface{})
	if len(series) != 1 {
		t.Fatalf("bucket count = %d in window, want 1", len(series))
	}
	bucket := series[0].(map[string]interface{})
	if got := bucket["total"].(float64); got != 500 {
		t.Errorf("windowed total = %v, want 500 (backdated invoice excluded)", got)
	}
}

func TestIntegration_RevenueSeriesBadPeriod(t *testing.T) {
	h := newTestInvoiceHandler(t)
	r := NewReportHandler(h.DB, h.Cipher)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/reports/revenue?period=decade", nil)
	r.GetRevenueSeries(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for unknown period, want 400", w.Code)
	}
}

func TestIntegration_TopCustomersGroupsDecryptedNames(t *testing.T) {
	h := newTestInvoiceHandler(t)
	r := NewReportHandler(h.DB, h.Cipher)

	// two invoices for the same customer: stored ciphertexts differ per
	// row, so only decrypted grouping can merge them
	for i := 0; i < 2; i++ {
		draft := invoiceDraftReq{
			CustomerName: "John Smith",
			Currency:     "INR",
			Items:        []invoiceItemReq{{ServiceName: "Flight Booking", Price: 1000}},
		}
		if _, _, errs, err := h.createInvoice(draft); len(errs) > 0 || err != nil {
			t.Fatalf("seed invoice failed: errs=%v err=%v", errs, err)
		}
	}
	other := invoiceDraftReq{
		CustomerName: "Jane Doe",
		Currency:     "INR",
		Items:        []invoiceItemReq{{ServiceName: "Visa Processing", Price: 300}},
	}
	if _, _, errs, err := h.createInvoice(other); len(errs) > 0 || err != nil {
		t.Fatalf("seed invoice failed: errs=%v err=%v", errs, err)
	}

	data := performReport(t, r.GetTopCustomers, "/api/reports/customers/top")
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("customer group count = %d, want 2", len(items))
	}

	top := items[0].(map[string]interface{})
	if top["customer_name"].(string) != "John Smith" {
		t.Errorf("top customer = %q, want John Smith", top["customer_name"])
	}
	if got := top["total_spent"].(float64); got != 2000 {
		t.Errorf("top customer total = %v, want 2000", got)
	}
	if got := top["total_invoices"].(float64); got != 2 {
		t.Errorf("top customer invoice count = %v, want 2", got)
	}
}

func TestIntegration_ServicePerformance(t *testing.T) {
	h := newTestInvoiceHandler(t)
	r := NewReportHandler(h.DB, h.Cipher)

	draft := invoiceDraftReq{
		CustomerName: "John Smith",
		Currency:     "INR",
		Items: []invoiceItemReq{
			{ServiceName: "Flight Booking", PurchasePrice: 600, Price: 1000},
			{ServiceName: "Free Upgrade", PurchasePrice: 0, Price: 0},
		},
	}
	if _, _, errs, err := h.createInvoice(draft); len(errs) > 0 || err != nil {
		t.Fatalf("seed invoice failed: errs=%v err=%v", errs, err)
	}

	data := performReport(t, r.GetServicePerformance, "/api/reports/services")
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("service count = %d, want 2", len(items))
	}

	flight := items[0].(map[string]interface{})
	if flight["service_name"].(string) != "Flight Booking" {
		t.Fatalf("first service = %q, want Flight Booking (highest revenue)", flight["service_name"])
	}
	if got := flight["total_profit"].(float64); got != 400 {
		t.Errorf("flight profit = %v, want 400", got)
	}
	if got := flight["profit_margin"].(float64); got != 40 {
		t.Errorf("flight margin = %v, want 40", got)
	}

	// zero revenue must yield margin 0, not NaN
	free := items[1].(map[string]interface{})
	if got := free["profit_margin"].(float64); got != 0 {
		t.Errorf("zero-revenue margin = %v, want 0", got)
	}
}

func TestIntegration_DiscountAnalysis(t *testing.T) {
	h := newTestInvoiceHandler(t)
	r := NewReportHandler(h.DB, h.Cipher)

	discounted := invoiceDraftReq{
		CustomerName: "John Smith",
		Currency:     "INR",
		Discount:     100,
		Items:        []invoiceItemReq{{ServiceName: "Flight Booking", Price: 1000}},
	}
	plain := invoiceDraftReq{
		CustomerName: "Jane Doe",
		Currency:     "INR",
		Items:        []invoiceItemReq{{ServiceName: "Visa Processing", Price: 500}},
	}
	for _, draft := range []invoiceDraftReq{discounted, plain} {
		if _, _, errs, err := h.createInvoice(draft); len(errs) > 0 || err != nil {
			t.Fatalf("seed invoice failed: errs=%v err=%v", errs, err)
		}
	}

	data := performReport(t, r.GetDiscountAnalysis, "/api/reports/discounts")
	if got := data["discounted_fraction"].(float64); got != 0.5 {
		t.Errorf("discounted_fraction = %v, want 0.5", got)
	}
	if got := data["total_discounts_given"].(float64); got != 100 {
		t.Errorf("total_discounts_given = %v, want 100", got)
	}
}

func TestIntegration_CurrencyPerformanceUnconverted(t *testing.T) {
	h := newTestInvoiceHandler(t)
	seedReportData(t, h)
	r := NewReportHandler(h.DB, h.Cipher)

	data := performReport(t, r.GetCurrencyPerformance, "/api/reports/currencies")
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("currency count = %d, want 2", len(items))
	}

	// raw figures: 500 INR outranks 100 USD because nothing is converted
	first := items[0].(map[string]interface{})
	if first["currency"].(string) != "INR" {
		t.Errorf("first currency = %q, want INR", first["currency"])
	}
	if got := first["total_revenue"].(float64); got != 500 {
		t.Errorf("INR revenue = %v, want raw 500", got)
	}
}
