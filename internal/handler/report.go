package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportHandler serves the read-only analytics endpoints. Monetary
// figures are normalized into the base currency before summing across
// currencies, except the per-currency view which is raw on purpose.
type ReportHandler struct {
	DB     *gorm.DB
	Cipher *util.FieldCipher
}

func NewReportHandler(db *gorm.DB, cipher *util.FieldCipher) *ReportHandler {
	return &ReportHandler{DB: db, Cipher: cipher}
}

// periodLayouts is the closed set of supported grouping granularities.
// Layouts are bound as query parameters, never interpolated.
var periodLayouts = map[string]string{
	"day":   "%Y-%m-%d",
	"week":  "%Y-%W",
	"month": "%Y-%m",
	"year":  "%Y",
}

// applyDateRange narrows a query to the optional from/to boundaries
// (inclusive, YYYY-MM-DD; lexicographic compare works on the stored
// datetime text).
func applyDateRange(q *gorm.DB, column, from, to string) *gorm.DB {
	if from != "" {
		q = q.Where(column+" >= ?", from)
	}
	if to != "" {
		q = q.Where(column+" <= ?", to)
	}
	return q
}

func limitParam(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ---------- business KPIs ----------

type kpiInvoiceRow struct {
	GrandTotal  float64
	Currency    string
	InvoiceDate time.Time
}

type kpiItemRow struct {
	PurchasePrice float64
	Price         float64
	Currency      string
	InvoiceDate   time.Time
}

// GetBusinessKPIs handles GET /api/reports/kpis.
func (h *ReportHandler) GetBusinessKPIs(c *gin.Context) {
	converter := newCurrencyConverter(h.DB)
	cutoff := time.Now().AddDate(0, 0, -30)
	from, to := c.Query("from"), c.Query("to")

	var invoices []kpiInvoiceRow
	invQ := applyDateRange(h.DB.Model(&models.Invoice{}), "invoice_date", from, to)
	if err := invQ.Select("grand_total, currency, invoice_date").
		Find(&invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	var items []kpiItemRow
	itemQ := applyDateRange(h.DB.Table("invoice_items"), "invoices.invoice_date", from, to)
	if err := itemQ.
		Select("invoice_items.purchase_price, invoice_items.price, invoices.currency, invoices.invoice_date").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Find(&items).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	var totalRevenue, revenue30 float64
	var invoices30 int64
	for _, inv := range invoices {
		amount := converter.toBase(inv.GrandTotal, inv.Currency)
		totalRevenue += amount
		if inv.InvoiceDate.After(cutoff) {
			revenue30 += amount
			invoices30++
		}
	}

	var totalProfit, profit30 float64
	for _, item := range items {
		profit := converter.toBase(item.Price, item.Currency) - converter.toBase(item.PurchasePrice, item.Currency)
		totalProfit += profit
		if item.InvoiceDate.After(cutoff) {
			profit30 += profit
		}
	}

	avgInvoiceValue := 0.0
	if len(invoices) > 0 {
		avgInvoiceValue = totalRevenue / float64(len(invoices))
	}
	avgProfit := 0.0
	if len(items) > 0 {
		avgProfit = totalProfit / float64(len(items))
	}

	// services actually booked, not the catalog size
	var totalCustomers, totalServices int64
	h.DB.Model(&models.Customer{}).Count(&totalCustomers)
	h.DB.Model(&models.InvoiceItem{}).Distinct("service_name").Count(&totalServices)

	util.Success(c, util.Response{
		"total_invoices":        len(invoices),
		"total_customers":       totalCustomers,
		"total_services":        totalServices,
		"invoices_last_30_days": invoices30,
		"total_revenue":         totalRevenue,
		"revenue_last_30_days":  revenue30,
		"total_profit":          totalProfit,
		"profit_last_30_days":   profit30,
		"avg_invoice_value":     avgInvoiceValue,
		"avg_profit":            avgProfit,
	})
}

// ---------- time series ----------

type seriesBucket struct {
	Period  string  `json:"period"`
	Total   float64 `json:"total"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// GetRevenueSeries handles GET /api/reports/revenue?period=&limit=
// with an optional from/to window. Buckets by calendar truncation of
// the invoice date, converts each invoice into the base currency,
// newest bucket first.
func (h *ReportHandler) GetRevenueSeries(c *gin.Context) {
	layout, ok := periodLayouts[c.DefaultQuery("period", "month")]
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "period must be one of day, week, month, year")
		return
	}
	limit := limitParam(c, 12, 120)

	var rows []struct {
		Period     string
		GrandTotal float64
		Currency   string
	}
	q := applyDateRange(h.DB.Model(&models.Invoice{}), "invoice_date", c.Query("from"), c.Query("to"))
	if err := q.
		Select("strftime(?, invoice_date) AS period, grand_total, currency", layout).
		Find(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	converter := newCurrencyConverter(h.DB)
	buckets := make(map[string]*seriesBucket)
	for _, row := range rows {
		b, ok := buckets[row.Period]
		if !ok {
			b = &seriesBucket{Period: row.Period}
			buckets[row.Period] = b
		}
		b.Total += converter.toBase(row.GrandTotal, row.Currency)
		b.Count++
	}

	series := make([]seriesBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Count > 0 {
			b.Average = b.Total / float64(b.Count)
		}
		series = append(series, *b)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Period > series[j].Period })
	if len(series) > limit {
		series = series[:limit]
	}

	util.Success(c, util.Response{"series": series})
}

// GetCustomerGrowth handles GET /api/reports/customer-growth?period=.
func (h *ReportHandler) GetCustomerGrowth(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	layout, ok := periodLayouts[period]
	if !ok || period == "year" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "period must be one of day, week, month")
		return
	}
	limit := limitParam(c, 12, 120)

	var rows []struct {
		Period       string
		NewCustomers int64
	}
	if err := h.DB.Model(&models.Customer{}).
		Select("strftime(?, created_at) AS period, COUNT(*) AS new_customers", layout).
		Group("period").
		Order("period DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	util.Success(c, util.Response{"series": rows})
}

// ---------- service performance ----------

type servicePerf struct {
	ServiceName   string    `json:"service_name"`
	TotalBookings int64     `json:"total_bookings"`
	TotalRevenue  float64   `json:"total_revenue"`
	TotalCost     float64   `json:"total_cost"`
	TotalProfit   float64   `json:"total_profit"`
	ProfitMargin  float64   `json:"profit_margin"`
	FirstBooking  time.Time `json:"first_booking"`
	LastBooking   time.Time `json:"last_booking"`
}

// GetServicePerformance handles GET /api/reports/services. Revenue and
// cost are converted per item; margin is profit/revenue*100, defined as
// 0 when revenue is 0.
func (h *ReportHandler) GetServicePerformance(c *gin.Context) {
	var rows []struct {
		ServiceName   string
		PurchasePrice float64
		Price         float64
		Currency      string
		InvoiceDate   time.Time
	}
	if err := h.DB.Table("invoice_items").
		Select("invoice_items.service_name, invoice_items.purchase_price, invoice_items.price, invoices.currency, invoices.invoice_date").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Find(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	converter := newCurrencyConverter(h.DB)
	perf := make(map[string]*servicePerf)
	for _, row := range rows {
		p, ok := perf[row.ServiceName]
		if !ok {
			p = &servicePerf{
				ServiceName:  row.ServiceName,
				FirstBooking: row.InvoiceDate,
				LastBooking:  row.InvoiceDate,
			}
			perf[row.ServiceName] = p
		}
		p.TotalBookings++
		p.TotalRevenue += converter.toBase(row.Price, row.Currency)
		p.TotalCost += converter.toBase(row.PurchasePrice, row.Currency)
		if row.InvoiceDate.Before(p.FirstBooking) {
			p.FirstBooking = row.InvoiceDate
		}
		if row.InvoiceDate.After(p.LastBooking) {
			p.LastBooking = row.InvoiceDate
		}
	}

	items := make([]servicePerf, 0, len(perf))
	for _, p := range perf {
		p.TotalProfit = p.TotalRevenue - p.TotalCost
		if p.TotalRevenue > 0 {
			p.ProfitMargin = p.TotalProfit / p.TotalRevenue * 100
		}
		items = append(items, *p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TotalRevenue > items[j].TotalRevenue })

	util.Success(c, util.Response{"items": items})
}

// ---------- customer analytics ----------

type customerSpend struct {
	CustomerName    string    `json:"customer_name"`
	TotalInvoices   int64     `json:"total_invoices"`
	TotalSpent      float64   `json:"total_spent"`
	AvgInvoiceValue float64   `json:"avg_invoice_value"`
	FirstPurchase   time.Time `json:"first_purchase"`
	LastPurchase    time.Time `json:"last_purchase"`
}

// GetTopCustomers handles GET /api/reports/customers/top?limit=.
// Grouping runs on the decrypted customer name: each ciphertext is
// unique per row, so a SQL GROUP BY over the stored column would put
// every invoice in its own group.
func (h *ReportHandler) GetTopCustomers(c *gin.Context) {
	limit := limitParam(c, 10, 100)

	var invoices []models.Invoice
	if err := h.DB.Select("customer_name, grand_total, currency, invoice_date").
		Find(&invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	converter := newCurrencyConverter(h.DB)
	spend := make(map[string]*customerSpend)
	for _, inv := range invoices {
		name := h.Cipher.Decrypt(inv.CustomerName)
		s, ok := spend[name]
		if !ok {
			s = &customerSpend{
				CustomerName:  name,
				FirstPurchase: inv.InvoiceDate,
				LastPurchase:  inv.InvoiceDate,
			}
			spend[name] = s
		}
		s.TotalInvoices++
		s.TotalSpent += converter.toBase(inv.GrandTotal, inv.Currency)
		if inv.InvoiceDate.Before(s.FirstPurchase) {
			s.FirstPurchase = inv.InvoiceDate
		}
		if inv.InvoiceDate.After(s.LastPurchase) {
			s.LastPurchase = inv.InvoiceDate
		}
	}

	items := make([]customerSpend, 0, len(spend))
	for _, s := range spend {
		s.AvgInvoiceValue = s.TotalSpent / float64(s.TotalInvoices)
		items = append(items, *s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TotalSpent > items[j].TotalSpent })
	if len(items) > limit {
		items = items[:limit]
	}

	util.Success(c, util.Response{"items": items})
}

// ---------- financial insights ----------

// GetDiscountAnalysis handles GET /api/reports/discounts.
func (h *ReportHandler) GetDiscountAnalysis(c *gin.Context) {
	var invoices []kpiInvoiceRow
	var discounts []struct {
		Discount float64
		Currency string
	}
	if err := h.DB.Model(&models.Invoice{}).
		Select("discount, currency").
		Find(&discounts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if err := h.DB.Model(&models.Invoice{}).
		Select("grand_total, currency, invoice_date").
		Find(&invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	converter := newCurrencyConverter(h.DB)
	var discounted int64
	var totalDiscount, avgInvoiceValue float64
	for _, d := range discounts {
		if d.Discount > 0 {
			discounted++
		}
		totalDiscount += converter.toBase(d.Discount, d.Currency)
	}
	for _, inv := range invoices {
		avgInvoiceValue += converter.toBase(inv.GrandTotal, inv.Currency)
	}

	total := int64(len(discounts))
	discountedFraction := 0.0
	avgDiscount := 0.0
	if total > 0 {
		discountedFraction = float64(discounted) / float64(total)
		avgDiscount = totalDiscount / float64(total)
		avgInvoiceValue /= float64(total)
	}

	util.Success(c, util.Response{
		"total_invoices":        total,
		"discounted_invoices":   discounted,
		"discounted_fraction":   discountedFraction,
		"avg_discount":          avgDiscount,
		"total_discounts_given": totalDiscount,
		"avg_invoice_value":     avgInvoiceValue,
	})
}

// GetCurrencyPerformance handles GET /api/reports/currencies. Raw
// per-currency figures, intentionally unconverted.
func (h *ReportHandler) GetCurrencyPerformance(c *gin.Context) {
	var rows []struct {
		Currency        string  `json:"currency"`
		InvoiceCount    int64   `json:"invoice_count"`
		TotalRevenue    float64 `json:"total_revenue"`
		AvgInvoiceValue float64 `json:"avg_invoice_value"`
	}
	if err := h.DB.Model(&models.Invoice{}).
		Select("currency, COUNT(*) AS invoice_count, SUM(grand_total) AS total_revenue, AVG(grand_total) AS avg_invoice_value").
		Group("currency").
		Order("total_revenue DESC").
		Find(&rows).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	util.Success(c, util.Response{"items": rows})
}
