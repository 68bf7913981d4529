package handler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InvoiceHandler owns the invoice lifecycle: validation, encryption,
// numbering, totals, payments. Create/update/delete run inside a single
// transaction so the counter increment, the header and the item rows
// commit or roll back together.
type InvoiceHandler struct {
	DB     *gorm.DB
	Cipher *util.FieldCipher
}

func NewInvoiceHandler(db *gorm.DB, cipher *util.FieldCipher) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Cipher: cipher}
}

// ---------- request/response structures ----------

type invoiceItemReq struct {
	ServiceName        string  `json:"service_name"`
	ServiceDescription string  `json:"service_description"`
	PurchasePrice      float64 `json:"purchase_price"`
	Price              float64 `json:"price"`
}

type invoiceDraftReq struct {
	CustomerName    string           `json:"customer_name" binding:"required"`
	CustomerAddress string           `json:"customer_address"`
	Phone           string           `json:"phone"`
	Currency        string           `json:"currency" binding:"required"`
	RefNo           string           `json:"ref_no"`
	Discount        float64          `json:"discount"`
	Items           []invoiceItemReq `json:"items"`
	// create only: record a payment for the full grand total
	IsFullyPaid bool `json:"is_fully_paid"`
}

type invoiceItemResp struct {
	ServiceName        string  `json:"service_name"`
	ServiceDescription string  `json:"service_description"`
	PurchasePrice      float64 `json:"purchase_price"`
	Price              float64 `json:"price"`
}

type invoiceResp struct {
	ID               uint              `json:"id"`
	InvoiceNumber    string            `json:"invoice_number"`
	CustomerName     string            `json:"customer_name"`
	CustomerAddress  string            `json:"customer_address"`
	Phone            string            `json:"phone"`
	RefNo            string            `json:"ref_no"`
	Currency         string            `json:"currency"`
	Date             time.Time         `json:"date"`
	Items            []invoiceItemResp `json:"items"`
	SubTotal         float64           `json:"sub_total"`
	Discount         float64           `json:"discount"`
	GrandTotal       float64           `json:"grand_total"`
	PaymentStatus    string            `json:"payment_status"`
	AmountPaid       float64           `json:"amount_paid"`
	RemainingBalance float64           `json:"remaining_balance"`
}

type paymentReq struct {
	AmountPaid    float64 `json:"amount_paid"`
	PaymentDate   string  `json:"payment_date"`
	PaymentMethod string  `json:"payment_method"`
	Notes         string  `json:"notes"`
}

// ---------- invoice numbering ----------

// formatInvoiceNumber renders YYYYMM plus the zero-padded 5-digit
// serial: 11 digits total. The month prefix reflects creation time only;
// the serial is global and never resets, so numbers from different
// months do not sort lexicographically.
func formatInvoiceNumber(t time.Time, serial int64) string {
	return fmt.Sprintf("%04d%02d%05d", t.Year(), int(t.Month()), serial)
}

// nextInvoiceNumber reserves the next serial inside the caller's
// transaction. If the transaction rolls back so does the increment;
// duplicates are impossible, gaps are tolerated. The unique index on
// invoice_number backs this up at the storage layer.
func nextInvoiceNumber(tx *gorm.DB, now time.Time) (string, error) {
	seq := models.InvoiceSequence{ID: 1}
	if err := tx.Where(models.InvoiceSequence{ID: 1}).FirstOrCreate(&seq).Error; err != nil {
		return "", fmt.Errorf("load invoice sequence: %w", err)
	}

	seq.CurrentSequence++
	if err := tx.Model(&models.InvoiceSequence{}).
		Where("id = ?", 1).
		Update("current_sequence", seq.CurrentSequence).Error; err != nil {
		return "", fmt.Errorf("advance invoice sequence: %w", err)
	}

	return formatInvoiceNumber(now, seq.CurrentSequence), nil
}

// ---------- core operations ----------

func draftToInput(req invoiceDraftReq) util.InvoiceInput {
	in := util.InvoiceInput{
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		Phone:           req.Phone,
		Currency:        req.Currency,
		RefNo:           req.RefNo,
		Discount:        req.Discount,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, util.InvoiceItemInput{
			ServiceName:        item.ServiceName,
			ServiceDescription: item.ServiceDescription,
			PurchasePrice:      item.PurchasePrice,
			Price:              item.Price,
		})
	}
	return in
}

func computeTotals(items []util.InvoiceItemInput, discount float64) (subTotal, grandTotal float64) {
	for _, item := range items {
		subTotal += item.Price
	}
	return subTotal, subTotal - discount
}

// createInvoice runs the full pipeline: gate, encrypt, number, totals,
// persist header + items + optional payment, one transaction.
func (h *InvoiceHandler) createInvoice(req invoiceDraftReq) (uint, string, []string, error) {
	sanitized, errs := util.ValidateInvoice(draftToInput(req))
	if len(errs) > 0 {
		return 0, "", errs, nil
	}

	now := time.Now()
	subTotal, grandTotal := computeTotals(sanitized.Items, sanitized.Discount)

	var (
		invoiceID uint
		number    string
	)
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = nextInvoiceNumber(tx, now)
		if err != nil {
			return err
		}

		invoice := models.Invoice{
			InvoiceNumber:   number,
			CustomerName:    h.Cipher.Encrypt(sanitized.CustomerName),
			CustomerAddress: h.Cipher.Encrypt(sanitized.CustomerAddress),
			CustomerPhone:   h.Cipher.Encrypt(sanitized.Phone),
			RefNo:           sanitized.RefNo,
			Currency:        sanitized.Currency,
			InvoiceDate:     now,
			SubTotal:        subTotal,
			Discount:        sanitized.Discount,
			GrandTotal:      grandTotal,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		for _, item := range sanitized.Items {
			row := models.InvoiceItem{
				InvoiceID:          invoice.ID,
				ServiceName:        item.ServiceName,
				ServiceDescription: item.ServiceDescription,
				PurchasePrice:      item.PurchasePrice,
				Price:              item.Price,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert invoice item: %w", err)
			}
		}

		if req.IsFullyPaid {
			if _, err := savePayment(tx, invoice.ID, grandTotal, now, "Cash", "Payment received at invoice creation"); err != nil {
				return err
			}
		}

		invoiceID = invoice.ID
		return nil
	})
	if err != nil {
		return 0, "", nil, err
	}
	return invoiceID, number, nil, nil
}

// updateInvoice recomputes totals from the new item list and replaces
// the entire item set. Invoice number, date and payment are untouched.
func (h *InvoiceHandler) updateInvoice(id uint, req invoiceDraftReq) ([]string, error) {
	sanitized, errs := util.ValidateInvoice(draftToInput(req))
	if len(errs) > 0 {
		return errs, nil
	}

	subTotal, grandTotal := computeTotals(sanitized.Items, sanitized.Discount)

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.First(&invoice, id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"customer_name":    h.Cipher.Encrypt(sanitized.CustomerName),
			"customer_address": h.Cipher.Encrypt(sanitized.CustomerAddress),
			"customer_phone":   h.Cipher.Encrypt(sanitized.Phone),
			"currency":         sanitized.Currency,
			"sub_total":        subTotal,
			"discount":         sanitized.Discount,
			"grand_total":      grandTotal,
			"ref_no":           sanitized.RefNo,
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		// replace the whole item set, no item-level diffing
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("clear invoice items: %w", err)
		}
		for _, item := range sanitized.Items {
			row := models.InvoiceItem{
				InvoiceID:          id,
				ServiceName:        item.ServiceName,
				ServiceDescription: item.ServiceDescription,
				PurchasePrice:      item.PurchasePrice,
				Price:              item.Price,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert invoice item: %w", err)
			}
		}
		return nil
	})
	return nil, err
}

// savePayment inserts or replaces the single payment row for an
// invoice. The amount is capped at the grand total; overpayment is
// silently clamped, never rejected.
func savePayment(tx *gorm.DB, invoiceID uint, amount float64, date time.Time, method, notes string) (float64, error) {
	var invoice models.Invoice
	if err := tx.Select("id", "grand_total").First(&invoice, invoiceID).Error; err != nil {
		return 0, err
	}

	capped := math.Min(amount, invoice.GrandTotal)
	if method == "" {
		method = "Cash"
	}

	var existing models.InvoicePayment
	err := tx.Where("invoice_id = ?", invoiceID).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"amount_paid":    capped,
			"payment_date":   date,
			"payment_method": method,
			"notes":          notes,
		}
		if err := tx.Model(&models.InvoicePayment{}).Where("invoice_id = ?", invoiceID).Updates(updates).Error; err != nil {
			return 0, fmt.Errorf("update payment: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment := models.InvoicePayment{
			InvoiceID:     invoiceID,
			AmountPaid:    capped,
			PaymentDate:   date,
			PaymentMethod: method,
			Notes:         notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return 0, fmt.Errorf("insert payment: %w", err)
		}
	default:
		return 0, err
	}

	return capped, nil
}

// toInvoiceResp decrypts the customer copy, loads items, attaches the
// payment record and derives status and remaining balance.
func (h *InvoiceHandler) toInvoiceResp(invoice *models.Invoice) invoiceResp {
	var items []models.InvoiceItem
	h.DB.Where("invoice_id = ?", invoice.ID).Order("id ASC").Find(&items)

	var amountPaid float64
	var payment models.InvoicePayment
	if err := h.DB.Where("invoice_id = ?", invoice.ID).First(&payment).Error; err == nil {
		amountPaid = payment.AmountPaid
	}

	resp := invoiceResp{
		ID:               invoice.ID,
		InvoiceNumber:    invoice.InvoiceNumber,
		CustomerName:     h.Cipher.Decrypt(invoice.CustomerName),
		CustomerAddress:  h.Cipher.Decrypt(invoice.CustomerAddress),
		Phone:            h.Cipher.Decrypt(invoice.CustomerPhone),
		RefNo:            invoice.RefNo,
		Currency:         invoice.Currency,
		Date:             invoice.InvoiceDate,
		SubTotal:         invoice.SubTotal,
		Discount:         invoice.Discount,
		GrandTotal:       invoice.GrandTotal,
		PaymentStatus:    models.PaymentStatusFor(amountPaid, invoice.GrandTotal),
		AmountPaid:       amountPaid,
		RemainingBalance: invoice.GrandTotal - amountPaid,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, invoiceItemResp{
			ServiceName:        item.ServiceName,
			ServiceDescription: item.ServiceDescription,
			PurchasePrice:      item.PurchasePrice,
			Price:              item.Price,
		})
	}
	return resp
}

// ---------- HTTP endpoints ----------

// CreateInvoice handles POST /api/invoices.
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req invoiceDraftReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	id, number, errs, err := h.createInvoice(req)
	if len(errs) > 0 {
		util.ValidationFailed(c, errs)
		return
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create invoice")
		return
	}

	util.Success(c, util.Response{
		"invoice_id":     id,
		"invoice_number": number,
	})
}

// UpdateInvoice handles PUT /api/invoices/:id.
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid invoice id")
		return
	}

	var req invoiceDraftReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	errs, err := h.updateInvoice(uint(id), req)
	if len(errs) > 0 {
		util.ValidationFailed(c, errs)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "invoice not found")
		return
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to update invoice")
		return
	}

	util.Success(c, util.Response{"message": "invoice updated"})
}

// ListInvoices handles GET /api/invoices, most recently created first.
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var invoices []models.Invoice
	if err := h.DB.Order("created_at DESC, id DESC").Find(&invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]invoiceResp, 0, len(invoices))
	for i := range invoices {
		items = append(items, h.toInvoiceResp(&invoices[i]))
	}
	util.Success(c, util.Response{"items": items})
}

// ListInvoicesByCustomer handles GET /api/invoices/by-customer. The
// match runs against the decrypted denormalized copy, equality on both
// name and phone; ciphertext equality would never match across rows.
func (h *InvoiceHandler) ListInvoicesByCustomer(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	phone := strings.TrimSpace(c.Query("phone"))
	if name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "missing customer name")
		return
	}

	var invoices []models.Invoice
	if err := h.DB.Order("created_at DESC, id DESC").Find(&invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]invoiceResp, 0)
	for i := range invoices {
		resp := h.toInvoiceResp(&invoices[i])
		if resp.CustomerName == name && resp.Phone == phone {
			items = append(items, resp)
		}
	}
	util.Success(c, util.Response{"items": items})
}

// GetInvoice handles GET /api/invoices/:id.
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid invoice id")
		return
	}

	var invoice models.Invoice
	if err := h.DB.First(&invoice, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "invoice not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	util.Success(c, util.Response{"invoice": h.toInvoiceResp(&invoice)})
}

// DeleteInvoice handles DELETE /api/invoices/:id. Hard delete; items
// and the payment row go with it via the storage-level cascade.
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid invoice id")
		return
	}

	res := h.DB.Delete(&models.Invoice{}, id)
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "invoice not found")
		return
	}

	util.Success(c, util.Response{"message": "invoice deleted"})
}

// RecordPayment handles POST /api/invoices/:id/payment. A second call
// replaces the first; only the cumulative state is kept.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid invoice id")
		return
	}

	var req paymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}
	if req.AmountPaid < 0 || math.IsNaN(req.AmountPaid) || math.IsInf(req.AmountPaid, 0) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid payment amount")
		return
	}

	date := time.Now()
	if req.PaymentDate != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, req.PaymentDate); err == nil {
				date = t
				break
			}
		}
	}

	var stored float64
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		stored, err = savePayment(tx, uint(id), req.AmountPaid, date, req.PaymentMethod, util.SanitizeHTML(req.Notes))
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "invoice not found")
		return
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to record payment")
		return
	}

	util.Success(c, util.Response{"amount_paid": stored})
}

// GetPayment handles GET /api/invoices/:id/payment.
func (h *InvoiceHandler) GetPayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid invoice id")
		return
	}

	var payment models.InvoicePayment
	if err := h.DB.Where("invoice_id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "no payment recorded")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	util.Success(c, util.Response{"payment": payment})
}
