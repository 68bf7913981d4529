package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ExportHandler struct {
	DB     *gorm.DB
	Cipher *util.FieldCipher
}

func NewExportHandler(db *gorm.DB, cipher *util.FieldCipher) *ExportHandler {
	return &ExportHandler{DB: db, Cipher: cipher}
}

var exportHeaders = []string{
	"Invoice No", "Date", "Customer", "Phone", "Ref No",
	"Currency", "Sub Total", "Discount", "Grand Total", "Paid", "Status",
}

func (h *ExportHandler) loadInvoices(c *gin.Context) ([]models.Invoice, bool) {
	var invoices []models.Invoice
	q := applyDateRange(h.DB.Preload("Payment").Order("created_at DESC"),
		"invoice_date", c.Query("from"), c.Query("to"))
	if err := q.Find(&invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return nil, false
	}
	return invoices, true
}

func (h *ExportHandler) exportRow(inv models.Invoice) []string {
	paid := 0.0
	if inv.Payment != nil {
		paid = inv.Payment.AmountPaid
	}
	return []string{
		inv.InvoiceNumber,
		inv.InvoiceDate.Format("2006-01-02"),
		h.Cipher.Decrypt(inv.CustomerName),
		h.Cipher.Decrypt(inv.CustomerPhone),
		inv.RefNo,
		inv.Currency,
		strconv.FormatFloat(inv.SubTotal, 'f', 2, 64),
		strconv.FormatFloat(inv.Discount, 'f', 2, 64),
		strconv.FormatFloat(inv.GrandTotal, 'f', 2, 64),
		strconv.FormatFloat(paid, 'f', 2, 64),
		models.PaymentStatusFor(paid, inv.GrandTotal),
	}
}

// ExportCSV handles GET /api/export/invoices/csv.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	invoices, ok := h.loadInvoices(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"invoices_%s.csv\"",
		time.Now().Format("20060102")))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// UTF-8 BOM so Excel picks the right encoding
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer.Write(exportHeaders)
	for _, inv := range invoices {
		writer.Write(h.exportRow(inv))
	}
}

// ExportXLSX handles GET /api/export/invoices/xlsx.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	invoices, ok := h.loadInvoices(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	sheetName := "Invoices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "sheet creation failed")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for idx, inv := range invoices {
		row := idx + 2
		for col, value := range h.exportRow(inv) {
			f.SetCellValue(sheetName, fmt.Sprintf("%c%d", 'A'+col, row), value)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 25)
	f.SetColWidth(sheetName, "D", "D", 16)
	f.SetColWidth(sheetName, "E", "K", 12)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"invoices_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "export failed")
	}
}
