package handler

import (
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// currencyConverter normalizes amounts into the configured base
// currency. It snapshots the settings row and the rate table once, so
// a report folds many rows without re-querying per amount.
type currencyConverter struct {
	base  string
	rates map[string]float64
}

func newCurrencyConverter(db *gorm.DB) *currencyConverter {
	base := "INR"
	var settings models.AppSettings
	if err := db.First(&settings, 1).Error; err == nil && settings.BaseCurrency != "" {
		base = settings.BaseCurrency
	}

	rates := make(map[string]float64)
	var currencies []models.Currency
	if err := db.Find(&currencies).Error; err == nil {
		for _, cur := range currencies {
			rates[cur.Code] = cur.ExchangeRate
		}
	}

	return &currencyConverter{base: base, rates: rates}
}

// toBase converts amount from the given currency into the base
// currency: amount * (fromRate / baseRate). A missing rate is a data
// issue, not an error: the amount comes back unconverted so reports
// never crash on a dangling currency reference.
func (cv *currencyConverter) toBase(amount float64, from string) float64 {
	if from == cv.base {
		return amount
	}

	fromRate, okFrom := cv.rates[from]
	baseRate, okBase := cv.rates[cv.base]
	if !okFrom || !okBase || baseRate == 0 {
		log.Printf("currency conversion: no rate for %s -> %s, amount left unconverted", from, cv.base)
		return amount
	}

	return amount * (fromRate / baseRate)
}

// CurrencyHandler owns the currency table endpoints.
type CurrencyHandler struct {
	DB *gorm.DB
}

func NewCurrencyHandler(db *gorm.DB) *CurrencyHandler {
	return &CurrencyHandler{DB: db}
}

type addCurrencyReq struct {
	Code         string  `json:"code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Symbol       string  `json:"symbol" binding:"required"`
	ExchangeRate float64 `json:"exchange_rate" binding:"required"`
}

type updateCurrencyReq struct {
	Name         *string  `json:"name"`
	Symbol       *string  `json:"symbol"`
	ExchangeRate *float64 `json:"exchange_rate"`
}

// ListCurrencies handles GET /api/currencies.
func (h *CurrencyHandler) ListCurrencies(c *gin.Context) {
	var currencies []models.Currency
	if err := h.DB.Order("code ASC").Find(&currencies).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	util.Success(c, util.Response{"items": currencies})
}

// AddCurrency handles POST /api/currencies.
func (h *CurrencyHandler) AddCurrency(c *gin.Context) {
	var req addCurrencyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	sanitized, errs := util.ValidateCurrency(util.CurrencyInput{
		Code:         req.Code,
		Name:         req.Name,
		Symbol:       req.Symbol,
		ExchangeRate: req.ExchangeRate,
	})
	if len(errs) > 0 {
		util.ValidationFailed(c, errs)
		return
	}

	currency := models.Currency{
		Code:         sanitized.Code,
		Name:         sanitized.Name,
		Symbol:       sanitized.Symbol,
		ExchangeRate: sanitized.ExchangeRate,
	}
	if err := h.DB.Create(&currency).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to add currency")
		return
	}

	util.Success(c, util.Response{"currency": currency})
}

// UpdateCurrency handles PUT /api/currencies/:code, partial merge.
func (h *CurrencyHandler) UpdateCurrency(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "missing currency code")
		return
	}

	var req updateCurrencyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = util.SanitizeHTML(*req.Name)
	}
	if req.Symbol != nil {
		updates["symbol"] = util.SanitizeHTML(*req.Symbol)
	}
	if req.ExchangeRate != nil {
		rate := *req.ExchangeRate
		if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			util.ValidationFailed(c, []string{"Exchange rate must be a positive number"})
			return
		}
		updates["exchange_rate"] = rate
	}
	if len(updates) == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "nothing to update")
		return
	}

	res := h.DB.Model(&models.Currency{}).Where("code = ?", code).Updates(updates)
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "currency not found")
		return
	}

	util.Success(c, util.Response{"message": "currency updated"})
}

// DeleteCurrency handles DELETE /api/currencies/:code.
func (h *CurrencyHandler) DeleteCurrency(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "missing currency code")
		return
	}

	res := h.DB.Where("code = ?", code).Delete(&models.Currency{})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "currency not found")
		return
	}

	util.Success(c, util.Response{"message": "currency deleted"})
}
