package handler

import (
	"math"
	"net/http"
	"strings"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SettingsHandler owns the singleton app settings row (id=1).
type SettingsHandler struct {
	DB *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{DB: db}
}

type updateSettingsReq struct {
	DefaultCurrency *string  `json:"default_currency"`
	BaseCurrency    *string  `json:"base_currency"`
	TaxRate         *float64 `json:"tax_rate"`
	InvoicePrefix   *string  `json:"invoice_prefix"`
	CompanyName     *string  `json:"company_name"`
	CompanyAddress  *string  `json:"company_address"`
	CompanyPhone    *string  `json:"company_phone"`
	CompanyEmail    *string  `json:"company_email"`
}

// GetSettings handles GET /api/settings. Missing row falls back to the
// built-in defaults without writing anything.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings := models.AppSettings{
		ID:              1,
		DefaultCurrency: "USD",
		BaseCurrency:    "INR",
	}
	h.DB.First(&settings, 1)
	util.Success(c, util.Response{"settings": settings})
}

// UpdateSettings handles PUT /api/settings, a partial merge over the
// existing singleton. Currency fields must name supported codes.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.DefaultCurrency != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.DefaultCurrency))
		if !util.ValidCurrencyCode(code) {
			util.ValidationFailed(c, []string{"Invalid default currency code"})
			return
		}
		updates["default_currency"] = code
	}
	if req.BaseCurrency != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.BaseCurrency))
		if !util.ValidCurrencyCode(code) {
			util.ValidationFailed(c, []string{"Invalid base currency code"})
			return
		}
		updates["base_currency"] = code
	}
	if req.TaxRate != nil {
		rate := *req.TaxRate
		if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			util.ValidationFailed(c, []string{"Tax rate must be a non-negative number"})
			return
		}
		updates["tax_rate"] = rate
	}
	if req.InvoicePrefix != nil {
		// stored and editable, currently unused by the number generator
		updates["invoice_prefix"] = util.SanitizeHTML(*req.InvoicePrefix)
	}
	if req.CompanyName != nil {
		updates["company_name"] = util.SanitizeHTML(*req.CompanyName)
	}
	if req.CompanyAddress != nil {
		updates["company_address"] = util.SanitizeHTML(*req.CompanyAddress)
	}
	if req.CompanyPhone != nil {
		updates["company_phone"] = util.SanitizeHTML(*req.CompanyPhone)
	}
	if req.CompanyEmail != nil {
		updates["company_email"] = util.SanitizeHTML(*req.CompanyEmail)
	}
	if len(updates) == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "nothing to update")
		return
	}

	settings := models.AppSettings{ID: 1}
	if err := h.DB.Where(models.AppSettings{ID: 1}).FirstOrCreate(&settings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "load settings failed")
		return
	}
	if err := h.DB.Model(&models.AppSettings{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update settings failed")
		return
	}

	h.DB.First(&settings, 1)
	util.Success(c, util.Response{"settings": settings})
}
