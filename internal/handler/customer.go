package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CustomerHandler owns the customer book endpoints.
type CustomerHandler struct {
	DB       *gorm.DB
	Cipher   *util.FieldCipher
	PageSize int
}

func NewCustomerHandler(db *gorm.DB, cipher *util.FieldCipher, pageSize int) *CustomerHandler {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &CustomerHandler{DB: db, Cipher: cipher, PageSize: pageSize}
}

type saveCustomerReq struct {
	ID      uint   `json:"id"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type customerResp struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *CustomerHandler) toCustomerResp(c *models.Customer) customerResp {
	return customerResp{
		ID:        c.ID,
		Name:      h.Cipher.Decrypt(c.Name),
		Phone:     h.Cipher.Decrypt(c.Phone),
		Email:     h.Cipher.Decrypt(c.Email),
		Address:   h.Cipher.Decrypt(c.Address),
		CreatedAt: c.CreatedAt,
	}
}

// saveCustomer validates, encrypts and persists a draft; id > 0 means
// update, otherwise insert. Returns the customer id.
func (h *CustomerHandler) saveCustomer(req saveCustomerReq) (uint, []string, error) {
	sanitized, errs := util.ValidateCustomer(util.CustomerInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if len(errs) > 0 {
		return 0, errs, nil
	}

	encrypted := models.Customer{
		Name:    h.Cipher.Encrypt(sanitized.Name),
		Phone:   h.Cipher.Encrypt(sanitized.Phone),
		Email:   h.Cipher.Encrypt(sanitized.Email),
		Address: h.Cipher.Encrypt(sanitized.Address),
	}

	if req.ID > 0 {
		res := h.DB.Model(&models.Customer{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
			"name":    encrypted.Name,
			"phone":   encrypted.Phone,
			"email":   encrypted.Email,
			"address": encrypted.Address,
		})
		if res.Error != nil {
			return 0, nil, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, nil, gorm.ErrRecordNotFound
		}
		return req.ID, nil, nil
	}

	encrypted.CreatedAt = time.Now()
	if err := h.DB.Create(&encrypted).Error; err != nil {
		return 0, nil, err
	}
	return encrypted.ID, nil, nil
}

// SaveCustomer handles POST /api/customers (insert-or-update by
// optional id).
func (h *CustomerHandler) SaveCustomer(c *gin.Context) {
	var req saveCustomerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	id, errs, err := h.saveCustomer(req)
	if len(errs) > 0 {
		util.ValidationFailed(c, errs)
		return
	}
	if err == gorm.ErrRecordNotFound {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "customer not found")
		return
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to save customer")
		return
	}

	util.Success(c, util.Response{"customer_id": id})
}

// ListCustomers handles GET /api/customers with paging, newest first.
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.PageSize)))
	if size <= 0 || size > 500 {
		size = h.PageSize
	}
	offset := (page - 1) * size

	var total int64
	if err := h.DB.Model(&models.Customer{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	var customers []models.Customer
	if err := h.DB.Order("created_at DESC, id DESC").
		Limit(size).Offset(offset).
		Find(&customers).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]customerResp, 0, len(customers))
	for i := range customers {
		items = append(items, h.toCustomerResp(&customers[i]))
	}

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// SearchCustomers handles GET /api/customers/search?q=. Substring match
// runs on the decrypted name and phone: ciphertext is randomized per
// row, so a SQL LIKE over the stored columns would never match.
func (h *CustomerHandler) SearchCustomers(c *gin.Context) {
	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if query == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "missing query")
		return
	}

	var customers []models.Customer
	if err := h.DB.Order("created_at DESC").Find(&customers).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	const maxResults = 50
	items := make([]customerResp, 0, maxResults)
	for i := range customers {
		resp := h.toCustomerResp(&customers[i])
		if strings.Contains(strings.ToLower(resp.Name), query) ||
			strings.Contains(strings.ToLower(resp.Phone), query) {
			items = append(items, resp)
			if len(items) == maxResults {
				break
			}
		}
	}

	util.Success(c, util.Response{"items": items})
}

// DeleteCustomer handles DELETE /api/customers/:id. Invoices keep
// their denormalized customer copy; nothing cascades.
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid customer id")
		return
	}

	res := h.DB.Delete(&models.Customer{}, id)
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "customer not found")
		return
	}

	util.Success(c, util.Response{"message": "customer deleted"})
}
