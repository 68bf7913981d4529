package handler

import (
	"net/http"
	"strconv"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ServiceHandler owns the service catalog endpoints. Catalog entries
// describe what the agency sells; prices live on invoice lines.
type ServiceHandler struct {
	DB     *gorm.DB
	Cipher *util.FieldCipher
}

func NewServiceHandler(db *gorm.DB, cipher *util.FieldCipher) *ServiceHandler {
	return &ServiceHandler{DB: db, Cipher: cipher}
}

type serviceReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type serviceResp struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListServices handles GET /api/services, decrypted, in insertion
// order (sorting on the ciphertext column would be meaningless).
func (h *ServiceHandler) ListServices(c *gin.Context) {
	var services []models.Service
	if err := h.DB.Order("id ASC").Find(&services).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]serviceResp, 0, len(services))
	for _, svc := range services {
		items = append(items, serviceResp{
			ID:          svc.ID,
			Name:        h.Cipher.Decrypt(svc.Name),
			Description: h.Cipher.Decrypt(svc.Description),
		})
	}
	util.Success(c, util.Response{"items": items})
}

// AddService handles POST /api/services.
func (h *ServiceHandler) AddService(c *gin.Context) {
	var req serviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	sanitized, errs := util.ValidateService(util.ServiceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if len(errs) > 0 {
		util.ValidationFailed(c, errs)
		return
	}

	service := models.Service{
		Name:        h.Cipher.Encrypt(sanitized.Name),
		Description: h.Cipher.Encrypt(sanitized.Description),
	}
	if err := h.DB.Create(&service).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to add service")
		return
	}

	util.Success(c, util.Response{"service_id": service.ID})
}

// UpdateService handles PUT /api/services/:id.
func (h *ServiceHandler) UpdateService(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid service id")
		return
	}

	var req serviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request body")
		return
	}

	sanitized, errs := util.ValidateService(util.ServiceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if len(errs) > 0 {
		util.ValidationFailed(c, errs)
		return
	}

	res := h.DB.Model(&models.Service{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":        h.Cipher.Encrypt(sanitized.Name),
		"description": h.Cipher.Encrypt(sanitized.Description),
	})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "service not found")
		return
	}

	util.Success(c, util.Response{"message": "service updated"})
}

// DeleteService handles DELETE /api/services/:id. Historical invoice
// lines keep their denormalized copy of the name/description.
func (h *ServiceHandler) DeleteService(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid service id")
		return
	}

	res := h.DB.Delete(&models.Service{}, id)
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "service not found")
		return
	}

	util.Success(c, util.Response{"message": "service deleted"})
}
