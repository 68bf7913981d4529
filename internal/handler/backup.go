package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shxhid-in/ESSAR/internal/models"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackupHandler writes encrypted JSON snapshots of the billing data to
// disk and tracks them in the backups table.
type BackupHandler struct {
	DB        *gorm.DB
	Cipher    *util.FieldCipher
	BackupDir string
}

func NewBackupHandler(db *gorm.DB, cipher *util.FieldCipher, backupDir string) *BackupHandler {
	return &BackupHandler{
		DB:        db,
		Cipher:    cipher,
		BackupDir: backupDir,
	}
}

// backupData is the snapshot written to each backup file. PII columns
// stay in their stored ciphertext form.
type backupData struct {
	Created    time.Time            `json:"created"`
	Customers  []models.Customer    `json:"customers"`
	Services   []models.Service     `json:"services"`
	Currencies []models.Currency    `json:"currencies"`
	Invoices   []models.Invoice     `json:"invoices"`
	Settings   []models.AppSettings `json:"settings"`
}

// CreateBackup handles POST /api/backups.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	data := backupData{Created: time.Now()}

	if err := h.DB.Order("id ASC").Find(&data.Customers).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if err := h.DB.Order("id ASC").Find(&data.Services).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if err := h.DB.Order("code ASC").Find(&data.Currencies).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if err := h.DB.Preload("Items").Preload("Payment").Order("id ASC").Find(&data.Invoices).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if err := h.DB.Find(&data.Settings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	raw, err := json.MarshalIndent(&data, "", "  ")
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "serialization failed")
		return
	}

	enc := h.Cipher.Encrypt(string(raw))

	if err := os.MkdirAll(h.BackupDir, 0o755); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "backup dir creation failed")
		return
	}

	fileName := fmt.Sprintf("backup-%s-%s.bak",
		time.Now().Format("20060102"), uuid.New().String())
	filePath := filepath.Join(h.BackupDir, fileName)

	if err := os.WriteFile(filePath, []byte(enc), 0o600); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "backup write failed")
		return
	}

	info, _ := os.Stat(filePath)

	backup := models.Backup{
		FileName: fileName,
		FilePath: filePath,
		Size:     info.Size(),
	}
	if err := h.DB.Create(&backup).Error; err != nil {
		_ = os.Remove(filePath)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "backup record failed")
		return
	}

	util.Success(c, util.Response{
		"backup": gin.H{
			"id":         backup.ID,
			"file_name":  backup.FileName,
			"size":       backup.Size,
			"created_at": backup.CreatedAt,
		},
	})
}

// ListBackups handles GET /api/backups.
func (h *BackupHandler) ListBackups(c *gin.Context) {
	var list []models.Backup
	if err := h.DB.Order("created_at DESC").Find(&list).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		b := &list[i]
		items = append(items, gin.H{
			"id":         b.ID,
			"file_name":  b.FileName,
			"size":       b.Size,
			"created_at": b.CreatedAt,
		})
	}

	util.Success(c, util.Response{"items": items})
}

// DownloadBackup handles GET /api/backups/:id/download.
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	var backup models.Backup
	if err := h.DB.First(&backup, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", backup.FileName))
	c.File(backup.FilePath)
}

// DeleteBackup handles DELETE /api/backups/:id.
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	var backup models.Backup
	if err := h.DB.First(&backup, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	// File first, then the record.
	_ = os.Remove(backup.FilePath)
	if err := h.DB.Delete(&backup).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}

	util.Success(c, util.Response{"message": "backup deleted"})
}
