package router

import (
	"time"

	"github.com/shxhid-in/ESSAR/internal/config"
	"github.com/shxhid-in/ESSAR/internal/handler"
	"github.com/shxhid-in/ESSAR/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and mounts the billing API.
func SetupRouter(cfg *config.Config, db *gorm.DB, cipher *util.FieldCipher) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Security.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")

	customerHandler := handler.NewCustomerHandler(db, cipher, cfg.App.PageSize)
	api.POST("/customers", customerHandler.SaveCustomer)
	api.GET("/customers", customerHandler.ListCustomers)
	api.GET("/customers/search", customerHandler.SearchCustomers)
	api.DELETE("/customers/:id", customerHandler.DeleteCustomer)

	invoiceHandler := handler.NewInvoiceHandler(db, cipher)
	api.POST("/invoices", invoiceHandler.CreateInvoice)
	api.PUT("/invoices/:id", invoiceHandler.UpdateInvoice)
	api.GET("/invoices", invoiceHandler.ListInvoices)
	api.GET("/invoices/by-customer", invoiceHandler.ListInvoicesByCustomer)
	api.GET("/invoices/:id", invoiceHandler.GetInvoice)
	api.DELETE("/invoices/:id", invoiceHandler.DeleteInvoice)
	api.GET("/invoices/:id/payment", invoiceHandler.GetPayment)
	api.POST("/invoices/:id/payment", invoiceHandler.RecordPayment)

	serviceHandler := handler.NewServiceHandler(db, cipher)
	api.GET("/services", serviceHandler.ListServices)
	api.POST("/services", serviceHandler.AddService)
	api.PUT("/services/:id", serviceHandler.UpdateService)
	api.DELETE("/services/:id", serviceHandler.DeleteService)

	currencyHandler := handler.NewCurrencyHandler(db)
	api.GET("/currencies", currencyHandler.ListCurrencies)
	api.POST("/currencies", currencyHandler.AddCurrency)
	api.PUT("/currencies/:code", currencyHandler.UpdateCurrency)
	api.DELETE("/currencies/:code", currencyHandler.DeleteCurrency)

	settingsHandler := handler.NewSettingsHandler(db)
	api.GET("/settings", settingsHandler.GetSettings)
	api.PUT("/settings", settingsHandler.UpdateSettings)

	reportHandler := handler.NewReportHandler(db, cipher)
	api.GET("/reports/kpis", reportHandler.GetBusinessKPIs)
	api.GET("/reports/revenue", reportHandler.GetRevenueSeries)
	api.GET("/reports/customer-growth", reportHandler.GetCustomerGrowth)
	api.GET("/reports/services", reportHandler.GetServicePerformance)
	api.GET("/reports/customers/top", reportHandler.GetTopCustomers)
	api.GET("/reports/discounts", reportHandler.GetDiscountAnalysis)
	api.GET("/reports/currencies", reportHandler.GetCurrencyPerformance)

	exportHandler := handler.NewExportHandler(db, cipher)
	api.GET("/export/invoices/csv", exportHandler.ExportCSV)
	api.GET("/export/invoices/xlsx", exportHandler.ExportXLSX)

	backupHandler := handler.NewBackupHandler(db, cipher, cfg.Backup.Dir)
	api.POST("/backups", backupHandler.CreateBackup)
	api.GET("/backups", backupHandler.ListBackups)
	api.GET("/backups/:id/download", backupHandler.DownloadBackup)
	api.DELETE("/backups/:id", backupHandler.DeleteBackup)

	return r
}
