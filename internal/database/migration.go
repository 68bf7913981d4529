package database

import (
	"fmt"

	"github.com/shxhid-in/ESSAR/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Service{},
		&models.Currency{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoicePayment{},
		&models.AppSettings{},
		&models.InvoiceSequence{},
		&models.Backup{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

var defaultServices = []models.Service{
	{Name: "Flight Booking", Description: "International flight booking service"},
	{Name: "Hotel Reservation", Description: "Hotel accommodation booking"},
	{Name: "Visa Processing", Description: "Visa application and processing"},
	{Name: "Travel Insurance", Description: "Comprehensive travel insurance"},
	{Name: "Airport Transfer", Description: "Airport pickup and drop service"},
}

// rates are manual multipliers against the implicit common unit (INR).
var defaultCurrencies = []models.Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: 83.5},
	{Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: 90.2},
	{Code: "GBP", Name: "British Pound", Symbol: "£", ExchangeRate: 105.8},
	{Code: "AED", Name: "UAE Dirham", Symbol: "د.إ", ExchangeRate: 22.7},
	{Code: "INR", Name: "Indian Rupee", Symbol: "₹", ExchangeRate: 1.0},
}

// Seed inserts the default catalog, currencies, the settings singleton
// and the invoice sequence counter on first run. Existing rows are
// never overwritten, so a user's edited rates survive restarts.
//
// Default services are seeded in plaintext; reads tolerate the mixed
// state via the encrypted-or-plaintext detection at the codec.
func Seed(db *gorm.DB) error {
	for _, svc := range defaultServices {
		var count int64
		db.Model(&models.Service{}).Where("name = ?", svc.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&svc).Error; err != nil {
				return fmt.Errorf("seed service %q: %w", svc.Name, err)
			}
		}
	}

	for _, cur := range defaultCurrencies {
		var count int64
		db.Model(&models.Currency{}).Where("code = ?", cur.Code).Count(&count)
		if count == 0 {
			if err := db.Create(&cur).Error; err != nil {
				return fmt.Errorf("seed currency %s: %w", cur.Code, err)
			}
		}
	}

	settings := models.AppSettings{
		ID:              1,
		DefaultCurrency: "USD",
		BaseCurrency:    "INR",
		CompanyName:     "Essar Travel Hub",
	}
	if err := db.Where(models.AppSettings{ID: 1}).FirstOrCreate(&settings).Error; err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	seq := models.InvoiceSequence{ID: 1, CurrentSequence: 0}
	if err := db.Where(models.InvoiceSequence{ID: 1}).FirstOrCreate(&seq).Error; err != nil {
		return fmt.Errorf("seed invoice sequence: %w", err)
	}

	return nil
}
