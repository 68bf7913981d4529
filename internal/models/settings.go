package models

// AppSettings is a singleton row (id=1). TaxRate and InvoicePrefix are
// stored and editable but not applied anywhere yet; the company fields
// only appear in rendered output.
type AppSettings struct {
	ID              uint    `gorm:"primaryKey"`
	DefaultCurrency string  `gorm:"size:8;default:USD"`
	BaseCurrency    string  `gorm:"size:8;default:INR"`
	TaxRate         float64 `gorm:"default:0"`
	InvoicePrefix   string  `gorm:"size:16"`
	CompanyName     string  `gorm:"size:255"`
	CompanyAddress  string  `gorm:"size:500"`
	CompanyPhone    string  `gorm:"size:64"`
	CompanyEmail    string  `gorm:"size:255"`
}

// InvoiceSequence is the singleton counter (id=1) behind invoice
// numbers. It only ever increments; the month prefix on the number does
// not reset it.
type InvoiceSequence struct {
	ID              uint  `gorm:"primaryKey"`
	CurrentSequence int64 `gorm:"not null;default:0"`
}
