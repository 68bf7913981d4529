package models

import "time"

// Invoice keeps a denormalized, encrypted copy of the customer fields
// as they were at invoice time. Editing or deleting the customer later
// never touches issued invoices.
//
// Invariant: GrandTotal = SubTotal - Discount, SubTotal = sum of item
// prices. A discount larger than the subtotal yields a negative grand
// total and is stored as computed.
type Invoice struct {
	ID              uint      `gorm:"primaryKey"`
	InvoiceNumber   string    `gorm:"size:32;uniqueIndex;not null"`
	CustomerName    string    `gorm:"size:1024;not null"`
	CustomerAddress string    `gorm:"size:2048"`
	CustomerPhone   string    `gorm:"size:1024"`
	RefNo           string    `gorm:"size:255"`
	Currency        string    `gorm:"size:8;not null"`
	InvoiceDate     time.Time `gorm:"index;not null"`
	SubTotal        float64   `gorm:"not null"`
	Discount        float64   `gorm:"default:0"`
	GrandTotal      float64   `gorm:"not null"`
	CreatedAt       time.Time

	Items   []InvoiceItem   `gorm:"constraint:OnDelete:CASCADE"`
	Payment *InvoicePayment `gorm:"constraint:OnDelete:CASCADE"`
}

// InvoiceItem stores only the service name/description captured at time
// of sale, never a catalog id, so later catalog edits don't rewrite
// history. Profit per item = Price - PurchasePrice.
type InvoiceItem struct {
	ID                 uint    `gorm:"primaryKey"`
	InvoiceID          uint    `gorm:"index;not null"`
	ServiceName        string  `gorm:"size:255;not null"`
	ServiceDescription string  `gorm:"size:1024"`
	PurchasePrice      float64 `gorm:"default:0"`
	Price              float64 `gorm:"not null"`
}
