package models

import "time"

// Currency keys on the 3-letter code. ExchangeRate is the multiplier
// that converts 1 unit of this currency into the implicit common unit;
// cross-currency conversion divides by the base currency's rate.
type Currency struct {
	Code         string  `gorm:"primaryKey;size:8"`
	Name         string  `gorm:"size:64;not null"`
	Symbol       string  `gorm:"size:16"`
	ExchangeRate float64 `gorm:"default:1.0"`
	CreatedAt    time.Time
}
