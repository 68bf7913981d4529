package models

import "time"

// Service is a catalog entry describing what the agency sells. There is
// no price here on purpose: the price lives on the invoice line at the
// time of sale. Name and description are encrypted at rest.
type Service struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:1024;not null"`
	Description string `gorm:"size:2048"`
	CreatedAt   time.Time
}
