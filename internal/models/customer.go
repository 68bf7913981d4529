package models

import "time"

// Customer holds the agency's client book. Name, phone, email and
// address are stored encrypted (hex AES-GCM), so column sizes leave
// room for ciphertext expansion.
type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:1024;not null"`
	Phone     string `gorm:"size:1024"`
	Email     string `gorm:"size:1024"`
	Address   string `gorm:"size:2048"`
	CreatedAt time.Time
}
