package model

import "time"

type User struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Email     string    `gorm:"size:320;not null;uniqueIndex"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
