package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          string  `json:"id" gorm:"type:uuid;primary_key"`
	Name        string  `json:"name" gorm:"uniqueIndex;not null"`
	Description *string `json:"description"`
	MenuOrder   int     `json:"menu_order"`

	// VendorID is the back-reference to the vendor category. At most one
	// local category per vendor id after a run.
	VendorID string `json:"vendor_id" gorm:"index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
