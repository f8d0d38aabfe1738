package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/versioning"
)

type Company struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	GSTIN        string       `gorm:"column:gstin" json:"gstin,omitempty"`
	PAN          string       `gorm:"column:pan" json:"pan,omitempty"`
	BaseCurrency string       `gorm:"not null;default:'INR'" json:"base_currency"`
	FYStartMonth int          `gorm:"column:fy_start_month;not null;default:4" json:"fy_start_month"`
	IsDeleted    bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	versioning.VersionedModel
}

func (Company) TableName() string { return "companies" }

func (c *Company) EntityID() snowflake.ID { return c.ID }
