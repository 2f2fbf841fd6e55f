// Package domain holds the room and service catalog records the engine
// reads for price fallbacks and promotion scoping. Owned by the property
// management side.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/innkeep/pkg/money"
)

type Room struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	PropertyID  snowflake.ID `gorm:"not null;index"`
	RoomTypeID  snowflake.ID `gorm:"not null;index"`
	Name        string       `gorm:"type:text;not null"`
	NightlyRate money.Money  `gorm:"type:decimal(14,2);not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Room) TableName() string { return "rooms" }

type Service struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;index"`
	Name       string       `gorm:"type:text;not null"`
	UnitPrice  money.Money  `gorm:"type:decimal(14,2);not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Service) TableName() string { return "services" }
