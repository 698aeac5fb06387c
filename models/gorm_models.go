// models/gorm_models.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// CenterModel 场馆表
type CenterModel struct {
	ID          string          `gorm:"primaryKey;size:64"`
	Position    int             `gorm:"not null;index"`
	Name        string          `gorm:"not null"`
	Tag         string          `gorm:"size:32"`
	Description string          `gorm:"type:text"`
	Address     string          `gorm:"type:text"`
	Manager     string
	Scenarios   []ScenarioModel `gorm:"foreignKey:CenterID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CenterModel) TableName() string { return "centers" }

// ScenarioModel 场景表，主键为 (center_id, position)
type ScenarioModel struct {
	CenterID       string         `gorm:"primaryKey;size:64"`
	Position       int            `gorm:"primaryKey;autoIncrement:false"`
	Name           string         `gorm:"not null"`
	Status         string         `gorm:"size:32;not null"`
	Reason         string         `gorm:"type:text"`
	StartAt        string         `gorm:"column:start_at;size:64"`
	ExpectedReopen string         `gorm:"size:64"`
	Difficulty     string         `gorm:"size:64"`
	Capacity       string         `gorm:"size:32"`
	OpenedOn       string         `gorm:"size:64"`
	Versions       pq.StringArray `gorm:"type:text[]"`
	UpdatedAt      time.Time
}

func (ScenarioModel) TableName() string { return "scenarios" }
