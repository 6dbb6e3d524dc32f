package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Property is one lodging unit (inn) managed in the dashboard.
type Property struct {
	ID    string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Tag   string `gorm:"type:varchar(50)" json:"tag,omitempty"`
	Label string `gorm:"type:varchar(320);not null;uniqueIndex" json:"label"`

	// 所在地
	Address string `gorm:"type:text" json:"address,omitempty"`
	MapURL  string `gorm:"type:text" json:"map_url,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName はテーブル名を明示的に指定
func (Property) TableName() string {
	return "properties"
}

// DisplayLabel returns "tag.name" when a tag is set, otherwise the bare name.
// Imported reservation rows are joined to properties on this value only.
func DisplayLabel(name, tag string) string {
	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return name
	}
	return tag + "." + name
}

// RefreshLabel recomputes the derived label from name and tag.
func (p *Property) RefreshLabel() {
	p.Name = strings.TrimSpace(p.Name)
	p.Tag = strings.TrimSpace(p.Tag)
	p.Label = DisplayLabel(p.Name, p.Tag)
}

// BeforeSave keeps the stored label in sync with name and tag.
func (p *Property) BeforeSave(tx *gorm.DB) error {
	p.RefreshLabel()
	return nil
}
