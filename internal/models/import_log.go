package models

import "time"

// ImportLog records one import run or dataset reset.
type ImportLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind      string `gorm:"type:varchar(30);not null;index" json:"kind"`
	Files     int    `gorm:"type:int" json:"files"`
	Rows      int    `gorm:"type:int" json:"rows"`
	Inserted  int    `gorm:"type:int" json:"inserted"`
	Updated   int    `gorm:"type:int" json:"updated"`
	Malformed int    `gorm:"type:int" json:"malformed"`
	Deleted   int    `gorm:"type:int" json:"deleted"`
	Failed    bool   `gorm:"type:boolean;default:false" json:"failed"`
	Note      string `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (ImportLog) TableName() string {
	return "import_logs"
}

// ImportLog kinds
const (
	LogKindImport       = "import"
	LogKindBookingDate  = "booking_date_import"
	LogKindCancellation = "cancellation_import"
	LogKindReset        = "reset"
)
