package model

import "github.com/google/uuid"

type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// StockMovement is the journal row written next to every stock debit or credit.
type StockMovement struct {
	BaseModel
	ProductID uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product     `json:"product,omitempty"`
	Type      MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	SaleID    *uuid.UUID   `gorm:"type:uuid;index" json:"sale_id,omitempty"`
	Note      string       `json:"note"`
}
