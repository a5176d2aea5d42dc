package model

import (
	"time"

	"github.com/google/uuid"
)

// Channel is where a sale originated.
type Channel string

const (
	ChannelOnline   Channel = "Online"
	ChannelOffline  Channel = "Offline"
	ChannelFlipkart Channel = "Flipkart"
	ChannelAmazon   Channel = "Amazon"
)

var Channels = []Channel{ChannelOnline, ChannelOffline, ChannelFlipkart, ChannelAmazon}

func (c Channel) Valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// IsOnline reports whether the sale went through storefront checkout.
// Every other channel is an admin-entered offline or marketplace sale.
func (c Channel) IsOnline() bool { return c == ChannelOnline }

type SaleStatus string

const (
	StatusProcessing SaleStatus = "Processing"
	StatusShipped    SaleStatus = "Shipped"
	StatusDelivered  SaleStatus = "Delivered"
	StatusCancelled  SaleStatus = "Cancelled"
	// StatusCompleted is the only status of an offline sale; it is final on creation.
	StatusCompleted SaleStatus = "Completed"
)

type AllocationState string

const (
	AllocationUnallocated AllocationState = "Unallocated"
	AllocationShipped     AllocationState = "Shipped"
)

// Sale covers both storefront orders and offline customer purchases.
// Everything except Status and serial allocation is immutable after creation.
type Sale struct {
	BaseModel
	Channel         Channel        `gorm:"type:varchar(20);not null;index" json:"channel"`
	Status          SaleStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CustomerID      *uuid.UUID     `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	CustomerName    string         `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail   string         `gorm:"type:varchar(255);index" json:"customer_email"`
	CustomerPhone   string         `gorm:"type:varchar(30)" json:"customer_phone"`
	ShippingAddress string         `gorm:"type:text" json:"shipping_address"`
	PaymentMethod   string         `gorm:"type:varchar(30)" json:"payment_method"`
	Note            string         `gorm:"type:text" json:"note,omitempty"`
	LineItems       []SaleLineItem `gorm:"foreignKey:SaleID" json:"line_items"`
	Subtotal        int64          `gorm:"not null" json:"subtotal"`
	TaxAmount       int64          `gorm:"not null" json:"tax_amount"`
	ShippingAmount  int64          `gorm:"not null;default:0" json:"shipping_amount"`
	TotalAmount     int64          `gorm:"not null" json:"total_amount"`
	ShippedAt       *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time     `json:"delivered_at,omitempty"`
}

// SaleLineItem snapshots the product as it was when the sale was recorded.
type SaleLineItem struct {
	BaseModel
	SaleID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	SKU             string          `gorm:"type:varchar(50)" json:"sku"`
	Name            string          `gorm:"type:varchar(255)" json:"name"`
	Category        string          `gorm:"type:varchar(100)" json:"category"`
	UnitPrice       int64           `gorm:"not null" json:"unit_price"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	LineTotal       int64           `gorm:"not null" json:"line_total"`
	Serials         []string        `gorm:"type:text;serializer:json" json:"serials"`
	AllocationState AllocationState `gorm:"type:varchar(20);not null" json:"allocation_state"`
}

func (s *Sale) IsOnline() bool { return s.Channel.IsOnline() }

// CountsAsSold reports whether the sale's units are sold for inventory rollups:
// online units once shipped, offline units always.
func (s *Sale) CountsAsSold() bool {
	if !s.IsOnline() {
		return true
	}
	return s.Status == StatusShipped || s.Status == StatusDelivered
}

// LineSum is Σ unit_price * quantity over the line items.
func (s *Sale) LineSum() int64 {
	var sum int64
	for _, item := range s.LineItems {
		sum += item.UnitPrice * int64(item.Quantity)
	}
	return sum
}

// SerialOverride records an admin correction of serials on a shipped line.
type SerialOverride struct {
	BaseModel
	SaleID     uuid.UUID `gorm:"type:uuid;not null;index" json:"sale_id"`
	LineItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"line_item_id"`
	OldSerials []string  `gorm:"type:text;serializer:json" json:"old_serials"`
	NewSerials []string  `gorm:"type:text;serializer:json" json:"new_serials"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
}
