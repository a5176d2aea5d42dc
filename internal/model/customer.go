package model

import "strings"

// OfflineCustomer groups the offline and marketplace purchases of one buyer.
// TotalSales is a cached sum and must always equal Σ Purchases[i].TotalAmount.
type OfflineCustomer struct {
	BaseModel
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Email      string `gorm:"type:varchar(255);index" json:"email"`
	Phone      string `gorm:"type:varchar(30);index" json:"phone"`
	Address    string `gorm:"type:text" json:"address"`
	ContactKey string `gorm:"type:varchar(300);not null;uniqueIndex" json:"-"`
	TotalSales int64  `gorm:"not null;default:0" json:"total_sales"`
	Purchases  []Sale `gorm:"foreignKey:CustomerID" json:"purchases,omitempty"`
}

// CustomerKey returns the identity used to merge buyers: the lowercased
// email when present, else the phone, else the lowercased name. An empty key
// means the record cannot be attributed to anyone.
func CustomerKey(email, phone, name string) string {
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		return "email:" + e
	}
	if p := strings.TrimSpace(phone); p != "" {
		return "phone:" + p
	}
	if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
		return "name:" + n
	}
	return ""
}

// PurchaseTotal recomputes the cached TotalSales from loaded purchases.
func (c *OfflineCustomer) PurchaseTotal() int64 {
	var total int64
	for _, p := range c.Purchases {
		total += p.TotalAmount
	}
	return total
}
