package model

// Grade is the refurbishment grade printed on the listing.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Product is one sellable SKU. Stock only moves through the stock ledger.
type Product struct {
	BaseModel
	SKU      string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required,notblank,max=50"`
	Name     string `gorm:"type:varchar(255);not null" json:"name" validate:"required,notblank"`
	Brand    string `gorm:"type:varchar(100)" json:"brand"`
	Category string `gorm:"type:varchar(100);index;not null" json:"category" validate:"required,notblank"`
	Grade    Grade  `gorm:"type:varchar(2)" json:"grade" validate:"omitempty,oneof=A B C D"`
	Price    int64  `gorm:"not null;default:0" json:"price" validate:"gte=0"` // paise
	Stock    int    `gorm:"not null;default:0;check:stock >= 0" json:"stock" validate:"gte=0"`
	ImageURL string `gorm:"type:varchar(500)" json:"image_url,omitempty"`
}
