package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryPainting    ProductCategory = "painting"
	CategorySculpture   ProductCategory = "sculpture"
	CategoryPhotography ProductCategory = "photography"
	CategoryMixedMedia  ProductCategory = "mixed-media"
	CategoryPrint       ProductCategory = "print"
	CategoryDigital     ProductCategory = "digital"
)

var ProductCategories = []ProductCategory{
	CategoryPainting,
	CategorySculpture,
	CategoryPhotography,
	CategoryMixedMedia,
	CategoryPrint,
	CategoryDigital,
}

func (c ProductCategory) Valid() bool {
	for _, known := range ProductCategories {
		if c == known {
			return true
		}
	}
	return false
}

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "available"
	AvailabilitySold      AvailabilityStatus = "sold"
	AvailabilityOnHold    AvailabilityStatus = "on_hold"
)

type Product struct {
	ID                 string             `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title              string             `gorm:"not null" json:"title"`
	Description        *string            `gorm:"type:text" json:"description"`
	Price              decimal.Decimal    `gorm:"type:numeric(12,2);not null" json:"price"`
	Category           ProductCategory    `gorm:"type:varchar(50);not null;index" json:"category"`
	ImageURL           *string            `json:"image_url"`
	ImagePath          *string            `json:"image_path"`
	IsFeatured         bool               `gorm:"default:false;index" json:"is_featured"`
	OnSale             bool               `gorm:"default:false" json:"on_sale"` // false면 장바구니에 담을 수 없음
	Dimensions         *string            `json:"dimensions"`                   // 예: 16" x 20"
	Medium             *string            `json:"medium"`                       // 예: Acrylic on canvas
	YearCreated        *int               `json:"year_created"`
	EditionSize        *int               `json:"edition_size"`
	FrameIncluded      bool               `gorm:"default:false" json:"frame_included"`
	AvailabilityStatus AvailabilityStatus `gorm:"type:varchar(20);default:'available'" json:"availability_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`

	// Relationships
	CartItems []CartItem `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
