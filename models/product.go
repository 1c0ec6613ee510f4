package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string         `gorm:"not null;index" json:"name"`
	Price       float64        `gorm:"not null" json:"price"`
	Image       *string        `json:"image"`
	Description string         `json:"description"`
	Brand       string         `json:"brand"`
	Stock       int            `gorm:"default:0" json:"stock"`
	Status      string         `gorm:"default:active" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LineItem builds a cart line for this product with the given quantity,
// snapshotting the current name, price and image.
func (p *Product) LineItem(quantity int) CartLineItem {
	return CartLineItem{
		ProductID:    p.ID.String(),
		Quantity:     quantity,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		ProductImage: p.Image,
	}
}
