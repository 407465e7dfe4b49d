package models

import (
	"time"
)

// Product represents a catalog entry
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	VP          float64   `json:"vp" db:"vp"`
	Category    string    `json:"category" db:"category"`
	Subcategory string    `json:"subcategory" db:"subcategory"`
	Stock       int       `json:"stock" db:"stock"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// InStock reports whether qty units can be sold.
func (p *Product) InStock(qty int) bool {
	return p.IsActive && qty > 0 && p.Stock >= qty
}

// ProductRequest is the admin create/update payload.
type ProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required,min=0"`
	VP          float64  `json:"vp" binding:"min=0"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Stock       int      `json:"stock" binding:"min=0"`
	ImageURL    *string  `json:"image_url,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// ToProduct converts the request into a product value.
func (r ProductRequest) ToProduct() Product {
	p := Product{
		Name:        r.Name,
		Description: r.Description,
		VP:          r.VP,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		IsActive:    true,
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p
}

// ProductListParams filters the catalog listing.
type ProductListParams struct {
	ListParams
	Category        string `form:"category"`
	Subcategory     string `form:"subcategory"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ProductListResponse is a paginated product page.
type ProductListResponse struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// Category groups products, with its subcategories.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	ProductCount  int      `json:"product_count"`
}
