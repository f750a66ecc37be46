package domain

// Product is a catalog record as served by the product API.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

// ProductDraft is the writable part of a Product, used to create or update one.
type ProductDraft struct {
	Title       string  `json:"title" validate:"required,notblank"`
	Description string  `json:"description" validate:"required,notblank"`
	Category    string  `json:"category" validate:"required,notblank"`
	Price       float64 `json:"price" validate:"gte=0"`
	Image       string  `json:"image" validate:"required,url"`
}
