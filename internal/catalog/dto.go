package catalog

// ProductForm carries a create or update request for a product.
type ProductForm struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

// ListFilter narrows the public product listing.
type ListFilter struct {
	CompanyID *int64
	MinPrice  *float64
	MaxPrice  *float64
}
