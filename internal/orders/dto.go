package orders

// PlaceOrderRequest is the inbound contract for order placement. CompanyID
// is optional: the order's company is derived from the products themselves,
// and a non-zero CompanyID is checked against that derivation.
type PlaceOrderRequest struct {
	CompanyID int64              `json:"company_id" validate:"gte=0"`
	Items     []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest is one requested line.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// PlacedOrderResponse is the summary returned after a successful placement.
type PlacedOrderResponse struct {
	Message string `json:"message"`
	Order   *Order `json:"order"`
}

// UpdateStatusRequest carries the requested status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
