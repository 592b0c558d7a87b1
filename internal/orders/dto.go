package orders

type CreateSalesOrderRequest struct {
	CompanyID  int64                       `json:"company_id" validate:"required,gt=0"`
	CustomerID int64                       `json:"customer_id" validate:"required,gt=0"`
	Currency   string                      `json:"currency" validate:"required,len=3"`
	Notes      *string                     `json:"notes,omitempty"`
	Items      []CreateSalesOrderItemReq   `json:"items" validate:"required,min=1,dive"`
}

type CreateSalesOrderItemReq struct {
	ItemCode    string  `json:"item_code" validate:"required,max=140"`
	Description *string `json:"description,omitempty"`
	Warehouse   string  `json:"warehouse" validate:"required,max=140"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	TaxPercent  float64 `json:"tax_percent" validate:"gte=0,lte=100"`
}

type TransitionRequest struct {
	Action Action `json:"action" validate:"required"`
}

type ListSalesOrdersRequest struct {
	CompanyID  int64   `json:"company_id" validate:"required,gt=0"`
	CustomerID *int64  `json:"customer_id,omitempty"`
	Status     *Status `json:"status,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
