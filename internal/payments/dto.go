package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billhive/billhive/internal/shared"
)

// PaymentRequest records or edits a receipt.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Mode      Mode            `json:"mode"`
	Reference string          `json:"transactionId" validate:"max=100"`
	Notes     string          `json:"notes" validate:"max=1000"`
	Date      *time.Time      `json:"date"`
}

// ListQuery filters paginated payment listings.
type ListQuery struct {
	Mode    Mode
	Page    int
	PerPage int
}

// ListResponse is a paginated payment listing.
type ListResponse struct {
	Data       []Payment         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}
