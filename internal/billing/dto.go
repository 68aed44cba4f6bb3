package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billhive/billhive/internal/shared"
)

// ProcessInput is one job-work step on a line item.
type ProcessInput struct {
	Name   string          `json:"name" validate:"required,max=200"`
	Amount decimal.Decimal `json:"amount"`
}

// LineItemInput describes one requested row. Resolution order: productId,
// then a case-insensitive catalogue match on productName, then an ad-hoc
// line priced from the request alone. TaxRate is the older name some
// clients still send for gstRate; gstRate wins when both are present.
type LineItemInput struct {
	ProductID   *int64           `json:"productId"`
	ProductName string           `json:"productName" validate:"max=200"`
	Description string           `json:"description" validate:"max=1000"`
	HSNCode     string           `json:"hsnCode" validate:"max=20"`
	PartNo      string           `json:"partNo" validate:"max=50"`
	Tool        string           `json:"tool" validate:"max=100"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Unit        string           `json:"unit" validate:"max=10"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	GSTRate     *int             `json:"gstRate"`
	TaxRate     *int             `json:"taxRate"`
	Processes   []ProcessInput   `json:"processes" validate:"dive"`
}

// TransportInput carries optional e-way bill fields.
type TransportInput struct {
	EwayBillNo  string `json:"ewayBillNo" validate:"max=20"`
	VehicleNo   string `json:"vehicleNo" validate:"max=20"`
	Mode        string `json:"mode" validate:"max=30"`
	Transporter string `json:"transporter" validate:"max=200"`
}

// DocumentRequest creates or updates a document. On update the type is
// fixed; use conversion to turn a quotation into an invoice.
type DocumentRequest struct {
	Type         DocumentType     `json:"type"`
	CustomerID   *int64           `json:"customerId"`
	CustomerName string           `json:"customerName" validate:"max=200"`
	Phone        string           `json:"phone" validate:"max=20"`
	Email        string           `json:"email" validate:"omitempty,email"`
	GSTIN        string           `json:"gstin" validate:"max=15"`
	Address      string           `json:"address" validate:"max=500"`
	State        string           `json:"state" validate:"max=100"`
	Date         *time.Time       `json:"date"`
	DueDate      *time.Time       `json:"dueDate"`
	Items        []LineItemInput  `json:"items" validate:"required,min=1,dive"`
	Discount     decimal.Decimal  `json:"discount"`
	PaidAmount   *decimal.Decimal `json:"paidAmount"`
	GSTEnabled   *bool            `json:"gstEnabled"`
	Notes        string           `json:"notes" validate:"max=2000"`
	Transport    TransportInput   `json:"transport"`
}

// ListFilter narrows document listings.
type ListFilter struct {
	Type     DocumentType
	Status   PaymentStatus
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}

// ListResponse is a paginated document listing.
type ListResponse struct {
	Data       []Document        `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// Stats summarises billing activity for the dashboard.
type Stats struct {
	TotalInvoices     int             `json:"totalInvoices"`
	TotalQuotations   int             `json:"totalQuotations"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalOutstanding  decimal.Decimal `json:"totalOutstanding"`
	PaidInvoices      int             `json:"paidInvoices"`
	PartialInvoices   int             `json:"partialInvoices"`
	UnpaidInvoices    int             `json:"unpaidInvoices"`
	RevenueThisMonth  decimal.Decimal `json:"revenueThisMonth"`
	InvoicesThisMonth int             `json:"invoicesThisMonth"`
}
