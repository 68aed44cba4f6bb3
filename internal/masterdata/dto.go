package masterdata

import "github.com/shopspring/decimal"

// AddressInput carries address fields on write requests.
type AddressInput struct {
	Street  string `json:"street" validate:"max=300"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	Pincode string `json:"pincode" validate:"max=10"`
	Country string `json:"country" validate:"max=100"`
}

func (a AddressInput) toAddress() Address {
	addr := Address(a)
	if addr.Country == "" {
		addr.Country = "India"
	}
	return addr
}

// BankDetailsInput carries bank fields on business upserts.
type BankDetailsInput struct {
	AccountName   string `json:"accountName" validate:"max=200"`
	AccountNumber string `json:"accountNumber" validate:"max=30"`
	IFSC          string `json:"ifsc" validate:"max=11"`
	BankName      string `json:"bankName" validate:"max=200"`
	Branch        string `json:"branch" validate:"max=200"`
}

// BusinessRequest upserts the seller profile. Counters are not writable here.
type BusinessRequest struct {
	Name            string           `json:"name" validate:"required,max=200"`
	GSTIN           string           `json:"gstin" validate:"max=15"`
	PAN             string           `json:"pan" validate:"max=10"`
	Phone           string           `json:"phone" validate:"max=20"`
	Email           string           `json:"email" validate:"omitempty,email"`
	Address         AddressInput     `json:"address"`
	BankDetails     BankDetailsInput `json:"bankDetails"`
	InvoicePrefix   string           `json:"invoicePrefix" validate:"max=10"`
	QuotationPrefix string           `json:"quotationPrefix" validate:"max=10"`
	Terms           string           `json:"terms" validate:"max=2000"`
	GSTEnabled      *bool            `json:"gstEnabled"`
}

// CustomerRequest creates or updates a customer. OutstandingBalance is
// deliberately absent.
type CustomerRequest struct {
	Name    string       `json:"name" validate:"required,max=200"`
	Phone   string       `json:"phone" validate:"max=20"`
	Email   string       `json:"email" validate:"omitempty,email"`
	GSTIN   string       `json:"gstin" validate:"max=15"`
	Address AddressInput `json:"address"`
}

// ProductRequest creates or updates a catalogue product.
type ProductRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"max=1000"`
	HSNCode           string          `json:"hsnCode" validate:"max=20"`
	PartNo            string          `json:"partNo" validate:"max=50"`
	Price             decimal.Decimal `json:"price"`
	GSTRate           *int            `json:"gstRate"`
	Unit              Unit            `json:"unit"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"lowStockThreshold"`
}

// ListQuery filters paginated customer and product listings.
type ListQuery struct {
	Search  string
	Page    int
	PerPage int
}
