// Package billing implements invoice and quotation lifecycles: document
// numbering, GST tax splits, and the stock and customer balance ledger.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType distinguishes invoices from quotations. Only invoices post to
// the ledger and accept payments.
type DocumentType string

const (
	TypeInvoice   DocumentType = "INVOICE"
	TypeQuotation DocumentType = "QUOTATION"
)

// ValidDocumentType reports whether t is a known document type.
func ValidDocumentType(t DocumentType) bool {
	return t == TypeInvoice || t == TypeQuotation
}

// PaymentStatus is derived from paid amount against grand total, never set
// directly.
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "UNPAID"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusPaid    PaymentStatus = "PAID"
)

// DeriveStatus computes the payment status for a document.
func DeriveStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total) && total.IsPositive():
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// Process is a job-work step priced into a line item. When a line carries
// processes, the unit price is the sum of the process amounts.
type Process struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// LineItem is a priced row on a document. Product fields are snapshots taken
// at resolution time; later catalogue edits do not rewrite history.
type LineItem struct {
	ID          int64           `json:"id"`
	DocumentID  int64           `json:"-"`
	ProductID   *int64          `json:"productId,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	HSNCode     string          `json:"hsnCode,omitempty"`
	PartNo      string          `json:"partNo,omitempty"`
	Tool        string          `json:"tool,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	GSTRate     int             `json:"gstRate"`
	Processes   []Process       `json:"processes,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// CustomerSnapshot freezes buyer details on the document so it stays
// printable after the customer record changes or is deleted.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"address,omitempty"`
	State   string `json:"state,omitempty"`
}

// Transport carries e-way bill details for goods movement.
type Transport struct {
	EwayBillNo  string `json:"ewayBillNo,omitempty"`
	VehicleNo   string `json:"vehicleNo,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Transporter string `json:"transporter,omitempty"`
}

// Document is an invoice or quotation with its tax breakdown.
type Document struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"-"`
	Type       DocumentType     `json:"type"`
	Number     string           `json:"number"`
	CustomerID *int64           `json:"customerId,omitempty"`
	Customer   CustomerSnapshot `json:"customer"`
	Date       time.Time        `json:"date"`
	DueDate    *time.Time       `json:"dueDate,omitempty"`
	Items      []LineItem       `json:"items"`
	GSTEnabled bool             `json:"gstEnabled"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	Discount   decimal.Decimal  `json:"discount"`
	CGST       decimal.Decimal  `json:"cgst"`
	SGST       decimal.Decimal  `json:"sgst"`
	IGST       decimal.Decimal  `json:"igst"`
	Total      decimal.Decimal  `json:"total"`
	PaidAmount decimal.Decimal  `json:"paidAmount"`
	Status     PaymentStatus    `json:"status"`
	Notes      string           `json:"notes,omitempty"`
	Terms      string           `json:"terms,omitempty"`
	Transport  Transport        `json:"transport"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Balance returns the amount still owed on the document.
func (d *Document) Balance() decimal.Decimal {
	return d.Total.Sub(d.PaidAmount)
}
