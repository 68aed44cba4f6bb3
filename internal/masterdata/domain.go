// Package masterdata manages the business profile, customers and products
// that billing documents draw on.
package masterdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the stock keeping unit of a product.
type Unit string

// Supported product units.
const (
	UnitPCS   Unit = "PCS"
	UnitKG    Unit = "KG"
	UnitLiter Unit = "LITER"
	UnitMeter Unit = "METER"
	UnitBox   Unit = "BOX"
	UnitDozen Unit = "DOZEN"
	UnitSet   Unit = "SET"
)

// ValidUnit reports whether u is a supported unit.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitPCS, UnitKG, UnitLiter, UnitMeter, UnitBox, UnitDozen, UnitSet:
		return true
	}
	return false
}

// GSTRates lists the rate slabs accepted on products and line items.
var GSTRates = []int{0, 5, 12, 18, 28}

// ValidGSTRate reports whether rate is one of the accepted slabs.
func ValidGSTRate(rate int) bool {
	for _, r := range GSTRates {
		if r == rate {
			return true
		}
	}
	return false
}

// Address is a postal address attached to the business or a customer.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// BankDetails are printed on invoices for payment collection.
type BankDetails struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bankName"`
	Branch        string `json:"branch"`
}

// Business is the seller profile. Each owner account holds exactly one; the
// document number counters live here and are advanced atomically by billing.
type Business struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"-"`
	Name             string      `json:"name"`
	GSTIN            string      `json:"gstin"`
	PAN              string      `json:"pan"`
	Phone            string      `json:"phone"`
	Email            string      `json:"email"`
	Address          Address     `json:"address"`
	BankDetails      BankDetails `json:"bankDetails"`
	InvoicePrefix    string      `json:"invoicePrefix"`
	InvoiceCounter   int64       `json:"invoiceCounter"`
	QuotationPrefix  string      `json:"quotationPrefix"`
	QuotationCounter int64       `json:"quotationCounter"`
	Terms            string      `json:"terms"`
	GSTEnabled       bool        `json:"gstEnabled"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Customer is a buyer. OutstandingBalance is ledger-maintained: it only moves
// through invoice and payment postings, never by direct edit.
type Customer struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"-"`
	Name               string          `json:"name"`
	Phone              string          `json:"phone"`
	Email              string          `json:"email"`
	GSTIN              string          `json:"gstin"`
	Address            Address         `json:"address"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Product is a catalogue entry. Stock is ledger-maintained by invoice
// postings; direct edits set the opening level only.
type Product struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"-"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	HSNCode           string          `json:"hsnCode"`
	PartNo            string          `json:"partNo"`
	Price             decimal.Decimal `json:"price"`
	GSTRate           int             `json:"gstRate"`
	Unit              Unit            `json:"unit"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"lowStockThreshold"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// LowOnStock reports whether the product has fallen to or under its
// threshold.
func (p Product) LowOnStock() bool {
	return p.Stock.LessThanOrEqual(p.LowStockThreshold)
}
