// Package payments records money received against invoices and keeps the
// invoice paid amount and customer balance in step.
package payments

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode is the payment instrument.
type Mode string

// Supported payment modes.
const (
	ModeCash   Mode = "CASH"
	ModeUPI    Mode = "UPI"
	ModeBank   Mode = "BANK"
	ModeCard   Mode = "CARD"
	ModeCheque Mode = "CHEQUE"
	ModeACH    Mode = "ACH"
)

// ValidMode reports whether m is a supported payment mode.
func ValidMode(m Mode) bool {
	switch m {
	case ModeCash, ModeUPI, ModeBank, ModeCard, ModeCheque, ModeACH:
		return true
	}
	return false
}

// Payment is one receipt against an invoice.
type Payment struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"-"`
	DocumentID    int64           `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	Number        string          `json:"number"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          Mode            `json:"mode"`
	Reference     string          `json:"transactionId,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewNumber mints a receipt number.
func NewNumber() string {
	return "PAY-" + strings.ToUpper(uuid.NewString()[:8])
}
