package checkout

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Details is the payment form content. The card number is only passed to the
// processor and never stored.
type Details struct {
	Name       string
	CardNumber string
	Expiry     string // MM/YY
	CVC        string
}

// Normalized returns a copy with whitespace trimmed and spaces removed from
// the card number.
func (d Details) Normalized() Details {
	return Details{
		Name:       strings.TrimSpace(d.Name),
		CardNumber: strings.ReplaceAll(strings.TrimSpace(d.CardNumber), " ", ""),
		Expiry:     strings.TrimSpace(d.Expiry),
		CVC:        strings.TrimSpace(d.CVC),
	}
}

// Validate checks a normalized form. An expiry month equal to the current
// one is still valid.
func (d Details) Validate(now time.Time) error {
	if d.Name == "" {
		return &InvalidDetailsError{Field: "name", Reason: "required"}
	}
	if n := len(d.CardNumber); n < 12 || n > 19 || !digits(d.CardNumber) {
		return &InvalidDetailsError{Field: "card number", Reason: "must be 12 to 19 digits"}
	}
	if n := len(d.CVC); n < 3 || n > 4 || !digits(d.CVC) {
		return &InvalidDetailsError{Field: "cvc", Reason: "must be 3 or 4 digits"}
	}

	month, year, ok := parseExpiry(d.Expiry)
	if !ok {
		return &InvalidDetailsError{Field: "expiry", Reason: "must be MM/YY"}
	}
	// First instant after the card's last valid month.
	end := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(end) {
		return &InvalidDetailsError{Field: "expiry", Reason: "card expired"}
	}
	return nil
}

func parseExpiry(s string) (month, year int, ok bool) {
	mm, yy, found := strings.Cut(s, "/")
	if !found || len(mm) != 2 || len(yy) != 2 || !digits(mm) || !digits(yy) {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(mm)
	year, _ = strconv.Atoi(yy)
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return month, year, true
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Receipt confirms a successful charge.
type Receipt struct {
	Reference string
}

// Processor charges a payment method. A declined charge is an error.
type Processor interface {
	Charge(ctx context.Context, amount decimal.Decimal, details Details) (Receipt, error)
}
