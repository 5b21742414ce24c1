package payment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrPaymentRejected matches every *RejectedError.
var ErrPaymentRejected = errors.New("payment rejected")

// RejectedError reports why a payment did not pass validation.
type RejectedError struct {
	Field  string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment rejected: %s", e.Reason)
}

// Is reports ErrPaymentRejected equivalence.
func (e *RejectedError) Is(target error) bool {
	return target == ErrPaymentRejected
}

func reject(field, reason string) error {
	return &RejectedError{Field: field, Reason: reason}
}

// YearMonth is a card expiry month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the year-month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses "MM-YYYY", "MM/YYYY" or "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-/")
	if sep < 0 {
		return YearMonth{}, errors.Errorf("invalid expiry date %q", s)
	}
	a, b := s[:sep], s[sep+1:]
	if len(a) == 4 {
		a, b = b, a
	}
	if len(a) == 0 || len(a) > 2 || len(b) != 4 {
		return YearMonth{}, errors.Errorf("invalid expiry date %q", s)
	}

	month, err := strconv.Atoi(a)
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, errors.Errorf("invalid expiry month in %q", s)
	}
	year, err := strconv.Atoi(b)
	if err != nil {
		return YearMonth{}, errors.Errorf("invalid expiry year in %q", s)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// IsZero reports whether ym is unset.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%02d-%04d", int(ym.Month), ym.Year)
}

// Details holds the card data a shopper submits at checkout.
type Details struct {
	HolderName string
	CardNumber string
	CVV        string
	Expiry     YearMonth
	// ExpiryInput is the expiry as submitted. It is set without Expiry when
	// the input could not be parsed.
	ExpiryInput string
}

// Validator approves or rejects a payment for the given amount.
type Validator interface {
	Validate(d Details, amount decimal.Decimal) error
}

const (
	cardNumberLen = 16
	cvvLen        = 3
)

// SimulatedGateway is a Validator that performs only local checks. It stands
// in for a real payment gateway and has no side effects.
type SimulatedGateway struct {
	now func() time.Time
}

// NewSimulatedGateway returns a SimulatedGateway using the wall clock.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{now: time.Now}
}

// NewSimulatedGatewayAt returns a SimulatedGateway that reads the current time
// from now.
func NewSimulatedGatewayAt(now func() time.Time) *SimulatedGateway {
	return &SimulatedGateway{now: now}
}

// Validate checks the amount and card fields. The first failing rule is
// reported as a *RejectedError.
func (g *SimulatedGateway) Validate(d Details, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return reject("amount", "amount must be greater than 0")
	}
	if strings.TrimSpace(d.HolderName) == "" {
		return reject("holderName", "card holder name is required")
	}

	number := strings.NewReplacer(" ", "", "-", "").Replace(d.CardNumber)
	switch {
	case number == "":
		return reject("cardNumber", "card number is required")
	case len(number) != cardNumberLen || !digits(number):
		return reject("cardNumber", fmt.Sprintf("card number must contain %d digits", cardNumberLen))
	}

	cvv := strings.TrimSpace(d.CVV)
	switch {
	case cvv == "":
		return reject("cvv", "CVV is required")
	case len(cvv) != cvvLen || !digits(cvv):
		return reject("cvv", fmt.Sprintf("CVV must contain %d digits", cvvLen))
	}

	if d.Expiry.IsZero() {
		if strings.TrimSpace(d.ExpiryInput) != "" {
			return reject("expiryDate", "expiry date must be formatted as MM-YYYY")
		}
		return reject("expiryDate", "expiry date is required")
	}
	if d.Expiry.Month < time.January || d.Expiry.Month > time.December {
		return reject("expiryDate", "expiry month is invalid")
	}
	if d.Expiry.Before(YearMonthOf(g.now())) {
		return reject("expiryDate", "card is expired")
	}
	return nil
}

func digits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
