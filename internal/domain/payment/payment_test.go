package payment

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

func validDetails() Details {
	return Details{
		HolderName: "Ada Lovelace",
		CardNumber: "4111 1111 1111 1111",
		CVV:        "123",
		Expiry:     YearMonth{Year: 2027, Month: time.March},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Details)
		amount    string
		wantField string
	}{
		{name: "valid", amount: "10.00"},
		{name: "expiry this month is valid", amount: "1", mutate: func(d *Details) {
			d.Expiry = YearMonth{Year: 2026, Month: time.October}
		}},
		{name: "zero amount", amount: "0", wantField: "amount"},
		{name: "negative amount", amount: "-5", wantField: "amount"},
		{name: "blank holder", amount: "1", wantField: "holderName", mutate: func(d *Details) {
			d.HolderName = "   "
		}},
		{name: "missing card number", amount: "1", wantField: "cardNumber", mutate: func(d *Details) {
			d.CardNumber = ""
		}},
		{name: "short card number", amount: "1", wantField: "cardNumber", mutate: func(d *Details) {
			d.CardNumber = "4111111111"
		}},
		{name: "letters in card number", amount: "1", wantField: "cardNumber", mutate: func(d *Details) {
			d.CardNumber = "4111x11111111111"
		}},
		{name: "missing cvv", amount: "1", wantField: "cvv", mutate: func(d *Details) {
			d.CVV = ""
		}},
		{name: "four digit cvv", amount: "1", wantField: "cvv", mutate: func(d *Details) {
			d.CVV = "1234"
		}},
		{name: "missing expiry", amount: "1", wantField: "expiryDate", mutate: func(d *Details) {
			d.Expiry = YearMonth{}
		}},
		{name: "unparseable expiry", amount: "1", wantField: "expiryDate", mutate: func(d *Details) {
			d.Expiry = YearMonth{}
			d.ExpiryInput = "garbage"
		}},
		{name: "expired last month", amount: "1", wantField: "expiryDate", mutate: func(d *Details) {
			d.Expiry = YearMonth{Year: 2026, Month: time.September}
		}},
		{name: "expired last year", amount: "1", wantField: "expiryDate", mutate: func(d *Details) {
			d.Expiry = YearMonth{Year: 2025, Month: time.December}
		}},
	}

	g := NewSimulatedGatewayAt(func() time.Time { return fixedNow })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := validDetails()
			if tt.mutate != nil {
				tt.mutate(&details)
			}

			err := g.Validate(details, decimal.RequireFromString(tt.amount))
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrPaymentRejected)
			var rej *RejectedError
			require.True(t, errors.As(err, &rej))
			assert.Equal(t, tt.wantField, rej.Field)
			assert.NotEmpty(t, rej.Reason)
		})
	}
}

func TestValidate_ExpiryReason(t *testing.T) {
	g := NewSimulatedGatewayAt(func() time.Time { return fixedNow })

	d := validDetails()
	d.Expiry = YearMonth{}
	var rejected *RejectedError
	require.ErrorAs(t, g.Validate(d, decimal.NewFromInt(1)), &rejected)
	assert.Equal(t, "expiry date is required", rejected.Reason)

	d.ExpiryInput = "13/20x"
	require.ErrorAs(t, g.Validate(d, decimal.NewFromInt(1)), &rejected)
	assert.Equal(t, "expiry date must be formatted as MM-YYYY", rejected.Reason)
}

func TestParseYearMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    YearMonth
		wantErr bool
	}{
		{in: "03-2027", want: YearMonth{Year: 2027, Month: time.March}},
		{in: "3/2027", want: YearMonth{Year: 2027, Month: time.March}},
		{in: "2027-11", want: YearMonth{Year: 2027, Month: time.November}},
		{in: "13-2027", wantErr: true},
		{in: "00-2027", wantErr: true},
		{in: "03-27", wantErr: true},
		{in: "032027", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseYearMonth(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYearMonth_Before(t *testing.T) {
	a := YearMonth{Year: 2026, Month: time.May}
	assert.True(t, a.Before(YearMonth{Year: 2026, Month: time.June}))
	assert.True(t, a.Before(YearMonth{Year: 2027, Month: time.January}))
	assert.False(t, a.Before(a))
	assert.False(t, a.Before(YearMonth{Year: 2025, Month: time.December}))
	assert.Equal(t, "05-2026", a.String())
}
