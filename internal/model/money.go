package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Money is an amount in rupees held to two decimal places. It is written
// as a "0.00" string in JSON and BSON so a stored breakdown adds up to its
// stored total.
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d half-up to two places.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// MoneyFromFloat rounds f half-up to two places.
func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

// Plus returns m + o.
func (m Money) Plus(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) String() string {
	return m.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// UnmarshalJSON accepts a quoted or bare number.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = NewMoney(d)
	return nil
}

func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(m.StringFixed(2))
}

// UnmarshalBSONValue accepts the string form and plain BSON numbers.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		d, err := decimal.NewFromString(raw.StringValue())
		if err != nil {
			return fmt.Errorf("decode money: %w", err)
		}
		*m = NewMoney(d)
	case bsontype.Double:
		*m = MoneyFromFloat(raw.Double())
	case bsontype.Int32:
		*m = NewMoney(decimal.NewFromInt32(raw.Int32()))
	case bsontype.Int64:
		*m = NewMoney(decimal.NewFromInt(raw.Int64()))
	case bsontype.Null, bsontype.Undefined:
		*m = Money{}
	default:
		return fmt.Errorf("decode money: unexpected BSON type %s", t)
	}
	return nil
}
