package mongo

import (
	"fmt"
	"time"

	"finease/internal/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toDocument lays out a new record. Known fields come first; amounts are
// Decimal128 so sums stay exact, and dates are kept as YYYY-MM-DD strings,
// the format clients have always written.
func toDocument(tx core.Transaction) (bson.D, error) {
	amount, err := decimalOf(tx.Amount)
	if err != nil {
		return nil, err
	}
	doc := bson.D{
		{Key: core.FieldEmail, Value: tx.Email},
		{Key: core.FieldAmount, Value: amount},
		{Key: core.FieldType, Value: string(tx.Type)},
		{Key: core.FieldCategory, Value: tx.Category},
		{Key: core.FieldDate, Value: tx.Date.String()},
	}
	for k, v := range tx.Extra {
		doc = append(doc, bson.E{Key: k, Value: v})
	}
	return doc, nil
}

// patchDocument is the $set body for an update.
func patchDocument(p core.TransactionPatch) (bson.D, error) {
	var set bson.D
	if p.Amount != nil {
		amount, err := decimalOf(*p.Amount)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: core.FieldAmount, Value: amount})
	}
	if p.Type != nil {
		set = append(set, bson.E{Key: core.FieldType, Value: string(*p.Type)})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: core.FieldCategory, Value: *p.Category})
	}
	if p.Date != nil {
		set = append(set, bson.E{Key: core.FieldDate, Value: p.Date.String()})
	}
	for k, v := range p.Extra {
		set = append(set, bson.E{Key: k, Value: v})
	}
	return set, nil
}

func decimalOf(m core.Money) (primitive.Decimal128, error) {
	d, err := primitive.ParseDecimal128(m.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("%w: %s does not fit a Decimal128", core.ErrInvalidAmount, m)
	}
	return d, nil
}

// moneyOf reads an aggregated Decimal128 total.
func moneyOf(d primitive.Decimal128) (core.Money, error) {
	m, err := core.ParseMoney(d.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("decode total %s: %w", d, err)
	}
	return m, nil
}

// fromDocument reads a stored document. It is lenient: legacy documents may
// carry string amounts, BSON dates or the "expanse" spelling.
func fromDocument(doc bson.M) (core.Transaction, error) {
	var tx core.Transaction
	for key, raw := range doc {
		switch key {
		case core.FieldID:
			tx.ID = idString(raw)
		case core.FieldEmail:
			tx.Email, _ = raw.(string)
		case core.FieldAmount:
			m, err := amountOf(raw)
			if err != nil {
				return tx, fmt.Errorf("document %v: %w", doc[core.FieldID], err)
			}
			tx.Amount = m
		case core.FieldType:
			s, _ := raw.(string)
			tx.Type = core.NormalizeType(s)
		case core.FieldCategory:
			tx.Category, _ = raw.(string)
		case core.FieldDate:
			tx.Date = dateOf(raw)
		default:
			if tx.Extra == nil {
				tx.Extra = make(map[string]any)
			}
			tx.Extra[key] = plain(raw)
		}
	}
	return tx, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(v)
	}
}

func amountOf(v any) (core.Money, error) {
	switch a := v.(type) {
	case nil:
		return core.Money{}, nil
	case float64:
		return core.NewMoney(a), nil
	case int32:
		return core.MoneyFromInt(int64(a)), nil
	case int64:
		return core.MoneyFromInt(a), nil
	case string:
		return core.ParseMoney(a)
	case primitive.Decimal128:
		return core.ParseMoney(a.String())
	default:
		return core.Money{}, fmt.Errorf("%w: unsupported amount type %T", core.ErrInvalidAmount, v)
	}
}

func dateOf(v any) core.Date {
	switch d := v.(type) {
	case string:
		parsed, err := core.ParseDate(d)
		if err != nil {
			return core.Date{}
		}
		return parsed
	case primitive.DateTime:
		t := d.Time().UTC()
		return core.NewDate(t.Year(), int(t.Month()), t.Day())
	default:
		return core.Date{}
	}
}

// plain converts BSON-specific values into types encoding/json renders
// naturally.
func plain(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return x.String()
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plain(e)
		}
		return m
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}
