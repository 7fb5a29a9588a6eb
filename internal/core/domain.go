package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"

	// legacyExpense is a misspelling present in historical data.
	legacyExpense = "expanse"

	MaxCategoryLength = 100

	// DateLayout is the storage and wire format of transaction dates.
	DateLayout = "2006-01-02"
)

// Wire field names. The id keeps the document-store spelling clients expect.
const (
	FieldID       = "_id"
	FieldEmail    = "email"
	FieldAmount   = "amount"
	FieldType     = "type"
	FieldCategory = "category"
	FieldDate     = "date"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is the only persisted entity. Fields the reports do not
	// depend on are kept verbatim in Extra.
	Transaction struct {
		ID       string
		Email    string // owner, immutable after creation
		Amount   Money
		Type     TransactionType
		Category string
		Date     Date
		Extra    map[string]any
	}

	// TransactionPatch holds the fields supplied to an update. Nil means
	// "keep the stored value".
	TransactionPatch struct {
		Amount   *Money
		Type     *TransactionType
		Category *string
		Date     *Date
		Email    *string
		Extra    map[string]any

		hasID bool
	}
)

// ParseTransactionType maps user input to a canonical type. "expanse" is
// accepted as expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := NormalizeType(s); t {
	case TypeIncome, TypeExpense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// NormalizeType is the lenient read-path variant of ParseTransactionType:
// unknown values are returned lower-cased instead of failing.
func NormalizeType(s string) TransactionType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == legacyExpense {
		return TypeExpense
	}
	return TransactionType(s)
}

// Valid reports whether t is one of the canonical types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// StoredSpellings lists every spelling of t that may exist in a store.
func (t TransactionType) StoredSpellings() []string {
	if t == TypeExpense {
		return []string{string(TypeExpense), legacyExpense}
	}
	return []string{string(t)}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, RFC 3339 timestamps and HTML datetime-local
// values. The calendar date is the one written in the value, in its own
// offset, so 2024-02-01T00:30:00+05:00 is February 1st.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// Month returns the calendar month, 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks a candidate record before it is persisted.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Email) == "" {
		return ErrEmptyEmail
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := validateCategory(t.Category); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return validateExtra(t.Extra)
}

// Apply merges p onto a copy of t. The owner and id are never touched.
func (t Transaction) Apply(p TransactionPatch) Transaction {
	out := t
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if len(p.Extra) > 0 {
		out.Extra = make(map[string]any, len(t.Extra)+len(p.Extra))
		maps.Copy(out.Extra, t.Extra)
		maps.Copy(out.Extra, p.Extra)
	}
	return out
}

// MarshalJSON flattens Extra next to the known fields.
func (t Transaction) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(t.Extra)+6)
	maps.Copy(doc, t.Extra)
	if t.ID != "" {
		doc[FieldID] = t.ID
	}
	doc[FieldEmail] = t.Email
	doc[FieldAmount] = t.Amount
	doc[FieldType] = t.Type
	doc[FieldCategory] = t.Category
	doc[FieldDate] = t.Date
	return json.Marshal(doc)
}

// UnmarshalJSON reads a client payload. Any id supplied by the client is
// ignored; stores assign ids. Types are normalized, unknown ones are left
// for Validate to reject.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Transaction
	for key, value := range raw {
		var err error
		switch key {
		case FieldID, "id":
		case FieldEmail:
			err = json.Unmarshal(value, &out.Email)
		case FieldAmount:
			err = json.Unmarshal(value, &out.Amount)
		case FieldType:
			var s string
			if err = json.Unmarshal(value, &s); err == nil {
				out.Type = NormalizeType(s)
			}
		case FieldCategory:
			err = json.Unmarshal(value, &out.Category)
		case FieldDate:
			err = json.Unmarshal(value, &out.Date)
		default:
			var v any
			if err = json.Unmarshal(value, &v); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	out.Category = strings.TrimSpace(out.Category)
	out.Email = strings.TrimSpace(out.Email)
	*t = out
	return nil
}

// IsEmpty reports whether the patch would change nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Type == nil && p.Category == nil && p.Date == nil &&
		p.Email == nil && len(p.Extra) == 0 && !p.hasID
}

// Validate checks the supplied fields against the stored owner.
func (p TransactionPatch) Validate(owner string) error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.hasID {
		return ErrImmutableID
	}
	if p.Email != nil && *p.Email != owner {
		return ErrImmutableOwner
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidType
	}
	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	return validateExtra(p.Extra)
}

func (p *TransactionPatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out TransactionPatch
	for key, value := range raw {
		var err error
		switch key {
		case FieldID, "id":
			out.hasID = true
		case FieldEmail:
			var s string
			if err = json.Unmarshal(value, &s); err == nil {
				s = strings.TrimSpace(s)
				out.Email = &s
			}
		case FieldAmount:
			var m Money
			if err = json.Unmarshal(value, &m); err == nil {
				out.Amount = &m
			}
		case FieldType:
			var s string
			if err = json.Unmarshal(value, &s); err == nil {
				tt := NormalizeType(s)
				out.Type = &tt
			}
		case FieldCategory:
			var s string
			if err = json.Unmarshal(value, &s); err == nil {
				s = strings.TrimSpace(s)
				out.Category = &s
			}
		case FieldDate:
			var d Date
			if err = json.Unmarshal(value, &d); err == nil {
				out.Date = &d
			}
		default:
			var v any
			if err = json.Unmarshal(value, &v); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	*p = out
	return nil
}

func validateCategory(c string) error {
	c = strings.TrimSpace(c)
	if c == "" {
		return ErrEmptyCategory
	}
	if len(c) > MaxCategoryLength {
		return ErrCategoryTooLong
	}
	return nil
}

// validateExtra rejects keys a document store would read as operators or paths.
func validateExtra(extra map[string]any) error {
	for key := range extra {
		if key == "" || strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
			return fmt.Errorf("%w: %q", ErrReservedField, key)
		}
	}
	return nil
}
