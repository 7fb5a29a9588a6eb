package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", TypeIncome, true},
		{"expense", TypeExpense, true},
		{"expanse", TypeExpense, true},
		{" Expense ", TypeExpense, true},
		{"EXPANSE", TypeExpense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseTransactionType(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalid) {
			t.Fatalf("ParseTransactionType(%q) expected invalid, got %v", tc.in, err)
		}
	}
}

func TestStoredSpellings(t *testing.T) {
	if got := TypeExpense.StoredSpellings(); len(got) != 2 || got[1] != "expanse" {
		t.Fatalf("expense spellings = %v", got)
	}
	if got := TypeIncome.StoredSpellings(); len(got) != 1 || got[0] != "income" {
		t.Fatalf("income spellings = %v", got)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		month int
		ok    bool
	}{
		{"2025-01-15", "2025-01-15", 1, true},
		{"2025-02-03T10:00:00Z", "2025-02-03", 2, true},
		{"2025-12-31T23:30:00-02:00", "2025-12-31", 12, true},
		{"2024-02-01T00:30:00+05:00", "2024-02-01", 2, true},
		{"2024-01-31T23:30:00.5-08:00", "2024-01-31", 1, true},
		{"2025-06-01T08:15", "2025-06-01", 6, true},
		{"15/01/2025", "", 0, false},
		{"", "", 0, false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseDate(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.in, err)
		}
		if d.String() != tc.want || d.Month() != tc.month {
			t.Fatalf("ParseDate(%q) = %s (month %d), want %s (month %d)", tc.in, d, d.Month(), tc.want, tc.month)
		}
	}
}

func validTransaction() Transaction {
	return Transaction{
		Email:    "a@example.com",
		Amount:   MoneyFromInt(50),
		Type:     TypeExpense,
		Category: "Food",
		Date:     NewDate(2025, 1, 10),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := map[string]func(*Transaction){
		"no email":      func(tx *Transaction) { tx.Email = "" },
		"zero amount":   func(tx *Transaction) { tx.Amount = Money{} },
		"negative":      func(tx *Transaction) { tx.Amount = MoneyFromInt(-3) },
		"unknown type":  func(tx *Transaction) { tx.Type = "transfer" },
		"no category":   func(tx *Transaction) { tx.Category = "  " },
		"long category": func(tx *Transaction) { tx.Category = strings.Repeat("x", MaxCategoryLength+1) },
		"zero date":     func(tx *Transaction) { tx.Date = Date{} },
		"operator key":  func(tx *Transaction) { tx.Extra = map[string]any{"$where": "1"} },
		"dotted key":    func(tx *Transaction) { tx.Extra = map[string]any{"a.b": 1} },
	}
	for name, mutate := range bads {
		tx := validTransaction()
		mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestTransactionJSONKeepsExtraFields(t *testing.T) {
	body := `{"_id":"client-id","email":"a@example.com","amount":"12.50","type":"expanse",
		"category":" Food ","date":"2025-03-04","description":"lunch","tags":["x"]}`

	var tx Transaction
	if err := json.Unmarshal([]byte(body), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.ID != "" {
		t.Fatalf("client id must be ignored, got %q", tx.ID)
	}
	if tx.Type != TypeExpense || tx.Category != "Food" || !tx.Amount.Equal(NewMoney(12.5)) {
		t.Fatalf("unexpected decode: %+v", tx)
	}
	if tx.Extra["description"] != "lunch" {
		t.Fatalf("extra field lost: %v", tx.Extra)
	}

	tx.ID = "abc"
	out, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"_id":"abc"`, `"amount":12.5`, `"type":"expense"`, `"date":"2025-03-04"`, `"description":"lunch"`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("marshal output %s missing %s", out, want)
		}
	}
}

func TestTransactionJSONRejectsBadFields(t *testing.T) {
	for _, body := range []string{
		`{"amount":"abc"}`,
		`{"date":"yesterday"}`,
		`{"category":5}`,
		`[1,2]`,
	} {
		var tx Transaction
		if err := json.Unmarshal([]byte(body), &tx); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestPatchValidate(t *testing.T) {
	decode := func(body string) TransactionPatch {
		t.Helper()
		var p TransactionPatch
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		return p
	}

	owner := "a@example.com"
	cases := []struct {
		body string
		want error
	}{
		{`{"amount":10}`, nil},
		{`{"email":"a@example.com","category":"Rent"}`, nil},
		{`{"type":"expanse"}`, nil},
		{`{"note":"free text"}`, nil},
		{`{}`, ErrEmptyPatch},
		{`{"email":"b@example.com"}`, ErrImmutableOwner},
		{`{"_id":"other"}`, ErrImmutableID},
		{`{"amount":0}`, ErrInvalidAmount},
		{`{"type":"gift"}`, ErrInvalidType},
		{`{"category":""}`, ErrEmptyCategory},
		{`{"$set":{"email":"b@example.com"}}`, ErrReservedField},
	}
	for _, tc := range cases {
		err := decode(tc.body).Validate(owner)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.body, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.body, err, tc.want)
		}
	}
}

func TestApplyMergesAndKeepsIdentity(t *testing.T) {
	tx := validTransaction()
	tx.ID = "id-1"
	tx.Extra = map[string]any{"description": "old", "keep": true}

	var p TransactionPatch
	if err := json.Unmarshal([]byte(`{"amount":80,"description":"new"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := tx.Apply(p)

	if got.ID != "id-1" || got.Email != tx.Email {
		t.Fatalf("identity changed: %+v", got)
	}
	if !got.Amount.Equal(MoneyFromInt(80)) || got.Category != "Food" || got.Type != TypeExpense {
		t.Fatalf("merge wrong: %+v", got)
	}
	if got.Extra["description"] != "new" || got.Extra["keep"] != true {
		t.Fatalf("extra merge wrong: %v", got.Extra)
	}
	if tx.Extra["description"] != "old" {
		t.Fatalf("Apply mutated the original extra map")
	}
}
