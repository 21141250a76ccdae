package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	// StatusCompleted marks a transaction whose financial effect is final.
	StatusCompleted Status = "completed"
	// StatusReserved marks an expense whose amount is earmarked but not yet
	// finally resolved. Legacy data also spells this "blocked" or "pending";
	// ParseStatus folds those into the canonical value.
	StatusReserved Status = "reserved"
	// StatusReleased marks a reserved expense canceled before completion.
	StatusReleased Status = "released"
)

// DefaultCategory is assigned when a transaction is created without one.
const DefaultCategory = "Other"

type (
	Kind   string
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string
		Kind        Kind
		Amount      Money
		Category    string
		Description string
		Date        Date
		Status      Status
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidStatus     = errors.New("invalid transaction status")
	ErrMissingDate       = errors.New("missing date")
	ErrFutureDate        = errors.New("date cannot be in the future")
	ErrLongDescription   = errors.New("description too long (max 200 characters)")
	ErrInvalidTransition = errors.New("transaction is not reserved")
	ErrImmutable         = errors.New("transaction can no longer be edited")
)

// ParseKind validates a kind string coming from the API boundary.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", ErrInvalidKind
	}
}

// ParseStatus validates a status string coming from the gateway boundary.
// "blocked" and "pending" are accepted as legacy spellings of reserved and
// "reverted" as a legacy spelling of released; the canonical value is always
// returned.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed":
		return StatusCompleted, nil
	case "reserved", "blocked", "pending":
		return StatusReserved, nil
	case "released", "reverted":
		return StatusReleased, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Terminal reports whether the status is absorbing: no further transition is
// permitted out of it.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusReleased
}

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON parses a "YYYY-MM-DD" date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ErrMissingDate
	}
	*d = Date{Time: t}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims free-text fields and applies the default category.
func (t *Transaction) Normalize() {
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	t.Description = strings.TrimSpace(t.Description)
}

// Validate checks the structural invariants of a transaction. now bounds the
// future-date check and should be the caller's wall clock.
func (t Transaction) Validate(now time.Time) error {
	switch t.Kind {
	case Income, Expense:
	default:
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.Date.After(today) {
		return ErrFutureDate
	}
	switch t.Status {
	case StatusCompleted:
	case StatusReserved, StatusReleased:
		// Only expenses may be earmarked; income is always final.
		if t.Kind == Income {
			return ErrInvalidStatus
		}
	default:
		return ErrInvalidStatus
	}
	if len(t.Description) > 200 {
		return ErrLongDescription
	}
	return nil
}

// Editable reports whether amount/category/date/description edits are
// permitted: income stays editable, expenses only while reserved. Spent or
// released entries are frozen.
func (t Transaction) Editable() bool {
	if t.Kind == Income {
		return true
	}
	return t.Status == StatusReserved
}

// CanTransition reports whether Complete or Revert may be applied. Both
// actions require the reserved state; repeating them on a terminal
// transaction must not double-apply.
func (t Transaction) CanTransition() bool {
	return t.Kind == Expense && t.Status == StatusReserved
}
