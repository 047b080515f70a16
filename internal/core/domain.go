package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindHours    EntryKind = "hours"
	KindExpenses EntryKind = "expenses"
	KindPayments EntryKind = "payments"
)

// NoProject is the zero project id, meaning "nothing selected".
const NoProject int64 = 0

type (
	// EntryKind names one of the three record streams attached to a project.
	EntryKind string

	Project struct {
		ID           int64
		Name         string
		Client       string
		StartDate    time.Time // local midnight
		AgreedAmount decimal.Decimal
		Description  string
		Active       bool
		SortRank     int
	}

	HourEntry struct {
		ID        int64
		ProjectID int64
		Date      time.Time
		Hours     decimal.Decimal
		Note      string
		SortRank  int
	}

	Expense struct {
		ID         int64
		ProjectID  int64
		Date       time.Time
		Amount     decimal.Decimal
		Note       string
		Category   string
		ReceiptRef string // empty when no receipt is attached
		SortRank   int
	}

	Payment struct {
		ID        int64
		ProjectID int64
		Date      time.Time
		Amount    decimal.Decimal
		Note      string
		SortRank  int
	}
)

var (
	ErrEmptyName      = errors.New("empty project name")
	ErrEmptyNote      = errors.New("empty note")
	ErrNegativeAmount = errors.New("negative amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidProject = errors.New("invalid project reference")
	ErrInvalidKind    = errors.New("invalid entry kind")
)

func (k EntryKind) String() string { return string(k) }

func (k EntryKind) IsValid() bool {
	switch k {
	case KindHours, KindExpenses, KindPayments:
		return true
	default:
		return false
	}
}

// ParseEntryKind accepts the plural kind names used in URLs and CLI args.
func ParseEntryKind(s string) (EntryKind, error) {
	k := EntryKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// IsValidationError reports whether err is one of the input validation errors above.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrEmptyName, ErrEmptyNote, ErrNegativeAmount, ErrInvalidDate, ErrInvalidProject, ErrInvalidKind} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if p.AgreedAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (e HourEntry) Validate() error {
	if e.ProjectID <= NoProject {
		return ErrInvalidProject
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if e.Hours.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.ProjectID <= NoProject {
		return ErrInvalidProject
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(e.Note) == "" {
		return ErrEmptyNote
	}
	return nil
}

// HasReceipt reports whether a stored receipt image is referenced.
func (e Expense) HasReceipt() bool {
	return strings.TrimSpace(e.ReceiptRef) != ""
}

func (p Payment) Validate() error {
	if p.ProjectID <= NoProject {
		return ErrInvalidProject
	}
	if p.Date.IsZero() {
		return ErrInvalidDate
	}
	if p.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(p.Note) == "" {
		return ErrEmptyNote
	}
	return nil
}
