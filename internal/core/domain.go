package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SignPlus  Sign = "+"
	SignMinus Sign = "-"
)

type (
	// Sign is the polarity applied to a transaction amount when folding
	// it into an account balance.
	Sign string

	Money struct {
		Cents int64
	}

	User struct {
		ID                int64
		Name              string
		LastName          string
		PhotoData         string // opaque blob, usually a data URL
		SelectedAccountID int64  // advisory, last viewed account
	}

	Account struct {
		ID          int64
		UserID      int64
		Name        string
		Description string
		// Balance is a denormalized cache of the signed sum over the
		// account's transactions. The transaction set is authoritative;
		// this field is rewritten after every transaction mutation.
		Balance Money
	}

	Transaction struct {
		ID        int64
		AccountID int64
		UserID    int64 // redundant with the account's owner, kept for filtering
		Type      string
		// Sign is copied from the type registry at write time. Later
		// edits to the registered type do not touch recorded rows.
		Sign        Sign
		Amount      Money // positive magnitude
		Date        string
		Description string
	}

	TransactionType struct {
		Type string
		Sign Sign
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyType     = errors.New("empty type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSign   = errors.New("invalid sign")
	ErrLastUser      = errors.New("cannot delete the last remaining user")
)

// NewTimestamp returns the creation timestamp for a transaction,
// RFC 3339 in UTC. Assigned once at creation, never user-mutable.
func NewTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s Sign) Validate() error {
	if s != SignPlus && s != SignMinus {
		return ErrInvalidSign
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Type) == "" {
		return ErrEmptyType
	}
	return t.Sign.Validate()
}

func (tt TransactionType) Validate() error {
	if strings.TrimSpace(tt.Type) == "" {
		return ErrEmptyType
	}
	return tt.Sign.Validate()
}
