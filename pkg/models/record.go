package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid input")

// Record holds the bookkeeping fields shared by every owned record
type Record struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Meta exposes the embedded record to generic code
func (r *Record) Meta() *Record {
	return r
}

// IsDeleted reports whether the record sits in the trash
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Entity is implemented by pointers to every owned record type
type Entity interface {
	Meta() *Record
	Normalize()
	Validate() error
}

// Stamper is implemented by records whose defaults depend on the current time
type Stamper interface {
	Stamp(now time.Time)
}

// Now returns the current time in the precision every store keeps
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func requireNonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalid("%s must be a finite number", field)
	}
	if value < 0 {
		return invalid("%s must not be negative", field)
	}
	return nil
}

func requirePositive(field string, value float64) error {
	if err := requireNonNegative(field, value); err != nil {
		return err
	}
	if value == 0 {
		return invalid("%s must be greater than zero", field)
	}
	return nil
}

func oneOf[T ~string](field string, value T, allowed ...T) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid("%s %q is not one of %v", field, value, allowed)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
