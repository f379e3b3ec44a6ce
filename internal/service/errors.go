package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrExternalService   = errors.New("payment provider call failed")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// FieldError is a validation failure keyed by request field.
type FieldError struct {
	Fields map[string]string
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Fields: map[string]string{field: message}}
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

// StockError names the product that cannot cover the requested quantity.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available == 0 {
		return fmt.Sprintf("product %d is out of stock, %d requested", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("only %d item(s) of product %d left, %d requested", e.Available, e.ProductID, e.Requested)
}

func (e *StockError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return true
	case ErrOutOfStock:
		return e.Available == 0
	case ErrInsufficientStock:
		return e.Available > 0
	}
	return false
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func external(err error) error {
	return fmt.Errorf("%w: %w", ErrExternalService, err)
}
