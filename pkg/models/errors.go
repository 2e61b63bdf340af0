package models

import "fmt"

// FetchError reports a failed quote or subscription request for one
// symbol. Status is the HTTP status when the upstream answered at all.
type FetchError struct {
	Symbol string
	Expiry string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	target := e.Symbol
	if e.Expiry != "" {
		target = e.Symbol + " " + e.Expiry
	}
	if e.Status != 0 {
		return fmt.Sprintf("quote fetch for %s failed with status %d", target, e.Status)
	}
	return fmt.Sprintf("quote fetch for %s failed: %v", target, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FieldError reports a quote payload that parsed but is missing a field
// the derivation needs, or carries it as a non-numeric value.
type FieldError struct {
	Field string
	Value any
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("quote missing required field %q", e.Field)
	}
	return fmt.Sprintf("quote field %q is not numeric: %v", e.Field, e.Value)
}
