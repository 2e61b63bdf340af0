package models

// RawQuote is one parsed quote snapshot from the upstream feed. Values are
// float64 where the vendor sent a numeric token, string otherwise.
type RawQuote map[string]any

// Float returns the named field as a number. A missing or non-numeric
// field is a FieldError, not a panic.
func (q RawQuote) Float(key string) (float64, error) {
	v, ok := q[key]
	if !ok {
		return 0, &FieldError{Field: key}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &FieldError{Field: key, Value: v}
	}
	return f, nil
}
