package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringSlice is a custom type for storing string lists as JSONB in PostgreSQL.
// It implements sql.Scanner and driver.Valuer.
type StringSlice []string

// Scan implements the sql.Scanner interface.
func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// Value implements the driver.Valuer interface.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// ComparableList stores comparable-listing references as JSONB.
type ComparableList []Comparable

// Scan implements the sql.Scanner interface.
func (c *ComparableList) Scan(value any) error {
	if value == nil {
		*c = nil
		return nil
	}

	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*c = ComparableList{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// Value implements the driver.Valuer interface.
func (c ComparableList) Value() (driver.Value, error) {
	if len(c) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, errors.New("unsupported type for JSONB column")
	}
}
