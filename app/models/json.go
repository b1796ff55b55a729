package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON stores free-form JSON documents in a database column.
type JSON json.RawMessage

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON("{}")
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*j = JSON(bytes)
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(data)
	return nil
}

// GetString reads a string field from the JSON document. Missing keys and
// non-string values return the empty string.
func (j JSON) GetString(key string) string {
	var m map[string]interface{}
	if err := json.Unmarshal(j, &m); err != nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// SetString writes a string field into the JSON document.
func (j *JSON) SetString(key, value string) error {
	m := map[string]interface{}{}
	if len(*j) > 0 {
		if err := json.Unmarshal(*j, &m); err != nil {
			return err
		}
	}
	m[key] = value
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	*j = JSON(data)
	return nil
}
