package model

import (
	"database/sql/driver"
	"encoding/json"
)

// StringMap is free-form string data persisted as JSONB, forwarded as-is to push payloads.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(m))
}

func (m *StringMap) Scan(src any) error {
	return scanJSON(src, (*map[string]string)(m))
}
