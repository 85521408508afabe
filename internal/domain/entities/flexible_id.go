package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleID decodes an identifier the backend may send either as a JSON
// string or as a JSON integer (SERIAL columns).
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("expected string or integer id, got %s", data)
	}
	*id = FlexibleID(strconv.FormatInt(n, 10))
	return nil
}
