package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ID identifies users, conversations, groups and messages. On the wire it is
// accepted both as a JSON number and as a numeric string.
type ID int64

func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}

	return ID(v), nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		parsed, err := ParseID(s)
		if err != nil {
			return errors.New("invalid id: " + s)
		}

		*id = parsed
		return nil
	}

	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*id = ID(v)
	return nil
}
