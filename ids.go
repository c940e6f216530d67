package voice

import (
	"bytes"
	"strconv"
)

// ID is a 64-bit identifier for a guild, channel, or user, as handed to
// us by the upstream client. ID marshals to and from a JSON string, since
// such ids can exceed the safe integer range of a JSON number. The
// signalling payloads in package voicegateway do not use ID: they carry
// server_id and user_id as plain JSON numbers.
type ID uint64

// NullID is the zero value, used where the upstream client has no
// channel to report (such as a disconnect request).
const NullID ID = 0

// IsValid reports whether the ID is non-zero.
func (id ID) IsValid() bool {
	return id != NullID
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*id = NullID
		return nil
	}

	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}

	*id = ID(v)
	return nil
}
