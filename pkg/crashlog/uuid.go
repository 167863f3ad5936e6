package crashlog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	dashedUUIDRE = regexp.MustCompile(`^[[:xdigit:]]{8}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{12}$`)
	plainUUIDRE  = regexp.MustCompile(`^[[:xdigit:]]{32}$`)
)

// UUID is a Mach-O binary UUID in canonical form: 32 lowercase hex characters.
type UUID string

// ParseUUID accepts a dashed (8-4-4-4-12) or dashless 32 character hex UUID in
// any case.
func ParseUUID(s string) (UUID, bool) {
	s = strings.TrimSpace(s)
	switch {
	case dashedUUIDRE.MatchString(s):
		return UUID(strings.ToLower(strings.ReplaceAll(s, "-", ""))), true
	case plainUUIDRE.MatchString(s):
		return UUID(strings.ToLower(s)), true
	}
	return "", false
}

// MustParseUUID is like ParseUUID but panics on malformed input
func MustParseUUID(s string) UUID {
	u, ok := ParseUUID(s)
	if !ok {
		panic(fmt.Sprintf("crashlog: malformed UUID %q", s))
	}
	return u
}

// Pretty returns the upper-case dashed form, e.g. C8ECC43A-6F0F-3880-920A-071973DA584C
func (u UUID) Pretty() string {
	s := strings.ToUpper(string(u))
	if len(s) != 32 {
		return s
	}
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}

func (u UUID) String() string {
	return u.Pretty()
}

// MarshalJSON encodes the UUID in its pretty form
func (u UUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Pretty())
}

// UnmarshalJSON decodes either UUID form
func (u *UUID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, ok := ParseUUID(s)
	if !ok {
		return fmt.Errorf("malformed UUID %q", s)
	}
	*u = parsed
	return nil
}

// MarshalYAML encodes the UUID in its pretty form
func (u UUID) MarshalYAML() (any, error) {
	return u.Pretty(), nil
}
