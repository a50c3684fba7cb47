package validate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/nbsync/nbsync/internal/hashkey"
)

// sessionCodeRx matches the generated code alphabet exactly.
var sessionCodeRx = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// cellIdRx keeps cell identifiers to printable identifier-ish characters so
// they embed safely in Redis key paths.
var cellIdRx = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// SessionCode validates the session code path segment.
func SessionCode(v string) error {
	if v == "" {
		return fmt.Errorf("session code is required")
	}
	if !sessionCodeRx.MatchString(v) {
		return fmt.Errorf("session code must match %s", sessionCodeRx.String())
	}
	return nil
}

// CellID validates a cell identifier path segment.
func CellID(v string) error {
	if v == "" {
		return fmt.Errorf("cell id is required")
	}
	if !cellIdRx.MatchString(v) {
		return fmt.Errorf("cell id contains invalid characters")
	}
	return nil
}

// Digest validates a content hash key.
func Digest(v string) error {
	if v == "" {
		return fmt.Errorf("hash key is required")
	}
	if !hashkey.Valid(v) {
		return fmt.Errorf("hash key must be %d lowercase hex characters", hashkey.DigestLen)
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Since parses the poll cursor query parameter. Empty means "from the
// beginning"; anything non-numeric or negative is rejected.
func Since(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("since must be a non-negative millisecond timestamp")
	}
	return ms, nil
}

// Cursor parses a scan cursor query parameter.
func Cursor(v string) (uint64, error) {
	if v == "" {
		return 0, nil
	}
	c, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cursor must be a non-negative integer")
	}
	return c, nil
}

// Count parses a page-size query parameter with a default and a cap.
func Count(v string) (int64, error) {
	if v == "" {
		return 100, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("count must be a positive integer")
	}
	if n > 1000 {
		n = 1000
	}
	return n, nil
}
