package occupancy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownStatus = errors.New("occupancy: unknown status")

// Status is the lifecycle state of a lease or reservation. Backends report it
// either as a numeric code or as a name; ParseStatus is the only place that
// understands both.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCheckedIn Status = "CHECKED_IN"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// numeric codes used by the legacy API
var statusCodes = []Status{
	StatusPending,
	StatusConfirmed,
	StatusCheckedIn,
	StatusCompleted,
	StatusCancelled,
}

func ParseStatus(raw string) (Status, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrUnknownStatus
	}
	if code, err := strconv.Atoi(s); err == nil {
		return StatusFromCode(code)
	}
	s = strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(s))
	switch s {
	case "CANCELED":
		return StatusCancelled, nil
	case "CHECKEDIN":
		return StatusCheckedIn, nil
	}
	for _, st := range statusCodes {
		if Status(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func StatusFromCode(code int) (Status, error) {
	if code < 0 || code >= len(statusCodes) {
		return "", fmt.Errorf("%w: code %d", ErrUnknownStatus, code)
	}
	return statusCodes[code], nil
}

func (s Status) Code() int {
	for i, st := range statusCodes {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool { return s.Code() >= 0 }

func (s Status) Cancelled() bool { return s == StatusCancelled }

// Pending reports whether the stay is not yet confirmed by the owner.
func (s Status) Pending() bool { return s == StatusPending }

func (s *Status) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("%w: %v", ErrUnknownStatus, v)
		}
		text = strconv.Itoa(int(v))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStatus, string(data))
	}
	parsed, err := ParseStatus(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalText lets YAML fixtures and query strings use either form.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
