// Package types contains common types used across the application
package types

import (
	"errors"
	"fmt"
	"strings"
)

// DriverCount is the number of drivers still in contention.
const DriverCount = 3

// ErrUnknownDriver is returned when a driver id does not name one of the contenders.
var ErrUnknownDriver = errors.New("unknown driver")

// Driver identifies one of the three title contenders.
// The declaration order is also the order used to break a full tie.
type Driver uint8

// Title contenders.
const (
	Norris Driver = iota
	Piastri
	Verstappen
)

var driverIDs = [DriverCount]string{"norris", "piastri", "verstappen"}

var driverNames = [DriverCount]string{"L. Norris", "O. Piastri", "M. Verstappen"}

// Drivers lists every contender in declaration order.
func Drivers() [DriverCount]Driver {
	return [DriverCount]Driver{Norris, Piastri, Verstappen}
}

// String returns the lowercase driver id used in storage and config.
func (d Driver) String() string {
	if int(d) < DriverCount {
		return driverIDs[d]
	}
	return fmt.Sprintf("driver(%d)", d)
}

// DisplayName returns the short name shown in reports.
func (d Driver) DisplayName() string {
	if int(d) < DriverCount {
		return driverNames[d]
	}
	return d.String()
}

// Valid reports whether d is one of the declared contenders.
func (d Driver) Valid() bool { return int(d) < DriverCount }

// ParseDriver maps a driver id (case-insensitive) to its Driver.
func ParseDriver(s string) (Driver, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	for i, known := range driverIDs {
		if known == id {
			return Driver(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDriver, s)
}

// Stats is a driver's cumulative season record as used by the tie-break.
type Stats struct {
	Points  int `json:"points"`
	Wins    int `json:"wins"`
	Seconds int `json:"seconds"`
	Thirds  int `json:"thirds"`
}

// Standings holds one Stats per driver, indexed by Driver.
type Standings [DriverCount]Stats

// Of returns the stats recorded for d.
func (s Standings) Of(d Driver) Stats { return s[d] }

// Criterion names the attribute that separated the champion from the runner-up.
type Criterion uint8

// Deciding criteria in tie-break priority order.
const (
	ByPoints Criterion = iota
	ByWins
	BySeconds
	ByThirds
	FullyTied
)

var criterionNames = [...]string{"points", "wins", "seconds", "thirds", "fully_tied"}

// ErrUnknownCriterion is returned by ParseCriterion for unrecognised names.
var ErrUnknownCriterion = errors.New("unknown criterion")

func (c Criterion) String() string {
	if int(c) < len(criterionNames) {
		return criterionNames[c]
	}
	return fmt.Sprintf("criterion(%d)", c)
}

// Criteria lists every criterion in priority order.
func Criteria() []Criterion {
	return []Criterion{ByPoints, ByWins, BySeconds, ByThirds, FullyTied}
}

// ParseCriterion maps a stored criterion name back to its value.
func ParseCriterion(s string) (Criterion, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, known := range criterionNames {
		if known == name {
			return Criterion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCriterion, s)
}

// MarshalText encodes the driver as its lowercase id.
func (d Driver) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDriver, d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText parses a driver id.
func (d *Driver) UnmarshalText(b []byte) error {
	v, err := ParseDriver(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalText encodes the criterion by name.
func (c Criterion) MarshalText() ([]byte, error) {
	if int(c) >= len(criterionNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCriterion, c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses a criterion name.
func (c *Criterion) UnmarshalText(b []byte) error {
	v, err := ParseCriterion(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
