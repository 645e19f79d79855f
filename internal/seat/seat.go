// Package seat models the four compass seats around a table and the
// counter-clockwise turn order East, South, West, North.
package seat

import (
	"fmt"
	"strings"
)

// Seat is a position at the table.
type Seat uint8

const (
	East Seat = iota
	South
	West
	North
)

// Count is the number of seats at a table.
const Count = 4

var names = [Count]string{"east", "south", "west", "north"}

// All returns the seats in turn order starting from East.
func All() []Seat {
	return []Seat{East, South, West, North}
}

func (s Seat) String() string {
	if s.Valid() {
		return names[s]
	}
	return fmt.Sprintf("seat(%d)", s)
}

// Valid reports whether s is one of the four seats.
func (s Seat) Valid() bool {
	return s < Count
}

// Next returns the seat that plays after s.
func (s Seat) Next() Seat {
	return (s + 1) % Count
}

// Distance returns how many turns after from the seat to plays: 1 for the
// next seat, 3 for the seat before. Distance(s, s) is 0.
func Distance(from, to Seat) int {
	return (int(to) - int(from) + Count) % Count
}

// Order returns the three seats after from, nearest first.
func Order(from Seat) []Seat {
	return []Seat{from.Next(), from.Next().Next(), from.Next().Next().Next()}
}

// Parse accepts the lowercase names produced by String.
func Parse(s string) (Seat, error) {
	for i, n := range names {
		if strings.EqualFold(s, n) {
			return Seat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown seat %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Seat) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid seat %d", s)
	}
	return []byte(names[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Seat) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
