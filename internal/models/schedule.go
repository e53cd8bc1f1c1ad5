package models

import (
	"fmt"
	"time"
)

// DayOfWeek is one of the seven canonical weekday values.
type DayOfWeek string

const (
	DayMonday    DayOfWeek = "MONDAY"
	DayTuesday   DayOfWeek = "TUESDAY"
	DayWednesday DayOfWeek = "WEDNESDAY"
	DayThursday  DayOfWeek = "THURSDAY"
	DayFriday    DayOfWeek = "FRIDAY"
	DaySaturday  DayOfWeek = "SATURDAY"
	DaySunday    DayOfWeek = "SUNDAY"
)

var canonicalDays = map[DayOfWeek]struct{}{
	DayMonday: {}, DayTuesday: {}, DayWednesday: {}, DayThursday: {},
	DayFriday: {}, DaySaturday: {}, DaySunday: {},
}

// Valid reports whether the value is one of the seven canonical days.
func (d DayOfWeek) Valid() bool {
	_, ok := canonicalDays[d]
	return ok
}

// ScheduleSlot assigns an instructor (and optionally a room) to a section
// for a time interval on a given day. Times are minutes since midnight;
// the interval is half-open, end exclusive.
type ScheduleSlot struct {
	ID           string    `db:"id" json:"id"`
	SectionID    string    `db:"section_id" json:"section_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	RoomID       *string   `db:"room_id" json:"room_id,omitempty"`
	DayOfWeek    DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartMinutes int       `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int       `db:"end_minutes" json:"end_minutes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Overlaps reports whether two slots intersect in time on the same day.
func (s ScheduleSlot) Overlaps(other ScheduleSlot) bool {
	if s.DayOfWeek != other.DayOfWeek {
		return false
	}
	return s.StartMinutes < other.EndMinutes && s.EndMinutes > other.StartMinutes
}

// RoomConflict flags two slots double-booking the same room.
type RoomConflict struct {
	RoomID         string    `json:"room_id"`
	DayOfWeek      DayOfWeek `json:"day_of_week"`
	FirstSlotID    string    `json:"first_slot_id"`
	SecondSlotID   string    `json:"second_slot_id"`
	OverlapMinutes int       `json:"overlap_minutes"`
}

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(raw string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", raw)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
