package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// BookingKind separates the class timetable from the exam timetable.
type BookingKind string

const (
	BookingKindClass BookingKind = "class"
	BookingKindExam  BookingKind = "exam"
)

// TeachingMode describes how a class session is delivered.
type TeachingMode string

const (
	TeachingModePhysical TeachingMode = "physical"
	TeachingModeOnline   TeachingMode = "online"
)

// Valid reports whether the mode is one of the known values.
func (m TeachingMode) Valid() bool {
	return m == TeachingModePhysical || m == TeachingModeOnline
}

// Opposite returns the complementary delivery mode.
func (m TeachingMode) Opposite() TeachingMode {
	if m == TeachingModeOnline {
		return TeachingModePhysical
	}
	return TeachingModeOnline
}

const (
	// RemoteVenue is the sentinel venue for online delivery.
	RemoteVenue = "Remote"
	// OnlineLocation accompanies RemoteVenue.
	OnlineLocation = "Online"
)

// IsRemoteVenue reports whether the venue is the online sentinel.
func IsRemoteVenue(venue string) bool {
	return strings.EqualFold(strings.TrimSpace(venue), RemoteVenue)
}

// Booking is one scheduled class session or exam sitting.
type Booking struct {
	ID           string         `db:"id" json:"id"`
	Kind         BookingKind    `db:"kind" json:"kind"`
	UnitID       string         `db:"unit_id" json:"unit_id"`
	ClassID      string         `db:"class_id" json:"class_id"`
	ClassIDs     pq.StringArray `db:"class_ids" json:"class_ids,omitempty"`
	GroupID      *string        `db:"group_id" json:"group_id,omitempty"`
	SemesterID   string         `db:"semester_id" json:"semester_id"`
	ProgramID    string         `db:"program_id" json:"program_id"`
	SchoolID     string         `db:"school_id" json:"school_id"`
	Day          string         `db:"day" json:"day"`
	Date         *string        `db:"date" json:"date,omitempty"`
	StartTime    string         `db:"start_time" json:"start_time"`
	EndTime      string         `db:"end_time" json:"end_time"`
	Venue        string         `db:"venue" json:"venue"`
	Location     string         `db:"location" json:"location"`
	TeachingMode *TeachingMode  `db:"teaching_mode" json:"teaching_mode,omitempty"`
	Headcount    int            `db:"headcount" json:"headcount"`
	Lecturer     string         `db:"lecturer" json:"lecturer"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// DayKey is the calendar key bookings are compared on: the date when present, else the weekday.
func (b Booking) DayKey() string {
	if b.Date != nil && *b.Date != "" {
		return *b.Date
	}
	return b.Day
}

// Group returns the group id or an empty string.
func (b Booking) Group() string {
	if b.GroupID == nil {
		return ""
	}
	return *b.GroupID
}

// Mode returns the stored teaching mode, falling back to the venue for rows that carry none.
func (b Booking) Mode() TeachingMode {
	if b.TeachingMode != nil && b.TeachingMode.Valid() {
		return *b.TeachingMode
	}
	if IsRemoteVenue(b.Venue) {
		return TeachingModeOnline
	}
	return TeachingModePhysical
}

// IsPhysical reports whether the booking consumes room capacity.
func (b Booking) IsPhysical() bool {
	return b.Mode() == TeachingModePhysical && !IsRemoteVenue(b.Venue)
}

// Classes lists every class served by the booking.
func (b Booking) Classes() []string {
	if len(b.ClassIDs) > 0 {
		return []string(b.ClassIDs)
	}
	if b.ClassID == "" {
		return nil
	}
	return []string{b.ClassID}
}

// Window returns start and end as minutes after midnight.
func (b Booking) Window() (start, end int, err error) {
	return ParseWindow(b.StartTime, b.EndTime)
}

// DurationHours returns the booked length in whole hours.
func (b Booking) DurationHours() int {
	start, end, err := b.Window()
	if err != nil {
		return 0
	}
	return (end - start) / 60
}

// BookingFilter narrows booking queries. Empty fields are ignored.
type BookingFilter struct {
	Kind       BookingKind
	Day        string
	Date       string
	DateFrom   string
	DateTo     string
	Venue      string
	Lecturer   string
	ClassID    string
	GroupID    string
	SemesterID string
	UnitID     string
	ExcludeID  string
}
