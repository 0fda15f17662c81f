package models

import "strings"

// ConflictDimension names the constraint a booking collided on.
type ConflictDimension string

const (
	ConflictLecturer      ConflictDimension = "lecturer"
	ConflictVenue         ConflictDimension = "venue"
	ConflictGroupHours    ConflictDimension = "group_hours"
	ConflictGroupPhysical ConflictDimension = "group_physical"
	ConflictGroupBusy     ConflictDimension = "group_busy"
	ConflictClassBusy     ConflictDimension = "class_busy"
)

// BookingConflict describes a single violated rule and the booking that caused it, if any.
type BookingConflict struct {
	Dimension ConflictDimension `json:"dimension"`
	Message   string            `json:"message"`
	BookingID string            `json:"booking_id,omitempty"`
	DayKey    string            `json:"day,omitempty"`
	StartTime string            `json:"start_time,omitempty"`
	EndTime   string            `json:"end_time,omitempty"`
	Venue     string            `json:"venue,omitempty"`
	Lecturer  string            `json:"lecturer,omitempty"`
}

// BookingConflictError is returned when a write would violate a scheduling constraint.
type BookingConflictError struct {
	Message   string            `json:"message"`
	Reasons   []string          `json:"reasons"`
	Conflicts []BookingConflict `json:"conflicts,omitempty"`
}

// Error implements the error interface.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Reasons) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Reasons, "; ")
}

// CapacityExhaustedError reports that the search space held no usable room or slot.
type CapacityExhaustedError struct {
	Message       string `json:"message"`
	Reason        string `json:"reason"`
	Lecturer      string `json:"lecturer,omitempty"`
	DurationHours int    `json:"duration_hours,omitempty"`
	Headcount     int    `json:"headcount,omitempty"`
	Day           string `json:"day,omitempty"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	Attempts      int    `json:"attempts,omitempty"`
}

// Error implements the error interface.
func (e *CapacityExhaustedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Reason == "" {
		return e.Message
	}
	return e.Message + ": " + e.Reason
}
