package models

import "time"

// RoomKind distinguishes teaching rooms from exam halls.
type RoomKind string

const (
	RoomKindClassroom RoomKind = "classroom"
	RoomKindExamroom  RoomKind = "examroom"
)

// RoomKindFor maps a booking kind onto the room catalogue it draws from.
func RoomKindFor(kind BookingKind) RoomKind {
	if kind == BookingKindExam {
		return RoomKindExamroom
	}
	return RoomKindClassroom
}

// Room is a bookable venue. Concurrent bookings may share it while their headcounts fit.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Kind      RoomKind  `db:"kind" json:"kind"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Location  string    `db:"location" json:"location"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Mode derives the delivery mode from the room name.
func (r Room) Mode() TeachingMode {
	if IsRemoteVenue(r.Name) {
		return TeachingModeOnline
	}
	return TeachingModePhysical
}

// TimeSlot is a reusable day and time window template for class sessions.
type TimeSlot struct {
	ID        string `db:"id" json:"id"`
	Day       string `db:"day" json:"day"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// Key identifies the slot independent of its id.
func (s TimeSlot) Key() string {
	return s.Day + " " + s.StartTime + "-" + s.EndTime
}

// DurationHours returns the slot length in whole hours.
func (s TimeSlot) DurationHours() int {
	start, end, err := ParseWindow(s.StartTime, s.EndTime)
	if err != nil {
		return 0
	}
	return (end - start) / 60
}

// UnitAssignment records which lecturer teaches a unit to a class in a semester.
type UnitAssignment struct {
	ID           string    `db:"id" json:"id"`
	UnitID       string    `db:"unit_id" json:"unit_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	LecturerCode string    `db:"lecturer_code" json:"lecturer_code"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
