package dto

import "github.com/noah-isme/academic-timetable-api/internal/models"

// CheckConflictsRequest describes a candidate booking to validate against the timetable.
type CheckConflictsRequest struct {
	Kind             models.BookingKind `json:"kind" validate:"omitempty,oneof=class exam"`
	Day              string             `json:"day" validate:"required_without=Date"`
	Date             string             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime        string             `json:"start_time" validate:"required"`
	EndTime          string             `json:"end_time" validate:"required"`
	Venue            string             `json:"venue"`
	Lecturer         string             `json:"lecturer"`
	TeachingMode     string             `json:"teaching_mode" validate:"omitempty,oneof=physical online"`
	Headcount        int                `json:"headcount" validate:"min=0"`
	GroupID          string             `json:"group_id"`
	ClassIDs         []string           `json:"class_ids"`
	SemesterID       string             `json:"semester_id"`
	ExcludeBookingID string             `json:"exclude_booking_id"`
}

// ConflictResult reports every violated rule for a candidate.
type ConflictResult struct {
	OK        bool                     `json:"ok"`
	Reasons   []string                 `json:"reasons"`
	Conflicts []models.BookingConflict `json:"conflicts,omitempty"`
}

// AllocateVenueRequest asks for a room with enough remaining capacity in a window.
type AllocateVenueRequest struct {
	Kind             models.BookingKind `json:"kind" validate:"omitempty,oneof=class exam"`
	Headcount        int                `json:"headcount" validate:"required,min=1"`
	Day              string             `json:"day" validate:"required_without=Date"`
	Date             string             `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime        string             `json:"start_time" validate:"required"`
	EndTime          string             `json:"end_time" validate:"required"`
	PreferredMode    string             `json:"preferred_mode" validate:"omitempty,oneof=physical online"`
	ExcludeBookingID string             `json:"exclude_booking_id"`
	SemesterID       string             `json:"semester_id"`
	Rooms            []string           `json:"rooms"`
}

// VenueResult is the allocator outcome.
type VenueResult struct {
	OK                bool   `json:"ok"`
	Venue             string `json:"venue,omitempty"`
	Location          string `json:"location,omitempty"`
	RemainingCapacity int    `json:"remaining_capacity"`
	Reason            string `json:"reason,omitempty"`
}

// FindAssignmentRequest searches the time-slot catalogue for a lecturer.
type FindAssignmentRequest struct {
	Lecturer      string `json:"lecturer" validate:"required"`
	DurationHours int    `json:"duration_hours" validate:"required,min=1,max=12"`
	PreferredMode string `json:"preferred_mode" validate:"omitempty,oneof=physical online"`
	GroupID       string `json:"group_id"`
	Day           string `json:"day"`
	Venue         string `json:"venue"`
	Headcount     int    `json:"headcount" validate:"min=0"`
	SemesterID    string `json:"semester_id"`
}

// AssignmentResult is the slot search outcome.
type AssignmentResult struct {
	OK            bool                `json:"ok"`
	Day           string              `json:"day,omitempty"`
	StartTime     string              `json:"start_time,omitempty"`
	EndTime       string              `json:"end_time,omitempty"`
	DurationHours int                 `json:"duration_hours,omitempty"`
	TeachingMode  models.TeachingMode `json:"teaching_mode,omitempty"`
	Reason        string              `json:"reason,omitempty"`
}

// ScheduleClassSessionRequest books one class session into the weekly timetable.
type ScheduleClassSessionRequest struct {
	UnitID        string   `json:"unit_id" validate:"required"`
	ClassID       string   `json:"class_id" validate:"required"`
	GroupID       string   `json:"group_id"`
	SemesterID    string   `json:"semester_id" validate:"required"`
	ProgramID     string   `json:"program_id"`
	SchoolID      string   `json:"school_id"`
	Lecturer      string   `json:"lecturer" validate:"required"`
	DurationHours int      `json:"duration_hours" validate:"required,min=1,max=12"`
	Headcount     int      `json:"headcount" validate:"min=0"`
	TeachingMode  string   `json:"teaching_mode" validate:"omitempty,oneof=physical online"`
	Day           string   `json:"day"`
	Rooms         []string `json:"rooms"`
}

// UpdateBookingRequest edits booking fields. Nil fields are left untouched.
type UpdateBookingRequest struct {
	Day          *string `json:"day"`
	Date         *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Venue        *string `json:"venue"`
	Location     *string `json:"location"`
	TeachingMode *string `json:"teaching_mode" validate:"omitempty,oneof=physical online"`
	Headcount    *int    `json:"headcount" validate:"omitempty,min=1"`
	Lecturer     *string `json:"lecturer"`
	GroupID      *string `json:"group_id"`
}

// BookingQuery captures list filters from the query string.
type BookingQuery struct {
	Kind       string `form:"kind" validate:"omitempty,oneof=class exam"`
	Day        string `form:"day"`
	Date       string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	DateFrom   string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo     string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Venue      string `form:"venue"`
	Lecturer   string `form:"lecturer"`
	ClassID    string `form:"class_id"`
	GroupID    string `form:"group_id"`
	SemesterID string `form:"semester_id"`
	UnitID     string `form:"unit_id"`
}
