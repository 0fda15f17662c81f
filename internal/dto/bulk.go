package dto

// BulkExamItem is one (unit, class) pair with an optional pre-assigned window.
type BulkExamItem struct {
	UnitID    string `json:"unit_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BulkScheduleRequest configures an exam timetable run over a date range.
type BulkScheduleRequest struct {
	SemesterID        string         `json:"semester_id" validate:"required"`
	ProgramID         string         `json:"program_id"`
	SchoolID          string         `json:"school_id"`
	Items             []BulkExamItem `json:"items" validate:"required,min=1,dive"`
	StartDate         string         `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string         `json:"end_date" validate:"required,datetime=2006-01-02"`
	ExamDurationHours int            `json:"exam_duration_hours" validate:"required,min=1,max=12"`
	GapDays           int            `json:"gap_days" validate:"min=0"`
	ExcludedWeekdays  []string       `json:"excluded_weekdays"`
	MaxSessionsPerDay int            `json:"max_sessions_per_day" validate:"min=0"`
	Rooms             []string       `json:"rooms"`
	// TimeWindows lists HH:MM start times used for items without a window.
	TimeWindows []string `json:"time_windows"`
}

// BulkClassItem is one class session requirement for the weekly timetable.
type BulkClassItem struct {
	UnitID          string `json:"unit_id" validate:"required"`
	ClassID         string `json:"class_id" validate:"required"`
	GroupID         string `json:"group_id"`
	Lecturer        string `json:"lecturer" validate:"required"`
	DurationHours   int    `json:"duration_hours" validate:"required,min=1,max=12"`
	SessionsPerWeek int    `json:"sessions_per_week" validate:"min=0,max=14"`
	Headcount       int    `json:"headcount" validate:"min=0"`
	TeachingMode    string `json:"teaching_mode" validate:"omitempty,oneof=physical online"`
	Day             string `json:"day"`
}

// BulkClassScheduleRequest configures a weekly class timetable run.
type BulkClassScheduleRequest struct {
	SemesterID string          `json:"semester_id" validate:"required"`
	ProgramID  string          `json:"program_id"`
	SchoolID   string          `json:"school_id"`
	Items      []BulkClassItem `json:"items" validate:"required,min=1,dive"`
	Rooms      []string        `json:"rooms"`
}

// ScheduledRecord summarises a booking created by a bulk run.
type ScheduledRecord struct {
	BookingID    string   `json:"booking_id"`
	UnitID       string   `json:"unit_id"`
	ClassIDs     []string `json:"class_ids"`
	GroupID      string   `json:"group_id,omitempty"`
	Day          string   `json:"day"`
	Date         string   `json:"date,omitempty"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	Venue        string   `json:"venue"`
	Location     string   `json:"location"`
	TeachingMode string   `json:"teaching_mode,omitempty"`
	Lecturer     string   `json:"lecturer"`
	Headcount    int      `json:"headcount"`
}

// BulkIssue is an unscheduled item with the reason it was left out.
type BulkIssue struct {
	UnitID   string   `json:"unit_id"`
	ClassIDs []string `json:"class_ids,omitempty"`
	GroupID  string   `json:"group_id,omitempty"`
	Reason   string   `json:"reason"`
}

// BulkScheduleResult separates created bookings from conflicts and warnings.
type BulkScheduleResult struct {
	RunID     string            `json:"run_id"`
	Scheduled []ScheduledRecord `json:"scheduled"`
	Conflicts []BulkIssue       `json:"conflicts"`
	Warnings  []BulkIssue       `json:"warnings"`
}
