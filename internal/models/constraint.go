package models

// ConstraintConfig holds the scheduling tunables. It is passed by value into every
// scheduling call and never mutated.
type ConstraintConfig struct {
	MaxPhysicalSessionsPerGroupPerDay int  `json:"max_physical_sessions_per_group_per_day"`
	MaxTotalHoursPerGroupPerDay       int  `json:"max_total_hours_per_group_per_day"`
	MinHoursPerDay                    int  `json:"min_hours_per_day"`
	RequireMixedMode                  bool `json:"require_mixed_mode"`
	AvoidConsecutiveSlots             bool `json:"avoid_consecutive_slots"`
	// PhysicalMinDurationHours is the shortest session delivered in a room when no mode is forced.
	PhysicalMinDurationHours int `json:"physical_min_duration_hours"`
	MaxAssignmentAttempts    int `json:"max_assignment_attempts"`
	MaxBulkDaysPerUnit       int `json:"max_bulk_days_per_unit"`
}

// DefaultConstraintConfig returns the institutional defaults.
func DefaultConstraintConfig() ConstraintConfig {
	return ConstraintConfig{
		MaxPhysicalSessionsPerGroupPerDay: 2,
		MaxTotalHoursPerGroupPerDay:       5,
		MinHoursPerDay:                    2,
		RequireMixedMode:                  true,
		AvoidConsecutiveSlots:             true,
		PhysicalMinDurationHours:          2,
		MaxAssignmentAttempts:             5,
		MaxBulkDaysPerUnit:                120,
	}
}

// Normalize replaces non-positive numeric limits with defaults. Flags are kept as given.
func (c ConstraintConfig) Normalize() ConstraintConfig {
	def := DefaultConstraintConfig()
	if c.MaxPhysicalSessionsPerGroupPerDay <= 0 {
		c.MaxPhysicalSessionsPerGroupPerDay = def.MaxPhysicalSessionsPerGroupPerDay
	}
	if c.MaxTotalHoursPerGroupPerDay <= 0 {
		c.MaxTotalHoursPerGroupPerDay = def.MaxTotalHoursPerGroupPerDay
	}
	if c.MinHoursPerDay < 0 {
		c.MinHoursPerDay = def.MinHoursPerDay
	}
	if c.PhysicalMinDurationHours <= 0 {
		c.PhysicalMinDurationHours = def.PhysicalMinDurationHours
	}
	if c.MaxAssignmentAttempts <= 0 {
		c.MaxAssignmentAttempts = def.MaxAssignmentAttempts
	}
	if c.MaxBulkDaysPerUnit <= 0 {
		c.MaxBulkDaysPerUnit = def.MaxBulkDaysPerUnit
	}
	return c
}
