package service

import (
	"strings"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

// ResolveTeachingMode is the single place a session's delivery mode is decided.
// A valid override wins; otherwise sessions of at least PhysicalMinDurationHours run in a room.
func ResolveTeachingMode(durationHours int, override string, cfg models.ConstraintConfig) models.TeachingMode {
	if mode := models.TeachingMode(strings.ToLower(strings.TrimSpace(override))); mode.Valid() {
		return mode
	}
	if durationHours >= cfg.Normalize().PhysicalMinDurationHours {
		return models.TeachingModePhysical
	}
	return models.TeachingModeOnline
}
