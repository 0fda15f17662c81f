package service

import (
	"fmt"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
)

// checkCandidate evaluates every booking rule for a candidate against the ledger.
// room is the catalogue record for the candidate venue and may be nil when the venue is unknown.
func checkCandidate(ledger *occupancyLedger, candidate models.Booking, start, end int, room *models.Room, cfg models.ConstraintConfig, excludeID string) dto.ConflictResult {
	result := dto.ConflictResult{Reasons: []string{}}
	key := candidate.DayKey()
	window := models.FormatClock(start) + "-" + models.FormatClock(end)

	if clashes := ledger.lecturerClashes(key, start, end, candidate.Lecturer, excludeID); len(clashes) > 0 {
		first := clashes[0].booking
		result.Reasons = append(result.Reasons, fmt.Sprintf("lecturer %s is already booked on %s %s-%s", candidate.Lecturer, key, first.StartTime, first.EndTime))
		for _, clash := range clashes {
			result.Conflicts = append(result.Conflicts, conflictFrom(models.ConflictLecturer, clash, "lecturer double-booked"))
		}
	}

	if candidate.IsPhysical() && candidate.Venue != "" {
		occupancy, sharing := ledger.venueOccupancy(key, candidate.Venue, start, end, excludeID)
		switch {
		case room == nil:
			result.Reasons = append(result.Reasons, fmt.Sprintf("venue %s not found in catalog", candidate.Venue))
			result.Conflicts = append(result.Conflicts, models.BookingConflict{
				Dimension: models.ConflictVenue,
				Message:   "unknown venue",
				DayKey:    key,
				Venue:     candidate.Venue,
			})
		case occupancy+candidate.Headcount > room.Capacity:
			result.Reasons = append(result.Reasons, fmt.Sprintf("venue %s over capacity on %s %s: %d seated + %d requested exceeds %d",
				candidate.Venue, key, window, occupancy, candidate.Headcount, room.Capacity))
			for _, entry := range sharing {
				result.Conflicts = append(result.Conflicts, conflictFrom(models.ConflictVenue, entry, "shares venue capacity"))
			}
		}
	}

	if candidate.Kind == models.BookingKindClass && candidate.Group() != "" {
		group := candidate.Group()
		stats := ledger.groupStats(key, group, excludeID)
		duration := (end - start) / 60
		if stats.TotalHours+duration > cfg.MaxTotalHoursPerGroupPerDay {
			result.Reasons = append(result.Reasons, fmt.Sprintf("group %s would have %d hours on %s, above the daily limit of %d",
				group, stats.TotalHours+duration, key, cfg.MaxTotalHoursPerGroupPerDay))
			result.Conflicts = append(result.Conflicts, models.BookingConflict{Dimension: models.ConflictGroupHours, Message: "daily hour cap", DayKey: key})
		}
		if candidate.Mode() == models.TeachingModePhysical && stats.PhysicalCount >= cfg.MaxPhysicalSessionsPerGroupPerDay {
			result.Reasons = append(result.Reasons, fmt.Sprintf("group %s already has %d physical sessions on %s",
				group, stats.PhysicalCount, key))
			result.Conflicts = append(result.Conflicts, models.BookingConflict{Dimension: models.ConflictGroupPhysical, Message: "daily physical session cap", DayKey: key})
		}
		busy := ledger.overlapping(key, start, end, excludeID, func(entry *ledgerEntry) bool {
			return entry.booking.Group() == group
		})
		if len(busy) > 0 {
			result.Reasons = append(result.Reasons, fmt.Sprintf("group %s is already in session on %s %s", group, key, window))
			for _, entry := range busy {
				result.Conflicts = append(result.Conflicts, conflictFrom(models.ConflictGroupBusy, entry, "group already in session"))
			}
		}
	}

	if candidate.Kind == models.BookingKindExam {
		if clashes := ledger.classClashes(key, candidate.Classes(), start, end, excludeID); len(clashes) > 0 {
			result.Reasons = append(result.Reasons, fmt.Sprintf("a class in this sitting already sits an exam on %s %s", key, window))
			for _, clash := range clashes {
				result.Conflicts = append(result.Conflicts, conflictFrom(models.ConflictClassBusy, clash, "class already sitting"))
			}
		}
	}

	result.OK = len(result.Reasons) == 0
	return result
}

func conflictFrom(dimension models.ConflictDimension, entry *ledgerEntry, message string) models.BookingConflict {
	return models.BookingConflict{
		Dimension: dimension,
		Message:   message,
		BookingID: entry.booking.ID,
		DayKey:    entry.booking.DayKey(),
		StartTime: entry.booking.StartTime,
		EndTime:   entry.booking.EndTime,
		Venue:     entry.booking.Venue,
		Lecturer:  entry.booking.Lecturer,
	}
}

func findRoom(rooms []models.Room, name string) *models.Room {
	for i := range rooms {
		if sameIdentity(rooms[i].Name, name) {
			return &rooms[i]
		}
	}
	return nil
}
