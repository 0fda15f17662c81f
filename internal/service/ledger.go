package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

type ledgerEntry struct {
	booking models.Booking
	start   int
	end     int
}

func (e *ledgerEntry) overlaps(start, end int) bool {
	return e.start < end && e.end > start
}

// occupancyLedger indexes bookings by day key so overlap queries stay local to one day.
// A ledger belongs to a single call stack.
type occupancyLedger struct {
	byDay map[string][]*ledgerEntry
}

func newOccupancyLedger(bookings []models.Booking) (*occupancyLedger, error) {
	ledger := &occupancyLedger{byDay: make(map[string][]*ledgerEntry)}
	for _, booking := range bookings {
		if err := ledger.add(booking); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

func (l *occupancyLedger) add(booking models.Booking) error {
	start, end, err := booking.Window()
	if err != nil {
		return fmt.Errorf("booking %s: %w", booking.ID, err)
	}
	key := booking.DayKey()
	l.byDay[key] = append(l.byDay[key], &ledgerEntry{booking: booking, start: start, end: end})
	return nil
}

func (l *occupancyLedger) remove(id string) {
	if id == "" {
		return
	}
	for key, entries := range l.byDay {
		kept := entries[:0]
		for _, entry := range entries {
			if entry.booking.ID != id {
				kept = append(kept, entry)
			}
		}
		l.byDay[key] = kept
	}
}

func (l *occupancyLedger) day(key string) []*ledgerEntry {
	return l.byDay[key]
}

func (l *occupancyLedger) overlapping(key string, start, end int, excludeID string, match func(*ledgerEntry) bool) []*ledgerEntry {
	var result []*ledgerEntry
	for _, entry := range l.byDay[key] {
		if excludeID != "" && entry.booking.ID == excludeID {
			continue
		}
		if !entry.overlaps(start, end) {
			continue
		}
		if match == nil || match(entry) {
			result = append(result, entry)
		}
	}
	return result
}

func (l *occupancyLedger) lecturerClashes(key string, start, end int, lecturer, excludeID string) []*ledgerEntry {
	if strings.TrimSpace(lecturer) == "" {
		return nil
	}
	return l.overlapping(key, start, end, excludeID, func(entry *ledgerEntry) bool {
		return sameIdentity(entry.booking.Lecturer, lecturer)
	})
}

// venueOccupancy sums the headcount of physical bookings in the venue overlapping the window.
func (l *occupancyLedger) venueOccupancy(key, venue string, start, end int, excludeID string) (int, []*ledgerEntry) {
	if models.IsRemoteVenue(venue) {
		return 0, nil
	}
	entries := l.overlapping(key, start, end, excludeID, func(entry *ledgerEntry) bool {
		return entry.booking.IsPhysical() && sameIdentity(entry.booking.Venue, venue)
	})
	total := 0
	for _, entry := range entries {
		total += entry.booking.Headcount
	}
	return total, entries
}

func (l *occupancyLedger) classClashes(key string, classIDs []string, start, end int, excludeID string) []*ledgerEntry {
	if len(classIDs) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(classIDs))
	for _, id := range classIDs {
		wanted[id] = struct{}{}
	}
	return l.overlapping(key, start, end, excludeID, func(entry *ledgerEntry) bool {
		for _, id := range entry.booking.Classes() {
			if _, ok := wanted[id]; ok {
				return true
			}
		}
		return false
	})
}

// sittingsFor counts bookings on the day that involve the class.
func (l *occupancyLedger) sittingsFor(key, classID string) int {
	count := 0
	for _, entry := range l.byDay[key] {
		for _, id := range entry.booking.Classes() {
			if id == classID {
				count++
				break
			}
		}
	}
	return count
}

type groupDayStats struct {
	PhysicalCount int
	TotalHours    int
	HasPhysical   bool
	HasOnline     bool
	windows       [][2]int
}

// NeedsBalance reports whether the day carries only one delivery mode.
func (s groupDayStats) NeedsBalance() bool {
	return s.HasPhysical != s.HasOnline
}

// Complementary is the mode that would mix the day.
func (s groupDayStats) Complementary() models.TeachingMode {
	if s.HasPhysical {
		return models.TeachingModeOnline
	}
	return models.TeachingModePhysical
}

func (s groupDayStats) busy(start, end int) bool {
	for _, w := range s.windows {
		if w[0] < end && w[1] > start {
			return true
		}
	}
	return false
}

func (s groupDayStats) adjacent(start, end int) bool {
	for _, w := range s.windows {
		if w[1] == start || w[0] == end {
			return true
		}
	}
	return false
}

func (l *occupancyLedger) groupStats(key, groupID, excludeID string) groupDayStats {
	var stats groupDayStats
	if groupID == "" {
		return stats
	}
	for _, entry := range l.byDay[key] {
		if entry.booking.Group() != groupID || (excludeID != "" && entry.booking.ID == excludeID) {
			continue
		}
		stats.TotalHours += (entry.end - entry.start) / 60
		stats.windows = append(stats.windows, [2]int{entry.start, entry.end})
		if entry.booking.Mode() == models.TeachingModePhysical {
			stats.PhysicalCount++
			stats.HasPhysical = true
		} else {
			stats.HasOnline = true
		}
	}
	return stats
}

func sameIdentity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
