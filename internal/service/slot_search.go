package service

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
)

// Randomizer picks among equally feasible candidates.
type Randomizer interface {
	Intn(n int) int
}

type lockedRandomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomizer returns a goroutine-safe Randomizer. A zero seed seeds from the clock.
func NewRandomizer(seed int64) Randomizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRandomizer{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRandomizer) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

type slotQuery struct {
	Lecturer      string
	DurationHours int
	Mode          models.TeachingMode
	GroupID       string
	Day           string
	Venue         string
	Headcount     int
	ExcludeID     string
	excludeSlots  map[string]struct{}
}

type modeTier struct {
	mode models.TeachingMode
	days map[string]struct{}
}

// searchSlot filters the slot pool down to feasible (day, window) pairs and picks one.
func searchSlot(slots []models.TimeSlot, ledger *occupancyLedger, room *models.Room, cfg models.ConstraintConfig, rnd Randomizer, q slotQuery) dto.AssignmentResult {
	pool := slotPool(slots, q.Day, q.DurationHours)
	if len(pool) == 0 {
		return dto.AssignmentResult{Reason: noSlotReason(q, "no time slots defined")}
	}

	tiers := modeTiers(pool, ledger, cfg, q)
	if len(tiers) == 0 {
		return dto.AssignmentResult{Reason: noSlotReason(q, fmt.Sprintf("group %s has no remaining daily capacity", q.GroupID))}
	}

	for _, tier := range tiers {
		feasible := feasibleSlots(pool, tier, ledger, room, cfg, q)
		if len(feasible) == 0 {
			continue
		}
		feasible = preferUnderfilledDays(feasible, ledger, cfg, q)
		feasible = avoidConsecutive(feasible, ledger, cfg, q)

		chosen := feasible[0]
		if len(feasible) > 1 {
			chosen = feasible[rnd.Intn(len(feasible))]
		}
		return dto.AssignmentResult{
			OK:            true,
			Day:           chosen.Day,
			StartTime:     chosen.StartTime,
			EndTime:       chosen.EndTime,
			DurationHours: chosen.DurationHours(),
			TeachingMode:  tier.mode,
		}
	}
	return dto.AssignmentResult{Reason: noSlotReason(q, "")}
}

// slotPool keeps slots matching the day filter and duration, falling back to any duration.
func slotPool(slots []models.TimeSlot, day string, durationHours int) []models.TimeSlot {
	day = models.NormalizeWeekday(day)
	var byDay, exact []models.TimeSlot
	for _, slot := range slots {
		if name := models.NormalizeWeekday(slot.Day); name != "" {
			slot.Day = name
		}
		if day != "" && slot.Day != day {
			continue
		}
		if slot.DurationHours() <= 0 {
			continue
		}
		byDay = append(byDay, slot)
		if slot.DurationHours() == durationHours {
			exact = append(exact, slot)
		}
	}
	pool := exact
	if len(pool) == 0 {
		pool = byDay
	}
	sort.SliceStable(pool, func(i, j int) bool {
		di, dj := models.WeekdayIndex(pool[i].Day), models.WeekdayIndex(pool[j].Day)
		if di != dj {
			return di < dj
		}
		return pool[i].StartTime < pool[j].StartTime
	})
	return pool
}

// modeTiers orders (mode, days) choices: balancing days first, then the preferred mode,
// then any remaining capacity with physical ahead of online.
func modeTiers(pool []models.TimeSlot, ledger *occupancyLedger, cfg models.ConstraintConfig, q slotQuery) []modeTier {
	days := make([]string, 0)
	seen := map[string]struct{}{}
	shortest := map[string]int{}
	for _, slot := range pool {
		hours := slot.DurationHours()
		if _, ok := seen[slot.Day]; ok {
			if hours < shortest[slot.Day] {
				shortest[slot.Day] = hours
			}
			continue
		}
		seen[slot.Day] = struct{}{}
		shortest[slot.Day] = hours
		days = append(days, slot.Day)
	}

	if q.GroupID == "" {
		return []modeTier{{mode: q.Mode, days: seen}}
	}

	stats := make(map[string]groupDayStats, len(days))
	for _, day := range days {
		stats[day] = ledger.groupStats(day, q.GroupID, q.ExcludeID)
	}
	// the pool may hold fallback slots of another length; the exact window is checked per slot
	canAdd := func(day string, mode models.TeachingMode) bool {
		st := stats[day]
		if st.TotalHours+shortest[day] > cfg.MaxTotalHoursPerGroupPerDay {
			return false
		}
		return mode != models.TeachingModePhysical || st.PhysicalCount < cfg.MaxPhysicalSessionsPerGroupPerDay
	}
	daysFor := func(mode models.TeachingMode, pick func(string) bool) map[string]struct{} {
		result := map[string]struct{}{}
		for _, day := range days {
			if pick(day) && canAdd(day, mode) {
				result[day] = struct{}{}
			}
		}
		return result
	}

	var tiers []modeTier
	if cfg.RequireMixedMode {
		balanceModes := []models.TeachingMode{q.Mode, q.Mode.Opposite()}
		for _, mode := range balanceModes {
			mode := mode
			balance := daysFor(mode, func(day string) bool {
				st := stats[day]
				return st.NeedsBalance() && st.Complementary() == mode
			})
			if len(balance) > 0 {
				tiers = append(tiers, modeTier{mode: mode, days: balance})
			}
		}
	}
	if preferred := daysFor(q.Mode, func(string) bool { return true }); len(preferred) > 0 {
		tiers = append(tiers, modeTier{mode: q.Mode, days: preferred})
	}
	for _, mode := range []models.TeachingMode{models.TeachingModePhysical, models.TeachingModeOnline} {
		if mode == q.Mode {
			continue
		}
		if open := daysFor(mode, func(string) bool { return true }); len(open) > 0 {
			tiers = append(tiers, modeTier{mode: mode, days: open})
		}
	}
	return tiers
}

func feasibleSlots(pool []models.TimeSlot, tier modeTier, ledger *occupancyLedger, room *models.Room, cfg models.ConstraintConfig, q slotQuery) []models.TimeSlot {
	var feasible []models.TimeSlot
	for _, slot := range pool {
		if _, ok := tier.days[slot.Day]; !ok {
			continue
		}
		if _, skip := q.excludeSlots[slot.Key()]; skip {
			continue
		}
		start, end, err := models.ParseWindow(slot.StartTime, slot.EndTime)
		if err != nil {
			continue
		}
		mode := tier.mode
		candidate := models.Booking{
			Kind:         models.BookingKindClass,
			Day:          slot.Day,
			Lecturer:     q.Lecturer,
			TeachingMode: &mode,
			Headcount:    q.Headcount,
		}
		if q.GroupID != "" {
			group := q.GroupID
			candidate.GroupID = &group
		}
		if mode == models.TeachingModePhysical {
			candidate.Venue = q.Venue
		}
		if checkCandidate(ledger, candidate, start, end, room, cfg, q.ExcludeID).OK {
			feasible = append(feasible, slot)
		}
	}
	return feasible
}

func preferUnderfilledDays(feasible []models.TimeSlot, ledger *occupancyLedger, cfg models.ConstraintConfig, q slotQuery) []models.TimeSlot {
	if q.GroupID == "" || cfg.MinHoursPerDay <= 0 {
		return feasible
	}
	var under []models.TimeSlot
	for _, slot := range feasible {
		if ledger.groupStats(slot.Day, q.GroupID, q.ExcludeID).TotalHours < cfg.MinHoursPerDay {
			under = append(under, slot)
		}
	}
	if len(under) == 0 {
		return feasible
	}
	return under
}

func avoidConsecutive(feasible []models.TimeSlot, ledger *occupancyLedger, cfg models.ConstraintConfig, q slotQuery) []models.TimeSlot {
	if q.GroupID == "" || !cfg.AvoidConsecutiveSlots {
		return feasible
	}
	var spaced []models.TimeSlot
	for _, slot := range feasible {
		start, end, _ := models.ParseWindow(slot.StartTime, slot.EndTime)
		if !ledger.groupStats(slot.Day, q.GroupID, q.ExcludeID).adjacent(start, end) {
			spaced = append(spaced, slot)
		}
	}
	if len(spaced) == 0 {
		return feasible
	}
	return spaced
}

func noSlotReason(q slotQuery, detail string) string {
	day := q.Day
	if day == "" {
		day = "any day"
	}
	reason := fmt.Sprintf("no feasible %dh slot for lecturer %s on %s", q.DurationHours, q.Lecturer, day)
	if detail != "" {
		reason += ": " + detail
	}
	return reason
}
