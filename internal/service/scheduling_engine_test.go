package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
)

type stubRandomizer struct {
	pick  int
	calls []int
}

func (s *stubRandomizer) Intn(n int) int {
	s.calls = append(s.calls, n)
	if s.pick >= n {
		return n - 1
	}
	return s.pick
}

func classBooking(id, day, start, end, venue, lecturer, group string, mode models.TeachingMode, headcount int) models.Booking {
	booking := models.Booking{
		ID:           id,
		Kind:         models.BookingKindClass,
		Day:          day,
		StartTime:    start,
		EndTime:      end,
		Venue:        venue,
		Lecturer:     lecturer,
		TeachingMode: &mode,
		Headcount:    headcount,
		SemesterID:   "sem-1",
	}
	if group != "" {
		booking.GroupID = &group
	}
	return booking
}

func examBooking(id, date, start, end, venue, lecturer string, headcount int, classes ...string) models.Booking {
	physical := models.TeachingModePhysical
	return models.Booking{
		ID:           id,
		Kind:         models.BookingKindExam,
		Day:          "Monday",
		Date:         &date,
		StartTime:    start,
		EndTime:      end,
		Venue:        venue,
		Lecturer:     lecturer,
		TeachingMode: &physical,
		Headcount:    headcount,
		ClassID:      classes[0],
		ClassIDs:     classes,
	}
}

func mustLedger(t *testing.T, bookings ...models.Booking) *occupancyLedger {
	t.Helper()
	ledger, err := newOccupancyLedger(bookings)
	require.NoError(t, err)
	return ledger
}

func newRoom(name string, capacity int) models.Room {
	return models.Room{ID: name, Name: name, Kind: models.RoomKindClassroom, Capacity: capacity, Location: "Block 1", IsActive: true}
}

func mustWindow(t *testing.T, start, end string) (int, int) {
	t.Helper()
	s, e, err := models.ParseWindow(start, end)
	require.NoError(t, err)
	return s, e
}

func TestCheckCandidateLecturerOverlap(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "09:00", "11:00", "Room A", "L1", "", models.TeachingModePhysical, 10))
	hall := newRoom("Room B", 50)

	candidate := classBooking("", "Monday", "10:00", "12:00", "Room B", "l1 ", "", models.TeachingModePhysical, 10)
	start, end := mustWindow(t, "10:00", "12:00")
	result := checkCandidate(ledger, candidate, start, end, &hall, cfg, "")

	assert.False(t, result.OK)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "lecturer l1  is already booked on Monday 09:00-11:00")
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictLecturer, result.Conflicts[0].Dimension)
	assert.Equal(t, "b1", result.Conflicts[0].BookingID)
}

func TestCheckCandidateBackToBackIsNotAnOverlap(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "09:00", "11:00", "Room A", "L1", "", models.TeachingModePhysical, 10))
	hall := newRoom("Room A", 30)

	candidate := classBooking("", "Monday", "11:00", "12:00", "Room A", "L1", "", models.TeachingModePhysical, 30)
	start, end := mustWindow(t, "11:00", "12:00")
	assert.True(t, checkCandidate(ledger, candidate, start, end, &hall, cfg, "").OK)
}

func TestCheckCandidateExcludesItself(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	existing := classBooking("b1", "Monday", "09:00", "11:00", "Room A", "L1", "", models.TeachingModePhysical, 25)
	ledger := mustLedger(t, existing)
	hall := newRoom("Room A", 30)
	start, end := mustWindow(t, "09:00", "11:00")

	assert.False(t, checkCandidate(ledger, existing, start, end, &hall, cfg, "").OK)
	assert.True(t, checkCandidate(ledger, existing, start, end, &hall, cfg, "b1").OK)
}

func TestCheckCandidateIsIdempotent(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "09:00", "11:00", "Room A", "L1", "", models.TeachingModePhysical, 10))
	candidate := classBooking("", "Monday", "10:00", "12:00", "Room A", "L1", "", models.TeachingModePhysical, 10)
	hall := newRoom("Room A", 30)
	start, end := mustWindow(t, "10:00", "12:00")

	first := checkCandidate(ledger, candidate, start, end, &hall, cfg, "")
	second := checkCandidate(ledger, candidate, start, end, &hall, cfg, "")
	assert.Equal(t, first, second)
}

func TestCheckCandidateVenueCapacitySharing(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, examBooking("e1", "2024-05-06", "09:00", "11:00", "Hall", "L1", 20, "c1"))
	hall := newRoom("Hall", 30)
	start, end := mustWindow(t, "10:00", "12:00")

	fits := examBooking("", "2024-05-06", "10:00", "12:00", "Hall", "L2", 10, "c2")
	assert.True(t, checkCandidate(ledger, fits, start, end, &hall, cfg, "").OK)

	over := examBooking("", "2024-05-06", "10:00", "12:00", "Hall", "L2", 15, "c2")
	result := checkCandidate(ledger, over, start, end, &hall, cfg, "")
	assert.False(t, result.OK)
	assert.Contains(t, result.Reasons[0], "over capacity")
	assert.Equal(t, models.ConflictVenue, result.Conflicts[0].Dimension)
}

func TestCheckCandidateUnknownVenue(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t)
	candidate := classBooking("", "Monday", "10:00", "12:00", "Ghost Room", "L1", "", models.TeachingModePhysical, 1)
	start, end := mustWindow(t, "10:00", "12:00")

	result := checkCandidate(ledger, candidate, start, end, nil, cfg, "")
	assert.False(t, result.OK)
	assert.Equal(t, []string{"venue Ghost Room not found in catalog"}, result.Reasons)
}

func TestCheckCandidateKindsDoNotCollide(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	exam := examBooking("e1", "2024-05-06", "09:00", "11:00", "Hall", "L1", 30, "c1")
	ledger := mustLedger(t, exam)
	hall := newRoom("Hall", 30)
	// Weekly class sessions are keyed by weekday, dated sittings by date.
	candidate := classBooking("", "Monday", "09:00", "11:00", "Hall", "L1", "", models.TeachingModePhysical, 30)
	start, end := mustWindow(t, "09:00", "11:00")
	assert.True(t, checkCandidate(ledger, candidate, start, end, &hall, cfg, "").OK)
}

func TestCheckCandidateExamClassClash(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, examBooking("e1", "2024-05-06", "09:00", "11:00", "Hall", "L1", 10, "c1", "c2"))
	other := newRoom("Annex", 100)
	candidate := examBooking("", "2024-05-06", "10:00", "12:00", "Annex", "L2", 10, "c2", "c3")
	start, end := mustWindow(t, "10:00", "12:00")

	result := checkCandidate(ledger, candidate, start, end, &other, cfg, "")
	assert.False(t, result.OK)
	assert.Equal(t, models.ConflictClassBusy, result.Conflicts[0].Dimension)
}

func TestScenarioARoomCapacityNeverExceeded(t *testing.T) {
	ledger := mustLedger(t, classBooking("b1", "Monday", "09:00", "11:00", "Room A", "L1", "", models.TeachingModePhysical, 20))
	start, end := mustWindow(t, "09:00", "11:00")
	q := venueQuery{DayKey: "Monday", Start: start, End: end, Headcount: 15, Mode: models.TeachingModePhysical}

	onlyA := allocateFromRooms([]models.Room{newRoom("Room A", 30)}, ledger, q)
	assert.False(t, onlyA.OK)
	assert.Equal(t, reasonNoCompatibleVenue, onlyA.Reason)

	withB := allocateFromRooms([]models.Room{newRoom("Room A", 30), newRoom("Room B", 40)}, ledger, q)
	require.True(t, withB.OK)
	assert.Equal(t, "Room B", withB.Venue)
	assert.Equal(t, 25, withB.RemainingCapacity)
}

func TestAllocateFromRoomsPrefersSmallestThenName(t *testing.T) {
	ledger := mustLedger(t)
	start, end := mustWindow(t, "09:00", "10:00")
	rooms := []models.Room{newRoom("Zeta", 40), newRoom("Beta", 40), newRoom("Alpha", 60), newRoom("Tiny", 5)}

	result := allocateFromRooms(rooms, ledger, venueQuery{DayKey: "Monday", Start: start, End: end, Headcount: 30})
	require.True(t, result.OK)
	assert.Equal(t, "Beta", result.Venue)
	assert.Equal(t, "Block 1", result.Location)
	assert.Equal(t, 10, result.RemainingCapacity)
}

func TestAllocateFromRoomsSharesPartiallyFilledRoom(t *testing.T) {
	ledger := mustLedger(t, classBooking("b1", "Monday", "09:00", "10:00", "Beta", "L1", "", models.TeachingModePhysical, 10))
	start, end := mustWindow(t, "09:00", "10:00")

	result := allocateFromRooms([]models.Room{newRoom("Beta", 40)}, ledger, venueQuery{DayKey: "Monday", Start: start, End: end, Headcount: 30})
	require.True(t, result.OK)
	assert.Equal(t, "Beta", result.Venue)
	assert.Zero(t, result.RemainingCapacity)
}

func TestAllocateFromRoomsReasons(t *testing.T) {
	ledger := mustLedger(t)
	start, end := mustWindow(t, "09:00", "10:00")
	inactive := newRoom("Big", 500)
	inactive.IsActive = false

	tooSmall := allocateFromRooms([]models.Room{newRoom("Small", 10), inactive}, ledger, venueQuery{DayKey: "Monday", Start: start, End: end, Headcount: 50})
	assert.False(t, tooSmall.OK)
	assert.Equal(t, reasonInsufficientCapacity, tooSmall.Reason)

	filtered := allocateFromRooms([]models.Room{newRoom("Small", 100)}, ledger, venueQuery{DayKey: "Monday", Start: start, End: end, Headcount: 50, Allowed: []string{"Other"}})
	assert.Equal(t, reasonInsufficientCapacity, filtered.Reason)
}

func TestAllocateFromRoomsOnline(t *testing.T) {
	result := allocateFromRooms(nil, nil, venueQuery{Mode: models.TeachingModeOnline, Headcount: 500})
	assert.True(t, result.OK)
	assert.Equal(t, models.RemoteVenue, result.Venue)
	assert.Equal(t, models.OnlineLocation, result.Location)
}

func TestNewClassBookingFollowsRemoteFallbackVenue(t *testing.T) {
	ledger := mustLedger(t)
	start, end := mustWindow(t, "08:00", "10:00")
	remote := models.Room{ID: "r", Name: models.RemoteVenue, Kind: models.RoomKindClassroom, Capacity: 500, IsActive: true}

	venue := allocateFromRooms([]models.Room{remote}, ledger, venueQuery{
		DayKey: "Monday", Start: start, End: end, Headcount: 40, Mode: models.TeachingModePhysical,
	})
	require.True(t, venue.OK)
	require.Equal(t, models.RemoteVenue, venue.Venue)

	assignment := dto.AssignmentResult{OK: true, Day: "Monday", StartTime: "08:00", EndTime: "10:00", DurationHours: 2, TeachingMode: models.TeachingModePhysical}
	booking := newClassBooking(classItem{UnitID: "u1", Lecturer: "L1", GroupID: "G1", DurationHours: 2, Headcount: 40}, bookingScope{SemesterID: "sem-1"}, assignment, venue)

	assert.Equal(t, models.TeachingModeOnline, booking.Mode())
	assert.Equal(t, models.OnlineLocation, booking.Location)
	assert.False(t, booking.IsPhysical())
}

func TestScenarioBLecturerConflictReported(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "09:00", "11:00", models.RemoteVenue, "L1", "", models.TeachingModeOnline, 10))
	candidate := classBooking("", "Monday", "10:00", "12:00", models.RemoteVenue, "L1", "", models.TeachingModeOnline, 10)
	start, end := mustWindow(t, "10:00", "12:00")

	result := checkCandidate(ledger, candidate, start, end, nil, cfg, "")
	assert.False(t, result.OK)
	assert.Equal(t, models.ConflictLecturer, result.Conflicts[0].Dimension)
}

func TestScenarioCGroupPhysicalCap(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t,
		classBooking("b1", "Tuesday", "08:00", "09:00", "Room A", "L1", "G1", models.TeachingModePhysical, 10),
		classBooking("b2", "Tuesday", "10:00", "11:00", "Room A", "L2", "G1", models.TeachingModePhysical, 10),
	)
	hall := newRoom("Room A", 30)

	start, end := mustWindow(t, "13:00", "14:00")
	third := classBooking("", "Tuesday", "13:00", "14:00", "Room A", "L3", "G1", models.TeachingModePhysical, 10)
	rejected := checkCandidate(ledger, third, start, end, &hall, cfg, "")
	assert.False(t, rejected.OK)
	assert.Equal(t, models.ConflictGroupPhysical, rejected.Conflicts[0].Dimension)

	start, end = mustWindow(t, "15:00", "16:00")
	online := classBooking("", "Tuesday", "15:00", "16:00", models.RemoteVenue, "L3", "G1", models.TeachingModeOnline, 10)
	assert.True(t, checkCandidate(ledger, online, start, end, nil, cfg, "").OK)
}

func TestCheckCandidateGroupHourCap(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t,
		classBooking("b1", "Tuesday", "08:00", "11:00", models.RemoteVenue, "L1", "G1", models.TeachingModeOnline, 10),
		classBooking("b2", "Tuesday", "12:00", "13:00", models.RemoteVenue, "L2", "G1", models.TeachingModeOnline, 10),
	)
	start, end := mustWindow(t, "14:00", "16:00")
	candidate := classBooking("", "Tuesday", "14:00", "16:00", models.RemoteVenue, "L3", "G1", models.TeachingModeOnline, 10)

	result := checkCandidate(ledger, candidate, start, end, nil, cfg, "")
	assert.False(t, result.OK)
	assert.Contains(t, result.Reasons[0], "would have 6 hours on Tuesday")
}

func TestResolveTeachingMode(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	assert.Equal(t, models.TeachingModePhysical, ResolveTeachingMode(2, "", cfg))
	assert.Equal(t, models.TeachingModeOnline, ResolveTeachingMode(1, "", cfg))
	assert.Equal(t, models.TeachingModeOnline, ResolveTeachingMode(3, "Online", cfg))
	assert.Equal(t, models.TeachingModePhysical, ResolveTeachingMode(1, "physical", cfg))
	assert.Equal(t, models.TeachingModeOnline, ResolveTeachingMode(1, "hybrid", cfg))
}

func slotList(entries ...[3]string) []models.TimeSlot {
	result := make([]models.TimeSlot, 0, len(entries))
	for i, e := range entries {
		result = append(result, models.TimeSlot{ID: string(rune('a' + i)), Day: e[0], StartTime: e[1], EndTime: e[2]})
	}
	return result
}

func TestSearchSlotSingleFeasibleSkipsRandomizer(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "08:00", "10:00", models.RemoteVenue, "L1", "", models.TeachingModeOnline, 10))
	rnd := &stubRandomizer{}
	pool := slotList([3]string{"Monday", "08:00", "10:00"}, [3]string{"Monday", "10:00", "12:00"})

	result := searchSlot(pool, ledger, nil, cfg, rnd, slotQuery{Lecturer: "L1", DurationHours: 2, Mode: models.TeachingModeOnline})
	require.True(t, result.OK)
	assert.Equal(t, "10:00", result.StartTime)
	assert.Empty(t, rnd.calls)
}

func TestSearchSlotUsesInjectedRandomizer(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	rnd := &stubRandomizer{pick: 2}
	pool := slotList(
		[3]string{"wed", "08:00", "10:00"},
		[3]string{"Monday", "10:00", "12:00"},
		[3]string{"Monday", "08:00", "10:00"},
	)

	result := searchSlot(pool, mustLedger(t), nil, cfg, rnd, slotQuery{Lecturer: "L1", DurationHours: 2, Mode: models.TeachingModeOnline})
	require.True(t, result.OK)
	assert.Equal(t, []int{3}, rnd.calls)
	assert.Equal(t, "Wednesday", result.Day)
	assert.Equal(t, 2, result.DurationHours)
}

func TestSearchSlotBalancesSingleModeDay(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "08:00", "10:00", "Room A", "L9", "G1", models.TeachingModePhysical, 10))
	pool := slotList([3]string{"Monday", "13:00", "15:00"}, [3]string{"Tuesday", "08:00", "10:00"})

	result := searchSlot(pool, ledger, nil, cfg, &stubRandomizer{}, slotQuery{
		Lecturer: "L1", DurationHours: 2, Mode: models.TeachingModePhysical, GroupID: "G1",
	})
	require.True(t, result.OK)
	assert.Equal(t, "Monday", result.Day)
	assert.Equal(t, models.TeachingModeOnline, result.TeachingMode)
}

func TestSearchSlotPrefersNonAdjacentSlots(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	cfg.RequireMixedMode = false
	ledger := mustLedger(t, classBooking("b1", "Monday", "08:00", "10:00", models.RemoteVenue, "L9", "G1", models.TeachingModeOnline, 10))
	pool := slotList([3]string{"Monday", "10:00", "11:00"}, [3]string{"Monday", "13:00", "14:00"})

	result := searchSlot(pool, ledger, nil, cfg, &stubRandomizer{}, slotQuery{
		Lecturer: "L1", DurationHours: 1, Mode: models.TeachingModeOnline, GroupID: "G1",
	})
	require.True(t, result.OK)
	assert.Equal(t, "13:00", result.StartTime)
}

func TestSearchSlotFallbackSlotFitsGroupDailyHours(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "06:00", "09:00", models.RemoteVenue, "L9", "G1", models.TeachingModeOnline, 10))
	pool := slotList([3]string{"Monday", "10:00", "12:00"})

	start, end := mustWindow(t, "10:00", "12:00")
	mode := models.TeachingModeOnline
	group := "G1"
	candidate := models.Booking{Kind: models.BookingKindClass, Day: "Monday", Lecturer: "L1", TeachingMode: &mode, GroupID: &group, Headcount: 10}
	require.True(t, checkCandidate(ledger, candidate, start, end, nil, cfg, "").OK)

	result := searchSlot(pool, ledger, nil, cfg, &stubRandomizer{}, slotQuery{
		Lecturer: "L1", DurationHours: 3, Mode: models.TeachingModeOnline, GroupID: "G1",
	})
	require.True(t, result.OK, result.Reason)
	assert.Equal(t, "Monday", result.Day)
	assert.Equal(t, "10:00", result.StartTime)
	assert.Equal(t, 2, result.DurationHours)
}

func TestSearchSlotFallsBackToAnyDuration(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	pool := slotList([3]string{"Friday", "08:00", "11:00"})

	result := searchSlot(pool, mustLedger(t), nil, cfg, &stubRandomizer{}, slotQuery{Lecturer: "L1", DurationHours: 2, Mode: models.TeachingModeOnline})
	require.True(t, result.OK)
	assert.Equal(t, 3, result.DurationHours)
}

func TestSearchSlotReportsNoFeasibleSlot(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	ledger := mustLedger(t, classBooking("b1", "Monday", "08:00", "12:00", models.RemoteVenue, "L1", "", models.TeachingModeOnline, 10))
	pool := slotList([3]string{"Monday", "08:00", "10:00"}, [3]string{"Monday", "10:00", "12:00"})

	result := searchSlot(pool, ledger, nil, cfg, &stubRandomizer{}, slotQuery{Lecturer: "L1", DurationHours: 2, Mode: models.TeachingModeOnline, Day: "Monday"})
	assert.False(t, result.OK)
	assert.Equal(t, "no feasible 2h slot for lecturer L1 on Monday", result.Reason)

	empty := searchSlot(nil, ledger, nil, cfg, &stubRandomizer{}, slotQuery{Lecturer: "L1", DurationHours: 2})
	assert.Contains(t, empty.Reason, "no time slots defined")
}

func TestSearchSlotSkipsExcludedSlots(t *testing.T) {
	cfg := models.DefaultConstraintConfig()
	pool := slotList([3]string{"Monday", "08:00", "10:00"}, [3]string{"Monday", "10:00", "12:00"})
	excluded := map[string]struct{}{pool[0].Key(): {}}

	result := searchSlot(pool, mustLedger(t), nil, cfg, &stubRandomizer{}, slotQuery{
		Lecturer: "L1", DurationHours: 2, Mode: models.TeachingModeOnline, excludeSlots: excluded,
	})
	require.True(t, result.OK)
	assert.Equal(t, "10:00", result.StartTime)
}
