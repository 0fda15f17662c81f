package service

import (
	"sort"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
)

const (
	reasonInsufficientCapacity = "insufficient capacity"
	reasonNoCompatibleVenue    = "no time-compatible venue"
)

type venueQuery struct {
	DayKey    string
	Start     int
	End       int
	Headcount int
	Mode      models.TeachingMode
	ExcludeID string
	Allowed   []string
}

// allocateFromRooms picks the smallest active room whose remaining capacity fits the headcount.
func allocateFromRooms(rooms []models.Room, ledger *occupancyLedger, q venueQuery) dto.VenueResult {
	if q.Mode == models.TeachingModeOnline {
		return dto.VenueResult{OK: true, Venue: models.RemoteVenue, Location: models.OnlineLocation}
	}

	allowed := make(map[string]struct{}, len(q.Allowed))
	for _, name := range q.Allowed {
		allowed[name] = struct{}{}
	}

	candidates := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		if !room.IsActive || room.Capacity < q.Headcount {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[room.Name]; !ok {
				continue
			}
		}
		candidates = append(candidates, room)
	}
	if len(candidates) == 0 {
		return dto.VenueResult{Reason: reasonInsufficientCapacity}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Capacity == candidates[j].Capacity {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].Capacity < candidates[j].Capacity
	})

	if q.Mode != "" {
		matching := make([]models.Room, 0, len(candidates))
		for _, room := range candidates {
			if room.Mode() == q.Mode {
				matching = append(matching, room)
			}
		}
		if len(matching) > 0 {
			candidates = matching
		}
	}

	for _, room := range candidates {
		if room.Mode() == models.TeachingModeOnline {
			return dto.VenueResult{OK: true, Venue: room.Name, Location: models.OnlineLocation}
		}
		occupancy, _ := ledger.venueOccupancy(q.DayKey, room.Name, q.Start, q.End, q.ExcludeID)
		if room.Capacity-occupancy >= q.Headcount {
			return dto.VenueResult{
				OK:                true,
				Venue:             room.Name,
				Location:          room.Location,
				RemainingCapacity: room.Capacity - occupancy - q.Headcount,
			}
		}
	}
	return dto.VenueResult{Reason: reasonNoCompatibleVenue}
}
