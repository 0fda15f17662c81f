package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

type roomSource interface {
	ListActiveRooms(ctx context.Context, kind models.RoomKind, minCapacity int) ([]models.Room, error)
}

type timeSlotSource interface {
	ListTimeSlots(ctx context.Context, day string, durationHours int) ([]models.TimeSlot, error)
}

// CatalogService serves the room and time-slot catalogues through the view cache.
type CatalogService struct {
	rooms  roomSource
	slots  timeSlotSource
	cache  viewCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs a cached catalogue reader.
func NewCatalogService(rooms roomSource, slots timeSlotSource, cache viewCache, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogService{rooms: rooms, slots: slots, cache: cache, ttl: ttl, logger: logger}
}

// ListActiveRooms returns active rooms of the given kind holding at least minCapacity.
func (s *CatalogService) ListActiveRooms(ctx context.Context, kind models.RoomKind, minCapacity int) ([]models.Room, error) {
	key := fmt.Sprintf("timetable:catalog:rooms:%s:%d", kind, minCapacity)
	var rooms []models.Room
	if s.lookup(ctx, key, &rooms) {
		return rooms, nil
	}
	rooms, err := s.rooms.ListActiveRooms(ctx, kind, minCapacity)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rooms)
	return rooms, nil
}

// ListTimeSlots returns the slot catalogue, optionally narrowed to a day and duration.
func (s *CatalogService) ListTimeSlots(ctx context.Context, day string, durationHours int) ([]models.TimeSlot, error) {
	key := fmt.Sprintf("timetable:catalog:slots:%s:%d", day, durationHours)
	var slots []models.TimeSlot
	if s.lookup(ctx, key, &slots) {
		return slots, nil
	}
	slots, err := s.slots.ListTimeSlots(ctx, day, durationHours)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, slots)
	return slots, nil
}

func (s *CatalogService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Debug("catalogue cache lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *CatalogService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Debug("catalogue cache store failed", zap.String("key", key), zap.Error(err))
	}
}
