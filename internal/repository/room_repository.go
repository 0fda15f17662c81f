package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-timetable-api/internal/models"
)

var roomColumns = []string{"id", "name", "kind", "capacity", "location", "is_active", "created_at", "updated_at"}

// RoomRepository reads the venue catalogue.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListActiveRooms returns active rooms of a kind, smallest first, ties broken by name.
func (r *RoomRepository) ListActiveRooms(ctx context.Context, kind models.RoomKind, minCapacity int) ([]models.Room, error) {
	builder := psql.Select(roomColumns...).From("rooms").Where(squirrel.Eq{"is_active": true})
	if kind != "" {
		builder = builder.Where(squirrel.Eq{"kind": kind})
	}
	if minCapacity > 0 {
		builder = builder.Where(squirrel.GtOrEq{"capacity": minCapacity})
	}
	query, args, err := builder.OrderBy("capacity ASC", "name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rooms query: %w", err)
	}
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// LockByName loads an active room by case-insensitive name holding a row lock until the transaction ends.
func (r *RoomRepository) LockByName(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Room, error) {
	query, args, err := psql.Select(roomColumns...).From("rooms").
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		Where(squirrel.Eq{"is_active": true}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock room query: %w", err)
	}
	if exec == nil {
		exec = r.db
	}
	var room models.Room
	if err := sqlx.GetContext(ctx, exec, &room, query, args...); err != nil {
		return nil, err
	}
	return &room, nil
}
