package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-timetable-api/internal/models"
	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
)

var roomRowColumns = []string{"id", "name", "kind", "capacity", "location", "is_active", "created_at", "updated_at"}

func TestRoomRepositoryListActiveRooms(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(roomRowColumns).
		AddRow("r1", "Room A", "classroom", 30, "Block 1", true, now, now).
		AddRow("r2", "Room B", "classroom", 60, "Block 1", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind, capacity, location, is_active, created_at, updated_at FROM rooms WHERE is_active = $1 AND kind = $2 AND capacity >= $3 ORDER BY capacity ASC, name ASC")).
		WithArgs(true, "classroom", 25).
		WillReturnRows(rows)

	rooms, err := repo.ListActiveRooms(context.Background(), models.RoomKindClassroom, 25)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Room A", rooms[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryLockByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE lower\(name\) = lower\(\$1\) AND is_active = \$2 FOR UPDATE`).
		WithArgs("room a", true).
		WillReturnRows(sqlmock.NewRows(roomRowColumns).AddRow("r1", "Room A", "classroom", 30, "Block 1", true, now, now))
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE lower\(name\) = lower\(\$1\) AND is_active = \$2 FOR UPDATE`).
		WithArgs("ghost", true).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	room, err := repo.LockByName(context.Background(), tx, "room a")
	require.NoError(t, err)
	assert.Equal(t, 30, room.Capacity)

	_, err = repo.LockByName(context.Background(), tx, "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryListTimeSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "day", "start_time", "end_time"}).
		AddRow("s1", "Monday", "08:00", "10:00").
		AddRow("s2", "Monday", "10:00", "12:00")
	mock.ExpectQuery(`SELECT id, day, to_char\(start_time, 'HH24:MI'\) AS start_time, to_char\(end_time, 'HH24:MI'\) AS end_time FROM time_slots WHERE day = \$1 AND EXTRACT\(EPOCH FROM \(end_time - start_time\)\) = \$2 ORDER BY day ASC, start_time ASC`).
		WithArgs("Monday", 7200).
		WillReturnRows(rows)

	slots, err := repo.ListTimeSlots(context.Background(), "Monday", 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 2, slots[0].DurationHours())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT student_id) FROM enrollments WHERE semester_id = $1 AND unit_id = $2 AND status = 'ACTIVE'")).
		WithArgs("s1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT student_id) FROM enrollments WHERE semester_id = $1 AND unit_id = $2 AND class_id = $3")).
		WithArgs("s1", "u1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	total, err := repo.CountUniqueStudents(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 42, total)

	perClass, err := repo.CountStudentsByClass(context.Background(), "s1", "u1", "c1")
	require.NoError(t, err)
	assert.Zero(t, perClass)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitAssignmentRepositoryListByUnit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUnitAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "unit_id", "class_id", "semester_id", "lecturer_code", "created_at"}).
		AddRow("a1", "u1", "c1", "s1", "L1", now).
		AddRow("a2", "u1", "c2", "s1", "L2", now.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM unit_assignments WHERE semester_id = $1 AND unit_id = $2 ORDER BY created_at ASC, id ASC")).
		WithArgs("s1", "u1").
		WillReturnRows(rows)

	assignments, err := repo.ListByUnit(context.Background(), "s1", "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "L1", assignments[0].LecturerCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClientIsEmpty(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []models.Booking

	err := repo.Get(context.Background(), "timetable:bookings:any", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "timetable:bookings:any", dest, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "timetable:bookings:*"))
	assert.NoError(t, repo.Ping(context.Background()))
}
