package schedule

import (
	"context"
	"database/sql"
	"fmt"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/schedule"
)

const selectColumns = "SELECT id, location_id, title, day, start_time, end_time, capacity, cancel_cutoff_minutes, active FROM schedule"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new ScheduleStore.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Schedule by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Schedule, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	entity, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return domain.Schedule{}, fmt.Errorf("schedule not found: %w", err)
	}
	return entity, err
}

// Save persists a Schedule to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Schedule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule (id, location_id, title, day, start_time, end_time, capacity, cancel_cutoff_minutes, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET location_id=excluded.location_id, title=excluded.title, day=excluded.day,
		   start_time=excluded.start_time, end_time=excluded.end_time, capacity=excluded.capacity,
		   cancel_cutoff_minutes=excluded.cancel_cutoff_minutes, active=excluded.active`,
		entity.ID, entity.LocationID, entity.Title, entity.Day, entity.StartTime, entity.EndTime,
		entity.Capacity, entity.CancelCutoffMinutes, storage.BoolToInt(entity.Active),
	)
	return err
}

// ListActive retrieves every active Schedule.
// POST: Returns schedules ordered by location, day and start time
func (s *SQLiteStore) ListActive(ctx context.Context) ([]domain.Schedule, error) {
	return s.querySchedules(ctx, selectColumns+" WHERE active = 1 ORDER BY location_id, day, start_time")
}

// ListByLocation retrieves Schedules for a location.
// PRE: locationID is non-empty
// POST: Returns schedules for the given location
func (s *SQLiteStore) ListByLocation(ctx context.Context, locationID string) ([]domain.Schedule, error) {
	return s.querySchedules(ctx, selectColumns+" WHERE location_id = ? ORDER BY day, start_time", locationID)
}

func (s *SQLiteStore) querySchedules(ctx context.Context, query string, args ...interface{}) ([]domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Schedule
	for rows.Next() {
		entity, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (domain.Schedule, error) {
	var entity domain.Schedule
	var active int
	err := row.Scan(&entity.ID, &entity.LocationID, &entity.Title, &entity.Day, &entity.StartTime, &entity.EndTime,
		&entity.Capacity, &entity.CancelCutoffMinutes, &active)
	entity.Active = active == 1
	return entity, err
}
