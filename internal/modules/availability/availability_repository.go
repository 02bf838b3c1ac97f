package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"carcare-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface declares the persistence operations for mechanic
// availability profiles and their capacity counters.
type RepositoryInterface interface {
	// Upsert replaces the stored profile wholesale, preserving the capacity
	// counter owned by the lifecycle service.
	Upsert(ctx context.Context, a *models.MechanicAvailability) (*models.MechanicAvailability, error)
	// FindByMechanicID returns one profile or models.ErrNotFound.
	FindByMechanicID(ctx context.Context, mechanicID string) (*models.MechanicAvailability, error)
	// ListOpen returns every profile that is switched on and below capacity.
	// Distance and specialization filtering happen in the service.
	ListOpen(ctx context.Context) ([]*models.MechanicAvailability, error)
	// ReserveSlot atomically increments current_active_jobs while it is below
	// max_concurrent_jobs. Fails models.ErrCapacityExceeded at the bound.
	ReserveSlot(ctx context.Context, mechanicID string) error
	// ReleaseSlot atomically decrements current_active_jobs, never below zero.
	ReleaseSlot(ctx context.Context, mechanicID string) error
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new availability repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const availabilityColumns = `
	mechanic_id, is_available, max_concurrent_jobs, current_active_jobs,
	formatted_address, street, city, country, postal_code, lat, lng,
	service_radius_km, specializations, hourly_rate, emergency_service,
	working_hours, rating, updated_at`

// scanAvailability reads one row into a MechanicAvailability.
func scanAvailability(row pgx.Row) (*models.MechanicAvailability, error) {
	a := &models.MechanicAvailability{}
	var hoursJSON []byte
	err := row.Scan(
		&a.MechanicID,
		&a.IsAvailable,
		&a.MaxConcurrentJobs,
		&a.CurrentActiveJobs,
		&a.BaseLocation.Formatted,
		&a.BaseLocation.Street,
		&a.BaseLocation.City,
		&a.BaseLocation.Country,
		&a.BaseLocation.PostalCode,
		&a.BaseLocation.Coordinates.Lat,
		&a.BaseLocation.Coordinates.Lng,
		&a.ServiceRadiusKm,
		&a.Specializations,
		&a.HourlyRate,
		&a.EmergencyService,
		&hoursJSON,
		&a.Rating,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan availability: %w", err)
	}
	if len(hoursJSON) > 0 {
		if err := json.Unmarshal(hoursJSON, &a.WorkingHours); err != nil {
			return nil, fmt.Errorf("failed to decode working_hours: %w", err)
		}
	}
	return a, nil
}

// Upsert inserts or replaces a mechanic's profile. current_active_jobs is
// deliberately untouched on conflict; only ReserveSlot/ReleaseSlot move it.
func (r *Repository) Upsert(ctx context.Context, a *models.MechanicAvailability) (*models.MechanicAvailability, error) {
	hoursJSON, err := json.Marshal(a.WorkingHours)
	if err != nil {
		return nil, fmt.Errorf("repository.Upsert marshal hours: %w", err)
	}

	query := `
		INSERT INTO mechanic_availability (
			mechanic_id, is_available, max_concurrent_jobs, current_active_jobs,
			formatted_address, street, city, country, postal_code, lat, lng,
			service_radius_km, specializations, hourly_rate, emergency_service,
			working_hours, rating, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
		ON CONFLICT (mechanic_id) DO UPDATE SET
			is_available = EXCLUDED.is_available,
			max_concurrent_jobs = EXCLUDED.max_concurrent_jobs,
			formatted_address = EXCLUDED.formatted_address,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			country = EXCLUDED.country,
			postal_code = EXCLUDED.postal_code,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			service_radius_km = EXCLUDED.service_radius_km,
			specializations = EXCLUDED.specializations,
			hourly_rate = EXCLUDED.hourly_rate,
			emergency_service = EXCLUDED.emergency_service,
			working_hours = EXCLUDED.working_hours,
			rating = EXCLUDED.rating,
			updated_at = now()
		RETURNING ` + availabilityColumns

	row := r.db.QueryRow(ctx, query,
		a.MechanicID, a.IsAvailable, a.MaxConcurrentJobs,
		a.BaseLocation.Formatted, a.BaseLocation.Street, a.BaseLocation.City,
		a.BaseLocation.Country, a.BaseLocation.PostalCode,
		a.BaseLocation.Coordinates.Lat, a.BaseLocation.Coordinates.Lng,
		a.ServiceRadiusKm, a.Specializations, a.HourlyRate, a.EmergencyService,
		hoursJSON, a.Rating,
	)
	stored, err := scanAvailability(row)
	if err != nil {
		return nil, fmt.Errorf("repository.Upsert: %w", err)
	}
	return stored, nil
}

// FindByMechanicID fetches one mechanic's profile.
func (r *Repository) FindByMechanicID(ctx context.Context, mechanicID string) (*models.MechanicAvailability, error) {
	query := `SELECT ` + availabilityColumns + `
		FROM mechanic_availability
		WHERE mechanic_id = $1`
	a, err := scanAvailability(r.db.QueryRow(ctx, query, mechanicID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByMechanicID: %w", err)
	}
	return a, nil
}

// ListOpen returns every available, below-capacity profile.
func (r *Repository) ListOpen(ctx context.Context) ([]*models.MechanicAvailability, error) {
	query := `SELECT ` + availabilityColumns + `
		FROM mechanic_availability
		WHERE is_available = true
		  AND current_active_jobs < max_concurrent_jobs`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.ListOpen: %w", err)
	}
	defer rows.Close()

	var out []*models.MechanicAvailability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListOpen scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListOpen rows: %w", err)
	}
	return out, nil
}

// ReserveSlot takes one unit of capacity. The WHERE clause is the bound: a
// mechanic already at max matches no row, so concurrent reservations on the
// same mechanic can never overshoot.
func (r *Repository) ReserveSlot(ctx context.Context, mechanicID string) error {
	query := `
		UPDATE mechanic_availability
		SET current_active_jobs = current_active_jobs + 1,
		    updated_at = now()
		WHERE mechanic_id = $1
		  AND current_active_jobs < max_concurrent_jobs`
	cmd, err := r.db.Exec(ctx, query, mechanicID)
	if err != nil {
		return fmt.Errorf("repository.ReserveSlot: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a missing mechanic from one at capacity.
		var exists bool
		err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM mechanic_availability WHERE mechanic_id = $1)`,
			mechanicID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("repository.ReserveSlot exists: %w", err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrCapacityExceeded
	}
	return nil
}

// ReleaseSlot returns one unit of capacity. The counter never goes negative.
func (r *Repository) ReleaseSlot(ctx context.Context, mechanicID string) error {
	query := `
		UPDATE mechanic_availability
		SET current_active_jobs = current_active_jobs - 1,
		    updated_at = now()
		WHERE mechanic_id = $1
		  AND current_active_jobs > 0`
	cmd, err := r.db.Exec(ctx, query, mechanicID)
	if err != nil {
		return fmt.Errorf("repository.ReleaseSlot: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
