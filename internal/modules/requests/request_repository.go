package requests

import (
	"context"
	"errors"
	"fmt"

	"carcare-dispatch/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface declares the persistence operations for repair
// requests. Claim and Transition are compare-and-set: the WHERE clause
// carries the expected state, so among concurrent writers exactly one
// matches a row and the rest observe zero rows affected.
type RepositoryInterface interface {
	Create(ctx context.Context, req *models.Request) (*models.Request, error)
	FindByID(ctx context.Context, requestID string) (*models.Request, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Request, int, error)
	ListByMechanic(ctx context.Context, mechanicID string, page, limit int) ([]*models.Request, int, error)
	// ClaimCAS atomically moves a pending, unassigned request to claimed.
	// Fails models.ErrAlreadyClaimed when another mechanic won the race.
	ClaimCAS(ctx context.Context, requestID, mechanicID string) (*models.Request, error)
	// TransitionCAS atomically moves the request from the expected status to
	// the new one. Fails models.ErrInvalidTransition when the stored status
	// no longer matches expected.
	TransitionCAS(ctx context.Context, requestID string, from, to models.RequestStatus) (*models.Request, error)
	// MarkSlotReleased flips the request's slot_released flag. Returns true
	// only for the first caller, making terminal slot release exactly-once.
	MarkSlotReleased(ctx context.Context, requestID string) (bool, error)
}

// Repository implements RepositoryInterface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new request repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const requestColumns = `
	id, car_id, owner_id, mechanic_id, lat, lng, specialization,
	description, urgency, status, slot_released, created_at, updated_at`

func scanRequest(row pgx.Row) (*models.Request, error) {
	r := &models.Request{}
	err := row.Scan(
		&r.ID,
		&r.CarID,
		&r.OwnerID,
		&r.MechanicID,
		&r.Location.Lat,
		&r.Location.Lng,
		&r.Specialization,
		&r.Description,
		&r.Urgency,
		&r.Status,
		&r.SlotReleased,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}
	return r, nil
}

// Create inserts a new pending request.
func (r *Repository) Create(ctx context.Context, req *models.Request) (*models.Request, error) {
	query := `
		INSERT INTO requests (id, car_id, owner_id, lat, lng, specialization, description, urgency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING ` + requestColumns

	row := r.db.QueryRow(ctx, query,
		req.ID, req.CarID, req.OwnerID,
		req.Location.Lat, req.Location.Lng,
		req.Specialization, req.Description, req.Urgency,
	)
	stored, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return stored, nil
}

// FindByID retrieves a single request.
func (r *Repository) FindByID(ctx context.Context, requestID string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return req, nil
}

// ListByOwner returns a page of the owner's requests, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Request, int, error) {
	return r.list(ctx, "owner_id", ownerID, page, limit)
}

// ListByMechanic returns a page of the requests assigned to a mechanic.
func (r *Repository) ListByMechanic(ctx context.Context, mechanicID string, page, limit int) ([]*models.Request, int, error) {
	return r.list(ctx, "mechanic_id", mechanicID, page, limit)
}

func (r *Repository) list(ctx context.Context, column, id string, page, limit int) ([]*models.Request, int, error) {
	offset := (page - 1) * limit
	query := fmt.Sprintf(`
		SELECT %s FROM requests
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, requestColumns, column)

	rows, err := r.db.Query(ctx, query, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.list.Query: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.list.Scan: %w", err)
		}
		out = append(out, req)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM requests WHERE %s = $1", column)
	if err := r.db.QueryRow(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.list.Count: %w", err)
	}
	return out, total, nil
}

// ClaimCAS performs the exclusive claim. The WHERE clause pins both the
// status and the unassigned mechanic column; under N concurrent claimants the
// database serializes the updates and only the first one still sees a
// matching row.
func (r *Repository) ClaimCAS(ctx context.Context, requestID, mechanicID string) (*models.Request, error) {
	query := `
		UPDATE requests
		SET status = 'claimed',
		    mechanic_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		  AND mechanic_id IS NULL
		RETURNING ` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID, mechanicID))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("repository.ClaimCAS: %w", err)
	}

	// Zero rows: either the request does not exist or someone else claimed it.
	if _, ferr := r.FindByID(ctx, requestID); ferr != nil {
		return nil, ferr
	}
	return nil, models.ErrAlreadyClaimed
}

// TransitionCAS applies one validated edge of the lifecycle table.
func (r *Repository) TransitionCAS(ctx context.Context, requestID string, from, to models.RequestStatus) (*models.Request, error) {
	query := `
		UPDATE requests
		SET status = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING ` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID, from, to))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("repository.TransitionCAS: %w", err)
	}

	if _, ferr := r.FindByID(ctx, requestID); ferr != nil {
		return nil, ferr
	}
	// The request moved under us; the edge the caller validated is stale.
	return nil, models.ErrInvalidTransition
}

// MarkSlotReleased guards terminal slot release: only the transition that
// flips the flag gets to decrement the mechanic's counter.
func (r *Repository) MarkSlotReleased(ctx context.Context, requestID string) (bool, error) {
	query := `
		UPDATE requests
		SET slot_released = true
		WHERE id = $1
		  AND slot_released = false`
	cmd, err := r.db.Exec(ctx, query, requestID)
	if err != nil {
		return false, fmt.Errorf("repository.MarkSlotReleased: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}
