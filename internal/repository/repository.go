package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/foodlink-service/internal/apperror"
	"github.com/Dan9191/foodlink-service/internal/models"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("username or email already registered: %w", apperror.ErrConflict)
		}
		return storeErr("failed to create user", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, donations_made, claimed_donations, created_at
		FROM users
		WHERE email = $1`
	return r.findUser(ctx, query, email)
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, donations_made, claimed_donations, created_at
		FROM users
		WHERE id = $1`
	return r.findUser(ctx, query, id)
}

func (r *Repository) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.DonationsMade, &user.ClaimedDonations, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("failed to find user", err)
	}
	return user, nil
}

// CreateDonation stores an open donation and bumps the donor's counter in one transaction
func (r *Repository) CreateDonation(ctx context.Context, d *models.OpenDonation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := incrementCounter(ctx, tx, "donations_made", d.DonatedBy); err != nil {
		return err
	}

	query := `
		INSERT INTO open_donations (id, name, food_item, quantity, location, phone_number, address, donated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, query, d.ID, d.Name, d.FoodItem, d.Quantity, d.Location,
		d.PhoneNumber, d.Address, d.DonatedBy, d.CreatedAt)
	if err != nil {
		return storeErr("failed to create donation", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("failed to commit donation", err)
	}
	return nil
}

// ListOpenDonations returns every unclaimed donation, newest first
func (r *Repository) ListOpenDonations(ctx context.Context) ([]models.OpenDonation, error) {
	query := `
		SELECT id, name, food_item, quantity, location, phone_number, address, donated_by, created_at
		FROM open_donations
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("failed to list donations", err)
	}
	defer rows.Close()

	donations := []models.OpenDonation{}
	for rows.Next() {
		var d models.OpenDonation
		if err := rows.Scan(&d.ID, &d.Name, &d.FoodItem, &d.Quantity, &d.Location,
			&d.PhoneNumber, &d.Address, &d.DonatedBy, &d.CreatedAt); err != nil {
			return nil, storeErr("failed to scan donation", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to list donations", err)
	}
	return donations, nil
}

// ClaimDonation moves an open donation to the claimed set and bumps the
// claimant's counter. All three writes share one transaction; the row-level
// DELETE ... RETURNING lets only one concurrent claimer see the donation.
func (r *Repository) ClaimDonation(ctx context.Context, donationID, claimantID string, at time.Time) (*models.ClaimedDonation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var open models.OpenDonation
	query := `
		DELETE FROM open_donations
		WHERE id = $1
		RETURNING id, name, food_item, quantity, location, phone_number, address, donated_by, created_at`
	err = tx.QueryRowContext(ctx, query, donationID).
		Scan(&open.ID, &open.Name, &open.FoodItem, &open.Quantity, &open.Location,
			&open.PhoneNumber, &open.Address, &open.DonatedBy, &open.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("donation %s: %w", donationID, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("failed to remove open donation", err)
	}

	if err := incrementCounter(ctx, tx, "claimed_donations", claimantID); err != nil {
		return nil, err
	}

	claimed := open.Claim(claimantID, at)
	query = `
		INSERT INTO claimed_donations (id, name, food_item, quantity, location, phone_number, address, donated_by, claimed_by, created_at, claimed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.ExecContext(ctx, query, claimed.ID, claimed.Name, claimed.FoodItem, claimed.Quantity,
		claimed.Location, claimed.PhoneNumber, claimed.Address, claimed.DonatedBy, claimed.ClaimedBy,
		claimed.CreatedAt, claimed.ClaimedAt)
	if err != nil {
		return nil, storeErr("failed to insert claimed donation", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("failed to commit claim", err)
	}
	return claimed, nil
}

// ListClaimedByUser returns the donations a user has claimed, most recent first
func (r *Repository) ListClaimedByUser(ctx context.Context, userID string) ([]models.ClaimedDonation, error) {
	query := `
		SELECT id, name, food_item, quantity, location, phone_number, address, donated_by, claimed_by, created_at, claimed_at
		FROM claimed_donations
		WHERE claimed_by = $1
		ORDER BY claimed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storeErr("failed to list claimed donations", err)
	}
	defer rows.Close()

	donations := []models.ClaimedDonation{}
	for rows.Next() {
		var d models.ClaimedDonation
		if err := rows.Scan(&d.ID, &d.Name, &d.FoodItem, &d.Quantity, &d.Location, &d.PhoneNumber,
			&d.Address, &d.DonatedBy, &d.ClaimedBy, &d.CreatedAt, &d.ClaimedAt); err != nil {
			return nil, storeErr("failed to scan claimed donation", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to list claimed donations", err)
	}
	return donations, nil
}

// CountDonations returns the open and claimed counts from a single snapshot
func (r *Repository) CountDonations(ctx context.Context) (open, claimed int64, err error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM open_donations),
			(SELECT COUNT(*) FROM claimed_donations)`
	if err := r.db.QueryRowContext(ctx, query).Scan(&open, &claimed); err != nil {
		return 0, 0, storeErr("failed to count donations", err)
	}
	return open, claimed, nil
}

// incrementCounter bumps one of the user counters; a missing user means the
// credential no longer resolves to an account.
func incrementCounter(ctx context.Context, tx *sql.Tx, column, userID string) error {
	var query string
	switch column {
	case "donations_made":
		query = `UPDATE users SET donations_made = donations_made + 1 WHERE id = $1`
	case "claimed_donations":
		query = `UPDATE users SET claimed_donations = claimed_donations + 1 WHERE id = $1`
	default:
		return fmt.Errorf("unknown counter %q", column)
	}

	res, err := tx.ExecContext(ctx, query, userID)
	if err != nil {
		return storeErr("failed to update user counter", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("failed to update user counter", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, apperror.ErrNotAuthenticated)
	}
	return nil
}

func storeErr(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, apperror.ErrStore, err)
}
