package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/brightloom/billing_api/internal/models"
)

// ProfileRepository handles data access for business profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID returns a single profile by id.
func (r *ProfileRepository) GetByID(id int) (*models.Profile, error) {
	const q = `SELECT * FROM profiles WHERE id = $1 LIMIT 1`
	var p models.Profile
	if err := r.db.Get(&p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByAPIKey returns the profile owning the given API key.
func (r *ProfileRepository) GetByAPIKey(apiKey string) (*models.Profile, error) {
	const q = `SELECT * FROM profiles WHERE api_key = $1 LIMIT 1`
	var p models.Profile
	if err := r.db.Get(&p, q, apiKey); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByStripeCustomerID returns the profile linked to a provider customer.
func (r *ProfileRepository) GetByStripeCustomerID(customerID string) (*models.Profile, error) {
	const q = `SELECT * FROM profiles WHERE stripe_customer_id = $1 LIMIT 1`
	var p models.Profile
	if err := r.db.Get(&p, q, customerID); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all profiles ordered by creation time, newest first.
func (r *ProfileRepository) List() ([]models.Profile, error) {
	const q = `SELECT * FROM profiles ORDER BY created_at DESC`
	var profiles []models.Profile
	if err := r.db.Select(&profiles, q); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Create inserts a new profile and fills in generated columns.
func (r *ProfileRepository) Create(p *models.Profile) error {
	const q = `
        INSERT INTO profiles (email, company_name, api_key, plan_id, subscription_status, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q,
		p.Email,
		p.CompanyName,
		p.APIKey,
		p.PlanID,
		p.SubscriptionStatus,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// SetStripeCustomerID links a profile to its provider customer.
func (r *ProfileRepository) SetStripeCustomerID(id int, customerID string) error {
	const q = `UPDATE profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(q, id, customerID)
	return err
}

// UpdateBillingState mirrors the billing state the provider reported onto a
// profile.
func (r *ProfileRepository) UpdateBillingState(id int, planID, status string, isActive bool) error {
	const q = `
        UPDATE profiles
        SET plan_id = $2, subscription_status = $3, is_active = $4, updated_at = NOW()
        WHERE id = $1`
	res, err := r.db.Exec(q, id, planID, status, isActive)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
