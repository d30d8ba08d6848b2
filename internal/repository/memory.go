package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/foodlink-service/internal/apperror"
	"github.com/Dan9191/foodlink-service/internal/models"
)

// MemoryRepository keeps users and donations in process memory.
// A single mutex makes every operation, including claims, atomic.
type MemoryRepository struct {
	mu      sync.Mutex
	users   map[string]*models.User
	open    map[string]models.OpenDonation
	claimed map[string]models.ClaimedDonation
}

// NewMemoryRepository returns an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]*models.User),
		open:    make(map[string]models.OpenDonation),
		claimed: make(map[string]models.ClaimedDonation),
	}
}

func (m *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("username or email already registered: %w", apperror.ErrConflict)
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
}

func (m *MemoryRepository) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	found := *u
	return &found, nil
}

func (m *MemoryRepository) CreateDonation(_ context.Context, d *models.OpenDonation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	donor, ok := m.users[d.DonatedBy]
	if !ok {
		return fmt.Errorf("user %s: %w", d.DonatedBy, apperror.ErrNotAuthenticated)
	}
	donor.DonationsMade++
	m.open[d.ID] = *d
	return nil
}

func (m *MemoryRepository) ListOpenDonations(_ context.Context) ([]models.OpenDonation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	donations := make([]models.OpenDonation, 0, len(m.open))
	for _, d := range m.open {
		donations = append(donations, d)
	}
	sort.Slice(donations, func(i, j int) bool {
		if donations[i].CreatedAt.Equal(donations[j].CreatedAt) {
			return donations[i].ID < donations[j].ID
		}
		return donations[i].CreatedAt.After(donations[j].CreatedAt)
	})
	return donations, nil
}

func (m *MemoryRepository) ClaimDonation(_ context.Context, donationID, claimantID string, at time.Time) (*models.ClaimedDonation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	open, ok := m.open[donationID]
	if !ok {
		return nil, fmt.Errorf("donation %s: %w", donationID, apperror.ErrNotFound)
	}
	claimant, ok := m.users[claimantID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", claimantID, apperror.ErrNotAuthenticated)
	}

	claimed := open.Claim(claimantID, at)
	delete(m.open, donationID)
	m.claimed[donationID] = *claimed
	claimant.ClaimedDonations++
	return claimed, nil
}

func (m *MemoryRepository) ListClaimedByUser(_ context.Context, userID string) ([]models.ClaimedDonation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	donations := []models.ClaimedDonation{}
	for _, d := range m.claimed {
		if d.ClaimedBy == userID {
			donations = append(donations, d)
		}
	}
	sort.Slice(donations, func(i, j int) bool {
		return donations[i].ClaimedAt.After(donations[j].ClaimedAt)
	})
	return donations, nil
}

func (m *MemoryRepository) CountDonations(_ context.Context) (open, claimed int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.open)), int64(len(m.claimed)), nil
}
