package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/foodlink-service/internal/apperror"
	"github.com/Dan9191/foodlink-service/internal/auth"
	"github.com/Dan9191/foodlink-service/internal/models"
	"github.com/Dan9191/foodlink-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
}

type notification struct {
	donorEmail string
	claimant   string
	donationID string
}

func (f *fakeNotifier) NotifyClaimed(_ context.Context, donor *models.User, claimant string, d *models.ClaimedDonation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notification{donorEmail: donor.Email, claimant: claimant, donationID: d.ID})
	return f.err
}

type failingStore struct {
	*repository.MemoryRepository
	err error
}

func (f *failingStore) CountDonations(context.Context) (int64, int64, error) {
	return 0, 0, f.err
}

func (f *failingStore) ListOpenDonations(context.Context) ([]models.OpenDonation, error) {
	return nil, f.err
}

func newTestService(t *testing.T, store Store, notifier ClaimNotifier) *Service {
	t.Helper()
	log, _ := test.NewNullLogger()
	s := NewService(store, log, auth.NewTokenManager("test-secret", time.Hour), notifier)
	t.Cleanup(s.Close)
	return s
}

func mustRegister(t *testing.T, s *Service, name string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), name, name+"@example.com", "password1")
	require.NoError(t, err)
	return u
}

func riceDonation() models.DonationDetails {
	return models.DonationDetails{
		Name: "Alice", FoodItem: "Rice", Quantity: 5, Location: "Downtown",
		PhoneNumber: "555-0100", Address: "1 Main St",
	}
}

func countOpen(t *testing.T, s *Service, id string) int {
	t.Helper()
	open, err := s.ListOpenDonations(context.Background())
	require.NoError(t, err)
	n := 0
	for _, d := range open {
		if d.ID == id {
			n++
		}
	}
	return n
}

func TestDonateAndClaimScenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepository()
	s := newTestService(t, store, nil)
	u1 := mustRegister(t, s, "u1")
	u2 := mustRegister(t, s, "u2")

	d, err := s.CreateDonation(ctx, u1.ID, riceDonation())
	require.NoError(t, err)
	assert.Equal(t, u1.ID, d.DonatedBy)
	assert.Equal(t, 1, countOpen(t, s, d.ID))

	claimed, err := s.ClaimDonation(ctx, d.ID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, u1.ID, claimed.DonatedBy)
	assert.Equal(t, u2.ID, claimed.ClaimedBy)
	assert.Equal(t, d.DonationDetails, claimed.DonationDetails)
	assert.Equal(t, d.CreatedAt, claimed.CreatedAt)
	assert.Zero(t, countOpen(t, s, d.ID))

	mine, err := s.ListClaimed(ctx, u2.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, d.ID, mine[0].ID)

	p2, err := s.Profile(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p2.ClaimedDonations)
	assert.Zero(t, p2.DonationsMade)

	p1, err := s.Profile(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p1.DonationsMade)
	assert.Zero(t, p1.ClaimedDonations)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DonationStats{TotalDonations: 1, ClaimedDonations: 1, UnclaimedDonations: 0}, stats)
}

func TestClaimDonation_AlreadyClaimedLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	u1 := mustRegister(t, s, "u1")
	u2 := mustRegister(t, s, "u2")
	u3 := mustRegister(t, s, "u3")

	d, err := s.CreateDonation(ctx, u1.ID, riceDonation())
	require.NoError(t, err)
	_, err = s.ClaimDonation(ctx, d.ID, u2.ID)
	require.NoError(t, err)

	before, err := s.Stats(ctx)
	require.NoError(t, err)

	_, err = s.ClaimDonation(ctx, d.ID, u3.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	after, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	p3, err := s.Profile(ctx, u3.ID)
	require.NoError(t, err)
	assert.Zero(t, p3.ClaimedDonations)
}

func TestClaimDonation_InputErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	u := mustRegister(t, s, "u1")

	_, err := s.ClaimDonation(ctx, "  ", u.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = s.ClaimDonation(ctx, "not-a-uuid", u.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.ClaimDonation(ctx, uuid.NewString(), u.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.ClaimDonation(ctx, uuid.NewString(), "garbage")
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)
}

func TestClaimDonation_AcceptsNonCanonicalIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	donor := mustRegister(t, s, "donor")
	taker := mustRegister(t, s, "taker")

	for _, format := range []func(string) string{
		func(id string) string { return "{" + id + "}" },
		func(id string) string { return "urn:uuid:" + id },
		strings.ToUpper,
	} {
		d, err := s.CreateDonation(ctx, donor.ID, riceDonation())
		require.NoError(t, err)

		claimed, err := s.ClaimDonation(ctx, format(d.ID), format(taker.ID))
		require.NoError(t, err)
		assert.Equal(t, d.ID, claimed.ID)
		assert.Equal(t, taker.ID, claimed.ClaimedBy)
		assert.Zero(t, countOpen(t, s, d.ID))
	}

	p, err := s.Profile(ctx, taker.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.ClaimedDonations)
}

func TestClaimDonation_NoNotificationAfterClose(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	s := newTestService(t, repository.NewMemoryRepository(), notifier)
	u1 := mustRegister(t, s, "u1")
	u2 := mustRegister(t, s, "u2")
	d, err := s.CreateDonation(ctx, u1.ID, riceDonation())
	require.NoError(t, err)

	s.Close()

	_, err = s.ClaimDonation(ctx, d.ID, u2.ID)
	require.NoError(t, err)
	s.Close()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Empty(t, notifier.calls)
}

func TestClaimDonation_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	donor := mustRegister(t, s, "donor")
	d, err := s.CreateDonation(ctx, donor.ID, riceDonation())
	require.NoError(t, err)

	claimants := make([]*models.User, 5)
	for i := range claimants {
		claimants[i] = mustRegister(t, s, "c"+string(rune('a'+i)))
	}

	errs := make([]error, len(claimants))
	var wg sync.WaitGroup
	for i, c := range claimants {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.ClaimDonation(ctx, d.ID, id)
		}(i, c.ID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	}
	assert.Equal(t, 1, wins)
}

func TestClaimDonation_NotifiesDonor(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	s := newTestService(t, repository.NewMemoryRepository(), notifier)
	u1 := mustRegister(t, s, "u1")
	u2 := mustRegister(t, s, "u2")

	d, err := s.CreateDonation(ctx, u1.ID, riceDonation())
	require.NoError(t, err)

	// a failing notifier must not fail the claim
	_, err = s.ClaimDonation(ctx, d.ID, u2.ID)
	require.NoError(t, err)
	s.Close()

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, notification{donorEmail: "u1@example.com", claimant: "u2", donationID: d.ID}, notifier.calls[0])
}

func TestCreateDonation_Validation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	u := mustRegister(t, s, "u1")

	tests := []struct {
		name   string
		mutate func(*models.DonationDetails)
	}{
		{name: "blank name", mutate: func(d *models.DonationDetails) { d.Name = "  " }},
		{name: "missing food item", mutate: func(d *models.DonationDetails) { d.FoodItem = "" }},
		{name: "missing location", mutate: func(d *models.DonationDetails) { d.Location = "" }},
		{name: "missing phone", mutate: func(d *models.DonationDetails) { d.PhoneNumber = "" }},
		{name: "missing address", mutate: func(d *models.DonationDetails) { d.Address = "" }},
		{name: "zero quantity", mutate: func(d *models.DonationDetails) { d.Quantity = 0 }},
		{name: "negative quantity", mutate: func(d *models.DonationDetails) { d.Quantity = -3 }},
		{name: "quantity above int32", mutate: func(d *models.DonationDetails) { d.Quantity = math.MaxInt32 + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := riceDonation()
			tt.mutate(&details)
			_, err := s.CreateDonation(ctx, u.ID, details)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDonations)
	p, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, p.DonationsMade)
}

func TestCreateDonation_UnknownDonor(t *testing.T) {
	s := newTestService(t, repository.NewMemoryRepository(), nil)

	_, err := s.CreateDonation(context.Background(), uuid.NewString(), riceDonation())
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)

	_, err = s.CreateDonation(context.Background(), "", riceDonation())
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)
}

func TestCreateDonation_TrimsFields(t *testing.T) {
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	u := mustRegister(t, s, "u1")

	details := riceDonation()
	details.FoodItem = "  Rice "
	d, err := s.CreateDonation(context.Background(), u.ID, details)
	require.NoError(t, err)
	assert.Equal(t, "Rice", d.FoodItem)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	mustRegister(t, s, "alice")

	_, err := s.Register(ctx, "alice2", "ALICE@example.com", "password1")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// the first account still logs in, and only it exists under that email
	_, u, err := s.Login(ctx, "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestRegister_Validation(t *testing.T) {
	s := newTestService(t, repository.NewMemoryRepository(), nil)

	tests := []struct {
		name, username, email, password string
	}{
		{"missing username", "", "a@example.com", "password1"},
		{"missing email", "a", "", "password1"},
		{"missing password", "a", "a@example.com", ""},
		{"bad email", "a", "not-an-email", "password1"},
		{"display name email", "a", "Alice <a@example.com>", "password1"},
		{"short password", "a", "a@example.com", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	registered := mustRegister(t, s, "alice")
	assert.NotEqual(t, "password1", registered.PasswordHash)

	token, u, err := s.Login(ctx, " Alice@Example.com ", "password1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	claims, err := s.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, _, err = s.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)

	_, _, err = s.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, apperror.ErrNotAuthenticated)

	_, _, err = s.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestProfile_NotFound(t *testing.T) {
	s := newTestService(t, repository.NewMemoryRepository(), nil)

	_, err := s.Profile(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.Profile(context.Background(), "bogus")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStoreErrorsSurface(t *testing.T) {
	boom := errors.Join(apperror.ErrStore, errors.New("db down"))
	s := newTestService(t, &failingStore{MemoryRepository: repository.NewMemoryRepository(), err: boom}, nil)

	_, err := s.Stats(context.Background())
	assert.ErrorIs(t, err, apperror.ErrStore)

	_, err = s.ListOpenDonations(context.Background())
	assert.ErrorIs(t, err, apperror.ErrStore)
}

func TestListOpenDonations_EachCreatedOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, repository.NewMemoryRepository(), nil)
	u := mustRegister(t, s, "u1")

	var ids []string
	for i := 1; i <= 4; i++ {
		details := riceDonation()
		details.Quantity = i
		d, err := s.CreateDonation(ctx, u.ID, details)
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}
	for _, id := range ids {
		assert.Equal(t, 1, countOpen(t, s, id))
	}

	p, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.DonationsMade)
}
