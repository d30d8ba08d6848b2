package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/foodlink-service/internal/apperror"
	"github.com/Dan9191/foodlink-service/internal/auth"
	"github.com/Dan9191/foodlink-service/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit
	maxQuantity    = math.MaxInt32
	notifyTimeout  = 30 * time.Second
)

// Store is the persistence contract the service needs
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateDonation(ctx context.Context, d *models.OpenDonation) error
	ListOpenDonations(ctx context.Context) ([]models.OpenDonation, error)
	ClaimDonation(ctx context.Context, donationID, claimantID string, at time.Time) (*models.ClaimedDonation, error)
	ListClaimedByUser(ctx context.Context, userID string) ([]models.ClaimedDonation, error)
	CountDonations(ctx context.Context) (open, claimed int64, err error)
}

// ClaimNotifier is told about every committed claim
type ClaimNotifier interface {
	NotifyClaimed(ctx context.Context, donor *models.User, claimant string, d *models.ClaimedDonation) error
}

// Service handles business logic
type Service struct {
	repo     Store
	log      *logrus.Logger
	tokens   *auth.TokenManager
	notifier ClaimNotifier
	now      func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService initializes a new service. notifier may be nil.
func NewService(repo Store, log *logrus.Logger, tokens *auth.TokenManager, notifier ClaimNotifier) *Service {
	return &Service{
		repo:     repo,
		log:      log,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
	}
}

// Close stops new claim notifications and waits for in-flight ones
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password are required: %w", apperror.ErrValidation)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("invalid email address: %w", apperror.ErrValidation)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, fmt.Errorf("password must be %d to %d characters: %w", minPasswordLen, maxPasswordLen, apperror.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a signed token
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("email and password are required: %w", apperror.ErrValidation)
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", nil, fmt.Errorf("invalid credentials: %w", apperror.ErrNotAuthenticated)
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", apperror.ErrNotAuthenticated)
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return token, user, nil
}

// Profile returns the public view of a user
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// CreateDonation lists a new open donation owned by donorID
func (s *Service) CreateDonation(ctx context.Context, donorID string, details models.DonationDetails) (*models.OpenDonation, error) {
	if _, err := uuid.Parse(donorID); err != nil {
		return nil, fmt.Errorf("user %q: %w", donorID, apperror.ErrNotAuthenticated)
	}
	details = normalizeDetails(details)
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	donation := &models.OpenDonation{
		ID:              uuid.NewString(),
		DonationDetails: details,
		DonatedBy:       donorID,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"donation": donation.ID, "donor": donorID}).Info("Donation created")
	return donation, nil
}

// ListOpenDonations returns every unclaimed donation
func (s *Service) ListOpenDonations(ctx context.Context) ([]models.OpenDonation, error) {
	return s.repo.ListOpenDonations(ctx)
}

// ClaimDonation moves an open donation to the claimant. The store applies the
// move and the claimant's counter update atomically; the donor is notified
// afterwards on a best-effort basis.
func (s *Service) ClaimDonation(ctx context.Context, donationID, claimantID string) (*models.ClaimedDonation, error) {
	donationID = strings.TrimSpace(donationID)
	if donationID == "" {
		return nil, fmt.Errorf("donationId is required: %w", apperror.ErrValidation)
	}
	claimant, err := uuid.Parse(claimantID)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", claimantID, apperror.ErrNotAuthenticated)
	}
	donation, err := uuid.Parse(donationID)
	if err != nil {
		return nil, fmt.Errorf("donation %s: %w", donationID, apperror.ErrNotFound)
	}
	// stores key on the canonical form
	claimantID = claimant.String()

	claimed, err := s.repo.ClaimDonation(ctx, donation.String(), claimantID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"donation": claimed.ID,
		"donor":    claimed.DonatedBy,
		"claimant": claimantID,
	}).Info("Donation claimed")

	if s.notifier != nil {
		s.notifyDonor(context.WithoutCancel(ctx), claimed)
	}
	return claimed, nil
}

// ListClaimed returns the donations claimed by userID
func (s *Service) ListClaimed(ctx context.Context, userID string) ([]models.ClaimedDonation, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("user %q: %w", userID, apperror.ErrNotAuthenticated)
	}
	return s.repo.ListClaimedByUser(ctx, userID)
}

// Stats returns open, claimed and total donation counts
func (s *Service) Stats(ctx context.Context) (models.DonationStats, error) {
	open, claimed, err := s.repo.CountDonations(ctx)
	if err != nil {
		return models.DonationStats{}, err
	}
	return models.NewDonationStats(open, claimed), nil
}

func (s *Service) notifyDonor(ctx context.Context, claimed *models.ClaimedDonation) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.WithField("donation", claimed.ID).Warn("Service closing, claim notification skipped")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		log := s.log.WithField("donation", claimed.ID)
		donor, err := s.repo.FindUserByID(ctx, claimed.DonatedBy)
		if err != nil {
			log.Warnf("Skipping claim notification: %v", err)
			return
		}
		claimant := claimed.ClaimedBy
		if u, err := s.repo.FindUserByID(ctx, claimed.ClaimedBy); err == nil {
			claimant = u.Username
		}
		if err := s.notifier.NotifyClaimed(ctx, donor, claimant, claimed); err != nil {
			log.Warnf("Claim notification failed: %v", err)
		}
	}()
}

func normalizeDetails(d models.DonationDetails) models.DonationDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.FoodItem = strings.TrimSpace(d.FoodItem)
	d.Location = strings.TrimSpace(d.Location)
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	d.Address = strings.TrimSpace(d.Address)
	return d
}

func validateDetails(d models.DonationDetails) error {
	fields := []struct{ name, value string }{
		{"name", d.Name},
		{"foodItem", d.FoodItem},
		{"location", d.Location},
		{"phoneNumber", d.PhoneNumber},
		{"address", d.Address},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields %s: %w", strings.Join(missing, ", "), apperror.ErrValidation)
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", apperror.ErrValidation)
	}
	if d.Quantity > maxQuantity {
		return fmt.Errorf("quantity must not exceed %d: %w", maxQuantity, apperror.ErrValidation)
	}
	return nil
}
