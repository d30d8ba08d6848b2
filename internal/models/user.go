package models

import "time"

// User represents a registered account
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // Not serialized
	DonationsMade    int64     `json:"donationsMade"`
	ClaimedDonations int64     `json:"claimedDonations"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Profile is the public view of a user returned by /api/user/info
type Profile struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	DonationsMade    int64  `json:"donationsMade"`
	ClaimedDonations int64  `json:"claimedDonations"`
}

// Profile strips credentials and identifiers from the user
func (u *User) Profile() Profile {
	return Profile{
		Username:         u.Username,
		Email:            u.Email,
		DonationsMade:    u.DonationsMade,
		ClaimedDonations: u.ClaimedDonations,
	}
}
