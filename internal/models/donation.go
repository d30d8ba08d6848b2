package models

import "time"

// DonationDetails holds the descriptive fields shared by open and claimed donations
type DonationDetails struct {
	Name        string `json:"name"`
	FoodItem    string `json:"foodItem"`
	Quantity    int    `json:"quantity"`
	Location    string `json:"location"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// OpenDonation is an offered food item not yet claimed by anyone
type OpenDonation struct {
	ID string `json:"_id"`
	DonationDetails
	DonatedBy string    `json:"donatedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClaimedDonation is a donation moved out of the open set by a claim
type ClaimedDonation struct {
	ID string `json:"_id"`
	DonationDetails
	DonatedBy string    `json:"donatedBy"`
	ClaimedBy string    `json:"claimedBy"`
	CreatedAt time.Time `json:"createdAt"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// Claim builds the claimed record for d, keeping its id and creation time
func (d *OpenDonation) Claim(claimantID string, at time.Time) *ClaimedDonation {
	return &ClaimedDonation{
		ID:              d.ID,
		DonationDetails: d.DonationDetails,
		DonatedBy:       d.DonatedBy,
		ClaimedBy:       claimantID,
		CreatedAt:       d.CreatedAt,
		ClaimedAt:       at,
	}
}
