package models

// DonationStats represents marketplace-wide donation counts
type DonationStats struct {
	TotalDonations     int64 `json:"totalDonations"`
	ClaimedDonations   int64 `json:"claimedDonations"`
	UnclaimedDonations int64 `json:"unclaimedDonations"`
}

// NewDonationStats derives the total from the two disjoint sets
func NewDonationStats(open, claimed int64) DonationStats {
	return DonationStats{
		TotalDonations:     open + claimed,
		ClaimedDonations:   claimed,
		UnclaimedDonations: open,
	}
}
