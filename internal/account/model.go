package account

import "time"

// Account represents a registered wallet owner, keyed by phone number.
type Account struct {
	ID              string
	PhoneNumber     string
	WalletAddr      string
	SmartWalletAddr string
	PINHash         []byte
	CreatedAt       time.Time
}

// HasPIN reports whether the owner has completed credential setup.
func (a Account) HasPIN() bool {
	return len(a.PINHash) > 0
}

// PreferredAddress returns the smart wallet address when one exists,
// otherwise the primary wallet address.
func (a Account) PreferredAddress() string {
	if a.SmartWalletAddr != "" {
		return a.SmartWalletAddr
	}
	return a.WalletAddr
}
