package purchase

import "time"

const (
	// StatusPending marks an intent awaiting asynchronous fulfillment.
	StatusPending = "PENDING"

	// ProviderMTN is the mobile-money provider purchases are settled through.
	ProviderMTN = "MTN"
)

// Intent records a request to buy tokens via an off-chain payment provider.
// Fulfillment happens outside this service; only the PENDING record is owned here.
type Intent struct {
	ID          string
	AccountID   string
	Provider    string
	PhoneNumber string
	TokenSymbol string
	Amount      float64
	Status      string
	CreatedAt   time.Time
}
