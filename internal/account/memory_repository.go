package account

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	accts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{accts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accts[acct.PhoneNumber]; exists {
		return ErrExists
	}
	r.accts[acct.PhoneNumber] = acct
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phoneNumber string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accts[phoneNumber]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (r *memoryRepository) SetPINHash(_ context.Context, id string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phoneNumber, acct := range r.accts {
		if acct.ID == id {
			if len(acct.PINHash) > 0 {
				return ErrPINAlreadySet
			}
			acct.PINHash = hash
			r.accts[phoneNumber] = acct
			return nil
		}
	}
	return ErrNotFound
}
