package authstore

import (
	"context"
	"errors"
	"fmt"
)

// Sealer encrypts single values. *secrets.Sealer satisfies it.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// SealedStorage encrypts the account tokens and email before they reach
// the wrapped Storage. External id and the subscription group are stored
// as is.
type SealedStorage struct {
	Storage
	sealer Sealer
}

// NewSealedStorage wraps s. Close closes s.
func NewSealedStorage(s Storage, sealer Sealer) *SealedStorage {
	if s == nil || sealer == nil {
		panic("authstore: storage and sealer are required")
	}
	return &SealedStorage{Storage: s, sealer: sealer}
}

func (s *SealedStorage) Load(ctx context.Context) (Snapshot, error) {
	snap, err := s.Storage.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Account, err = s.transform(snap.Account, s.sealer.Open); err != nil {
		return Snapshot{}, errors.Join(ErrCorruptRecord, err)
	}
	return snap, nil
}

func (s *SealedStorage) Apply(ctx context.Context, u Update) error {
	if u.Account != nil && !u.ClearAccount {
		sealed, err := s.transform(*u.Account, s.sealer.Seal)
		if err != nil {
			return fmt.Errorf("seal account: %w", err)
		}
		u.Account = &sealed
	}
	return s.Storage.Apply(ctx, u)
}

func (s *SealedStorage) transform(a AccountState, fn func(string) (string, error)) (AccountState, error) {
	var err error
	for _, f := range []*string{&a.AccessToken, &a.AuthToken, &a.Email} {
		if *f, err = fn(*f); err != nil {
			return AccountState{}, err
		}
	}
	return a, nil
}
