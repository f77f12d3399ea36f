package storefakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/sessionstore"
)

var _ sessionstore.SecureStore = (*FakeSecureStore)(nil)

// FakeSecureStore is an in-memory SecureStore for tests. Per-key failures can
// be injected through the error maps to exercise partial-failure paths.
type FakeSecureStore struct {
	values map[string]string
	lock   sync.RWMutex

	// GetErrs, SetErrs and DeleteErrs inject failures for specific keys.
	GetErrs    map[string]error
	SetErrs    map[string]error
	DeleteErrs map[string]error
}

func NewFakeSecureStore() *FakeSecureStore {
	return &FakeSecureStore{
		values:     make(map[string]string),
		GetErrs:    make(map[string]error),
		SetErrs:    make(map[string]error),
		DeleteErrs: make(map[string]error),
	}
}

func (f *FakeSecureStore) Get(_ context.Context, key string) (string, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	if err := f.GetErrs[key]; err != nil {
		return "", err
	}
	value, ok := f.values[key]
	if !ok {
		return "", sessionstore.ErrKeyNotFound
	}
	return value, nil
}

func (f *FakeSecureStore) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := f.SetErrs[key]; err != nil {
		return err
	}
	f.values[key] = value
	return nil
}

func (f *FakeSecureStore) Delete(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := f.DeleteErrs[key]; err != nil {
		return err
	}
	delete(f.values, key)
	return nil
}

// Seed stores a raw blob directly, bypassing error injection.
func (f *FakeSecureStore) Seed(key, value string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.values[key] = value
}

// Contains reports whether a key currently holds a value.
func (f *FakeSecureStore) Contains(key string) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	_, ok := f.values[key]
	return ok
}
