package repository

import (
	"fmt"
	"sync"

	cfg "foodscan/src/configuration"
)

type (
	// SessionDB stores exchanged OAuth tokens so API requests can be verified
	// against a live session.
	SessionDB interface {
		StoreSession(accessToken, refreshToken string) error
		VerifySession(accessToken string) bool
		Connect() bool
	}

	InMemoryDB struct {
		mu    sync.RWMutex
		table map[string]string
	}
)

func NewSessionDataBase(config *cfg.Properties) (SessionDB, error) {
	if config == nil {
		return nil, fmt.Errorf("config is not valid")
	}
	return &InMemoryDB{}, nil
}

func (i *InMemoryDB) Connect() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.table == nil {
		i.table = make(map[string]string)
	}
	return true
}

func (i *InMemoryDB) StoreSession(accessToken, refreshToken string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.table == nil {
		return fmt.Errorf("can not store session, connection is off")
	}
	i.table[accessToken] = refreshToken
	return nil
}

func (i *InMemoryDB) VerifySession(accessToken string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.table == nil {
		return false
	}
	_, ok := i.table[accessToken]
	return ok
}
