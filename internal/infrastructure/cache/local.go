package cache

import (
	"context"
	"sync"
	"time"

	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

type localLease struct {
	token   string
	expires time.Time
}

// LocalLocker serializes maintenance jobs inside one process
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]localLease
	now    func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]localLease), now: time.Now}
}

func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, held := l.leases[key]; held && now.Before(lease.expires) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = localLease{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lease, held := l.leases[key]; held && lease.token == token {
		delete(l.leases, key)
	}
	return nil
}

func (l *LocalLocker) Health(ctx context.Context) error {
	return nil
}

var _ interfaces.Locker = (*LocalLocker)(nil)
