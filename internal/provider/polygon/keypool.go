package polygon

import (
	"context"
	"time"
)

// keyPool hands out API keys one request at a time. A returned key only becomes
// available again after the cooldown, which keeps each key under its rate limit.
type keyPool struct {
	keys     chan string
	cooldown time.Duration
}

func newKeyPool(keys []string, cooldown time.Duration) *keyPool {
	p := &keyPool{keys: make(chan string, len(keys)), cooldown: cooldown}
	for _, k := range keys {
		p.keys <- k
	}
	return p
}

func (p *keyPool) acquire(ctx context.Context) (string, error) {
	select {
	case k := <-p.keys:
		return k, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *keyPool) release(key string) {
	if p.cooldown <= 0 {
		p.keys <- key
		return
	}
	time.AfterFunc(p.cooldown, func() { p.keys <- key })
}

// keyPrefix shortens a key for logs.
func keyPrefix(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
