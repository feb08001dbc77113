// Package identity issues and remembers the pseudo-anonymous client id sent
// to the grants service on every per-user request.
package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
)

// Header is the request header that carries the client id.
const Header = "X-User-ID"

const key = "client-id"

// Provider resolves the client id once and serves it for the rest of the
// process lifetime.
type Provider struct {
	d *diskv.Diskv

	once sync.Once
	id   string
	err  error
}

// New returns a Provider that persists the id under basePath.
func New(basePath string) *Provider {
	return &Provider{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 1024,
	})}
}

// ID returns the persisted client id, generating and storing one on first use.
// A missing id is never an error.
func (p *Provider) ID() (string, error) {
	p.once.Do(func() {
		p.id, p.err = p.load()
	})
	return p.id, p.err
}

// Reset forgets the stored id so the next process gets a fresh one.
func (p *Provider) Reset() error {
	if err := p.d.Erase(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("identity: erase: %w", err)
	}
	return nil
}

func (p *Provider) load() (string, error) {
	val, err := p.d.Read(key)
	if err == nil {
		if id := strings.TrimSpace(string(val)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("identity: read: %w", err)
	}

	id := "user_" + uuid.NewString()
	if err := p.d.Write(key, []byte(id)); err != nil {
		return "", fmt.Errorf("identity: write: %w", err)
	}
	return id, nil
}

// Static is an already-known client id.
type Static string

func (s Static) ID() (string, error) {
	if s == "" {
		return "", errors.New("identity: empty client id")
	}
	return string(s), nil
}
