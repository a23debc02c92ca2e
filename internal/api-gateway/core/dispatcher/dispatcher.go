// Package dispatcher turns edge operations into backend commands. It checks
// credentials for protected operations before anything is sent, sends
// exactly one command per operation, and hands the raw reply back
// untouched. It never retries.
package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/disqueria/internal/api-gateway/core/ports"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/cache"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
)

const defaultCacheTTL = 30 * time.Second

type Option func(*Dispatcher)

// WithCache serves cacheable operations from c. Cache failures never fail a
// call; they only cost a round trip.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(d *Dispatcher) {
		d.cache = c
		if ttl > 0 {
			d.cacheTTL = ttl
		}
	}
}

type Dispatcher struct {
	services  map[string]ports.Sender
	validator ports.CredentialValidator
	issuer    ports.TokenIssuer
	cache     cache.Cache
	cacheTTL  time.Duration
}

// New builds a dispatcher over one sender per service name.
func New(services map[string]ports.Sender, validator ports.CredentialValidator, issuer ports.TokenIssuer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		services:  services,
		validator: validator,
		issuer:    issuer,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs op with payload. credential is the caller's bearer token
// and may be empty for public operations.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation, credential string, payload any) (json.RawMessage, error) {
	if op.Protected {
		subject, err := d.authenticate(ctx, credential)
		if err != nil {
			slog.InfoContext(ctx, "rejected unauthenticated call", "operation", op.Name, "reason", err)
			return nil, apperr.Unauthorized("Unauthorized")
		}
		slog.DebugContext(ctx, "caller authenticated", "operation", op.Name, "subject", subject.ID)
	}

	sender, ok := d.services[op.Service]
	if !ok {
		return nil, apperr.Internal("no channel for service " + op.Service)
	}

	if op.Cacheable && d.cache != nil {
		if raw := d.cached(ctx, op); raw != nil {
			return raw, nil
		}
	}

	raw, err := sender.Send(ctx, op.Command, payload)
	if err != nil {
		// A failed order may have decremented stock before it stopped.
		if d.cache != nil {
			d.evict(ctx, op)
		}
		return nil, err
	}

	if d.cache != nil {
		if op.Cacheable {
			d.store(ctx, op, raw)
		}
		d.evict(ctx, op)
	}
	return raw, nil
}

// Login checks the credentials with the users service and issues a token
// for the user it returns.
func (d *Dispatcher) Login(ctx context.Context, email, password string) (entity.Session, error) {
	if email == "" || password == "" {
		return entity.Session{}, apperr.Unauthorized("Invalid credentials")
	}
	users, ok := d.services[ServiceUsers]
	if !ok {
		return entity.Session{}, apperr.Internal("no channel for service " + ServiceUsers)
	}

	user, err := commands.ValidateUser.Send(ctx, users, commands.Credentials{Email: email, Password: password})
	if err != nil {
		return entity.Session{}, err
	}
	if user == nil {
		return entity.Session{}, apperr.Unauthorized("Invalid credentials")
	}

	token, err := d.issuer.Issue(entity.Subject{ID: user.ID, Email: user.Email})
	if err != nil {
		return entity.Session{}, err
	}
	slog.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return entity.Session{AccessToken: token}, nil
}

func (d *Dispatcher) authenticate(ctx context.Context, credential string) (entity.Subject, error) {
	if d.validator == nil {
		return entity.Subject{}, apperr.Internal("no credential validator")
	}
	return d.validator.Validate(ctx, credential)
}

func (d *Dispatcher) key(name string) string {
	return d.cache.GenerateKey(name, "all")
}

func (d *Dispatcher) cached(ctx context.Context, op Operation) json.RawMessage {
	val, err := d.cache.Get(ctx, d.key(op.Name))
	if err != nil {
		slog.WarnContext(ctx, "cache read failed", "operation", op.Name, "error", err)
		return nil
	}
	if val == "" {
		return nil
	}
	return json.RawMessage(val)
}

func (d *Dispatcher) store(ctx context.Context, op Operation, raw json.RawMessage) {
	if err := d.cache.Set(ctx, d.key(op.Name), string(raw), d.cacheTTL); err != nil {
		slog.WarnContext(ctx, "cache write failed", "operation", op.Name, "error", err)
	}
}

func (d *Dispatcher) evict(ctx context.Context, op Operation) {
	if len(op.Evicts) == 0 {
		return
	}
	keys := make([]string, len(op.Evicts))
	for i, name := range op.Evicts {
		keys[i] = d.key(name)
	}
	if err := d.cache.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "cache eviction failed", "operation", op.Name, "error", err)
	}
}
