package service

import (
	"errors"
	"sort"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/ports"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

// Channels owns one command channel per backend service.
type Channels struct {
	byService map[string]*transport.Channel
}

// NewChannels opens nothing yet: every channel connects on its first call.
func NewChannels(targets map[string]string, opts ...transport.Option) *Channels {
	c := &Channels{byService: make(map[string]*transport.Channel, len(targets))}
	for name, target := range targets {
		c.byService[name] = transport.NewChannel(target, opts...)
	}
	return c
}

// Senders exposes the channels through the dispatcher's port.
func (c *Channels) Senders() map[string]ports.Sender {
	out := make(map[string]ports.Sender, len(c.byService))
	for name, ch := range c.byService {
		out[name] = ch
	}
	return out
}

// Targets lists service=target pairs in name order, for logging.
func (c *Channels) Targets() []string {
	out := make([]string, 0, len(c.byService))
	for name, ch := range c.byService {
		out = append(out, name+"="+ch.Target())
	}
	sort.Strings(out)
	return out
}

func (c *Channels) Close() error {
	var errs []error
	for _, ch := range c.byService {
		errs = append(errs, ch.Close())
	}
	return errors.Join(errs...)
}
