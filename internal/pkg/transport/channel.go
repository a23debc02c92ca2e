package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jcmexdev/disqueria/internal/pkg/interceptors"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
)

var errDuplicateID = errors.New("transport: correlation id already outstanding")

// Option configures a Channel.
type Option func(*Channel)

// WithDialOptions appends gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Channel) { c.dialOpts = append(c.dialOpts, opts...) }
}

// WithCallTimeout bounds every Send whose context carries no deadline.
// Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Channel) { c.callTimeout = d }
}

// Channel is a client to one remote service. Any number of goroutines may
// call Send concurrently; all calls share one stream and each reply is
// routed to its caller by correlation id, regardless of arrival order.
//
// The connection and stream are opened lazily by the first Send. If the
// stream breaks, every outstanding call fails with a TransportError and the
// next Send opens a fresh stream.
type Channel struct {
	target      string
	dialOpts    []grpc.DialOption
	callTimeout time.Duration

	mu      sync.Mutex
	conn    *grpc.ClientConn
	current *session
	opening chan struct{}
	closed  bool
}

// NewChannel returns a Channel to target. No connection is made until the
// first Send.
func NewChannel(target string, opts ...Option) *Channel {
	c := &Channel{
		target: target,
		dialOpts: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
			grpc.WithStreamInterceptor(interceptors.RequestIDStreamClientInterceptor()),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the address the channel dials.
func (c *Channel) Target() string { return c.target }

// Send issues command with payload and waits for its reply.
//
// A remote rejection is returned as *RemoteError carrying the remote status
// and message verbatim. A failure to obtain any reply (connection refused or
// lost, timeout, cancellation, closed channel) is returned as
// *TransportError.
func (c *Channel) Send(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	done := telemetry.ChannelCallStarted(c.target, command)
	raw, err := c.send(ctx, command, payload)

	outcome := "ok"
	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		outcome = "remote_error"
	case err != nil:
		outcome = "transport_error"
	}
	done(outcome)
	return raw, err
}

func (c *Channel) send(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode %s payload: %w", command, err)
	}

	if c.callTimeout > 0 {
		if _, has := ctx.Deadline(); !has {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
		}
	}

	fail := func(err error) (json.RawMessage, error) {
		return nil, &TransportError{Target: c.target, Command: command, Err: err}
	}

	s, err := c.session(ctx)
	if err != nil {
		return fail(err)
	}

	id, wait, err := s.register()
	if err != nil {
		return fail(err)
	}

	req := Request{
		ID:      id,
		Pattern: Pattern{Cmd: command},
		Data:    data,
		Meta:    interceptors.InjectMetadata(ctx),
	}
	if err := s.write(&req); err != nil {
		c.drop(s, err)
		return fail(err)
	}

	select {
	case res := <-wait:
		if res.err != nil {
			return fail(res.err)
		}
		return unwrap(command, res.reply)
	case <-ctx.Done():
		s.forget(id)
		return fail(ctx.Err())
	}
}

// Close fails outstanding calls with ErrClosed and releases the connection.
// Send after Close returns a TransportError wrapping ErrClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	s, conn := c.current, c.conn
	c.current, c.conn = nil, nil
	c.mu.Unlock()

	if s != nil {
		s.fail(ErrClosed)
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// session returns the live stream, opening the connection and stream when
// there is none. Opening is bounded by ctx and runs without c.mu held;
// concurrent callers wait for the one attempt in flight.
func (c *Channel) session(ctx context.Context) (*session, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if c.current != nil {
			s := c.current
			c.mu.Unlock()
			return s, nil
		}
		if opening := c.opening; opening != nil {
			c.mu.Unlock()
			select {
			case <-opening:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.conn == nil {
			conn, err := grpc.NewClient(c.target, c.dialOpts...)
			if err != nil {
				c.mu.Unlock()
				return nil, fmt.Errorf("dial: %w", err)
			}
			c.conn = conn
		}
		conn := c.conn
		opening := make(chan struct{})
		c.opening = opening
		c.mu.Unlock()

		s, err := c.open(ctx, conn)

		c.mu.Lock()
		c.opening = nil
		close(opening)
		if err == nil && c.closed {
			err = ErrClosed
		}
		if err == nil {
			c.current = s
		}
		c.mu.Unlock()

		if err != nil {
			if s != nil {
				s.cancel()
			}
			return nil, err
		}
		go c.receive(s)
		slog.Debug("command stream established", "target", c.target)
		return s, nil
	}
}

// open waits until conn is ready or ctx ends, then opens the stream. A
// connection in transient failure is not waited on, so a refused dial fails
// fast instead of retrying until ctx ends.
func (c *Channel) open(ctx context.Context, conn *grpc.ClientConn) (*session, error) {
	for {
		state := conn.GetState()
		if state == connectivity.Ready || state == connectivity.TransientFailure {
			break
		}
		if state == connectivity.Shutdown {
			return nil, ErrClosed
		}
		if state == connectivity.Idle {
			conn.Connect()
		}
		if !conn.WaitForStateChange(ctx, state) {
			return nil, ctx.Err()
		}
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(streamCtx, &exchangeStreamDesc, exchangeMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &session{
		stream:  stream,
		cancel:  cancel,
		pending: make(map[string]chan result),
	}, nil
}

func (c *Channel) receive(s *session) {
	for {
		var reply Reply
		if err := s.stream.RecvMsg(&reply); err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrStreamClosed
			}
			c.drop(s, err)
			return
		}
		if !s.deliver(reply) {
			// The caller gave up already.
			slog.Debug("dropping reply with no outstanding call", "target", c.target, "correlation_id", reply.ID)
		}
	}
}

// drop detaches s from the channel and fails its outstanding calls.
func (c *Channel) drop(s *session, err error) {
	c.mu.Lock()
	if c.current == s {
		c.current = nil
	}
	c.mu.Unlock()

	if s.fail(err) {
		slog.Warn("command stream lost", "target", c.target, "error", err)
	}
}

type result struct {
	reply Reply
	err   error
}

// session is one stream plus the calls outstanding on it.
type session struct {
	stream grpc.ClientStream
	cancel context.CancelFunc

	sendMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan result
	err     error
}

// register reserves a fresh correlation id. Ids are never reused while a
// call with the same id is outstanding.
func (s *session) register() (string, <-chan result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", nil, s.err
	}
	for range 3 {
		id := uuid.NewString()
		if _, taken := s.pending[id]; taken {
			continue
		}
		ch := make(chan result, 1)
		s.pending[id] = ch
		return id, ch, nil
	}
	return "", nil, errDuplicateID
}

func (s *session) forget(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *session) write(req *Request) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.stream.SendMsg(req)
}

func (s *session) deliver(reply Reply) bool {
	s.mu.Lock()
	ch, ok := s.pending[reply.ID]
	delete(s.pending, reply.ID)
	s.mu.Unlock()

	if ok {
		ch <- result{reply: reply}
	}
	return ok
}

// fail resolves every outstanding call with err. Only the first call has an
// effect; it reports whether it was the first.
func (s *session) fail(err error) bool {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return false
	}
	s.err = err
	pending := s.pending
	s.pending = make(map[string]chan result)
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- result{err: err}
	}
	s.cancel()
	return true
}
