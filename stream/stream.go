// Package stream consumes the Tradier market-event websocket feed: trades,
// quotes, summaries and time/sale prints for a fixed symbol set. Sessions
// are short-lived server-side tokens, so the engine owns the full lifecycle:
// request a session, dial, subscribe, read, and start over with a fresh
// session when the connection drops.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Engine is the public contract for the event feed.
type Engine interface {
	Start(ctx context.Context) error
	Stop() error
	Status() Status
}

// EventCallback receives each decoded event. It runs on the read loop
// goroutine, so it must not block.
type EventCallback func(Event)

// SessionSource mints streaming session ids and names the websocket host.
// *tradier.Client satisfies it.
type SessionSource interface {
	StreamSession(ctx context.Context) (string, error)
	StreamURL() string
}

// Config controls what the engine subscribes to and how hard it fights to
// stay connected.
type Config struct {
	Symbols []string

	// Filter limits event types: trade, quote, summary, timesale, tradex.
	// Empty means all types.
	Filter []string

	LineBreak       bool
	ValidTicksOnly  bool
	AdvancedDetails bool

	ReconnectInterval   time.Duration
	MaxReconnects       int
	HandshakeRetryDelay time.Duration
	MaxHandshakeRetries int
}

// DefaultConfig is a reasonable starting point; override Symbols at minimum.
var DefaultConfig = Config{
	LineBreak:           true,
	ValidTicksOnly:      true,
	ReconnectInterval:   5 * time.Second,
	MaxReconnects:       10,
	HandshakeRetryDelay: 2 * time.Second,
	MaxHandshakeRetries: 5,
}

// Status reports connection health.
type Status struct {
	IsConnected    bool
	ReconnectCount int
	EventCount     int64
	LastEvent      time.Time
	ErrorCount     int64
}

// Event is one message off the feed. Tradier encodes numeric fields as
// strings on the wire; they are passed through untouched, with Raw holding
// the full message for fields not lifted here.
type Event struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`

	// Trade and timesale fields.
	Price string `json:"price"`
	Size  string `json:"size"`
	Last  string `json:"last"`

	// Quote fields.
	Bid     string `json:"bid"`
	BidSize string `json:"bidsz"`
	Ask     string `json:"ask"`
	AskSize string `json:"asksz"`

	// Summary fields.
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	PrevClose string `json:"prevClose"`

	Raw json.RawMessage `json:"-"`
}

// subscribeRequest is the payload written immediately after dialing.
type subscribeRequest struct {
	Symbols         []string `json:"symbols"`
	SessionID       string   `json:"sessionid"`
	LineBreak       bool     `json:"linebreak"`
	ValidOnly       bool     `json:"validOnly"`
	AdvancedDetails bool     `json:"advancedDetails"`
	Filter          []string `json:"filter,omitempty"`
}

type engine struct {
	config   Config
	source   SessionSource
	callback EventCallback
	logger   *zap.Logger
	dialer   *websocket.Dialer

	mu   sync.RWMutex
	conn *websocket.Conn

	statusMu sync.RWMutex
	status   Status

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option adjusts an engine under construction.
type Option func(*engine)

// WithLogger attaches a logger. The default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *engine) { e.logger = l }
}

// WithCallback sets the event sink.
func WithCallback(cb EventCallback) Option {
	return func(e *engine) { e.callback = cb }
}

// NewEngine builds an engine over a session source.
func NewEngine(source SessionSource, config Config, opts ...Option) (Engine, error) {
	if source == nil {
		return nil, errors.New("stream: session source is required")
	}
	if len(config.Symbols) == 0 {
		return nil, errors.New("stream: at least one symbol is required")
	}

	e := &engine{
		config: config,
		source: source,
		logger: zap.NewNop(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start performs the initial handshake and launches the read loop. The
// handshake is retried a bounded number of times before giving up; the feed
// then runs until Stop is called or ctx is canceled.
func (e *engine) Start(ctx context.Context) error {
	if e.started {
		return errors.New("stream: engine already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if err := e.handshake(runCtx); err != nil {
		cancel()
		return err
	}
	e.started = true

	e.updateStatus(func(s *Status) { s.IsConnected = true })
	e.logger.Info("event stream started",
		zap.Strings("symbols", e.config.Symbols),
		zap.Strings("filter", e.config.Filter))

	e.wg.Add(1)
	go e.readLoop(runCtx)
	return nil
}

// Stop tears down the connection and waits for the read loop to exit.
func (e *engine) Stop() error {
	if !e.started {
		return nil
	}
	e.cancel()

	e.mu.Lock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.updateStatus(func(s *Status) { s.IsConnected = false })
		e.logger.Info("event stream stopped")
		return nil
	case <-time.After(10 * time.Second):
		return errors.New("stream: timeout waiting for read loop to exit")
	}
}

// Status returns a snapshot of connection health.
func (e *engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// handshake mints a session, dials the feed and writes the subscription.
// Session ids expire within seconds, so each attempt mints a fresh one.
func (e *engine) handshake(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= e.config.MaxHandshakeRetries; attempt++ {
		if attempt > 0 {
			e.logger.Warn("handshake retry",
				zap.Int("attempt", attempt),
				zap.Int("max", e.config.MaxHandshakeRetries),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.config.HandshakeRetryDelay):
			}
		}

		if lastErr = e.connect(ctx); lastErr == nil {
			return nil
		}
		e.updateStatus(func(s *Status) { s.ErrorCount++ })
	}
	return fmt.Errorf("stream: handshake failed after %d retries: %w", e.config.MaxHandshakeRetries, lastErr)
}

func (e *engine) connect(ctx context.Context) error {
	sessionID, err := e.source.StreamSession(ctx)
	if err != nil {
		return fmt.Errorf("mint session: %w", err)
	}

	endpoint := e.source.StreamURL() + "/v1/markets/events"
	conn, _, err := e.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}

	sub := subscribeRequest{
		Symbols:         e.config.Symbols,
		SessionID:       sessionID,
		LineBreak:       e.config.LineBreak,
		ValidOnly:       e.config.ValidTicksOnly,
		AdvancedDetails: e.config.AdvancedDetails,
		Filter:          e.config.Filter,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("write subscription: %w", err)
	}

	e.mu.Lock()
	if e.conn != nil {
		e.conn.Close()
	}
	e.conn = conn
	e.mu.Unlock()

	e.logger.Debug("subscribed to event feed", zap.String("endpoint", endpoint))
	return nil
}

// readLoop reads one message at a time and hands events to the callback.
// Messages are never processed concurrently; ordering is the feed's.
func (e *engine) readLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		e.mu.RLock()
		conn := e.conn
		e.mu.RUnlock()

		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.updateStatus(func(s *Status) {
				s.ErrorCount++
				s.IsConnected = false
			})
			if !e.reconnect(ctx) {
				return
			}
			continue
		}

		e.dispatch(data)
	}
}

// reconnect re-establishes the feed with a fresh session, up to the
// configured attempt budget. Returns false when the budget is exhausted or
// the context is canceled.
func (e *engine) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= e.config.MaxReconnects; attempt++ {
		e.logger.Warn("feed dropped, reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("max", e.config.MaxReconnects))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(e.config.ReconnectInterval):
		}

		if err := e.connect(ctx); err != nil {
			e.logger.Warn("reconnection failed", zap.Error(err))
			e.updateStatus(func(s *Status) { s.ErrorCount++ })
			continue
		}

		e.updateStatus(func(s *Status) {
			s.IsConnected = true
			s.ReconnectCount++
		})
		e.logger.Info("reconnected to event feed")
		return true
	}

	e.logger.Error("reconnect budget exhausted, stopping feed",
		zap.Int("max", e.config.MaxReconnects))
	return false
}

func (e *engine) dispatch(data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		e.logger.Warn("undecodable event", zap.ByteString("payload", data))
		e.updateStatus(func(s *Status) { s.ErrorCount++ })
		return
	}
	event.Raw = data

	e.updateStatus(func(s *Status) {
		s.EventCount++
		s.LastEvent = time.Now()
	})

	if e.callback != nil {
		e.callback(event)
	}
}

func (e *engine) updateStatus(updater func(*Status)) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	updater(&e.status)
}
