package empire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// handshakeTimeout bounds the WebSocket upgrade itself.
	handshakeTimeout = 15 * time.Second
)

// Stream event names carried in the wire envelope.
const (
	eventInit        = "init"
	eventNewItem     = "new_item"
	eventUpdatedItem = "updated_item"
	eventDeletedItem = "deleted_item"
)

// Transport is one WebSocket session against the marketplace trade feed.
// It is single-use: the connection manager builds a fresh Transport per
// attempt, drives Connect, Authenticate and ReadEvent from its own goroutine,
// and always finishes with Close.
type Transport struct {
	api      *Client
	wsURL    string
	priceMax float64
	logger   *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	meta   socketMetadata
	closed bool

	// done stops the ping loop when the session ends.
	done chan struct{}

	// pending holds decoded events from a frame that carried more than one
	// item, so ReadEvent can hand them out one at a time in arrival order.
	pending []domain.ItemEvent
}

// NewTransport creates a single-use trade stream transport.
//
// wsURL is the trade feed endpoint, e.g. "wss://trade.csgoempire.com/trade".
// priceMax scopes the server-side item feed, in coin cents.
func NewTransport(api *Client, wsURL string, priceMax float64, logger *slog.Logger) *Transport {
	return &Transport{
		api:      api,
		wsURL:    wsURL,
		priceMax: priceMax,
		logger:   logger.With(slog.String("component", "empire_ws")),
		done:     make(chan struct{}),
	}
}

// Connect fetches socket credentials and dials the trade feed.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("empire/ws: %w", domain.ErrWSDisconnect)
	}

	meta, err := t.api.SocketMetadata(ctx)
	if err != nil {
		return err
	}
	t.meta = meta

	dialURL := fmt.Sprintf("%s/?uid=%d&token=%s", t.wsURL, meta.UserID, url.QueryEscape(meta.SocketToken))
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("empire/ws: connect: %w", err)
	}
	t.conn = conn

	// Keep-alive: the pong handler extends the read deadline.
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go t.pingLoop()

	return nil
}

// Authenticate sends the identify frame and waits for the server's explicit
// init acknowledgement. Only an init with authenticated=true counts; anything
// else is ErrAuthRejected. On success it installs the server-side item filter.
func (t *Transport) Authenticate(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	meta := t.meta
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("empire/ws: %w", domain.ErrNotConnected)
	}

	identify := identifyPayload{
		UID:                meta.UserID,
		Model:              meta.User,
		AuthorizationToken: meta.SocketToken,
		Signature:          meta.SocketSignature,
		UUID:               uuid.NewString(),
	}
	if err := t.writeFrame("identify", identify); err != nil {
		return fmt.Errorf("empire/ws: identify: %w", err)
	}

	// Bound the wait for the ack with the caller's deadline.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := t.readFrame(conn)
		if err != nil {
			return fmt.Errorf("empire/ws: await init: %w", err)
		}

		if frame.Event != eventInit {
			// Items can arrive interleaved with the handshake; keep them.
			t.queueItems(frame)
			continue
		}

		var init initData
		if err := json.Unmarshal(frame.Data, &init); err != nil {
			return fmt.Errorf("empire/ws: decode init: %w", err)
		}
		if !init.Authenticated {
			return fmt.Errorf("empire/ws: %w", domain.ErrAuthRejected)
		}
		break
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))

	if err := t.writeFrame("filters", filtersPayload{PriceMax: t.priceMax}); err != nil {
		return fmt.Errorf("empire/ws: set filters: %w", err)
	}

	t.logger.Debug("stream identified", slog.Int64("uid", meta.UserID))
	return nil
}

// ReadEvent returns the next item event in arrival order. It blocks until an
// event arrives, the context ends, or the connection drops. Close unblocks a
// pending read.
func (t *Transport) ReadEvent(ctx context.Context) (domain.ItemEvent, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return domain.ItemEvent{}, fmt.Errorf("empire/ws: %w", domain.ErrNotConnected)
	}

	for {
		if ev, ok := t.popPending(); ok {
			return ev, nil
		}
		if err := ctx.Err(); err != nil {
			return domain.ItemEvent{}, err
		}

		frame, err := t.readFrame(conn)
		if err != nil {
			return domain.ItemEvent{}, fmt.Errorf("empire/ws: read: %w", err)
		}
		t.queueItems(frame)
	}
}

// Close tears down the session. Safe to call at any point in the lifecycle
// and idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)

	if t.conn != nil {
		_ = t.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return t.conn.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// writeFrame sends one enveloped JSON frame.
func (t *Transport) writeFrame(event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return domain.ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	frame, err := json.Marshal(wsFrame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

// readFrame reads and decodes one enveloped frame.
func (t *Transport) readFrame(conn *websocket.Conn) (wsFrame, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return wsFrame{}, err
	}

	var frame wsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		// Unparseable frames are dropped, not fatal.
		t.logger.Debug("dropping unparseable frame", slog.Int("bytes", len(raw)))
		return wsFrame{}, nil
	}
	return frame, nil
}

// queueItems decodes any item payloads in the frame and appends them to the
// pending buffer, preserving wire order.
func (t *Transport) queueItems(frame wsFrame) {
	var kind domain.EventKind
	switch frame.Event {
	case eventNewItem:
		kind = domain.KindNew
	case eventUpdatedItem:
		kind = domain.KindUpdate
	case eventDeletedItem:
		kind = domain.KindRemoved
	default:
		return
	}

	now := time.Now()
	for _, item := range decodeItems(frame.Data) {
		if item.MarketName == "" {
			continue
		}
		t.mu.Lock()
		t.pending = append(t.pending, domain.ItemEvent{
			Key:        item.MarketName,
			Price:      item.coins(),
			Kind:       kind,
			ReceivedAt: now,
		})
		t.mu.Unlock()
	}
}

// popPending removes and returns the oldest buffered event.
func (t *Transport) popPending() (domain.ItemEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pending) == 0 {
		return domain.ItemEvent{}, false
	}
	ev := t.pending[0]
	t.pending = t.pending[1:]
	return ev, true
}

// decodeItems accepts both the batched array form and a bare single item.
func decodeItems(data json.RawMessage) []itemPayload {
	var items []itemPayload
	if err := json.Unmarshal(data, &items); err == nil {
		return items
	}

	var single itemPayload
	if err := json.Unmarshal(data, &single); err == nil {
		return []itemPayload{single}
	}
	return nil
}

// pingLoop keeps the socket alive until the session closes.
func (t *Transport) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.Lock()
			conn := t.conn
			t.mu.Unlock()
			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
