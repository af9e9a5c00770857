// Package pushws реализует push-канал поверх websocket.
package pushws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/metrics"
)

// Config задаёт политику переподключения.
type Config struct {
	// Reconnect=false открывает канал ровно один раз.
	Reconnect      bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxElapsed ограничивает серию неудачных попыток; 0 — без ограничения.
	MaxElapsed time.Duration
	Buffer     int
	// Jar передаёт сессионную cookie при рукопожатии.
	Jar http.CookieJar
}

// Channel подключается к бэкенду и превращает события в команды для хранилища уведомлений.
type Channel struct {
	base     *url.URL
	cfg      Config
	dialer   *websocket.Dialer
	commands chan domain.NotificationCommand
	log      zerolog.Logger

	mu    sync.Mutex
	state domain.PushState
}

// New создаёт канал. base — адрес бэкенда со схемой http или https.
func New(base *url.URL, cfg Config, logger zerolog.Logger) *Channel {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	dialer := *websocket.DefaultDialer
	dialer.Jar = cfg.Jar
	return &Channel{
		base:     base,
		cfg:      cfg,
		dialer:   &dialer,
		commands: make(chan domain.NotificationCommand, cfg.Buffer),
		log:      logger.With().Str("component", "pushws").Logger(),
		state:    domain.PushDisconnected,
	}
}

// Commands возвращает очередь команд. Канал не закрывается.
func (c *Channel) Commands() <-chan domain.NotificationCommand {
	return c.commands
}

// State возвращает текущее состояние соединения.
func (c *Channel) State() domain.PushState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setState(next domain.PushState) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	metrics.SetPushState(int(next))
	if prev != next {
		c.log.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("pushws: state")
	}
}

// URL строит адрес сокета: схема ws или wss и параметр userId.
func URL(base *url.URL, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("push url: %w", domain.ErrMissingID)
	}
	u := *base
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("push url: unsupported scheme %q", base.Scheme)
	}
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Decode разбирает конверт {type, post}.
func Decode(raw []byte) (domain.PushEvent, error) {
	var event domain.PushEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return domain.PushEvent{}, fmt.Errorf("decode push event: %w", err)
	}
	return event, nil
}

// Command переводит событие в команду. Неизвестный тип возвращает false.
func Command(event domain.PushEvent) (domain.NotificationCommand, bool) {
	switch event.Type {
	case domain.EventNewPost:
		return domain.Enqueue(event.Post), true
	case domain.EventDeletePost:
		return domain.DismissAuthor(event.Post.AuthorID), true
	default:
		return domain.NotificationCommand{}, false
	}
}

// Run держит соединение для userID до отмены ctx.
// Без Reconnect канал открывается один раз и после обрыва возвращает ErrChannelFailure.
// С Reconnect обрывы повторяются с экспоненциальной задержкой, пока не исчерпан MaxElapsed.
func (c *Channel) Run(ctx context.Context, userID string) error {
	target, err := URL(c.base, userID)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = c.cfg.MaxElapsed
	b.Reset()

	for {
		connected, err := c.session(ctx, target)
		if ctx.Err() != nil {
			return nil
		}
		if !c.cfg.Reconnect {
			return fmt.Errorf("%w: %v", domain.ErrChannelFailure, err)
		}
		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("%w: reconnect budget exhausted: %v", domain.ErrChannelFailure, err)
		}
		c.log.Warn().Err(err).Dur("retry_in", wait).Msg("pushws: reconnecting")
		metrics.PushReconnectsTotal.Inc()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session открывает одно соединение и читает его до обрыва.
// connected сообщает, дошло ли соединение до CONNECTED.
func (c *Channel) session(ctx context.Context, target string) (connected bool, err error) {
	c.setState(domain.PushConnecting)
	start := time.Now()
	ws, _, err := c.dialer.DialContext(ctx, target, nil)
	metrics.ObserveNetworkRequest("pushws", "dial", "ws", start, err)
	if err != nil {
		c.setState(domain.PushError)
		c.setState(domain.PushDisconnected)
		return false, fmt.Errorf("dial: %w", err)
	}
	c.setState(domain.PushConnected)
	c.log.Info().Msg("pushws: connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()
	defer ws.Close()

	for {
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setState(domain.PushClosed)
			} else {
				c.setState(domain.PushError)
			}
			c.setState(domain.PushDisconnected)
			return true, fmt.Errorf("read: %w", err)
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if !c.handle(ctx, message) {
				c.setState(domain.PushClosed)
				c.setState(domain.PushDisconnected)
				return true, ctx.Err()
			}
		default:
			c.log.Debug().Int("type", messageType).Msg("pushws: ignoring frame")
		}
	}
}

// handle декодирует сообщение и ставит команду в очередь. Возвращает false, если ctx завершён.
func (c *Channel) handle(ctx context.Context, message []byte) bool {
	event, err := Decode(message)
	if err != nil {
		c.log.Warn().Err(err).Msg("pushws: dropping malformed message")
		metrics.IncPushEvent("malformed")
		return true
	}
	cmd, ok := Command(event)
	if !ok {
		c.log.Warn().Str("type", string(event.Type)).Msg("pushws: dropping unknown event")
		metrics.IncPushEvent("unknown")
		return true
	}
	metrics.IncPushEvent(string(event.Type))
	select {
	case c.commands <- cmd:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsChannelFailure сообщает, что Run завершился обрывом канала.
func IsChannelFailure(err error) bool {
	return errors.Is(err, domain.ErrChannelFailure)
}
