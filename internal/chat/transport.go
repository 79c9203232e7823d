package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/slack-go/slack"
)

// Transport is the chat connection the bot runs on.
type Transport interface {
	// Connect opens the event stream and returns the bot's own user id.
	Connect(ctx context.Context) (string, error)
	// Read blocks for the next batch of events. A lost connection is reported as [shared.ErrTransportDropped].
	Read(ctx context.Context) ([]Event, error)
	Close() error

	Post(ctx context.Context, channel, text string) error
	Reply(ctx context.Context, ref MessageRef, text string) error
	React(ctx context.Context, ref MessageRef, name string) error
	Username(ctx context.Context, userID string) (string, error)
	Upload(ctx context.Context, channel, filename, content string) error
}

// SlackTransport implements [Transport] against Slack.
type SlackTransport struct {
	api    *slack.Client
	dialer *websocket.Dialer
	logger *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	stop func() bool
}

// NewSlackTransport creates a transport authenticated with a bot token. apiURL overrides the Web API
// endpoint when non-empty and must end with a slash.
func NewSlackTransport(cfg shared.SlackConfig, httpClient *http.Client, logger *log.Logger) (*SlackTransport, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: slack token", shared.ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	opts := []slack.Option{slack.OptionHTTPClient(httpClient)}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}

	return &SlackTransport{
		api:    slack.New(cfg.Token, opts...),
		dialer: websocket.DefaultDialer,
		logger: shared.WithLogger(logger, "component", "slack"),
	}, nil
}

func (s *SlackTransport) Connect(ctx context.Context) (string, error) {
	info, url, err := s.api.ConnectRTMContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: rtm.connect: %w", shared.ErrTransportDropped, err)
	}

	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: dial: %w", shared.ErrTransportDropped, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.conn = conn
	s.stop = context.AfterFunc(ctx, func() { conn.Close() })

	var self string
	if info != nil && info.User != nil {
		self = info.User.ID
		s.logger.Info("connected", "user", info.User.Name, "id", self)
	}
	return self, nil
}

func (s *SlackTransport) Read(ctx context.Context) ([]Event, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("%w: not connected", shared.ErrTransportDropped)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrTransportDropped, err)
	}

	ev, err := ParseEvent(data)
	if err != nil {
		s.logger.Warn("undecodable frame", "error", err, "size", len(data))
		return nil, nil
	}
	return []Event{ev}, nil
}

func (s *SlackTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *SlackTransport) closeLocked() error {
	if s.conn == nil {
		return nil
	}
	if s.stop != nil {
		s.stop()
	}
	err := s.conn.Close()
	s.conn, s.stop = nil, nil
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (s *SlackTransport) Post(ctx context.Context, channel, text string) error {
	if _, _, err := s.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("%w: chat.postMessage: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

func (s *SlackTransport) Reply(ctx context.Context, ref MessageRef, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, ref.Channel, slack.MsgOptionText(text, false), slack.MsgOptionTS(ref.Timestamp))
	if err != nil {
		return fmt.Errorf("%w: chat.postMessage: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

func (s *SlackTransport) React(ctx context.Context, ref MessageRef, name string) error {
	if err := s.api.AddReactionContext(ctx, name, slack.NewRefToMessage(ref.Channel, ref.Timestamp)); err != nil {
		return fmt.Errorf("%w: reactions.add %s: %w", shared.ErrAPIRequest, name, err)
	}
	return nil
}

func (s *SlackTransport) Username(ctx context.Context, userID string) (string, error) {
	user, err := s.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: users.info: %w", shared.ErrAPIRequest, err)
	}
	return user.Name, nil
}

func (s *SlackTransport) Upload(ctx context.Context, channel, filename, content string) error {
	_, err := s.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:  channel,
		Content:  content,
		FileSize: len(content),
		Filename: filename,
		Title:    filename,
	})
	if err != nil {
		return fmt.Errorf("%w: files.upload: %w", shared.ErrAPIRequest, err)
	}
	return nil
}
