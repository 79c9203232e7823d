package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tracks"
)

// Kind tells the session loop what to do with an event.
type Kind int

const (
	Ignore Kind = iota
	Submission
	ListPlaylist
	FeatureRequest
	Notice
)

func (k Kind) String() string {
	switch k {
	case Ignore:
		return "ignore"
	case Submission:
		return "submission"
	case ListPlaylist:
		return "list"
	case FeatureRequest:
		return "request"
	case Notice:
		return "notice"
	default:
		return ""
	}
}

const (
	listCommand    = "--list"
	requestCommand = "--request"
)

// Classification is the outcome of [Classifier.Classify].
type Classification struct {
	Kind     Kind
	Ref      MessageRef
	Track    tracks.Track     // Submission
	Services []tracks.Service // ListPlaylist
	Text     string           // FeatureRequest body or Notice text
	Username string
}

type linkRule struct {
	service tracks.Service
	extract func(url string) (string, error)
}

// attachmentServices maps an unfurl's service_name to the variant it produces.
var attachmentServices = map[string]linkRule{
	"YouTube":           {service: tracks.YouTube, extract: YouTubeID},
	"Spotify":           {service: tracks.Spotify, extract: SpotifyID},
	"Google Play Music": {service: tracks.PlayMusic, extract: PlayMusicID},
	"play.google.com":   {service: tracks.PlayMusic, extract: PlayMusicID},
}

// Classifier maps events onto classifications. It keeps no state between events.
type Classifier struct {
	registry *tracks.Registry
	self     string
	logger   *log.Logger
}

// NewClassifier creates a classifier building tracks through registry.
func NewClassifier(registry *tracks.Registry, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Classifier{registry: registry, logger: shared.WithLogger(logger, "component", "classifier")}
}

// SetSelf records the bot's own user id so its messages are never classified.
func (c *Classifier) SetSelf(userID string) {
	c.self = userID
}

// Classify inspects ev. username is the display name of the message's author.
//
// Thread replies are never submissions, and a submission is built from the first attachment whose
// service is known and whose link carries an id. Commands are matched by substring on plain messages.
func (c *Classifier) Classify(ev Event, username string) Classification {
	out := Classification{Kind: Ignore, Ref: ev.Ref(), Username: username}

	if ev.Type != "message" || ev.FromBot() {
		return out
	}
	body := ev.Body()
	if c.self != "" && body.User == c.self {
		return out
	}

	if len(body.Attachments) > 0 && !ev.IsReply() {
		if cl, ok := c.submission(out, body.Attachments); ok {
			return cl
		}
	}

	if ev.Message == nil && ev.Subtype == "" {
		return c.command(out, ev.Text)
	}
	return out
}

func (c *Classifier) submission(out Classification, attachments []Attachment) (Classification, bool) {
	var notice string

	for _, a := range attachments {
		if a.ServiceName == "" {
			continue
		}

		rule, ok := attachmentServices[a.ServiceName]
		if !ok || !c.registry.Has(rule.service) {
			c.logger.Warn("unrecognized service", "service_name", a.ServiceName)
			if notice == "" {
				notice = fmt.Sprintf("I don't know how to handle %s links yet.", a.ServiceName)
			}
			continue
		}

		id, err := rule.extract(a.URL())
		if err != nil {
			c.logger.Warn("unrecognized link", "service", rule.service, "url", a.URL(), "error", err)
			if notice == "" && errors.Is(err, shared.ErrUnrecognizedLinkFormat) {
				notice = fmt.Sprintf("I couldn't find a track id in %s.", a.URL())
			}
			continue
		}

		track, err := c.registry.New(rule.service, id, a.Title, out.Username)
		if err != nil {
			c.logger.Error("could not build track", "service", rule.service, "error", err)
			continue
		}

		out.Kind = Submission
		out.Track = track
		return out, true
	}

	if notice != "" {
		out.Kind = Notice
		out.Text = notice
		return out, true
	}
	return out, false
}

func (c *Classifier) command(out Classification, text string) Classification {
	switch {
	case strings.Contains(text, listCommand):
		lower := strings.ToLower(text)
		for _, svc := range c.registry.Services() {
			if strings.Contains(lower, string(svc)) {
				out.Services = append(out.Services, svc)
			}
		}
		if len(out.Services) > 0 {
			out.Kind = ListPlaylist
		}
	case strings.HasPrefix(text, requestCommand):
		body := strings.TrimSpace(strings.TrimPrefix(text, requestCommand))
		if body != "" {
			out.Kind = FeatureRequest
			out.Text = body
		}
	}
	return out
}
