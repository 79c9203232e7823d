package chat

import (
	"encoding/json"
)

// Attachment is a link unfurl attached to a message.
type Attachment struct {
	ServiceName string `json:"service_name,omitempty"`
	Title       string `json:"title,omitempty"`
	FromURL     string `json:"from_url,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
}

// URL returns the link the attachment was built from.
func (a Attachment) URL() string {
	if a.FromURL != "" {
		return a.FromURL
	}
	return a.OriginalURL
}

// Event is one frame of the event stream.
//
// Link unfurls usually arrive as a "message_changed" event whose Message holds the edited message and its
// attachments.
type Event struct {
	Type        string       `json:"type"`
	Subtype     string       `json:"subtype,omitempty"`
	Channel     string       `json:"channel,omitempty"`
	User        string       `json:"user,omitempty"`
	BotID       string       `json:"bot_id,omitempty"`
	Text        string       `json:"text,omitempty"`
	TS          string       `json:"ts,omitempty"`
	ThreadTS    string       `json:"thread_ts,omitempty"`
	Message     *Event       `json:"message,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	Raw json.RawMessage `json:"-"` // Frame as received
}

// ParseEvent decodes a frame, keeping the original bytes.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}

// Body returns the message carrying the content: the nested message of an edit, otherwise the event itself.
func (e Event) Body() Event {
	if e.Message != nil {
		return *e.Message
	}
	return e
}

// IsReply reports whether the event, or the message nested in it, belongs to a thread.
func (e Event) IsReply() bool {
	return e.ThreadTS != "" || (e.Message != nil && e.Message.ThreadTS != "")
}

// FromBot reports whether the message was posted by an integration.
func (e Event) FromBot() bool {
	body := e.Body()
	return e.Subtype == "bot_message" || e.BotID != "" || body.Subtype == "bot_message" || body.BotID != ""
}

// Ref points at the message to react to or reply under.
func (e Event) Ref() MessageRef {
	return MessageRef{Channel: e.Channel, Timestamp: e.Body().TS}
}

// MessageRef identifies a message by channel and timestamp.
type MessageRef struct {
	Channel   string
	Timestamp string
}
