package events

import "encoding/json"

const (
	ItemTypeMessage = "message"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type ContentType string

const (
	ContentInputText  ContentType = "input_text"
	ContentInputAudio ContentType = "input_audio"
	ContentText       ContentType = "text"
	ContentAudio      ContentType = "audio"
)

// ConversationItem is one message/turn of a conversation. Its formatted
// projection is derived from Content whenever the item is encoded.
type ConversationItem struct {
	ID      string        `json:"id"`
	Object  string        `json:"object,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Status  string        `json:"status,omitempty"`
	Content []ContentPart `json:"content"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type ContentPart struct {
	Type       ContentType `json:"type"`
	Text       string      `json:"text,omitempty"`
	Audio      string      `json:"audio,omitempty"` // base64
	Transcript string      `json:"transcript,omitempty"`
}

type Formatted struct {
	Text       string `json:"text,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Formatted scans the content of a message item. A later part of the same
// kind overrides an earlier one.
func (i *ConversationItem) Formatted() Formatted {
	var f Formatted
	if i.Type != ItemTypeMessage {
		return f
	}
	for _, c := range i.Content {
		switch c.Type {
		case ContentInputText, ContentText:
			f.Text = c.Text
		case ContentInputAudio, ContentAudio:
			f.Audio = c.Audio
			f.Transcript = c.Transcript
		}
	}
	return f
}

func (i ConversationItem) MarshalJSON() ([]byte, error) {
	type item ConversationItem
	content := i.Content
	if content == nil {
		content = []ContentPart{}
	}
	out := item(i)
	out.Content = content
	return json.Marshal(struct {
		item
		Formatted Formatted `json:"formatted"`
	}{
		item:      out,
		Formatted: i.Formatted(),
	})
}
