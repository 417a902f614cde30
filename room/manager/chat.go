package manager

import (
	"encoding/json"
	"strings"

	"github.com/imtaco/bedrud-client/internal/errors"
)

const (
	chatType          = "chat"
	unknownSender     = "Unknown"
	defaultLocalName  = "You"
	errNotChatPayload = errors.Code("not a chat payload")
)

type chatPayload struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	SenderName string `json:"senderName"`
}

func encodeChat(text, sender string) ([]byte, error) {
	return json.Marshal(chatPayload{Type: chatType, Message: text, SenderName: sender})
}

// decodeChat returns the message text and the sender name the payload
// carried, which may be empty.
func decodeChat(data []byte) (text, sender string, err error) {
	var raw struct {
		Type       string  `json:"type"`
		Message    *string `json:"message"`
		SenderName string  `json:"senderName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", "", errors.Wrap(errNotChatPayload, err, "decode")
	}
	if raw.Type != chatType {
		return "", "", errors.Newf(errNotChatPayload, "type %q", raw.Type)
	}
	if raw.Message == nil {
		return "", "", errors.New(errNotChatPayload, "missing message")
	}
	return *raw.Message, strings.TrimSpace(raw.SenderName), nil
}
