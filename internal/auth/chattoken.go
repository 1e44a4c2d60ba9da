// Package auth implements signed chat tokens for the public widget API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidToken is returned for malformed or tampered chat tokens.
var ErrInvalidToken = errors.New("invalid chat token")

// ChatTokenCodec signs conversation IDs with HMAC-SHA256 so chat tokens
// cannot be forged from a guessed conversation ID. Token format is
// "<conversationID>_<base64url signature>".
type ChatTokenCodec struct {
	secret []byte
}

// NewChatTokenCodec creates a codec with the given signing secret.
func NewChatTokenCodec(secret string) *ChatTokenCodec {
	return &ChatTokenCodec{secret: []byte(secret)}
}

func (c *ChatTokenCodec) sign(conversationID string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(conversationID))
	return mac.Sum(nil)
}

// Encode produces a signed chat token for a conversation ID.
func (c *ChatTokenCodec) Encode(conversationID string) string {
	sig := base64.RawURLEncoding.EncodeToString(c.sign(conversationID))
	return conversationID + "_" + sig
}

// Decode validates a chat token and returns the conversation ID it names.
func (c *ChatTokenCodec) Decode(token string) (string, error) {
	conversationID, encoded, ok := strings.Cut(token, "_")
	if !ok || conversationID == "" {
		return "", ErrInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal(sig, c.sign(conversationID)) {
		return "", ErrInvalidToken
	}

	return conversationID, nil
}
