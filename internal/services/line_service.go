package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// DefaultLineBroadcastURL is the Messaging API broadcast endpoint
const DefaultLineBroadcastURL = "https://api.line.me/v2/bot/message/broadcast"

const (
	lineChannelName   = "line"
	errorBodyMaxBytes = 512
)

type lineTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type lineBroadcastRequest struct {
	Messages []lineTextMessage `json:"messages"`
}

// LineService broadcasts plain-text messages to every follower of the
// configured LINE Official Account.
type LineService struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

// NewLineService creates a broadcaster; an empty endpoint uses DefaultLineBroadcastURL
func NewLineService(endpoint, accessToken string) *LineService {
	if endpoint == "" {
		endpoint = DefaultLineBroadcastURL
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &LineService{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

func (s *LineService) Name() string {
	return lineChannelName
}

// Send posts one text message. Any non-2xx answer is an error carrying the
// status code and the start of the response body.
func (s *LineService) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(lineBroadcastRequest{
		Messages: []lineTextMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal broadcast payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create broadcast request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "broadcast request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxBytes))
		return errors.Errorf("broadcast returned status %d: %s", resp.StatusCode, trimInvalidUTF8(body))
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// trimInvalidUTF8 drops a rune cut in half by the body limit
func trimInvalidUTF8(b []byte) string {
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}
