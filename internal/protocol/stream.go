package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EventSource is one open push-stream subscription. Next blocks on the
// underlying connection; cancel the request context or Close the source
// to unblock it. Not safe for concurrent use.
type EventSource struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Events opens the long-lived push stream for this conference. The caller
// owns the returned source and must Close it.
func (c *Client) Events(ctx context.Context) (*EventSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"events", nil)
	if err != nil {
		return nil, fmt.Errorf("events: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if token := c.tokens.TokenValue(); token != "" {
		req.Header.Set("token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, decodeError(resp.StatusCode, raw)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	c.log.Debug().Str("module", "protocol").Msg("push stream open")
	return &EventSource{body: resp.Body, scanner: scanner}, nil
}

// Next returns the next decoded event. It returns io.EOF when the server
// ends the stream cleanly and the transport error otherwise. Events with
// an unrecognized type come back as UnknownEvent.
func (s *EventSource) Next() (Event, error) {
	var eventType string
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			if eventType == "" {
				continue // stray blank or comment-only block
			}
			return DecodeEvent(eventType, []byte(data.String()))
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			// last-event-id is not used for resumption by this protocol
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *EventSource) Close() error {
	return s.body.Close()
}
