// Package protocol implements the request/response and push-stream surface
// of the conferencing node: typed calls under a common base path, the
// success envelope, and the typed errors hidden behind ambiguous status
// codes.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/domain"
)

// TokenSource supplies the current session credential for the token
// request header. An empty value means the call is unauthenticated
// (the initial request_token call).
type TokenSource interface {
	TokenValue() string
}

// Client talks to one conference on one node. All paths are relative to
// {node}/api/client/v2/conferences/{alias}/.
type Client struct {
	http   *http.Client
	node   string
	base   string
	tokens TokenSource
	log    zerolog.Logger
}

func NewClient(hc *http.Client, node string, alias domain.ConferenceAlias, tokens TokenSource, logger zerolog.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	node = strings.TrimSuffix(node, "/")
	return &Client{
		http:   hc,
		node:   node,
		base:   node + "/api/client/v2/conferences/" + string(alias) + "/",
		tokens: tokens,
		log:    logger,
	}
}

// Node returns the node URL this client is bound to.
func (c *Client) Node() string { return c.node }

// Seconds decodes a duration the server serializes as seconds, either as
// a JSON number or as a quoted string.
type Seconds time.Duration

func (s *Seconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse seconds %q: %w", raw, err)
	}
	*s = Seconds(time.Duration(f * float64(time.Second)))
	return nil
}

func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// TokenResponse is the result of request_token and refresh_token.
type TokenResponse struct {
	Token          string               `json:"token"`
	Expires        Seconds              `json:"expires"`
	ParticipantID  domain.ParticipantID `json:"participant_uuid"`
	ParentID       domain.ParticipantID `json:"parent_uuid"`
	DisplayName    string               `json:"display_name"`
	Role           domain.Role          `json:"role"`
	ServiceType    domain.ServiceType   `json:"service_type"`
	Version        string               `json:"version"`
	ConferenceName string               `json:"conference_name"`
	ClientMute     bool                 `json:"client_mute_supported"`
}

// RequestTokenOptions shape the initial join. Pin travels in its own
// header, never in the body. IncomingToken carries the one-time token of
// a conference transfer.
type RequestTokenOptions struct {
	DisplayName   string
	Pin           string
	IncomingToken string
	CallTag       string
}

func (c *Client) RequestToken(ctx context.Context, opts RequestTokenOptions) (*TokenResponse, error) {
	body := map[string]string{"display_name": opts.DisplayName}
	if opts.CallTag != "" {
		body["call_tag"] = opts.CallTag
	}
	if opts.IncomingToken != "" {
		body["token"] = opts.IncomingToken
	}
	var resp TokenResponse
	err := c.call(ctx, "request_token", body, &resp, opts.Pin)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RefreshToken(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "refresh_token", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ReleaseToken(ctx context.Context) error {
	return c.post(ctx, "release_token", nil, nil)
}

// CallRequest starts or updates a media call.
type CallRequest struct {
	CallType           string `json:"call_type"`
	SDP                string `json:"sdp"`
	PresentationInMain bool   `json:"presentation_in_main"`
	FECC               bool   `json:"fecc"`
}

type CallResponse struct {
	CallID       domain.CallID `json:"call_uuid"`
	SDP          string        `json:"sdp"`
	OfferIgnored bool          `json:"offer_ignored"`
}

func (c *Client) Calls(ctx context.Context, req CallRequest) (*CallResponse, error) {
	var resp CallResponse
	if err := c.post(ctx, "calls", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateCall(ctx context.Context, id domain.CallID, sdp string) (*CallResponse, error) {
	var resp CallResponse
	err := c.post(ctx, "calls/"+string(id)+"/update", map[string]string{"sdp": sdp}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AckRequest acknowledges a call. Zero value is a plain ack; SDP carries
// the local answer; OfferIgnored tells the server the prior instruction
// was deliberately not acted on.
type AckRequest struct {
	SDP          string `json:"sdp,omitempty"`
	OfferIgnored bool   `json:"offer_ignored,omitempty"`
}

func (c *Client) AckCall(ctx context.Context, id domain.CallID, req AckRequest) error {
	return c.post(ctx, "calls/"+string(id)+"/ack", req, nil)
}

type CandidateRequest struct {
	Candidate string `json:"candidate"`
	Mid       string `json:"mid"`
	UFrag     string `json:"ufrag"`
	Pwd       string `json:"pwd"`
}

func (c *Client) SendCandidate(ctx context.Context, id domain.CallID, req CandidateRequest) error {
	return c.post(ctx, "calls/"+string(id)+"/new_candidate", req, nil)
}

func (c *Client) DTMF(ctx context.Context, id domain.CallID, digits string) error {
	return c.post(ctx, "calls/"+string(id)+"/dtmf", map[string]string{"digits": digits}, nil)
}

func (c *Client) DisconnectCall(ctx context.Context, id domain.CallID) error {
	return c.post(ctx, "calls/"+string(id)+"/disconnect", nil, nil)
}

// Participant actions. The server answers all of them with a bare
// success envelope; authorization failures surface as typed errors.

func (c *Client) Mute(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "mute", nil)
}

func (c *Client) Unmute(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "unmute", nil)
}

func (c *Client) ClientMute(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "client_mute", nil)
}

func (c *Client) ClientUnmute(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "client_unmute", nil)
}

func (c *Client) MuteVideo(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "video_muted", nil)
}

func (c *Client) UnmuteVideo(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "video_unmuted", nil)
}

func (c *Client) Spotlight(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "spotlighton", nil)
}

func (c *Client) Unspotlight(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "spotlightoff", nil)
}

func (c *Client) RaiseHand(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "buzz", nil)
}

func (c *Client) LowerHand(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "clearbuzz", nil)
}

func (c *Client) SetRole(ctx context.Context, id domain.ParticipantID, role domain.Role) error {
	return c.participant(ctx, id, "role", map[string]string{"role": string(role)})
}

func (c *Client) Admit(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "unlock", nil)
}

func (c *Client) DisconnectParticipant(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "disconnect", nil)
}

func (c *Client) TakeFloor(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "take_floor", nil)
}

func (c *Client) ReleaseFloor(ctx context.Context, id domain.ParticipantID) error {
	return c.participant(ctx, id, "release_floor", nil)
}

// Conference-wide actions.

func (c *Client) Lock(ctx context.Context) error   { return c.post(ctx, "lock", nil, nil) }
func (c *Client) Unlock(ctx context.Context) error { return c.post(ctx, "unlock", nil, nil) }

func (c *Client) MuteGuests(ctx context.Context) error {
	return c.post(ctx, "muteguests", nil, nil)
}

func (c *Client) UnmuteGuests(ctx context.Context) error {
	return c.post(ctx, "unmuteguests", nil, nil)
}

func (c *Client) SetGuestsCanUnmute(ctx context.Context, allowed bool) error {
	return c.post(ctx, "set_guests_can_unmute", map[string]bool{"setting": allowed}, nil)
}

func (c *Client) DisconnectAll(ctx context.Context) error {
	return c.post(ctx, "disconnect", nil, nil)
}

func (c *Client) LowerAllHands(ctx context.Context) error {
	return c.post(ctx, "clearallbuzz", nil, nil)
}

// SendMessage posts one chat message, to the whole conference when to is
// empty, to one participant otherwise. The boolean result mirrors the
// server's accepted/rejected verdict; false is not a transport failure.
func (c *Client) SendMessage(ctx context.Context, to domain.ParticipantID, msgType, payload string) (bool, error) {
	path := "message"
	if to != "" {
		path = "participants/" + string(to) + "/message"
	}
	body := map[string]string{"type": msgType, "payload": payload}
	var result bool
	if err := c.post(ctx, path, body, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (c *Client) PreferredAspectRatio(ctx context.Context, ratio float32) error {
	return c.post(ctx, "preferred_aspect_ratio", map[string]float32{"aspect_ratio": ratio}, nil)
}

func (c *Client) participant(ctx context.Context, id domain.ParticipantID, action string, body any) error {
	return c.post(ctx, "participants/"+string(id)+"/"+action, body, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, path, in, out, "")
}

// call performs one POST under the base path. The current token travels
// in the token header; pin-protected token requests add a pin header.
// out, when non-nil, receives the envelope's result payload.
func (c *Client) call(ctx context.Context, path string, in, out any, pin string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Request-Id", uuid.NewString())
	if token := c.tokens.TokenValue(); token != "" {
		req.Header.Set("token", token)
	}
	if pin != "" {
		req.Header.Set("pin", pin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		err := decodeError(resp.StatusCode, raw)
		c.log.Debug().Str("module", "protocol").Str("path", path).Int("status", resp.StatusCode).Err(err).Msg("call failed")
		return err
	}

	var envelope struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s: decode envelope: %w", path, err)
	}
	if envelope.Status != "success" {
		return &ErrorResponse{Message: string(envelope.Result)}
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", path, err)
		}
	}
	return nil
}
