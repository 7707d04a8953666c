package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoSuchConference   = errors.New("no such conference")
	ErrNoSuchNode         = errors.New("no such node")
	ErrNoSuchRegistration = errors.New("no such registration")
)

// IdentityProvider is one SSO option offered by the node.
type IdentityProvider struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// RequiredPinError reports that the conference is pin-protected.
// GuestPin is true when guests need a pin too, not only hosts.
type RequiredPinError struct {
	GuestPin bool
}

func (e *RequiredPinError) Error() string {
	if e.GuestPin {
		return "pin required for hosts and guests"
	}
	return "pin required for hosts"
}

// RequiredSSOError reports that the node wants the participant to
// authenticate against one of the listed identity providers.
type RequiredSSOError struct {
	IDPs []IdentityProvider
}

func (e *RequiredSSOError) Error() string {
	names := make([]string, 0, len(e.IDPs))
	for _, idp := range e.IDPs {
		names = append(names, idp.Name)
	}
	return "sso required: " + strings.Join(names, ", ")
}

// SSORedirectError carries the URL the participant must visit to complete
// an SSO exchange, and the provider it belongs to.
type SSORedirectError struct {
	URL string
	IDP IdentityProvider
}

func (e *SSORedirectError) Error() string {
	return "sso redirect to " + e.URL
}

// ErrorResponse is a plain protocol-level rejection with a server message.
type ErrorResponse struct {
	Message string
}

func (e *ErrorResponse) Error() string { return e.Message }

// UnexpectedStatusError covers any response code the protocol does not
// define a meaning for.
type UnexpectedStatusError struct {
	Code int
	Body []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Terminal reports whether err is a protocol error that retrying cannot
// fix without external intervention (re-authentication, different alias).
func Terminal(err error) bool {
	if errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrNoSuchConference) ||
		errors.Is(err, ErrNoSuchNode) ||
		errors.Is(err, ErrNoSuchRegistration) {
		return true
	}
	var pin *RequiredPinError
	var sso *RequiredSSOError
	var redirect *SSORedirectError
	return errors.As(err, &pin) || errors.As(err, &sso) || errors.As(err, &redirect)
}

// forbiddenBody is the superset of shapes a 403 body can take. The server
// reuses the status code for pin, SSO and plain rejections, so the body
// structure is the only discriminator.
type forbiddenBody struct {
	GuestPin    string             `json:"guest_pin"`
	PinStatus   string             `json:"pin"`
	IDPs        []IdentityProvider `json:"idp"`
	RedirectURL string             `json:"redirect_url"`
	RedirectIDP *IdentityProvider  `json:"redirect_idp"`
}

// decodeError maps a non-success HTTP response to a typed error.
//
// 403 bodies come in several shapes: a bare JSON string is a plain
// rejection, an object is sniffed for guest_pin / idp / redirect_url.
// 404 bodies are either a string ("no such conference") or anything else,
// including nothing, which means the node itself is wrong.
func decodeError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrInvalidToken
	case http.StatusForbidden:
		return decodeForbidden(body)
	case http.StatusNotFound:
		var msg string
		if err := json.Unmarshal(body, &msg); err != nil {
			return ErrNoSuchNode
		}
		if strings.Contains(strings.ToLower(msg), "registration") {
			return ErrNoSuchRegistration
		}
		return ErrNoSuchConference
	default:
		return &UnexpectedStatusError{Code: status, Body: body}
	}
}

func decodeForbidden(body []byte) error {
	var env struct {
		Result json.RawMessage `json:"result"`
	}
	raw := body
	if err := json.Unmarshal(body, &env); err == nil && len(env.Result) > 0 {
		raw = env.Result
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		if strings.Contains(strings.ToLower(msg), "token") {
			return ErrInvalidToken
		}
		return &ErrorResponse{Message: msg}
	}

	var fb forbiddenBody
	if err := json.Unmarshal(raw, &fb); err != nil {
		return &ErrorResponse{Message: string(body)}
	}
	switch {
	case fb.RedirectURL != "":
		e := &SSORedirectError{URL: fb.RedirectURL}
		if fb.RedirectIDP != nil {
			e.IDP = *fb.RedirectIDP
		}
		return e
	case len(fb.IDPs) > 0:
		return &RequiredSSOError{IDPs: fb.IDPs}
	case fb.GuestPin != "":
		return &RequiredPinError{GuestPin: fb.GuestPin == "required"}
	default:
		return &ErrorResponse{Message: string(body)}
	}
}
