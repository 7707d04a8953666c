package protocol

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeErrorForbiddenVariants(t *testing.T) {
	t.Run("bare string is a plain rejection", func(t *testing.T) {
		err := decodeError(http.StatusForbidden, []byte(`"Out of licenses"`))
		var plain *ErrorResponse
		require.ErrorAs(t, err, &plain)
		assert.Equal(t, "Out of licenses", plain.Message)
	})

	t.Run("invalid token message maps to the sentinel", func(t *testing.T) {
		err := decodeError(http.StatusForbidden, []byte(`"Invalid token"`))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("guest_pin means pin required", func(t *testing.T) {
		err := decodeError(http.StatusForbidden, []byte(`{"guest_pin": "required", "pin": "required"}`))
		var pin *RequiredPinError
		require.ErrorAs(t, err, &pin)
		assert.True(t, pin.GuestPin)

		err = decodeError(http.StatusForbidden, []byte(`{"guest_pin": "none", "pin": "required"}`))
		require.ErrorAs(t, err, &pin)
		assert.False(t, pin.GuestPin)
	})

	t.Run("idp list means sso required", func(t *testing.T) {
		body := `{"idp": [{"name": "corp", "uuid": "u1"}, {"name": "backup", "uuid": "u2"}]}`
		err := decodeError(http.StatusForbidden, []byte(body))
		var sso *RequiredSSOError
		require.ErrorAs(t, err, &sso)
		require.Len(t, sso.IDPs, 2)
		assert.Equal(t, "corp", sso.IDPs[0].Name)
	})

	t.Run("redirect_url means sso redirect", func(t *testing.T) {
		body := `{"redirect_url": "https://idp.example.com/login", "redirect_idp": {"name": "corp", "uuid": "u1"}}`
		err := decodeError(http.StatusForbidden, []byte(body))
		var redirect *SSORedirectError
		require.ErrorAs(t, err, &redirect)
		assert.Equal(t, "https://idp.example.com/login", redirect.URL)
		assert.Equal(t, "corp", redirect.IDP.Name)
	})

	t.Run("envelope-wrapped result is unwrapped first", func(t *testing.T) {
		body := `{"status": "failed", "result": {"guest_pin": "required"}}`
		err := decodeError(http.StatusForbidden, []byte(body))
		var pin *RequiredPinError
		require.ErrorAs(t, err, &pin)
	})
}

func TestDecodeErrorNotFoundVariants(t *testing.T) {
	t.Run("string body means no such conference", func(t *testing.T) {
		err := decodeError(http.StatusNotFound, []byte(`"Neither conference nor gateway found"`))
		assert.ErrorIs(t, err, ErrNoSuchConference)
	})

	t.Run("registration message is its own error", func(t *testing.T) {
		err := decodeError(http.StatusNotFound, []byte(`"No such registration"`))
		assert.ErrorIs(t, err, ErrNoSuchRegistration)
	})

	t.Run("empty or non-string body means no such node", func(t *testing.T) {
		assert.ErrorIs(t, decodeError(http.StatusNotFound, nil), ErrNoSuchNode)
		assert.ErrorIs(t, decodeError(http.StatusNotFound, []byte("<html>404</html>")), ErrNoSuchNode)
	})
}

func TestDecodeErrorOther(t *testing.T) {
	assert.ErrorIs(t, decodeError(http.StatusUnauthorized, nil), ErrInvalidToken)

	err := decodeError(http.StatusBadGateway, []byte("upstream broke"))
	var unexpected *UnexpectedStatusError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, http.StatusBadGateway, unexpected.Code)
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(ErrInvalidToken))
	assert.True(t, Terminal(ErrNoSuchConference))
	assert.True(t, Terminal(ErrNoSuchNode))
	assert.True(t, Terminal(&RequiredPinError{}))
	assert.True(t, Terminal(&RequiredSSOError{}))
	assert.True(t, Terminal(&SSORedirectError{}))

	assert.False(t, Terminal(errors.New("connection refused")))
	assert.False(t, Terminal(&UnexpectedStatusError{Code: 502}))
	assert.False(t, Terminal(&ErrorResponse{Message: "busy"}))
}
