package protocol

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvc/confclient/internal/domain"
)

func TestEventSourceDecodesStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/client/v2/conferences/demo/events", func(c *gin.Context) {
		assert.Equal(t, "text/event-stream", c.GetHeader("Accept"))
		assert.Equal(t, "tok", c.GetHeader("token"))
		c.Header("Content-Type", "text/event-stream")
		events := []sse.Event{
			{Event: "participant_sync_begin", Data: "{}"},
			{Event: "participant_create", Data: `{"uuid": "p1", "display_name": "Alice", "role": "chair"}`},
			{Event: "participant_sync_end", Data: "{}"},
			{Event: "shiny_new_thing", Data: `{"whatever": 1}`},
			{Event: "message_received", Data: `{"uuid": "p1", "origin": "Alice", "type": "text/plain", "payload": "hello", "direct": true}`},
		}
		for _, ev := range events {
			require.NoError(t, sse.Encode(c.Writer, ev))
		}
	})

	c := testClient(t, r, "tok")
	src, err := c.Events(context.Background())
	require.NoError(t, err)
	defer src.Close()

	ev, err := src.Next()
	require.NoError(t, err)
	assert.IsType(t, ParticipantSyncBegin{}, ev)

	ev, err = src.Next()
	require.NoError(t, err)
	create, ok := ev.(ParticipantCreate)
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("p1"), create.Participant.ID)
	assert.Equal(t, "Alice", create.Participant.DisplayName)
	assert.Equal(t, domain.RoleHost, create.Participant.Role)

	ev, err = src.Next()
	require.NoError(t, err)
	assert.IsType(t, ParticipantSyncEnd{}, ev)

	ev, err = src.Next()
	require.NoError(t, err)
	unknown, ok := ev.(UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "shiny_new_thing", unknown.Type)

	ev, err = src.Next()
	require.NoError(t, err)
	msg, ok := ev.(MessageReceived)
	require.True(t, ok)
	assert.Equal(t, "hello", msg.Payload)
	assert.True(t, msg.Direct)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventSourceSkipsKeepAlives(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/client/v2/conferences/demo/events", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Writer.WriteString(": keep-alive\n\n")
		c.Writer.WriteString("id: 7\nevent: presentation_stop\ndata: {}\n\n")
	})

	c := testClient(t, r, "tok")
	src, err := c.Events(context.Background())
	require.NoError(t, err)
	defer src.Close()

	ev, err := src.Next()
	require.NoError(t, err)
	assert.IsType(t, PresentationStop{}, ev)
}

func TestEventsOpenFailureIsTyped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/client/v2/conferences/demo/events", func(c *gin.Context) {
		c.Data(http.StatusUnauthorized, "application/json", nil)
	})

	c := testClient(t, r, "stale")
	_, err := c.Events(context.Background())
	assert.ErrorIs(t, err, ErrInvalidToken)
}
