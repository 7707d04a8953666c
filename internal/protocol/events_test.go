package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvc/confclient/internal/domain"
)

func TestDecodeEventStage(t *testing.T) {
	ev, err := DecodeEvent("stage", []byte(`[{"participant_uuid": "p1", "vad": 100}, {"participant_uuid": "p2", "vad": 0}]`))
	require.NoError(t, err)
	stage, ok := ev.(Stage)
	require.True(t, ok)
	require.Len(t, stage.Speakers, 2)
	assert.Equal(t, domain.ParticipantID("p1"), stage.Speakers[0].ID)
	assert.Equal(t, 100, stage.Speakers[0].VAD)
}

func TestDecodeEventConferenceUpdateTriState(t *testing.T) {
	ev, err := DecodeEvent("conference_update", []byte(`{"locked": true, "guests_muted": true}`))
	require.NoError(t, err)
	cu := ev.(ConferenceUpdate)
	assert.True(t, cu.Locked)
	assert.True(t, cu.AllGuestsMuted)
	assert.Nil(t, cu.GuestsCanUnmute, "omitted policy must stay unreported, not default to false")

	ev, err = DecodeEvent("conference_update", []byte(`{"guests_can_unmute": false}`))
	require.NoError(t, err)
	cu = ev.(ConferenceUpdate)
	require.NotNil(t, cu.GuestsCanUnmute)
	assert.False(t, *cu.GuestsCanUnmute)
}

func TestDecodeEventRefer(t *testing.T) {
	ev, err := DecodeEvent("refer", []byte(`{"alias": "standup", "token": "one-time"}`))
	require.NoError(t, err)
	refer := ev.(Refer)
	assert.Equal(t, domain.ConferenceAlias("standup"), refer.Alias)
	assert.Equal(t, "one-time", refer.Token)
}

func TestDecodeEventUnknownTypeNeverFails(t *testing.T) {
	ev, err := DecodeEvent("hologram_start", []byte(`this is not even json`))
	require.NoError(t, err)
	assert.Equal(t, UnknownEvent{Type: "hologram_start"}, ev)
}

func TestDecodeEventBadPayloadOnKnownTypeFails(t *testing.T) {
	_, err := DecodeEvent("participant_create", []byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeEventParticipantFlags(t *testing.T) {
	data := []byte(`{
		"uuid": "p1", "display_name": "Bob", "overlay_text": "Bob (sales)",
		"role": "guest", "service_type": "conference",
		"is_audio_muted": true, "is_client_muted": false, "is_video_muted": true,
		"is_presenting": true, "buzz_time": 1700000000.5, "spotlight": 0,
		"mute_supported": true, "transfer_supported": false, "disconnect_supported": true,
		"call_tag": "room-system", "parent_uuid": "p0"
	}`)
	ev, err := DecodeEvent("participant_update", data)
	require.NoError(t, err)
	p := ev.(ParticipantUpdate).Participant
	assert.Equal(t, domain.RoleGuest, p.Role)
	assert.True(t, p.AudioMuted)
	assert.False(t, p.ClientAudioMuted)
	assert.True(t, p.VideoMuted)
	assert.True(t, p.Presenting)
	assert.True(t, p.HandRaised())
	assert.False(t, p.Spotlit())
	assert.True(t, p.CanMute)
	assert.False(t, p.CanTransfer)
	assert.Equal(t, domain.ParticipantID("p0"), p.ParentID)
}
