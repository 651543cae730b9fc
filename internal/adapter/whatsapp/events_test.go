package whatsapp

import (
	"errors"
	"testing"

	"github.com/pscheid92/wagate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func TestTranslateEvent_Lifecycle(t *testing.T) {
	tests := []struct {
		name string
		evt  any
		want any
	}{
		{"pair success", &events.PairSuccess{}, domain.AuthenticatedEvent{}},
		{"connected", &events.Connected{}, domain.ReadyEvent{}},
		{"stream replaced", &events.StreamReplaced{}, domain.DisconnectedEvent{Reason: "replaced by another connection"}},
		{"disconnected", &events.Disconnected{}, domain.DisconnectedEvent{Reason: "connection lost"}},
		{"outdated", &events.ClientOutdated{}, domain.AuthFailureEvent{Reason: "client outdated"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateEvent(tt.evt)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestTranslateEvent_LoggedOutIsDisconnect(t *testing.T) {
	got := translateEvent(&events.LoggedOut{})
	require.Len(t, got, 1)
	assert.IsType(t, domain.DisconnectedEvent{}, got[0])
}

func TestTranslateEvent_ConnectFailureIsAuthFailure(t *testing.T) {
	got := translateEvent(&events.ConnectFailure{Message: "bad"})
	require.Len(t, got, 1)
	failure, ok := got[0].(domain.AuthFailureEvent)
	require.True(t, ok)
	assert.Contains(t, failure.Reason, "bad")
}

func TestTranslateEvent_GroupMembership(t *testing.T) {
	group := types.NewJID("120363000000000001", types.GroupServer)
	alice := types.NewJID("5511999990000", types.DefaultUserServer)
	bob := types.NewJID("5511988880000", types.DefaultUserServer)

	got := translateEvent(&events.GroupInfo{JID: group, Join: []types.JID{alice}, Leave: []types.JID{bob}})

	assert.Equal(t, []domain.ClientEvent{
		domain.GroupMembershipEvent{GroupID: "120363000000000001@g.us", Participant: "5511999990000@s.whatsapp.net", Joined: true},
		domain.GroupMembershipEvent{GroupID: "120363000000000001@g.us", Participant: "5511988880000@s.whatsapp.net", Joined: false},
	}, got)
}

func TestTranslateEvent_Ignored(t *testing.T) {
	assert.Empty(t, translateEvent(&events.Receipt{}))
	assert.Empty(t, translateEvent("unrelated"))
}

func TestTranslateQR(t *testing.T) {
	evt, ok := translateQR(whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@abc"})
	require.True(t, ok)
	assert.Equal(t, domain.PairingCodeEvent{Code: "2@abc"}, evt)

	_, ok = translateQR(whatsmeow.QRChannelSuccess)
	assert.False(t, ok)

	evt, ok = translateQR(whatsmeow.QRChannelTimeout)
	require.True(t, ok)
	assert.IsType(t, domain.DisconnectedEvent{}, evt)

	evt, ok = translateQR(whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventError, Error: errors.New("boom")})
	require.True(t, ok)
	assert.Equal(t, domain.AuthFailureEvent{Reason: "pairing failed: boom"}, evt)
}
