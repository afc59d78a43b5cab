package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/log"
	"github.com/abroadinquiry/advisor/internal/messenger"
)

type relayResponderStub struct{}

func (relayResponderStub) Respond(_ context.Context, _ []chat.Message, _ chat.StreamCallback) (string, error) {
	return "stub reply", nil
}

type relaySenderStub struct{}

func (relaySenderStub) SendText(_ context.Context, _, _ string) error {
	return nil
}

func newRelayForTest(t *testing.T, responder messenger.Responder, sender messenger.Sender) *messenger.Relay {
	t.Helper()
	relay, err := messenger.NewRelay("verify-secret", responder, sender, log.NewNop())
	require.NoError(t, err)
	return relay
}
