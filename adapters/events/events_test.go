package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestWatermillPublisher(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, NewZapLoggerAdapter(zaptest.NewLogger(t)))
	defer pubSub.Close()

	ctx := context.Background()
	sessions, err := pubSub.Subscribe(ctx, TopicSessionAuthenticated)
	require.NoError(t, err)
	actions, err := pubSub.Subscribe(ctx, TopicActionSubmitted)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	address := common.HexToAddress("0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826")

	require.NoError(t, pub.PublishSessionAuthenticated(ctx, address))
	var session SessionEvent
	require.NoError(t, json.Unmarshal(receive(t, sessions).Payload, &session))
	assert.Equal(t, address.Hex(), session.Address)

	tx := core.TxHandle{
		Hash:        common.HexToHash("0x01"),
		Kind:        core.ActionPost,
		SubmittedAt: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, pub.PublishActionSubmitted(ctx, "r-17", tx))
	var action ActionEvent
	require.NoError(t, json.Unmarshal(receive(t, actions).Payload, &action))
	assert.Equal(t, ActionEvent{
		RequestID:   "r-17",
		Kind:        core.ActionPost,
		TxHash:      tx.Hash.Hex(),
		SubmittedAt: tx.SubmittedAt,
	}, action)
}

func TestWatermillPublisher_ClosedPublisher(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, NewZapLoggerAdapter(zaptest.NewLogger(t)))
	require.NoError(t, pubSub.Close())

	err := NewWatermillPublisher(pubSub).PublishSessionEnded(context.Background(), common.Address{})
	assert.Error(t, err)
}
