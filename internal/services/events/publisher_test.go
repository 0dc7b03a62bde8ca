package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher_Envelope(t *testing.T) {
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	writer := new(MockWriter)

	var written []kafka.Message
	writer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(1).([]kafka.Message) }).
		Return(nil)

	p := NewKafkaPublisher(writer)
	err := p.Publish(context.Background(),
		RequestDeclined{Recipient: "buyer-1", RequestID: "r1", ListingID: "l1", Reason: "listing sold", At: at},
		AutoRefillApplied{Recipient: "user-2", Amount: decimal.NewFromInt(35000), At: at},
	)
	require.NoError(t, err)
	writer.AssertExpectations(t)
	require.Len(t, written, 2)

	assert.Equal(t, "buyer-1", string(written[0].Key))
	var env struct {
		Kind       string          `json:"kind"`
		Recipient  string          `json:"recipient"`
		OccurredAt time.Time       `json:"occurred_at"`
		Payload    json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(written[0].Value, &env))
	assert.Equal(t, "request_declined", env.Kind)
	assert.Equal(t, "buyer-1", env.Recipient)
	assert.True(t, env.OccurredAt.Equal(at))

	var payload RequestDeclined
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "listing sold", payload.Reason)

	require.NoError(t, json.Unmarshal(written[1].Value, &env))
	assert.Equal(t, "auto_refill_applied", env.Kind)
	assert.Contains(t, string(env.Payload), `"amount":"35000"`)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := new(MockWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewKafkaPublisher(writer)
	err := p.Publish(context.Background(), RequestAccepted{Recipient: "b"})
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaPublisher_NothingToPublish(t *testing.T) {
	writer := new(MockWriter)
	p := NewKafkaPublisher(writer)
	assert.NoError(t, p.Publish(context.Background()))
	writer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	PublishAfterCommit(context.Background(), r,
		RequestCreated{Recipient: "b", Role: RoleBuyer},
		RequestCreated{Recipient: "s", Role: RoleSeller},
		TradeFlagged{Recipient: ModerationRecipient},
	)
	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.OfKind(KindRequestCreated), 2)
	assert.Len(t, r.OfKind(KindTradeFlagged), 1)

	r.Err = errors.New("down")
	PublishAfterCommit(context.Background(), r, RequestAccepted{Recipient: "b"})
	assert.Len(t, r.Events(), 3)
}
