package jobs

import (
	"context"
	"errors"
	"testing"
	"tourbook/pkg/kafka"
	"tourbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published []kafka.Message
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func confirmationJob() model.NotificationJob {
	return model.NotificationJob{
		BookingID:      "65f1c2a9e4b0a1b2c3d4e5f6",
		UserID:         "user-1",
		TourID:         "65f1c2a9e4b0a1b2c3d4e5f7",
		RecipientEmail: "traveler@example.com",
		TourName:       "Fjord Hike",
		JobKind:        model.JobKindSendConfirmation,
	}
}

func TestKafkaQueue_Enqueue(t *testing.T) {
	pub := &fakePublisher{}
	q := NewKafkaQueue(pub)

	require.NoError(t, q.Enqueue(context.Background(), confirmationJob()))
	require.Len(t, pub.published, 1)

	msg := pub.published[0]
	assert.Equal(t, "65f1c2a9e4b0a1b2c3d4e5f6", msg.Key)
	assert.Equal(t, model.JobKindSendConfirmation, msg.GetEventType())
	assert.JSONEq(t, `{
		"bookingId": "65f1c2a9e4b0a1b2c3d4e5f6",
		"userId": "user-1",
		"tourId": "65f1c2a9e4b0a1b2c3d4e5f7",
		"recipientEmail": "traveler@example.com",
		"tourName": "Fjord Hike",
		"jobKind": "send-confirmation"
	}`, string(msg.Value))

	decoded, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, confirmationJob(), decoded)
}

func TestKafkaQueue_PublishFailure(t *testing.T) {
	brokerErr := errors.New("kafka: leader not available")
	q := NewKafkaQueue(&fakePublisher{err: brokerErr})

	err := q.Enqueue(context.Background(), confirmationJob())
	assert.ErrorIs(t, err, brokerErr)
}

func TestKafkaQueue_RejectsIncompleteJob(t *testing.T) {
	pub := &fakePublisher{}
	q := NewKafkaQueue(pub)

	job := confirmationJob()
	job.BookingID = ""
	assert.ErrorIs(t, q.Enqueue(context.Background(), job), ErrInvalidJob)
	assert.Empty(t, pub.published)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(kafka.Message{Value: []byte("not json")})
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = Decode(kafka.Message{Value: []byte(`{"jobKind":"send-confirmation"}`)})
	assert.ErrorIs(t, err, ErrInvalidJob)
}
