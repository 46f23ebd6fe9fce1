package rabbitmq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
	"github.com/subatic/transcode-worker/internal/domain/port"
)

type nack struct {
	tag     uint64
	requeue bool
}

type fakeChannel struct {
	deliveries []amqp.Delivery
	acked      []uint64
	nacked     []nack
	rejected   []uint64
	closed     bool
}

func (c *fakeChannel) Get(string, bool) (amqp.Delivery, bool, error) {
	if len(c.deliveries) == 0 {
		return amqp.Delivery{}, false, nil
	}
	d := c.deliveries[0]
	c.deliveries = c.deliveries[1:]
	return d, true, nil
}

func (c *fakeChannel) Ack(tag uint64, _ bool) error {
	c.acked = append(c.acked, tag)
	return nil
}

func (c *fakeChannel) Nack(tag uint64, _ bool, requeue bool) error {
	c.nacked = append(c.nacked, nack{tag, requeue})
	return nil
}

func (c *fakeChannel) Reject(tag uint64, _ bool) error {
	c.rejected = append(c.rejected, tag)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func newTestSource(ch *fakeChannel) *Source {
	return &Source{channel: ch, queue: "video.pending", logger: zap.NewNop()}
}

func TestNextReturnsWorkItem(t *testing.T) {
	ch := &fakeChannel{deliveries: []amqp.Delivery{{
		Body:        []byte(`{"id":"vid42"}`),
		DeliveryTag: 7,
	}}}

	item, err := newTestSource(ch).Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "vid42", item.VideoID)
	assert.Equal(t, "7", item.Receipt)
	assert.Empty(t, ch.acked, "delivery must stay unacked until job completion")
}

func TestNextEmptyQueue(t *testing.T) {
	item, err := newTestSource(&fakeChannel{}).Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestNextRejectsPoisonMessage(t *testing.T) {
	ch := &fakeChannel{deliveries: []amqp.Delivery{{
		Body:        []byte(`not json`),
		DeliveryTag: 9,
	}}}

	_, err := newTestSource(ch).Next(context.Background())
	require.ErrorIs(t, err, entity.ErrMalformedEnvelope)
	assert.Equal(t, []uint64{9}, ch.rejected)
	assert.Empty(t, ch.acked)
}

func TestCompleteAcksDelivery(t *testing.T) {
	ch := &fakeChannel{}
	err := newTestSource(ch).Complete(context.Background(), &port.WorkItem{VideoID: "vid42", Receipt: "7"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, ch.acked)
}

func TestReleaseNacksWithRequeue(t *testing.T) {
	ch := &fakeChannel{}
	err := newTestSource(ch).Release(context.Background(), &port.WorkItem{VideoID: "vid42", Receipt: "7"})
	require.NoError(t, err)
	assert.Equal(t, []nack{{tag: 7, requeue: true}}, ch.nacked)
	assert.Empty(t, ch.acked)
}

func TestCompleteBadReceipt(t *testing.T) {
	ch := &fakeChannel{}
	err := newTestSource(ch).Complete(context.Background(), &port.WorkItem{VideoID: "vid42", Receipt: "not-a-tag"})
	require.Error(t, err)
	assert.Empty(t, ch.acked)
}
