package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (p *recordingPublisher) Publish(event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestManager_EmitTypedReachesBusAndPublisher(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := NewBus(log)
	pub := &recordingPublisher{}
	m := NewManager(bus, pub, log)

	var got *Event
	unsubscribe := bus.Subscribe(TradeExecuted, func(e *Event) { got = e })
	defer unsubscribe()

	m.EmitTyped("trading", &TradeExecutedData{
		TransactionID: "tx-1",
		Symbol:        "BTC",
		Side:          "buy",
		Amount:        "0.01000000",
	})

	require.NotNil(t, got)
	assert.Equal(t, TradeExecuted, got.Type)
	assert.Equal(t, "trading", got.Module)
	assert.Equal(t, "BTC", got.Data["symbol"])
	assert.Equal(t, "tx-1", got.Data["transaction_id"])

	require.Len(t, pub.events, 1)
	assert.Same(t, got, pub.events[0])
}

func TestManager_PublisherFailureIsNotFatal(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	pub := &recordingPublisher{err: errors.New("nats down")}
	m := NewManager(NewBus(log), pub, log)

	assert.NotPanics(t, func() {
		m.EmitError("prices", errors.New("boom"), map[string]interface{}{"symbol": "ETH"})
	})
	require.Len(t, pub.events, 1)
	assert.Equal(t, ErrorOccurred, pub.events[0].Type)
	assert.Equal(t, "boom", pub.events[0].Data["error"])
}

func TestManager_NilCollaborators(t *testing.T) {
	m := NewManager(nil, nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		m.Emit(PriceUpdated, "prices", nil)
	})
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "bourse.events.trade_executed", Subject(TradeExecuted))
	assert.Equal(t, "bourse.events.price_updated", Subject(PriceUpdated))
}
