package broker_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/broker"
	"github.com/shinemost/kvbroker/wire"
)

func TestSubscribeIDsAreUnique(t *testing.T) {
	b := broker.New(nil)
	seen := map[uint32]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := b.Subscribe("lobby")
			mu.Lock()
			defer mu.Unlock()
			require.False(t, seen[id])
			seen[id] = true
		}()
	}
	wg.Wait()
	require.Len(t, seen, 200)
}

func TestSubscribePublishOrdering(t *testing.T) {
	b := broker.New(nil)
	id, ch := b.Subscribe("lobby")
	require.Equal(t, uint32(1), id)

	b.Publish("lobby", []wire.Value{wire.StringValue("Hello")})
	b.Publish("lobby", []wire.Value{wire.StringValue("World")})

	ack := <-ch
	require.Equal(t, int64(1), ack.Values[0].Int)

	m1 := <-ch
	require.Equal(t, "Hello", m1.Values[0].Str)

	m2 := <-ch
	require.Equal(t, "World", m2.Values[0].Str)
}

func TestUnsubscribeThenPublishDoesNotDeliver(t *testing.T) {
	b := broker.New(nil)
	id, ch := b.Subscribe("lobby")

	<-ch // drain the subscribe ack

	require.NoError(t, b.Unsubscribe("lobby", id))
	b.Publish("lobby", []wire.Value{wire.StringValue("late")})

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
}

func TestUnsubscribeUnknownReturnsNotFound(t *testing.T) {
	b := broker.New(nil)
	err := b.Unsubscribe("lobby", 999)
	require.ErrorIs(t, err, broker.ErrNotSubscribed)
}

func TestUnsubscribeTwiceSecondCallNotFound(t *testing.T) {
	b := broker.New(nil)
	id, _ := b.Subscribe("lobby")
	require.NoError(t, b.Unsubscribe("lobby", id))
	require.ErrorIs(t, b.Unsubscribe("lobby", id), broker.ErrNotSubscribed)
}

func TestPublishDropsOnFullMailboxWithoutAffectingOthers(t *testing.T) {
	b := broker.New(nil)
	slowID, slowCh := b.Subscribe("lobby")
	_, fastCh := b.Subscribe("lobby")
	<-slowCh
	<-fastCh

	// fill the slow subscriber's mailbox to capacity without draining it.
	for i := 0; i < broker.MailboxCapacity+5; i++ {
		b.Publish("lobby", []wire.Value{wire.IntValue(int64(i))})
	}

	// fast subscriber drains fine up to its own capacity.
	count := 0
	for {
		select {
		case <-fastCh:
			count++
		default:
			goto done
		}
	}
done:
	require.Equal(t, broker.MailboxCapacity, count)
	require.NotZero(t, slowID)
}

func TestPublishToUnknownTopicIsNoop(t *testing.T) {
	b := broker.New(nil)
	delivered := b.Publish("no-such-topic", []wire.Value{wire.StringValue("x")})
	require.Equal(t, 0, delivered)
}
