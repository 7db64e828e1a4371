package broker_test

import (
	"sync"
	"testing"

	"github.com/shinemost/kvbroker/broker"
	"github.com/shinemost/kvbroker/wire"
)

// BenchmarkPublishFanout measures publish throughput against a pool of
// concurrently-draining subscribers, the Go analogue of the original
// source's benches/pubsub.rs throughput benchmark.
func BenchmarkPublishFanout(b *testing.B) {
	bc := broker.New(nil)
	const subscribers = 64
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < subscribers; i++ {
		_, ch := bc.Subscribe("bench")
		wg.Add(1)
		go func(ch <-chan *wire.CommandResponse) {
			defer wg.Done()
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						return
					}
				case <-done:
					return
				}
			}
		}(ch)
	}

	values := []wire.Value{wire.StringValue("payload")}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bc.Publish("bench", values)
	}
	b.StopTimer()
	close(done)
	wg.Wait()
}
