package guardrail

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Tickets:               4,
		Timeout:               time.Second,
		ErrorThreshold:        3,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          10 * time.Millisecond,
	}
}

func TestRegisterIsIdempotentForSameID(t *testing.T) {
	reg := New()
	a := reg.Register("svc", testOptions())
	b := reg.Register("svc", testOptions())
	assert.Same(t, a, b)
}

func TestUnregisterThenRegisterYieldsDifferentResource(t *testing.T) {
	reg := New()
	a := reg.Register("svc", testOptions())
	reg.Unregister("svc")
	b := reg.Register("svc", testOptions())
	assert.NotSame(t, a, b)
}

func TestConcurrentRegistrationOfDistinctIDs(t *testing.T) {
	reg := New()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Register(fmt.Sprintf("svc-%d", i), testOptions())
		}(i)
	}
	wg.Wait()

	assert.Len(t, reg.Resources(), 200)
}

func TestConcurrentRegistrationOfSharedIDCreatesOneResource(t *testing.T) {
	reg := New()
	type client struct{ n int }

	var wg sync.WaitGroup
	clients := make([]*client, 200)
	for i := 0; i < 200; i++ {
		clients[i] = &client{n: i}
	}

	for i := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			RegisterConsumer(reg, "shared", testOptions(), c)
		}(clients[i])
	}
	wg.Wait()

	assert.Len(t, reg.Resources(), 1)
	assert.Equal(t, 200, reg.Consumers("shared"))

	runtime.KeepAlive(clients)
}

func TestUnregisterAllClearsEveryResource(t *testing.T) {
	reg := New()
	reg.Register("a", testOptions())
	reg.Register("b", testOptions())
	reg.UnregisterAll()

	assert.Len(t, reg.Resources(), 0)
}

func TestWeakConsumerIsDroppedAfterGC(t *testing.T) {
	reg := New()

	func() {
		client := new(struct{ marker string })
		RegisterConsumer(reg, "weak-id", testOptions(), client)
		require.Equal(t, 1, reg.Consumers("weak-id"))
	}()

	// Encourage collection of the now-unreachable client; GC cleanups
	// run asynchronously, so poll briefly rather than assert instantly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if reg.Consumers("weak-id") == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("consumer was not dropped after client became unreachable")
}
