package monitor_test

import (
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/resmon/internal/metrics"
	"codeberg.org/mutker/resmon/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotBeforeFirstTick(t *testing.T) {
	pub := monitor.NewPublisher()

	_, ok := pub.Snapshot()
	assert.False(t, ok)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	pub := monitor.NewPublisher()

	pub.SetLatest(monitor.CombinedSnapshot{
		Timestamp:   time.Now(),
		RecentTasks: []monitor.TaskSummary{{TaskID: "n1"}},
	})

	first, ok := pub.Snapshot()
	require.True(t, ok)
	first.RecentTasks[0].TaskID = "mutated"

	second, ok := pub.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "n1", second.RecentTasks[0].TaskID, "readers must not share backing arrays")
}

func TestSnapshotNeverTorn(t *testing.T) {
	pub := monitor.NewPublisher()

	const writers = 4
	const iterations = 500

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				// Each tick writes matching system/accelerator values;
				// a torn read would observe a mismatch.
				tick := seed*iterations + i
				pub.SetLatest(monitor.CombinedSnapshot{
					System:      metrics.SystemSnapshot{CPUPercent: float64(tick), Available: true},
					Accelerator: metrics.AcceleratorSnapshot{UtilizationPercent: tick, Available: true},
				})
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snapshot, ok := pub.Snapshot()
			if !ok {
				continue
			}
			assert.Equal(t, int(snapshot.System.CPUPercent), snapshot.Accelerator.UtilizationPercent,
				"system and accelerator fields must come from the same tick")
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestBroadcastDelivery(t *testing.T) {
	pub := monitor.NewPublisher()
	sub := pub.Subscribe()
	defer sub.Close()

	pub.Broadcast(monitor.Event{Type: monitor.EventTaskStart})

	select {
	case event := <-sub.Events():
		assert.Equal(t, monitor.EventTaskStart, event.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcastNeverBlocksOnSlowSubscriber(t *testing.T) {
	pub := monitor.NewPublisher()
	sub := pub.SubscribeBuffered(2)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more events than the buffer holds; the subscriber reads nothing.
		for i := 0; i < 100; i++ {
			pub.Broadcast(monitor.Event{Type: monitor.EventSnapshot, Timestamp: time.Unix(int64(i), 0)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	// Drop-oldest: the pending events are the most recent ones
	event := <-sub.Events()
	assert.True(t, event.Timestamp.Unix() >= 98, "oldest events should have been dropped, got %d", event.Timestamp.Unix())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	pub := monitor.NewPublisher()
	sub := pub.Subscribe()

	assert.Equal(t, 1, pub.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, pub.SubscriberCount())

	// Channel is closed; the range-style read ends immediately
	_, open := <-sub.Events()
	assert.False(t, open)

	// Closing twice is safe
	sub.Close()

	// Broadcasting with no subscribers is a no-op
	pub.Broadcast(monitor.Event{Type: monitor.EventSnapshot})
}

func TestSlowSubscriberIsolation(t *testing.T) {
	pub := monitor.NewPublisher()

	slow := pub.SubscribeBuffered(1)
	defer slow.Close()
	fast := pub.SubscribeBuffered(64)
	defer fast.Close()

	for i := 0; i < 10; i++ {
		pub.Broadcast(monitor.Event{Type: monitor.EventSnapshot, Timestamp: time.Unix(int64(i), 0)})
	}

	// The fast subscriber sees every event despite the slow one stalling
	for i := 0; i < 10; i++ {
		select {
		case event := <-fast.Events():
			assert.Equal(t, int64(i), event.Timestamp.Unix())
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber missed event %d", i)
		}
	}
}
