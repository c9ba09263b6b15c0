package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPool(t *testing.T) {
	t.Run("get and put", func(t *testing.T) {
		timer1 := GetTimer(1 * time.Second)
		assert.NotNil(t, timer1)

		PutTimer(timer1)

		// A recycled timer must fire on its new duration.
		timer2 := GetTimer(20 * time.Millisecond)
		assert.NotNil(t, timer2)
		<-timer2.C
	})

	t.Run("put active timer", func(t *testing.T) {
		timer1 := GetTimer(10 * time.Millisecond)
		time.Sleep(30 * time.Millisecond)

		// timer1 has fired but its tick was never received.
		PutTimer(timer1)

		begin := time.Now()
		timer2 := GetTimer(100 * time.Millisecond)

		select {
		case tick := <-timer2.C:
			assert.GreaterOrEqual(t, tick.Sub(begin), 90*time.Millisecond,
				"a stale tick must not fire the recycled timer early")
		case <-time.After(300 * time.Millisecond):
			t.Error("recycled timer never fired")
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		for n := 0; n < 50; n++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(5 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}
