package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("task:1")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("task:1")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("task:2")
		unlockB()
		close(done)
	}()
	<-done

	assert.Equal(t, 1, km.Len())
	unlockA()
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_DoubleUnlockIsHarmless(t *testing.T) {
	km := NewKeyedMutex()

	unlock := km.Lock("counter")
	unlock()
	unlock()

	assert.Equal(t, 0, km.Len())
}
