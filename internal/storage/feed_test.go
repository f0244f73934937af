package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedFanOut(t *testing.T) {
	f := NewFeed()
	a, cancelA := f.Subscribe(1)
	b, cancelB := f.Subscribe(1)
	defer cancelB()

	f.Publish(Change{Entity: EntityTag, Op: OpCreate, ID: "1"})
	assert.Equal(t, "1", (<-a).ID)
	assert.Equal(t, "1", (<-b).ID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, f.Len())
}

func TestFeedPublishNeverBlocks(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe(0)
	defer cancel()

	f.Publish(Change{ID: "1"})
	f.Publish(Change{ID: "2"})
	assert.Equal(t, "1", (<-ch).ID)
	assert.Len(t, ch, 0)
}

func TestFeedClose(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe(1)
	f.Close()
	_, open := <-ch
	assert.False(t, open)
	cancel()

	late, _ := f.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
	f.Publish(Change{})
}
