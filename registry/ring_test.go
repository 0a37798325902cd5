package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventRing_OverwritesOldest(t *testing.T) {
	r := NewEventRing(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.Push(RequestEvent{Path: pathFor(i), Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	assert.Equal(t, 3, r.Len())
	items := r.Items()
	assert.Equal(t, pathFor(2), items[0].Path)
	assert.Equal(t, pathFor(3), items[1].Path)
	assert.Equal(t, pathFor(4), items[2].Path)
}

func TestEventRing_Since(t *testing.T) {
	r := NewEventRing(10)
	base := time.Now()
	for i := 0; i < 5; i++ {
		r.Push(RequestEvent{Path: pathFor(i), Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	recent := r.Since(base.Add(2*time.Minute + 30*time.Second))
	assert.Len(t, recent, 2)
	assert.Equal(t, pathFor(3), recent[0].Path)
	assert.Equal(t, pathFor(4), recent[1].Path)
}

func pathFor(i int) string {
	return string(rune('a' + i))
}
