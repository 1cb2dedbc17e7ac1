package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusDispatchOrder(t *testing.T) {
	bus := NewEventBus()
	var got []string
	first, second := "first", "second"

	assert.True(t, bus.Register(EventCodeFileCreated, first, func(_ SystemEventCode, _ interface{}, l interface{}, _ EventContext) bool {
		got = append(got, l.(string))
		return false
	}))
	assert.True(t, bus.Register(EventCodeFileCreated, second, func(_ SystemEventCode, _ interface{}, l interface{}, data EventContext) bool {
		got = append(got, l.(string)+":"+data.C[0])
		return true
	}))
	assert.False(t, bus.Register(EventCodeFileCreated, first, func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }))

	ctx := EventContext{}
	ctx.C[0] = "Models/Hero.mesh"
	assert.True(t, bus.Fire(EventCodeFileCreated, nil, ctx))
	assert.Equal(t, []string{"first", "second:Models/Hero.mesh"}, got)

	assert.True(t, bus.Unregister(EventCodeFileCreated, second))
	assert.False(t, bus.Unregister(EventCodeFileCreated, second))
	assert.False(t, bus.Fire(EventCodeFileCreated, nil, ctx))
}

func TestNilEventBus(t *testing.T) {
	var bus *EventBus
	assert.False(t, bus.Fire(EventCodeFileRemoved, nil, EventContext{}))
	assert.False(t, bus.Register(EventCodeFileRemoved, nil, func(SystemEventCode, interface{}, interface{}, EventContext) bool { return true }))
	bus.Shutdown()
}

func TestMetricsAverages(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < avgCount; i++ {
		m.Update(0.016)
	}
	assert.InDelta(t, 16.0, m.FrameTime(), 1e-9)
	for i := 0; i < 100; i++ {
		m.Update(0.016)
	}
	assert.Greater(t, m.FPS(), 0.0)
}
