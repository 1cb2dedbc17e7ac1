package core

import "sync"

// EventContext carries the payload of a fired event. Handles are transported
// as (index, version, type) triplets in U32 so the core package stays free of
// container imports.
type EventContext struct {
	U32 [4]uint32
	F32 [4]float32
	C   [2]string
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EventCodeApplicationQuit SystemEventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * U32[0] = key code
	 */
	EventCodeKeyPressed SystemEventCode = 0x02

	// Keyboard key released.
	/* Context usage:
	 * U32[0] = key code
	 */
	EventCodeKeyReleased SystemEventCode = 0x03

	// The window framebuffer was resized.
	/* Context usage:
	 * U32[0] = width
	 * U32[1] = height
	 */
	EventCodeResized SystemEventCode = 0x04

	// A file node was created in the virtual filesystem.
	/* Context usage:
	 * U32[0..2] = file handle
	 * C[0] = path
	 */
	EventCodeFileCreated SystemEventCode = 0x10

	// A file or folder node was erased.
	EventCodeFileRemoved SystemEventCode = 0x11

	// A file was reloaded in place.
	EventCodeFileReloaded SystemEventCode = 0x12

	// A node changed parent.
	EventCodeNodeMoved SystemEventCode = 0x13

	// A node changed name.
	/* Context usage:
	 * C[0] = old name
	 * C[1] = new name
	 */
	EventCodeNodeRenamed SystemEventCode = 0x14

	// Deferred GPU removals were flushed.
	/* Context usage:
	 * U32[0] = number of erased entries
	 */
	EventCodeDeferredFlushed SystemEventCode = 0x15

	MaxEventCode SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to registered listeners. A nil *EventBus is a
// valid bus that drops everything.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]registeredEvent),
	}
}

// Register listens for events with the provided code. A listener can only be
// registered once per code.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if b == nil || onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.registered[code] {
		if listener != nil && e.listener == listener {
			LogWarn("event listener already registered for code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister removes the listener for the code. Returns false if it was not registered.
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends the event to the listeners in registration order. If a handler
// returns true the event is considered handled and is not passed on.
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	events := append([]registeredEvent(nil), b.registered[code]...)
	b.mu.RUnlock()
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (b *EventBus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.registered = make(map[SystemEventCode][]registeredEvent)
	b.mu.Unlock()
}
