// Package conversion keeps the document tree and the presentation tree in
// sync. It provides the Mapper binding the two trees, the downcast and
// upcast dispatchers driving converter callbacks, the consumable ledger
// guarding against double conversion, and the marker range resolver.
package conversion

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Priority orders listeners of the same event. Higher runs first.
type Priority int

const (
	Highest Priority = 100000
	High    Priority = 1000
	Normal  Priority = 0
	Low     Priority = -1000
	Lowest  Priority = -100000
)

// ParsePriority accepts a tier name or an integer.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "highest":
		return Highest, nil
	case "high":
		return High, nil
	case "", "normal":
		return Normal, nil
	case "low":
		return Low, nil
	case "lowest":
		return Lowest, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid priority %q", value)
	}
	return Priority(n), nil
}

// EventInfo is passed to every listener of a single fire.
type EventInfo struct {
	// Name is the fired event name, which may be more specific than the
	// name the listener registered for.
	Name    string
	stopped bool
}

// Stop prevents the remaining listeners from running.
func (e *EventInfo) Stop() { e.stopped = true }

func (e *EventInfo) Stopped() bool { return e.stopped }

// Callback handles one event. A returned error aborts the fire.
type Callback[D, A any] func(evt *EventInfo, data D, api A) error

type listener[D, A any] struct {
	name     string
	callback Callback[D, A]
	priority Priority
	seq      uint64
	removed  bool
}

// Emitter is an ordered registration table of callbacks keyed by event
// name. Listeners run by descending priority; equal priorities keep
// registration order.
type Emitter[D, A any] struct {
	listeners []*listener[D, A]
	seq       uint64
}

// On registers callback for event and returns a function removing it.
//
// A namespaced listener name such as "attribute:bold" also hears the more
// specific events "attribute:bold:$text" or "attribute:bold:paragraph". A
// bare name such as "addMarker" hears only itself. A name ending in ":*",
// such as "element:*", hears every event of its namespace.
func (e *Emitter[D, A]) On(event string, callback Callback[D, A], priority Priority) func() {
	e.seq++
	l := &listener[D, A]{name: event, callback: callback, priority: priority, seq: e.seq}
	index, _ := slices.BinarySearchFunc(e.listeners, l, compareListeners[D, A])
	e.listeners = slices.Insert(e.listeners, index, l)
	return func() {
		l.removed = true
		e.listeners = slices.DeleteFunc(e.listeners, func(x *listener[D, A]) bool { return x == l })
	}
}

func compareListeners[D, A any](a, b *listener[D, A]) int {
	if a.priority != b.priority {
		if a.priority > b.priority {
			return -1
		}
		return 1
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

// HasListeners reports whether any listener would hear event.
func (e *Emitter[D, A]) HasListeners(event string) bool {
	for _, l := range e.listeners {
		if listens(l.name, event) {
			return true
		}
	}
	return false
}

// Fire runs the listeners hearing event in order. It returns the first
// listener error.
func (e *Emitter[D, A]) Fire(event string, data D, api A) (*EventInfo, error) {
	info := &EventInfo{Name: event}
	// Listeners added or removed during the fire do not affect it.
	for _, l := range slices.Clone(e.listeners) {
		if l.removed || !listens(l.name, event) {
			continue
		}
		if err := l.callback(info, data, api); err != nil {
			return info, err
		}
		if info.stopped {
			break
		}
	}
	return info, nil
}

type mergedListener[D, A any] struct {
	l     *listener[D, A]
	event int
}

// FireMerged runs the listeners of several related events as one list.
// Listeners still run by descending priority; within a priority, the
// listeners of earlier events run first. Each listener runs at most once,
// and evt.Name is set to the event it hears.
func (e *Emitter[D, A]) FireMerged(events []string, data D, api A) (*EventInfo, error) {
	var matched []mergedListener[D, A]
	for _, l := range e.listeners {
		if i := slices.IndexFunc(events, func(event string) bool { return listens(l.name, event) }); i >= 0 {
			matched = append(matched, mergedListener[D, A]{l: l, event: i})
		}
	}
	slices.SortStableFunc(matched, func(a, b mergedListener[D, A]) int {
		if a.l.priority != b.l.priority {
			return cmp.Compare(b.l.priority, a.l.priority)
		}
		return cmp.Compare(a.event, b.event)
	})

	info := &EventInfo{}
	for _, m := range matched {
		if m.l.removed {
			continue
		}
		info.Name = events[m.event]
		if err := m.l.callback(info, data, api); err != nil {
			return info, err
		}
		if info.stopped {
			break
		}
	}
	return info, nil
}

func listens(listenerName, event string) bool {
	if listenerName == event {
		return true
	}
	if namespace, ok := strings.CutSuffix(listenerName, ":*"); ok {
		return strings.HasPrefix(event, namespace+":")
	}
	return strings.Contains(listenerName, ":") && strings.HasPrefix(event, listenerName+":")
}
