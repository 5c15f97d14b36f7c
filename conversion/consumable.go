package conversion

import "github.com/rgonek/docconv/view"

// Aspect names shared by both dispatchers.
const (
	AspectInsert = "insert"
	AspectName   = "name"
	AspectText   = "text"
)

// AttributeAspect returns the aspect for an attribute key.
func AttributeAspect(key string) string { return "attribute:" + key }

// AddMarkerAspect returns the aspect for adding a marker.
func AddMarkerAspect(name string) string { return "addMarker:" + name }

// RemoveMarkerAspect returns the aspect for removing a marker.
func RemoveMarkerAspect(name string) string { return "removeMarker:" + name }

// Consumable records which (item, aspect) facts of one conversion pass are
// still waiting to be converted. Items are any comparable value: element
// pointers, text proxies, marker names, view nodes.
type Consumable struct {
	items map[any]map[string]bool
}

func NewConsumable() *Consumable {
	return &Consumable{items: map[any]map[string]bool{}}
}

// Add marks the aspect of item as available.
func (c *Consumable) Add(item any, aspect string) {
	aspects, ok := c.items[item]
	if !ok {
		aspects = map[string]bool{}
		c.items[item] = aspects
	}
	aspects[aspect] = true
}

// Test reports whether the aspect of item is still available.
func (c *Consumable) Test(item any, aspect string) bool {
	return c.items[item][aspect]
}

// Known reports whether the aspect was ever added, consumed or not.
func (c *Consumable) Known(item any, aspect string) bool {
	_, ok := c.items[item][aspect]
	return ok
}

// Consume marks the aspect as converted. It succeeds once; later attempts
// and attempts on unknown aspects return false.
func (c *Consumable) Consume(item any, aspect string) bool {
	if !c.Test(item, aspect) {
		return false
	}
	c.items[item][aspect] = false
	return true
}

// Revert makes a consumed aspect available again.
func (c *Consumable) Revert(item any, aspect string) {
	if c.Known(item, aspect) {
		c.items[item][aspect] = true
	}
}

// TestAll reports whether every aspect is available.
func (c *Consumable) TestAll(item any, aspects ...string) bool {
	for _, aspect := range aspects {
		if !c.Test(item, aspect) {
			return false
		}
	}
	return true
}

// ConsumeAll consumes every aspect or none of them.
func (c *Consumable) ConsumeAll(item any, aspects ...string) bool {
	if !c.TestAll(item, aspects...) {
		return false
	}
	for _, aspect := range aspects {
		c.items[item][aspect] = false
	}
	return true
}

// ConsumableFromView fills a ledger with every node of a presentation
// subtree: elements get the name aspect plus one aspect per attribute, text
// nodes the text aspect.
func ConsumableFromView(node view.Holder) *Consumable {
	c := NewConsumable()
	addViewConsumables(c, node)
	return c
}

func addViewConsumables(c *Consumable, node view.Holder) {
	switch typed := node.(type) {
	case *view.Text:
		c.Add(typed, AspectText)
	case *view.Element:
		c.Add(typed, AspectName)
		for _, key := range typed.AttributeKeys() {
			c.Add(typed, AttributeAspect(key))
		}
		for _, child := range typed.Children() {
			addViewConsumables(c, child)
		}
	case *view.DocumentFragment:
		c.Add(typed, AspectName)
		for _, child := range typed.Children() {
			addViewConsumables(c, child)
		}
	}
}
