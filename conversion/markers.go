package conversion

import (
	"slices"
	"strings"

	"github.com/rgonek/docconv/model"
)

// MarkerRange is a marker name with the part of its range that applies to
// one converted container.
type MarkerRange struct {
	Name  string
	Range model.Range
}

// ResolveMarkers returns the markers to convert together with container.
//
// For an element attached to a document every document marker is checked:
// a collapsed marker sitting exactly on the element's start or end belongs
// to it unchanged, any other marker contributes its intersection with the
// element's content. A fragment contributes its own marker map. Anything
// else has no markers.
//
// The result is ordered by start, then end, then name, all descending, so
// the output never depends on the order markers were created in.
func ResolveMarkers(container model.Container) []MarkerRange {
	var result []MarkerRange
	switch c := container.(type) {
	case *model.DocumentFragment:
		for name, rng := range c.Markers {
			result = append(result, MarkerRange{Name: name, Range: rng})
		}
	case *model.Element:
		doc := c.Document()
		if doc == nil {
			return nil
		}
		elementRange := model.RangeIn(c)
		for _, marker := range doc.Markers().All() {
			rng := marker.Range
			if rng.IsCollapsed() && (rng.Start.IsEqual(elementRange.Start) || rng.Start.IsEqual(elementRange.End)) {
				result = append(result, MarkerRange{Name: marker.Name, Range: rng})
				continue
			}
			if common, ok := elementRange.Intersection(rng); ok {
				result = append(result, MarkerRange{Name: marker.Name, Range: common})
			}
		}
	}
	SortMarkerRanges(result)
	return result
}

// SortMarkerRanges orders marker ranges the way ResolveMarkers returns them.
func SortMarkerRanges(ranges []MarkerRange) {
	slices.SortFunc(ranges, func(a, b MarkerRange) int {
		if c := comparePositions(b.Range.Start, a.Range.Start); c != 0 {
			return c
		}
		if c := comparePositions(b.Range.End, a.Range.End); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
}

func comparePositions(a, b model.Position) int {
	switch a.Compare(b) {
	case model.Before:
		return -1
	case model.After:
		return 1
	}
	return 0
}
