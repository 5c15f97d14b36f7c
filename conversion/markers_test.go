package conversion

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

// newRoot creates a document with a "main" root holding one paragraph per
// text.
func newRoot(t *testing.T, texts ...string) (*model.Document, *model.Element, []*model.Element) {
	t.Helper()
	doc := model.NewDocument()
	root, err := doc.CreateRoot("main")
	require.NoError(t, err)
	var paragraphs []*model.Element
	_, err = doc.Change(func(w *model.Writer) error {
		for _, text := range texts {
			p := w.CreateElement("paragraph", nil)
			if _, err := w.Append(w.CreateText(text, nil), p); err != nil {
				return err
			}
			if _, err := w.Append(p, root); err != nil {
				return err
			}
			paragraphs = append(paragraphs, p)
		}
		return nil
	})
	require.NoError(t, err)
	return doc, root, paragraphs
}

func addMarker(t *testing.T, doc *model.Document, name string, rng model.Range) {
	t.Helper()
	_, err := doc.Change(func(w *model.Writer) error {
		_, err := w.AddMarker(name, rng)
		return err
	})
	require.NoError(t, err)
}

func markerNames(ranges []MarkerRange) []string {
	names := make([]string, 0, len(ranges))
	for _, r := range ranges {
		names = append(names, r.Name)
	}
	return names
}

func TestResolveMarkersCollapsedBoundary(t *testing.T) {
	doc, _, ps := newRoot(t, "foo", "bar")
	p1, p2 := ps[0], ps[1]

	addMarker(t, doc, "atStart", model.NewRange(model.PositionAt(p2, 0)))
	addMarker(t, doc, "atEnd", model.NewRange(model.PositionAt(p1, 3)))
	addMarker(t, doc, "inside", model.NewRange(model.PositionAt(p1, 1)))
	addMarker(t, doc, "between", model.NewRange(model.PositionAt(p1.Parent(), 1)))

	first := ResolveMarkers(p1)
	assert.Equal(t, []string{"atEnd", "inside"}, markerNames(first))

	second := ResolveMarkers(p2)
	require.Len(t, second, 1)
	assert.Equal(t, "atStart", second[0].Name)
	assert.True(t, second[0].Range.IsCollapsed())
	assert.Same(t, p2, second[0].Range.Start.Parent)
}

func TestResolveMarkersIntersection(t *testing.T) {
	doc, _, ps := newRoot(t, "foo", "bar")
	p1, p2 := ps[0], ps[1]
	addMarker(t, doc, "m", model.NewRange(model.PositionAt(p1, 1), model.PositionAt(p2, 2)))

	got := ResolveMarkers(p2)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Range.Start.Offset)
	assert.Same(t, p2, got[0].Range.Start.Parent)
	assert.Equal(t, 2, got[0].Range.End.Offset)
}

func TestResolveMarkersOrdering(t *testing.T) {
	doc, _, ps := newRoot(t, "abcdefghij")
	p := ps[0]
	for _, name := range []string{"b", "a", "c"} {
		addMarker(t, doc, name, model.NewRange(model.PositionAt(p, 2), model.PositionAt(p, 8)))
	}
	addMarker(t, doc, "later", model.NewRange(model.PositionAt(p, 5), model.PositionAt(p, 6)))
	addMarker(t, doc, "longer", model.NewRange(model.PositionAt(p, 5), model.PositionAt(p, 9)))

	assert.Equal(t, []string{"longer", "later", "c", "b", "a"}, markerNames(ResolveMarkers(p)))
}

func TestResolveMarkersWithoutDocument(t *testing.T) {
	doc, root, ps := newRoot(t, "foo")
	addMarker(t, doc, "m", model.RangeIn(ps[0]))

	assert.Empty(t, ResolveMarkers(model.NewElement("paragraph", nil, model.NewText("x", nil))))

	doc.DetachRoot(root.RootName())
	assert.Empty(t, ResolveMarkers(ps[0]))

	frag := model.NewDocumentFragment(model.NewElement("paragraph", nil, model.NewText("foo", nil)))
	frag.Markers = map[string]model.Range{"x": model.RangeIn(frag)}
	assert.Equal(t, []string{"x"}, markerNames(ResolveMarkers(frag)))
}

// renderMarkers downcasts root with paragraphs and marker boundary elements
// carrying the marker name.
func renderMarkers(t *testing.T, root *model.Element) string {
	t.Helper()
	d := NewDowncastDispatcher(NewMapper())
	d.ElementToElement("paragraph", func(_ *model.Element, api *DowncastConversionAPI) *view.Element {
		return api.Writer.CreateContainerElement("p", nil)
	}, Normal)
	d.MarkerToElement("", func(data *DowncastEventData, opening bool, api *DowncastConversionAPI) *view.Element {
		name := "m-end"
		if opening {
			name = "m-start"
		}
		return api.Writer.CreateUIElement(name, map[string]string{"name": data.MarkerName})
	}, Normal)
	return convertRoot(t, d, root)
}

func convertRoot(t *testing.T, d *DowncastDispatcher, root *model.Element) string {
	t.Helper()
	d.Mapper().ClearBindings()
	frag := view.NewDocumentFragment()
	d.Mapper().BindElements(root, frag)
	w := view.NewWriter()
	require.NoError(t, d.ConvertInsert(model.RangeIn(root), w, nil))
	for _, marker := range ResolveMarkers(root) {
		require.NoError(t, d.ConvertMarkerAdd(marker.Name, marker.Range, w, nil))
	}
	return view.Stringify(frag)
}

func TestMarkerBoundaryDeterminism(t *testing.T) {
	type span struct {
		name       string
		start, end int
	}
	spans := []span{
		{"a", 2, 8},
		{"b", 2, 8},
		{"outsideStart", 0, 2},
		{"overlapStart", 1, 3},
		{"insideStart", 2, 4},
		{"inside", 3, 6},
		{"insideEnd", 6, 8},
		{"overlapEnd", 7, 9},
		{"outsideEnd", 8, 10},
	}
	render := func(order []span) string {
		doc, root, ps := newRoot(t, "abcdefghij")
		for _, s := range order {
			addMarker(t, doc, s.name, model.NewRange(model.PositionAt(ps[0], s.start), model.PositionAt(ps[0], s.end)))
		}
		return renderMarkers(t, root)
	}

	forward := render(spans)
	reversed := slices.Clone(spans)
	slices.Reverse(reversed)
	backward := render(reversed)

	assert.Equal(t, forward, backward)
	assert.Equal(t, `<p>`+
		`<m-start name="outsideStart"/>a`+
		`<m-start name="overlapStart"/>b`+
		`<m-end name="outsideStart"/><m-start name="insideStart"/><m-start name="a"/><m-start name="b"/>c`+
		`<m-end name="overlapStart"/><m-start name="inside"/>d`+
		`<m-end name="insideStart"/>ef`+
		`<m-end name="inside"/><m-start name="insideEnd"/>g`+
		`<m-start name="overlapEnd"/>h`+
		`<m-end name="a"/><m-end name="b"/><m-end name="insideEnd"/><m-start name="outsideEnd"/>i`+
		`<m-end name="overlapEnd"/>j`+
		`<m-end name="outsideEnd"/>`+
		`</p>`, forward)
}
