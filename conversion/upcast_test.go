package conversion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

func newTestSchema(t *testing.T) *model.SimpleSchema {
	t.Helper()
	s := model.NewSchema()
	require.NoError(t, s.Register("paragraph", model.ItemDefinition{
		AllowIn:         []string{model.RootElementName},
		AllowAttributes: []string{"alignment"},
		IsBlock:         true,
	}))
	require.NoError(t, s.Extend(model.TextName, model.ItemDefinition{AllowAttributes: []string{"bold"}}))
	return s
}

func newTestUpcast(t *testing.T) *UpcastDispatcher {
	t.Helper()
	u := NewUpcastDispatcher(newTestSchema(t))
	u.ElementToElement("p", func(_ *view.Element, api *UpcastConversionAPI) *model.Element {
		return api.Writer.CreateElement("paragraph", nil)
	}, Normal)
	u.ElementToAttribute("strong", "bold", func(*view.Element) (any, bool) { return true, true }, Normal)
	u.AttributeToAttribute("p", "class", "alignment", func(v string) (any, bool) {
		return strings.CutPrefix(v, "align-")
	}, Low)
	u.DataToMarker("m", Normal)
	u.DataToMarker("comment", Normal)
	return u
}

func upcastXML(t *testing.T, u *UpcastDispatcher, input string, context ...string) *model.DocumentFragment {
	t.Helper()
	source, err := view.ParseXML(input)
	require.NoError(t, err)
	frag, err := u.Convert(source, model.NewWriter(), context, nil)
	require.NoError(t, err)
	return frag
}

func marshal(t *testing.T, c model.Container) string {
	t.Helper()
	data, err := model.Marshal(c)
	require.NoError(t, err)
	return string(data)
}

func TestUpcastElementsAndDefaults(t *testing.T) {
	u := newTestUpcast(t)

	frag := upcastXML(t, u, `<p class="align-right">foo</p><div><p>b<strong>a</strong>r</p></div>dropped`)
	assert.JSONEq(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","attrs":{"alignment":"right"},"content":[{"type":"text","text":"foo"}]},
		{"type":"element","name":"paragraph","content":[
			{"type":"text","text":"b"},
			{"type":"text","text":"a","attrs":{"bold":true}},
			{"type":"text","text":"r"}
		]}
	]}`, marshal(t, frag))
}

func TestUpcastSchemaRejectionFallsThrough(t *testing.T) {
	u := newTestUpcast(t)

	frag := upcastXML(t, u, `<p>a<p>b</p>c</p>`)
	assert.JSONEq(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"abc"}]}
	]}`, marshal(t, frag))
}

func TestUpcastContext(t *testing.T) {
	u := newTestUpcast(t)

	frag := upcastXML(t, u, `foo<strong>bar</strong>`, model.RootElementName, "paragraph")
	assert.JSONEq(t, `{"type":"fragment","content":[
		{"type":"text","text":"foo"},
		{"type":"text","text":"bar","attrs":{"bold":true}}
	]}`, marshal(t, frag))
}

func TestUpcastMarkers(t *testing.T) {
	u := newTestUpcast(t)

	frag := upcastXML(t, u, `<p>f<m-start/>oo</p><p>ba<m-end/>r<comment-start name="t1"/></p>`)
	assert.JSONEq(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"foo"}]},
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"bar"}]}
	],"markers":{
		"m":{"start":[0,1],"end":[1,2]},
		"comment:t1":{"start":[1,3],"end":[1,3]}
	}}`, marshal(t, frag))
}

func TestUpcastConsumesEachViewNodeOnce(t *testing.T) {
	u := newTestUpcast(t)
	var calls int
	u.On("element:p", func(_ *EventInfo, data *UpcastEventData, api *UpcastConversionAPI) error {
		if api.Consumable.Consume(data.ViewItem, AspectName) {
			calls++
		}
		return nil
	}, Lowest+1)

	upcastXML(t, u, `<p>x</p>`)
	assert.Zero(t, calls, "the paragraph converter already consumed the element")
}
