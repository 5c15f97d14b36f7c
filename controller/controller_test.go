package controller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rgonek/docconv/basic"
	"github.com/rgonek/docconv/conversion"
	"github.com/rgonek/docconv/markdown"
	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

const twoParagraphs = `{"type":"fragment","content":[
	{"type":"element","name":"paragraph","content":[{"type":"text","text":"foo"}]},
	{"type":"element","name":"paragraph","content":[{"type":"text","text":"bar"}]}
]}`

func newDocument(t *testing.T, content string, rootNames ...string) (*model.Document, *model.Element) {
	t.Helper()
	doc := model.NewDocument()
	root, err := doc.CreateRoot(DefaultRootName)
	require.NoError(t, err)
	for _, name := range rootNames {
		_, err := doc.CreateRoot(name)
		require.NoError(t, err)
	}
	if content == "" {
		return doc, root
	}

	frag, err := model.Unmarshal([]byte(content))
	require.NoError(t, err)
	_, err = doc.Change(func(w *model.Writer) error {
		_, err := w.InsertFragment(frag, model.PositionAt(root, 0))
		return err
	})
	require.NoError(t, err)
	return doc, root
}

func addMarker(t *testing.T, doc *model.Document, root *model.Element, name string, start, end []int) {
	t.Helper()
	startPos, err := model.PositionFromPath(root, start)
	require.NoError(t, err)
	endPos, err := model.PositionFromPath(root, end)
	require.NoError(t, err)
	_, err = doc.Change(func(w *model.Writer) error {
		_, err := w.AddMarker(name, model.NewRange(startPos, endPos))
		return err
	})
	require.NoError(t, err)
}

func markerPaths(t *testing.T, doc *model.Document, name string) [][]int {
	t.Helper()
	marker, ok := doc.Markers().Get(name)
	require.True(t, ok, "marker %s", name)
	return [][]int{marker.Range.Start.Path(), marker.Range.End.Path()}
}

func contentJSON(t *testing.T, c model.Container) string {
	t.Helper()
	data, err := model.Marshal(c)
	require.NoError(t, err)
	var node model.JSONNode
	require.NoError(t, json.Unmarshal(data, &node))
	content, err := json.Marshal(node.Content)
	require.NoError(t, err)
	return string(content)
}

func paragraphsAndBoundaries(down *conversion.DowncastDispatcher, _ *conversion.UpcastDispatcher) {
	down.ElementToElement(basic.Paragraph, func(_ *model.Element, api *conversion.DowncastConversionAPI) *view.Element {
		return api.Writer.CreateContainerElement("p", nil)
	}, conversion.Normal)
	down.MarkerToData("m", conversion.Normal)
}

func TestGetMarkerAcrossParagraphs(t *testing.T) {
	doc, root := newDocument(t, twoParagraphs)
	addMarker(t, doc, root, "m", []int{0, 1}, []int{1, 2})

	c, err := New(doc, Config{
		Processor:  XMLProcessor{},
		Converters: []Registrar{paragraphsAndBoundaries},
	})
	require.NoError(t, err)

	result, err := c.Get(GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, `<p>f<m-start/>oo</p><p>ba<m-end/>r</p>`, result.Data)
	assert.Empty(t, result.Warnings)

	first := root.Child(0).(*model.Element)
	viewParagraph, ok := c.Mapper().ToViewElement(first)
	require.True(t, ok, "bindings survive the pass")
	assert.Equal(t, "p", viewParagraph.(*view.Element).Name())
}

func TestGetIsIndependentOfMarkerOrder(t *testing.T) {
	ranges := []struct {
		name       string
		start, end int
	}{
		{"a", 2, 8}, {"b", 2, 8},
		{"outsideStart", 0, 2}, {"overlapStart", 1, 3}, {"insideStart", 2, 4},
		{"inside", 3, 6}, {"insideEnd", 6, 8}, {"overlapEnd", 7, 9}, {"outsideEnd", 8, 10},
	}
	content := `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"0123456789"}]}
	]}`

	get := func(reverse bool) string {
		doc, root := newDocument(t, content)
		for i := range ranges {
			r := ranges[i]
			if reverse {
				r = ranges[len(ranges)-1-i]
			}
			addMarker(t, doc, root, "m:"+r.name, []int{0, r.start}, []int{0, r.end})
		}
		c, err := New(doc, Config{Processor: XMLProcessor{}, MarkerGroups: []string{"m"}})
		require.NoError(t, err)
		result, err := c.Get(GetOptions{})
		require.NoError(t, err)
		return result.Data
	}

	forward := get(false)
	assert.Equal(t, forward, get(true))
	assert.Contains(t, forward, `<m-start name="outsideStart"/>`)
}

func TestGetDetachedRoot(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	doc, _ := newDocument(t, twoParagraphs, "aside")
	require.True(t, doc.DetachRoot("aside"))

	c, err := New(doc, Config{Logger: zap.New(core)})
	require.NoError(t, err)

	result, err := c.Get(GetOptions{RootName: "aside"})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningDetachedRoot, result.Warnings[0].Type)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "aside", entries[0].ContextMap()["root"])

	_, err = c.Get(GetOptions{RootName: "missing"})
	assert.ErrorIs(t, err, ErrRootNotFound)

	assert.ErrorIs(t, c.Set("aside", "<p>x</p>"), ErrRootDetached)
}

func TestGetHTML(t *testing.T) {
	doc, root := newDocument(t, `{"type":"fragment","content":[
		{"type":"element","name":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Title"}]},
		{"type":"element","name":"paragraph","content":[
			{"type":"text","text":"plain "},
			{"type":"text","text":"bold","attrs":{"bold":true}},
			{"type":"text","text":" and "},
			{"type":"text","text":"link","attrs":{"linkHref":"https://example.com"}},
			{"type":"element","name":"softBreak"},
			{"type":"text","text":"next"}
		]}
	]}`)
	addMarker(t, doc, root, "comment:t1", []int{1, 6}, []int{1, 10})

	c, err := New(doc, Config{MarkerGroups: []string{"comment"}})
	require.NoError(t, err)

	result, err := c.Get(GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, `<h2>Title</h2>`+
		`<p>plain <comment-start name="t1"></comment-start><strong>bold</strong><comment-end name="t1"></comment-end>`+
		` and <a href="https://example.com">link</a><br/>next</p>`, result.Data)
}

func TestSetGetRoundTrip(t *testing.T) {
	markdownProcessor, err := NewMarkdownProcessor(markdown.Config{})
	require.NoError(t, err)

	tests := []struct {
		name      string
		processor Processor
		data      string
	}{
		{
			name:      "html",
			processor: NewHTMLProcessor(),
			data: `<h2>Title</h2><p>plain <comment-start name="t1"></comment-start><strong>bold</strong>` +
				`<comment-end name="t1"></comment-end> tail</p>`,
		},
		{
			name:      "xml",
			processor: XMLProcessor{},
			data:      `<h2>Title</h2><p>plain <comment-start name="t1"/><strong>bold</strong><comment-end name="t1"/> tail</p>`,
		},
		{
			name:      "markdown",
			processor: markdownProcessor,
			data: "## Title\n\n" +
				"plain <comment-start name=\"t1\"></comment-start>**bold**<comment-end name=\"t1\"></comment-end> tail\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, root := newDocument(t, twoParagraphs)
			addMarker(t, doc, root, "comment:old", []int{0, 0}, []int{0, 1})

			c, err := New(doc, Config{Processor: tt.processor, MarkerGroups: []string{"comment"}})
			require.NoError(t, err)
			require.NoError(t, c.Set("", tt.data))

			assert.False(t, doc.Markers().Has("comment:old"))
			assert.Equal(t, [][]int{{1, 6}, {1, 10}}, markerPaths(t, doc, "comment:t1"))

			result, err := c.Get(GetOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.data, result.Data)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestGetTrimEmpty(t *testing.T) {
	doc, _ := newDocument(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"  "}]},
		{"type":"element","name":"paragraph"}
	]}`)
	c, err := New(doc, Config{Trim: TrimEmpty})
	require.NoError(t, err)

	result, err := c.Get(GetOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningEmptyRoot, result.Warnings[0].Type)

	result, err = c.Get(GetOptions{Trim: TrimNone})
	require.NoError(t, err)
	assert.Equal(t, `<p>  </p><p></p>`, result.Data)

	_, err = c.Get(GetOptions{Trim: "all"})
	assert.Error(t, err)
}

func TestGetReportsUnconvertedItems(t *testing.T) {
	doc, _ := newDocument(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"a"}]},
		{"type":"element","name":"horizontalLine"}
	]}`)
	c, err := New(doc, Config{Converters: []Registrar{paragraphsAndBoundaries}})
	require.NoError(t, err)

	result, err := c.Get(GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, `<p>a</p>`, result.Data)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningUnconvertedNode, result.Warnings[0].Type)
	assert.Equal(t, basic.HorizontalLine, result.Warnings[0].NodeType)
}

func TestGetMarkdownWarnings(t *testing.T) {
	doc, _ := newDocument(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","attrs":{"alignment":"right"},"content":[{"type":"text","text":"a"}]}
	]}`)
	processor, err := NewMarkdownProcessor(markdown.Config{})
	require.NoError(t, err)
	c, err := New(doc, Config{Processor: processor})
	require.NoError(t, err)

	result, err := c.Get(GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a\n", result.Data)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningType(markdown.WarningDroppedFeature), result.Warnings[0].Type)
}

func TestMerge(t *testing.T) {
	doc, root := newDocument(t, `{"type":"fragment","content":[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"foo"}]}
	]}`)
	c, err := New(doc, Config{MarkerGroups: []string{"comment"}})
	require.NoError(t, err)

	frag, err := c.Parse(`<p>x<comment-start name="a"></comment-start>y<comment-end name="a"></comment-end></p>`)
	require.NoError(t, err)
	require.Contains(t, frag.Markers, "comment:a")

	version := doc.Version()
	batch, err := c.Merge(frag, model.PositionAt(root, 1))
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, version+1, doc.Version())
	assert.Equal(t, [][]int{{1, 1}, {1, 2}}, markerPaths(t, doc, "comment:a"))

	result, err := c.Get(GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, `<p>foo</p><p>x<comment-start name="a"></comment-start>y<comment-end name="a"></comment-end></p>`, result.Data)

	detached, err := c.Parse(`<p>z</p>`)
	require.NoError(t, err)
	_, err = c.Merge(frag, model.PositionAt(detached, 0))
	assert.ErrorIs(t, err, model.ErrInvalidPosition)
}

func TestSanitizingHTMLProcessor(t *testing.T) {
	doc, _ := newDocument(t, "")
	c, err := New(doc, Config{
		Processor:    NewSanitizingHTMLProcessor("comment"),
		MarkerGroups: []string{"comment"},
	})
	require.NoError(t, err)

	frag, err := c.Parse(`<p onclick="steal()">a<script>alert(1)</script>` +
		`<comment-start name="c"></comment-start>b<comment-end name="c"></comment-end></p>` +
		`<h1 style="text-align:center; position:fixed">t</h1>`)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"ab"}]},
		{"type":"element","name":"heading","attrs":{"level":1,"alignment":"center"},"content":[{"type":"text","text":"t"}]}
	]`, contentJSON(t, frag))
	require.Contains(t, frag.Markers, "comment:c")
	assert.Equal(t, []int{0, 1}, frag.Markers["comment:c"].Start.Path())
	assert.Equal(t, []int{0, 2}, frag.Markers["comment:c"].End.Path())
}

func TestConfigValidate(t *testing.T) {
	doc := model.NewDocument()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"blank root", Config{RootName: "  "}},
		{"trim", Config{Trim: "all"}},
		{"marker group", Config{MarkerGroups: []string{"comment:x"}}},
		{"nil converter", Config{Converters: []Registrar{nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(doc, tt.cfg)
			assert.Error(t, err)
		})
	}

	_, err := New(nil, Config{})
	assert.Error(t, err)

	cfg := Config{}.applyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultRootName, cfg.RootName)
	assert.Equal(t, TrimNone, cfg.Trim)
	assert.NotNil(t, cfg.Logger)
}

func TestGetSharesOptionsWithinOnePass(t *testing.T) {
	doc, root := newDocument(t, twoParagraphs)
	addMarker(t, doc, root, "comment:1", []int{0, 1}, []int{1, 2})

	var seen []any
	countParagraphs := func(down *conversion.DowncastDispatcher, _ *conversion.UpcastDispatcher) {
		down.On("insert:"+basic.Paragraph, func(_ *conversion.EventInfo, _ *conversion.DowncastEventData, api *conversion.DowncastConversionAPI) error {
			count, _ := api.Options["paragraphs"].(int)
			api.Options["paragraphs"] = count + 1
			return nil
		}, conversion.Highest)
		down.On("addMarker", func(_ *conversion.EventInfo, data *conversion.DowncastEventData, api *conversion.DowncastConversionAPI) error {
			if data.Item == nil {
				seen = append(seen, api.Options["paragraphs"], api.Options["seed"])
			}
			return nil
		}, conversion.Highest)
	}
	options := map[string]any{"seed": "s"}
	c, err := New(doc, Config{
		Converters: []Registrar{paragraphsAndBoundaries, countParagraphs},
		Options:    options,
	})
	require.NoError(t, err)

	for range 2 {
		_, err := c.Get(GetOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, []any{2, "s", 2, "s"}, seen, "each pass starts from the configured options")
	assert.Equal(t, map[string]any{"seed": "s"}, options)
}
