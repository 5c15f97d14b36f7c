package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgonek/docconv/view"
)

func render(t *testing.T, cfg Config, input string) Result {
	t.Helper()
	conv, err := New(cfg)
	require.NoError(t, err)
	source, err := view.ParseXML(input)
	require.NoError(t, err)
	result, err := conv.Render(source)
	require.NoError(t, err)
	return result
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "mark continuity",
			input: `<p>plain <strong>bold <em>both</em></strong> <a href="https://x.y">link</a></p>`,
			want:  "plain **bold _both_** [link](https://x.y)\n",
		},
		{
			name:  "single emphasis uses stars",
			input: `<p><em>a</em> <s>b</s> <code>c*d</code></p>`,
			want:  "*a* ~~b~~ `c*d`\n",
		},
		{
			name: "blocks",
			input: `<h2>Title</h2>` +
				`<blockquote><p>quoted</p><p>more</p></blockquote>` +
				`<ul><li>one</li><li>two<ol><li>nested</li></ol></li></ul>` +
				`<pre><code class="language-go">fmt.Println()</code></pre>` +
				`<hr/>`,
			want: "## Title\n\n" +
				"> quoted\n>\n> more\n\n" +
				"- one\n- two\n  1. nested\n\n" +
				"```go\nfmt.Println()\n```\n\n" +
				"---\n",
		},
		{
			name:  "loose list",
			input: `<ol start="3"><li><p>a</p></li><li><p>b</p></li></ol>`,
			want:  "3. a\n\n4. b\n",
		},
		{
			name:  "breaks markers and escaping",
			input: `<p>a*b<br/>c<comment-start name="t1"/>d</p>`,
			want:  "a\\*b\\\nc<comment-start name=\"t1\"></comment-start>d\n",
		},
		{
			name:  "fence longer than content",
			input: "<pre><code>```</code></pre>",
			want:  "````\n```\n````\n",
		},
		{
			name:  "empty",
			input: `<p></p>`,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := render(t, Config{}, tt.input)
			assert.Equal(t, tt.want, result.Markdown)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestRenderOptions(t *testing.T) {
	t.Run("bullet marker and lazy numbering", func(t *testing.T) {
		result := render(t, Config{BulletMarker: '*', OrderedListStyle: OrderedLazy},
			`<ul><li>a</li></ul><ol><li>b</li><li>c</li></ol>`)
		assert.Equal(t, "* a\n\n1. b\n1. c\n", result.Markdown)
	})

	t.Run("heading offset and html breaks", func(t *testing.T) {
		result := render(t, Config{HeadingOffset: 5, HardBreakStyle: HardBreakHTML}, `<h3>a<br/>b</h3>`)
		assert.Equal(t, "###### a<br>b\n", result.Markdown)
	})

	t.Run("language map", func(t *testing.T) {
		result := render(t, Config{LanguageMap: map[string]string{"golang": "go"}},
			`<pre><code class="language-golang">x</code></pre>`)
		assert.Equal(t, "```go\nx\n```\n", result.Markdown)
	})
}

func TestRenderWarnings(t *testing.T) {
	t.Run("alignment ignored", func(t *testing.T) {
		result := render(t, Config{}, `<p style="text-align:center">x</p>`)
		assert.Equal(t, "x\n", result.Markdown)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, WarningDroppedFeature, result.Warnings[0].Type)
	})

	t.Run("alignment as html", func(t *testing.T) {
		result := render(t, Config{AlignmentStyle: AlignHTML}, `<p style="text-align:center">x</p>`)
		assert.Equal(t, "<p style=\"text-align:center\">x</p>\n", result.Markdown)
		assert.Empty(t, result.Warnings)
	})

	t.Run("unknown element as html", func(t *testing.T) {
		result := render(t, Config{}, `<table><tr><td>x</td></tr></table>`)
		assert.Equal(t, "<table><tr><td>x</td></tr></table>\n", result.Markdown)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, WarningUnknownNode, result.Warnings[0].Type)
		assert.Equal(t, "table", result.Warnings[0].NodeType)
	})

	t.Run("unknown element skipped", func(t *testing.T) {
		result := render(t, Config{UnknownNodes: UnknownSkip}, `<div><p>x</p></div><p>y</p>`)
		assert.Equal(t, "y\n", result.Markdown)
		require.Len(t, result.Warnings, 1)
	})

	t.Run("unknown mark keeps text", func(t *testing.T) {
		result := render(t, Config{}, `<p><span class="x">t</span></p>`)
		assert.Equal(t, "t\n", result.Markdown)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, WarningUnknownMark, result.Warnings[0].Type)
	})
}

func TestRenderStrictErrors(t *testing.T) {
	conv, err := New(Config{UnknownNodes: UnknownError, UnknownMarks: UnknownError})
	require.NoError(t, err)

	for _, input := range []string{`<div>x</div>`, `<p><span>t</span></p>`} {
		source, err := view.ParseXML(input)
		require.NoError(t, err)
		_, err = conv.Render(source)
		assert.Error(t, err, input)
	}
}

func parse(t *testing.T, input string) ParseResult {
	t.Helper()
	conv, err := New(Config{})
	require.NoError(t, err)
	result, err := conv.Parse(input)
	require.NoError(t, err)
	return result
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "inline marks",
			input: "# Title\n\nplain **bold** *it* ~~del~~ `co*de` [link](https://x.y \"T\")\n",
			want: `<h1>Title</h1>` +
				`<p>plain <strong>bold</strong> <em>it</em> <s>del</s> <code>co*de</code> <a href="https://x.y" title="T">link</a></p>`,
		},
		{
			name:  "tight list",
			input: "- one\n- two\n",
			want:  `<ul><li>one</li><li>two</li></ul>`,
		},
		{
			name:  "ordered start",
			input: "3. a\n4. b\n",
			want:  `<ol start="3"><li>a</li><li>b</li></ol>`,
		},
		{
			name:  "fenced code",
			input: "```go\nx := 1\n```\n",
			want:  "<pre><code class=\"language-go\">x := 1\n</code></pre>",
		},
		{
			name:  "hard break and raw marker html",
			input: "a\\\nb <comment-start name=\"t1\"></comment-start>c\n",
			want:  `<p>a<br/>b <comment-start name="t1"/>c</p>`,
		},
		{
			name:  "escapes",
			input: "a\\*b &amp; c\n",
			want:  `<p>a*b &amp; c</p>`,
		},
		{
			name:  "table",
			input: "| a | b |\n|---|:-:|\n| 1 | 2 |\n",
			want: `<table><thead><tr><th>a</th><th style="text-align:center">b</th></tr></thead>` +
				`<tbody><tr><td>1</td><td style="text-align:center">2</td></tr></tbody></table>`,
		},
		{
			name:  "quote and rule",
			input: "> q\n\n---\n",
			want:  `<blockquote><p>q</p></blockquote><hr/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parse(t, tt.input)
			assert.Equal(t, tt.want, view.Stringify(result.Fragment))
		})
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	input := "# Title\n\n" +
		"plain **bold _both_** [link](https://x.y)\n\n" +
		"> quote\n\n" +
		"- one\n- two\n\n" +
		"```go\nx := 1\n```\n\n" +
		"---\n"

	conv, err := New(Config{})
	require.NoError(t, err)
	parsed, err := conv.Parse(input)
	require.NoError(t, err)
	rendered, err := conv.Render(parsed.Fragment)
	require.NoError(t, err)
	assert.Equal(t, input, rendered.Markdown)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"heading offset", Config{HeadingOffset: 6}},
		{"hard break", Config{HardBreakStyle: "newline"}},
		{"alignment", Config{AlignmentStyle: "pandoc"}},
		{"bullet", Config{BulletMarker: '#'}},
		{"ordered", Config{OrderedListStyle: "roman"}},
		{"language map", Config{LanguageMap: map[string]string{"": "go"}}},
		{"unknown nodes", Config{UnknownNodes: "placeholder"}},
		{"unknown marks", Config{UnknownMarks: UnknownHTML}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}

	cfg := Config{}.applyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, '-', cfg.BulletMarker)
	assert.Equal(t, UnknownHTML, cfg.UnknownNodes)
}

func TestConfigCloneIsDeep(t *testing.T) {
	original := Config{LanguageMap: map[string]string{"js": "javascript"}}
	cloned := original.clone()
	cloned.LanguageMap["js"] = "ts"
	assert.Equal(t, "javascript", original.LanguageMap["js"])
}
