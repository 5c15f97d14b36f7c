package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rgonek/docconv/controller"
	"github.com/rgonek/docconv/markdown"
)

func TestPresetConfig(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		cfg, err := presetConfig(presetBalanced)
		require.NoError(t, err)
		assert.Equal(t, options{MarkerGroups: []string{"comment"}}, cfg)
	})

	t.Run("empty defaults to balanced", func(t *testing.T) {
		cfg, err := presetConfig("")
		require.NoError(t, err)
		assert.Equal(t, options{MarkerGroups: []string{"comment"}}, cfg)
	})

	t.Run("strict", func(t *testing.T) {
		cfg, err := presetConfig(presetStrict)
		require.NoError(t, err)
		assert.True(t, cfg.Sanitize)
		assert.Equal(t, markdown.UnknownError, cfg.Markdown.UnknownNodes)
		assert.Equal(t, markdown.UnknownError, cfg.Markdown.UnknownMarks)
	})

	t.Run("lossless", func(t *testing.T) {
		cfg, err := presetConfig(presetLossless)
		require.NoError(t, err)
		assert.Equal(t, markdown.HardBreakHTML, cfg.Markdown.HardBreakStyle)
		assert.Equal(t, markdown.AlignHTML, cfg.Markdown.AlignmentStyle)
		assert.Equal(t, markdown.UnknownHTML, cfg.Markdown.UnknownNodes)
	})
}

func TestPresetConfigInvalid(t *testing.T) {
	_, err := presetConfig("unknown")
	require.Error(t, err)
	assert.Equal(t, `unknown preset "unknown" (allowed: balanced, strict, lossless)`, err.Error())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rtconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
preset: lossless
trim: empty
markerGroups: [comment, suggestion]
sanitize: true
markdown:
  headingOffset: 1
  bulletMarker: "*"
  languageMap:
    golang: go
`)
	file, err := loadConfigFile(path)
	require.NoError(t, err)

	cfg, err := resolveConfig("", file, false)
	require.NoError(t, err)
	assert.Equal(t, controller.TrimEmpty, cfg.Trim)
	assert.Equal(t, []string{"comment", "suggestion"}, cfg.MarkerGroups)
	assert.True(t, cfg.Sanitize)
	assert.Equal(t, 1, cfg.Markdown.HeadingOffset)
	assert.Equal(t, '*', cfg.Markdown.BulletMarker)
	assert.Equal(t, map[string]string{"golang": "go"}, cfg.Markdown.LanguageMap)
	assert.Equal(t, markdown.AlignHTML, cfg.Markdown.AlignmentStyle, "preset from file")

	empty, err := loadConfigFile(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, fileConfig{}, empty)

	_, err = loadConfigFile(writeConfig(t, "presett: strict\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveConfigPrecedence(t *testing.T) {
	file := fileConfig{
		Preset:   presetLossless,
		Markdown: markdownFileConfig{UnknownNodes: string(markdown.UnknownSkip)},
	}

	cfg, err := resolveConfig(presetBalanced, file, false)
	require.NoError(t, err)
	assert.Equal(t, markdown.AlignmentStyle(""), cfg.Markdown.AlignmentStyle, "flag preset wins over file preset")
	assert.Equal(t, markdown.UnknownSkip, cfg.Markdown.UnknownNodes)

	cfg, err = resolveConfig(presetBalanced, file, true)
	require.NoError(t, err)
	assert.Equal(t, markdown.UnknownError, cfg.Markdown.UnknownNodes, "strict flag wins over file")

	_, err = resolveConfig("", fileConfig{Markdown: markdownFileConfig{BulletMarker: "**"}}, false)
	assert.Error(t, err)
}

func TestInferFormat(t *testing.T) {
	assert.Equal(t, formatMarkdown, inferFormat("README.md"))
	assert.Equal(t, formatJSON, inferFormat("doc.JSON"))
	assert.Equal(t, formatXML, inferFormat("view.xml"))
	assert.Equal(t, formatHTML, inferFormat("page.html"))
	assert.Equal(t, formatHTML, inferFormat("-"))
}

func TestConvert(t *testing.T) {
	balanced, err := presetConfig(presetBalanced)
	require.NoError(t, err)
	strict, err := presetConfig(presetStrict)
	require.NoError(t, err)
	lossless, err := presetConfig(presetLossless)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		from, to string
		opts     options
		want     string
		warnings int
	}{
		{
			name:  "html to markdown keeps marker boundaries",
			input: `<h1>T</h1><p>a <comment-start name="1"></comment-start>b<comment-end name="1"></comment-end></p>`,
			from:  formatHTML,
			to:    formatMarkdown,
			opts:  balanced,
			want:  "# T\n\na <comment-start name=\"1\"></comment-start>b<comment-end name=\"1\"></comment-end>\n",
		},
		{
			name: "json to html",
			input: `{"type":"fragment","content":[
				{"type":"element","name":"paragraph","content":[{"type":"text","text":"foo"}]}
			],"markers":{"comment:x":{"start":[0,1],"end":[0,2]}}}`,
			from: formatJSON,
			to:   formatHTML,
			opts: balanced,
			want: `<p>f<comment-start name="x"></comment-start>o<comment-end name="x"></comment-end>o</p>`,
		},
		{
			name:  "xml to html",
			input: `<blockquote><p>q</p></blockquote><hr/>`,
			from:  formatXML,
			to:    formatHTML,
			opts:  balanced,
			want:  `<blockquote><p>q</p></blockquote><hr/>`,
		},
		{
			name:  "script text survives without sanitizing",
			input: `<p>a<script>x</script></p>`,
			from:  formatHTML,
			to:    formatMarkdown,
			opts:  balanced,
			want:  "ax\n",
		},
		{
			name:  "strict sanitizes html",
			input: `<p>a<script>x</script></p>`,
			from:  formatHTML,
			to:    formatMarkdown,
			opts:  strict,
			want:  "a\n",
		},
		{
			name:     "alignment dropped",
			input:    `<p style="text-align:center">x</p>`,
			from:     formatHTML,
			to:       formatMarkdown,
			opts:     balanced,
			want:     "x\n",
			warnings: 1,
		},
		{
			name:  "alignment kept as html",
			input: `<p style="text-align:center">x</p>`,
			from:  formatHTML,
			to:    formatMarkdown,
			opts:  lossless,
			want:  "<p style=\"text-align:center\">x</p>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := convert([]byte(tt.input), tt.from, tt.to, tt.opts, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Data)
			assert.Len(t, result.Warnings, tt.warnings)
		})
	}
}

func TestConvertToJSON(t *testing.T) {
	result, err := convert([]byte("# T\n\n**b**\n"), formatMarkdown, formatJSON, options{}, zap.NewNop())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"fragment","content":[
		{"type":"element","name":"heading","attrs":{"level":1},"content":[{"type":"text","text":"T"}]},
		{"type":"element","name":"paragraph","content":[{"type":"text","text":"b","attrs":{"bold":true}}]}
	]}`, result.Data)
}

func TestConvertUnknownFormat(t *testing.T) {
	_, err := convert([]byte("x"), "docx", formatHTML, options{}, zap.NewNop())
	assert.Error(t, err)
	_, err = convert([]byte("<p>x</p>"), formatHTML, "docx", options{}, zap.NewNop())
	assert.Error(t, err)
}

func TestPrintWarnings(t *testing.T) {
	var buf bytes.Buffer
	printWarnings(&buf, []controller.Warning{
		{Type: controller.WarningUnconvertedNode, NodeType: "table", Message: "no converter handled table"},
		{Type: controller.WarningEmptyRoot, Message: "root \"main\" has no content"},
	})
	assert.Contains(t, buf.String(), "[unconverted_node table]: no converter handled table\n")
	assert.Contains(t, buf.String(), "[empty_root]: root \"main\" has no content\n")
}
