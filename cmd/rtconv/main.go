package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/rgonek/docconv/controller"
	"github.com/rgonek/docconv/markdown"
	"github.com/rgonek/docconv/model"
)

const (
	presetBalanced = "balanced"
	presetStrict   = "strict"
	presetLossless = "lossless"
)

const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
	formatXML      = "xml"
	formatJSON     = "json"
)

// options is everything a conversion run can be tuned with.
type options struct {
	Trim         controller.TrimMode
	MarkerGroups []string
	Sanitize     bool
	Markdown     markdown.Config
}

func presetConfig(preset string) (options, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", presetBalanced:
		return options{MarkerGroups: []string{"comment"}}, nil
	case presetStrict:
		return options{
			MarkerGroups: []string{"comment"},
			Sanitize:     true,
			Markdown: markdown.Config{
				UnknownNodes: markdown.UnknownError,
				UnknownMarks: markdown.UnknownError,
			},
		}, nil
	case presetLossless:
		return options{
			MarkerGroups: []string{"comment"},
			Markdown: markdown.Config{
				HardBreakStyle: markdown.HardBreakHTML,
				AlignmentStyle: markdown.AlignHTML,
				UnknownNodes:   markdown.UnknownHTML,
			},
		}, nil
	default:
		return options{}, fmt.Errorf("unknown preset %q (allowed: balanced, strict, lossless)", preset)
	}
}

// fileConfig is the YAML shape accepted by -config.
type fileConfig struct {
	Preset       string             `yaml:"preset"`
	Trim         string             `yaml:"trim"`
	MarkerGroups []string           `yaml:"markerGroups"`
	Sanitize     *bool              `yaml:"sanitize"`
	Markdown     markdownFileConfig `yaml:"markdown"`
}

type markdownFileConfig struct {
	HeadingOffset    *int              `yaml:"headingOffset"`
	HardBreakStyle   string            `yaml:"hardBreakStyle"`
	AlignmentStyle   string            `yaml:"alignmentStyle"`
	BulletMarker     string            `yaml:"bulletMarker"`
	OrderedListStyle string            `yaml:"orderedListStyle"`
	LanguageMap      map[string]string `yaml:"languageMap"`
	UnknownNodes     string            `yaml:"unknownNodes"`
	UnknownMarks     string            `yaml:"unknownMarks"`
}

func loadConfigFile(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// resolveConfig layers the preset, the config file and the -strict flag.
// The preset flag wins over the preset named in the file.
func resolveConfig(preset string, file fileConfig, strict bool) (options, error) {
	if preset == "" {
		preset = file.Preset
	}
	cfg, err := presetConfig(preset)
	if err != nil {
		return options{}, err
	}

	if file.Trim != "" {
		cfg.Trim = controller.TrimMode(file.Trim)
	}
	if len(file.MarkerGroups) > 0 {
		cfg.MarkerGroups = file.MarkerGroups
	}
	if file.Sanitize != nil {
		cfg.Sanitize = *file.Sanitize
	}

	md := file.Markdown
	if md.HeadingOffset != nil {
		cfg.Markdown.HeadingOffset = *md.HeadingOffset
	}
	if md.HardBreakStyle != "" {
		cfg.Markdown.HardBreakStyle = markdown.HardBreakStyle(md.HardBreakStyle)
	}
	if md.AlignmentStyle != "" {
		cfg.Markdown.AlignmentStyle = markdown.AlignmentStyle(md.AlignmentStyle)
	}
	if md.BulletMarker != "" {
		runes := []rune(md.BulletMarker)
		if len(runes) != 1 {
			return options{}, fmt.Errorf("bulletMarker must be a single character, got %q", md.BulletMarker)
		}
		cfg.Markdown.BulletMarker = runes[0]
	}
	if md.OrderedListStyle != "" {
		cfg.Markdown.OrderedListStyle = markdown.OrderedListStyle(md.OrderedListStyle)
	}
	if len(md.LanguageMap) > 0 {
		cfg.Markdown.LanguageMap = md.LanguageMap
	}
	if md.UnknownNodes != "" {
		cfg.Markdown.UnknownNodes = markdown.UnknownPolicy(md.UnknownNodes)
	}
	if md.UnknownMarks != "" {
		cfg.Markdown.UnknownMarks = markdown.UnknownPolicy(md.UnknownMarks)
	}

	if strict {
		cfg.Markdown.UnknownNodes = markdown.UnknownError
		cfg.Markdown.UnknownMarks = markdown.UnknownError
	}
	return cfg, nil
}

// inferFormat guesses the input format from a file extension.
func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return formatMarkdown
	case ".xml":
		return formatXML
	case ".json":
		return formatJSON
	default:
		return formatHTML
	}
}

func processorFor(format string, opts options) (controller.Processor, error) {
	switch format {
	case formatHTML:
		if opts.Sanitize {
			return controller.NewSanitizingHTMLProcessor(opts.MarkerGroups...), nil
		}
		return controller.NewHTMLProcessor(), nil
	case formatMarkdown:
		return controller.NewMarkdownProcessor(opts.Markdown)
	case formatXML:
		return controller.XMLProcessor{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (allowed: html, markdown, xml, json)", format)
	}
}

func newController(doc *model.Document, format string, opts options, logger *zap.Logger) (*controller.Controller, error) {
	processor, err := processorFor(format, opts)
	if err != nil {
		return nil, err
	}
	return controller.New(doc, controller.Config{
		Trim:         opts.Trim,
		Processor:    processor,
		MarkerGroups: opts.MarkerGroups,
		Logger:       logger,
	})
}

// convert reads data in one format into a fresh document and writes the
// document out in another.
func convert(data []byte, from, to string, opts options, logger *zap.Logger) (controller.Result, error) {
	doc := model.NewDocument()
	root, err := doc.CreateRoot(controller.DefaultRootName)
	if err != nil {
		return controller.Result{}, err
	}

	// JSON output skips the processor; any format will do for merging.
	outFormat := to
	if to == formatJSON {
		outFormat = formatXML
	}
	out, err := newController(doc, outFormat, opts, logger)
	if err != nil {
		return controller.Result{}, err
	}

	var frag *model.DocumentFragment
	if from == formatJSON {
		frag, err = model.Unmarshal(data)
	} else {
		var in *controller.Controller
		if in, err = newController(doc, from, opts, logger); err == nil {
			frag, err = in.Parse(string(data))
		}
	}
	if err != nil {
		return controller.Result{}, err
	}
	if _, err := out.Merge(frag, model.PositionAt(root, 0)); err != nil {
		return controller.Result{}, err
	}

	if to == formatJSON {
		raw, err := model.MarshalRoot(root)
		if err != nil {
			return controller.Result{}, err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return controller.Result{}, fmt.Errorf("failed to format document JSON: %w", err)
		}
		return controller.Result{Data: pretty.String() + "\n"}, nil
	}
	return out.Get(controller.GetOptions{})
}

// newLogger logs to stderr when verbose and to a rotated JSON file when
// logFile is set.
func newLogger(verbose bool, logFile string) *zap.Logger {
	var cores []zapcore.Core
	if verbose {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zap.DebugLevel,
		))
	}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			zap.InfoLevel,
		))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func printWarnings(w io.Writer, warnings []controller.Warning) {
	label := color.New(color.FgYellow, color.Bold)
	for _, warning := range warnings {
		label.Fprint(w, "warning")
		if warning.NodeType != "" {
			fmt.Fprintf(w, " [%s %s]: %s\n", warning.Type, warning.NodeType, warning.Message)
			continue
		}
		fmt.Fprintf(w, " [%s]: %s\n", warning.Type, warning.Message)
	}
}

func fail(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	from := flag.String("from", "", "Input format: html|markdown|xml|json (default: from file extension)")
	to := flag.String("to", formatMarkdown, "Output format: html|markdown|xml|json")
	preset := flag.String("preset", "", "Preset: balanced|strict|lossless (default balanced)")
	configFile := flag.String("config", "", "YAML config file")
	strict := flag.Bool("strict", false, "Return error on elements markdown cannot express")
	trim := flag.Bool("trim", false, "Print nothing for documents without content")
	markers := flag.String("markers", "", "Comma separated marker groups kept as boundary elements")
	verbose := flag.Bool("verbose", false, "Log conversion details to stderr")
	logFile := flag.String("log-file", "", "Write JSON logs to a rotated file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rtconv [options] <input-file|->\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputFile := args[0]

	var data []byte
	var err error
	if inputFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inputFile)
	}
	if err != nil {
		fail("Error reading input: %v", err)
	}

	var file fileConfig
	if *configFile != "" {
		if file, err = loadConfigFile(*configFile); err != nil {
			fail("Invalid config: %v", err)
		}
	}
	cfg, err := resolveConfig(*preset, file, *strict)
	if err != nil {
		fail("Invalid preset: %v", err)
	}
	if *trim {
		cfg.Trim = controller.TrimEmpty
	}
	if *markers != "" {
		cfg.MarkerGroups = strings.Split(*markers, ",")
	}

	inputFormat := *from
	if inputFormat == "" {
		inputFormat = inferFormat(inputFile)
	}

	logger := newLogger(*verbose, *logFile)
	defer func() { _ = logger.Sync() }()

	result, err := convert(data, inputFormat, *to, cfg, logger)
	if err != nil {
		fail("Error converting input: %v", err)
	}
	printWarnings(os.Stderr, result.Warnings)
	fmt.Print(result.Data)
}
