// Package controller ties the document, the mapper and both dispatchers
// together: it turns document roots into serialized data and merges parsed
// data back into the document.
package controller

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/rgonek/docconv/conversion"
	"github.com/rgonek/docconv/model"
	"github.com/rgonek/docconv/view"
)

var (
	// ErrRootNotFound is returned for root names the document never had.
	ErrRootNotFound = errors.New("root not found")
	// ErrRootDetached is returned when writing to a detached root.
	ErrRootDetached = errors.New("root is detached")
)

// Controller converts between a document and serialized data.
type Controller struct {
	doc      *model.Document
	config   Config
	mapper   *conversion.Mapper
	downcast *conversion.DowncastDispatcher
	upcast   *conversion.UpcastDispatcher
}

// GetOptions override the configured root and trim mode for one Get call.
type GetOptions struct {
	RootName string
	Trim     TrimMode
}

// New creates a Controller for doc with the given config.
func New(doc *model.Document, config Config) (*Controller, error) {
	if doc == nil {
		return nil, fmt.Errorf("document must not be nil")
	}
	cfg := config.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mapper := conversion.NewMapper()
	c := &Controller{
		doc:      doc,
		config:   cfg,
		mapper:   mapper,
		downcast: conversion.NewDowncastDispatcher(mapper),
		upcast:   conversion.NewUpcastDispatcher(cfg.Schema),
	}
	for _, register := range cfg.Converters {
		register(c.downcast, c.upcast)
	}
	return c, nil
}

func (c *Controller) Document() *model.Document                { return c.doc }
func (c *Controller) Mapper() *conversion.Mapper               { return c.mapper }
func (c *Controller) Downcast() *conversion.DowncastDispatcher { return c.downcast }
func (c *Controller) Upcast() *conversion.UpcastDispatcher     { return c.upcast }
func (c *Controller) Processor() Processor                     { return c.config.Processor }

// ToView converts container into a new presentation fragment. Bindings of
// earlier calls are dropped first; the bindings made here stay queryable
// until the next call.
func (c *Controller) ToView(container model.Container) (*view.DocumentFragment, error) {
	frag, _, err := c.toView(container)
	return frag, err
}

func (c *Controller) toView(container model.Container) (*view.DocumentFragment, []Warning, error) {
	var warnings []Warning
	c.downcast.OnUnconverted = func(item model.Item) {
		warnings = append(warnings, Warning{
			Type:     WarningUnconvertedNode,
			NodeType: item.ItemName(),
			Message:  fmt.Sprintf("no converter handled %s", item.ItemName()),
		})
	}
	defer func() { c.downcast.OnUnconverted = nil }()

	frag := view.NewDocumentFragment()
	c.mapper.ClearBindings()
	c.mapper.BindElements(container, frag)

	// One options map per pass: shared by its insert and marker
	// conversions, never by two passes.
	options := maps.Clone(c.config.Options)
	if options == nil {
		options = map[string]any{}
	}
	writer := view.NewWriter()
	if err := c.downcast.ConvertInsert(model.RangeIn(container), writer, options); err != nil {
		return nil, nil, err
	}
	for _, marker := range conversion.ResolveMarkers(container) {
		if err := c.downcast.ConvertMarkerAdd(marker.Name, marker.Range, writer, options); err != nil {
			return nil, nil, err
		}
	}
	return frag, warnings, nil
}

// Get serializes a root. A detached root yields an empty result with a
// warning instead of an error.
func (c *Controller) Get(opts GetOptions) (Result, error) {
	name := cmp.Or(opts.RootName, c.config.RootName)
	trim := cmp.Or(opts.Trim, c.config.Trim)
	if trim != TrimNone && trim != TrimEmpty {
		return Result{}, fmt.Errorf("invalid trim mode %q", trim)
	}
	logger := c.config.Logger.With(zap.String("root", name))

	root, ok := c.doc.Root(name)
	if !ok {
		return Result{}, fmt.Errorf("get %q: %w", name, ErrRootNotFound)
	}
	if !root.IsAttached() {
		w := Warning{
			Type:     WarningDetachedRoot,
			NodeType: root.Name(),
			Message:  fmt.Sprintf("root %q is detached, returning empty data", name),
		}
		logger.Warn(w.Message)
		return Result{Warnings: []Warning{w}}, nil
	}
	if trim == TrimEmpty && !c.hasContent(root) {
		w := Warning{
			Type:     WarningEmptyRoot,
			NodeType: root.Name(),
			Message:  fmt.Sprintf("root %q has no content", name),
		}
		logger.Debug(w.Message)
		return Result{Warnings: []Warning{w}}, nil
	}

	frag, warnings, err := c.toView(root)
	if err != nil {
		return Result{}, err
	}
	data, processed, err := c.config.Processor.ToData(frag)
	if err != nil {
		return Result{}, fmt.Errorf("serialize root %q: %w", name, err)
	}
	warnings = append(warnings, processed...)
	logWarnings(logger, warnings)

	return Result{Data: data, Warnings: warnings}, nil
}

// hasContent reports whether c holds non-whitespace text or an object.
func (c *Controller) hasContent(container model.Container) bool {
	objects, _ := c.config.Schema.(interface{ IsObject(name string) bool })
	for _, child := range container.Children() {
		switch typed := child.(type) {
		case *model.Text:
			if strings.TrimSpace(typed.Data()) != "" {
				return true
			}
		case *model.Element:
			if objects != nil && objects.IsObject(typed.Name()) {
				return true
			}
			if c.hasContent(typed) {
				return true
			}
		}
	}
	return false
}

// Stringify converts container and renders it in the debug XML dialect.
func (c *Controller) Stringify(container model.Container) (string, error) {
	frag, err := c.ToView(container)
	if err != nil {
		return "", err
	}
	return view.Stringify(frag), nil
}

// Parse converts serialized data into a document fragment meant for the
// given context, the document root by default.
func (c *Controller) Parse(data string, context ...string) (*model.DocumentFragment, error) {
	frag, warnings, err := c.config.Processor.ToView(data)
	if err != nil {
		return nil, fmt.Errorf("parse data: %w", err)
	}
	logWarnings(c.config.Logger, warnings)
	return c.ToModel(frag, context...)
}

// ToModel upcasts a presentation node into a document fragment.
func (c *Controller) ToModel(node view.Holder, context ...string) (*model.DocumentFragment, error) {
	return c.upcast.Convert(node, model.NewWriter(), context, c.config.Options)
}

// Set replaces the content and markers of a root with parsed data in a
// single batch.
func (c *Controller) Set(rootName, data string) error {
	name := cmp.Or(rootName, c.config.RootName)
	root, ok := c.doc.Root(name)
	if !ok {
		return fmt.Errorf("set %q: %w", name, ErrRootNotFound)
	}
	if !root.IsAttached() {
		return fmt.Errorf("set %q: %w", name, ErrRootDetached)
	}

	frag, err := c.Parse(data, root.Name())
	if err != nil {
		return err
	}
	_, err = c.doc.Change(func(w *model.Writer) error {
		for _, marker := range c.doc.Markers().All() {
			if marker.Range.Root() != model.Container(root) {
				continue
			}
			if err := w.RemoveMarker(marker.Name); err != nil {
				return err
			}
		}
		w.ClearChildren(root)
		return insertWithMarkers(w, frag, model.PositionAt(root, 0))
	})
	return err
}

// Merge inserts frag at pos in a single batch. Fragment markers are moved
// along with the content.
func (c *Controller) Merge(frag *model.DocumentFragment, pos model.Position) (*model.Batch, error) {
	root, ok := pos.Root().(*model.Element)
	if !ok || root.Document() != c.doc {
		return nil, fmt.Errorf("merge outside of the document: %w", model.ErrInvalidPosition)
	}
	return c.doc.Change(func(w *model.Writer) error {
		return insertWithMarkers(w, frag, pos)
	})
}

func insertWithMarkers(w *model.Writer, frag *model.DocumentFragment, pos model.Position) error {
	type pathRange struct{ start, end []int }
	markers := make(map[string]pathRange, len(frag.Markers))
	for name, rng := range frag.Markers {
		markers[name] = pathRange{start: rng.Start.Path(), end: rng.End.Path()}
	}
	base := pos.Path()

	if _, err := w.InsertFragment(frag, pos); err != nil {
		return err
	}

	root := pos.Root()
	for _, name := range slices.Sorted(maps.Keys(markers)) {
		start, err := model.PositionFromPath(root, rebase(markers[name].start, base))
		if err != nil {
			return fmt.Errorf("marker %q: %w", name, err)
		}
		end, err := model.PositionFromPath(root, rebase(markers[name].end, base))
		if err != nil {
			return fmt.Errorf("marker %q: %w", name, err)
		}
		if _, err := w.AddMarker(name, model.NewRange(start, end)); err != nil {
			return err
		}
	}
	frag.Markers = nil
	return nil
}

// rebase turns a path inside a fragment into a path of the content the
// fragment was inserted at base.
func rebase(path, base []int) []int {
	out := slices.Clone(base)
	out[len(out)-1] += path[0]
	return append(out, path[1:]...)
}

func logWarnings(logger *zap.Logger, warnings []Warning) {
	for _, w := range warnings {
		logger.Warn(w.Message,
			zap.String("type", string(w.Type)),
			zap.String("node", w.NodeType),
		)
	}
}
