// Package blocks maps a schema document to a render tree. Parse failures,
// unknown block types and unexpected faults become nodes of their own so a
// bad block never takes down its siblings.
package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goliatone/go-formblocks/pkg/form"
	"github.com/goliatone/go-formblocks/pkg/schema"
)

// SchemaErrorKey keys the single node produced for unparseable input.
const SchemaErrorKey = "schema-error"

// MissingImageMessage is shown in place of an image without a source.
const MissingImageMessage = "No image source provided"

// FormFactory builds the engine for a form block.
type FormFactory func(block schema.FormBlock, opts ...form.Option) (*form.Engine, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for parse failures, unknown blocks and faults.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithFormOptions appends options passed to every form engine.
func WithFormOptions(opts ...form.Option) Option {
	return func(d *Dispatcher) {
		d.formOptions = append(d.formOptions, opts...)
	}
}

// WithFormFactory replaces form.New.
func WithFormFactory(factory FormFactory) Option {
	return func(d *Dispatcher) {
		if factory != nil {
			d.newForm = factory
		}
	}
}

// Dispatcher holds configuration only; Render is a function of its input.
type Dispatcher struct {
	logger      *slog.Logger
	formOptions []form.Option
	newForm     FormFactory
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:  slog.Default(),
		newForm: form.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Render parses input and builds one node per block. Accepted inputs are
// schema text (string, []byte, json.RawMessage), an already parsed
// schema.Document, or decoded JSON values. Nil or zero-length input yields an
// empty tree; anything else that does not parse, whitespace included, yields a
// single SchemaErrorNode.
func (d *Dispatcher) Render(input any) Tree {
	doc, empty, err := toDocument(input)
	if empty {
		return Tree{}
	}
	if err != nil {
		d.logger.Warn("schema parse failed", "error", err)
		return Tree{Nodes: []Node{SchemaErrorNode{
			NodeKey: SchemaErrorKey,
			Message: "Invalid schema: " + parseMessage(err),
			Err:     err,
		}}}
	}

	nodes := make([]Node, 0, len(doc.Blocks))
	keys := newKeySet(len(doc.Blocks))
	for idx, block := range doc.Blocks {
		key, dup := keys.claim(idx, block)
		if dup {
			d.logger.Warn("duplicate block key", "index", idx, "key", key)
		}
		nodes = append(nodes, d.guard(key, block))
	}
	return Tree{Nodes: nodes}
}

func toDocument(input any) (schema.Document, bool, error) {
	switch typed := input.(type) {
	case nil:
		return schema.Document{}, true, nil
	case string:
		if typed == "" {
			return schema.Document{}, true, nil
		}
		doc, err := schema.ParseString(typed)
		return doc, false, err
	case []byte:
		return parseBytes(typed)
	case json.RawMessage:
		return parseBytes(typed)
	case schema.Document:
		return typed, false, nil
	case *schema.Document:
		if typed == nil {
			return schema.Document{}, true, nil
		}
		return *typed, false, nil
	default:
		doc, err := schema.FromValue(input)
		return doc, false, err
	}
}

func parseBytes(raw []byte) (schema.Document, bool, error) {
	if len(raw) == 0 {
		return schema.Document{}, true, nil
	}
	doc, err := schema.Parse(raw)
	return doc, false, err
}

func parseMessage(err error) string {
	var perr *schema.ParseError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return err.Error()
}

// guard builds one node and converts a panic into a FaultNode for that block
// only.
func (d *Dispatcher) guard(key string, block schema.Block) (node Node) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			d.logger.Error("block render fault", "key", key, "error", err)
			node = FaultNode{
				NodeKey: key,
				Message: "Something went wrong rendering this block: " + err.Error(),
				Err:     err,
			}
		}
	}()
	return d.build(key, block)
}

func (d *Dispatcher) build(key string, block schema.Block) Node {
	switch typed := block.(type) {
	case schema.TextBlock:
		return TextNode{NodeKey: key, Text: typed.Text, Markdown: typed.Markdown()}
	case schema.ImageBlock:
		if !typed.HasSource() {
			return MissingImageNode{NodeKey: key, Alt: typed.Alt, Message: MissingImageMessage}
		}
		return ImageNode{NodeKey: key, Src: typed.Src, Alt: typed.Alt}
	case schema.FormBlock:
		engine, err := d.newForm(typed, d.formOptions...)
		if err != nil {
			d.logger.Warn("form block rejected", "key", key, "error", err)
			return SchemaErrorNode{NodeKey: key, Message: "Invalid schema: " + err.Error(), Err: err}
		}
		return FormNode{NodeKey: key, Block: typed, Engine: engine}
	case schema.UnknownBlock:
		d.logger.Info("unknown block type", "key", key, "type", typed.Type)
		return UnknownBlockNode{
			NodeKey: key,
			Type:    typed.Type,
			Message: "Unknown block type: " + typed.Type,
		}
	default:
		panic(fmt.Errorf("unsupported block %T", block))
	}
}

// keySet hands out node keys that are unique within one tree. A block keeps
// its id, or its index when it has none; a key already taken gets the index
// appended after "#", then a counter if that is taken too.
type keySet map[string]struct{}

func newKeySet(size int) keySet {
	return make(keySet, size)
}

func (k keySet) claim(idx int, block schema.Block) (string, bool) {
	key := nodeKey(idx, block)
	if _, taken := k[key]; !taken {
		k[key] = struct{}{}
		return key, false
	}
	base := key + "#" + strconv.Itoa(idx)
	key = base
	for n := 1; ; n++ {
		if _, taken := k[key]; !taken {
			break
		}
		key = base + "." + strconv.Itoa(n)
	}
	k[key] = struct{}{}
	return key, true
}

func nodeKey(idx int, block schema.Block) string {
	if block != nil && block.ID() != "" {
		return block.ID()
	}
	return strconv.Itoa(idx)
}
