package blocks

import (
	"github.com/goliatone/go-formblocks/pkg/form"
	"github.com/goliatone/go-formblocks/pkg/schema"
)

// NodeKind enumerates render tree node variants.
type NodeKind string

const (
	NodeText         NodeKind = "text"
	NodeImage        NodeKind = "image"
	NodeMissingImage NodeKind = "missing_image"
	NodeForm         NodeKind = "form"
	NodeUnknownBlock NodeKind = "unknown_block"
	NodeSchemaError  NodeKind = "schema_error"
	NodeFault        NodeKind = "fault"
)

// Node is the sealed sum type over render tree entries.
type Node interface {
	Kind() NodeKind
	// Key identifies the node among its siblings: the block id when the
	// schema gave one, otherwise the block position.
	Key() string
	node()
}

// Tree is the dispatcher output, one node per block.
type Tree struct {
	Nodes []Node
}

// Len returns the number of nodes.
func (t Tree) Len() int { return len(t.Nodes) }

// Forms returns the form nodes in order.
func (t Tree) Forms() []FormNode {
	var out []FormNode
	for _, n := range t.Nodes {
		if f, ok := n.(FormNode); ok {
			out = append(out, f)
		}
	}
	return out
}

type TextNode struct {
	NodeKey  string
	Text     string
	Markdown bool
}

func (n TextNode) Kind() NodeKind { return NodeText }
func (n TextNode) Key() string    { return n.NodeKey }
func (TextNode) node()            {}

type ImageNode struct {
	NodeKey string
	Src     string
	Alt     string
}

func (n ImageNode) Kind() NodeKind { return NodeImage }
func (n ImageNode) Key() string    { return n.NodeKey }
func (ImageNode) node()            {}

// MissingImageNode stands in for an image block without a source.
type MissingImageNode struct {
	NodeKey string
	Alt     string
	Message string
}

func (n MissingImageNode) Kind() NodeKind { return NodeMissingImage }
func (n MissingImageNode) Key() string    { return n.NodeKey }
func (MissingImageNode) node()            {}

// FormNode owns the engine holding the block's submission record.
type FormNode struct {
	NodeKey string
	Block   schema.FormBlock
	Engine  *form.Engine
}

func (n FormNode) Kind() NodeKind { return NodeForm }
func (n FormNode) Key() string    { return n.NodeKey }
func (FormNode) node()            {}

// UnknownBlockNode reports a block whose type the dispatcher does not know.
type UnknownBlockNode struct {
	NodeKey string
	Type    string
	Message string
}

func (n UnknownBlockNode) Kind() NodeKind { return NodeUnknownBlock }
func (n UnknownBlockNode) Key() string    { return n.NodeKey }
func (UnknownBlockNode) node()            {}

// SchemaErrorNode reports schema text that could not be turned into blocks.
type SchemaErrorNode struct {
	NodeKey string
	Message string
	Err     error
}

func (n SchemaErrorNode) Kind() NodeKind { return NodeSchemaError }
func (n SchemaErrorNode) Key() string    { return n.NodeKey }
func (SchemaErrorNode) node()            {}

// FaultNode replaces a block whose construction failed unexpectedly.
type FaultNode struct {
	NodeKey string
	Message string
	Err     error
}

func (n FaultNode) Kind() NodeKind { return NodeFault }
func (n FaultNode) Key() string    { return n.NodeKey }
func (FaultNode) node()            {}
