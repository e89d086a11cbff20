package schema

// BlockKind enumerates the block variants understood by the dispatcher.
type BlockKind string

const (
	BlockKindText    BlockKind = "text"
	BlockKindImage   BlockKind = "image"
	BlockKindForm    BlockKind = "form"
	BlockKindUnknown BlockKind = "unknown"
)

// Block is the sealed sum type over the block variants. Switch on the
// concrete type (or Kind) to render it.
type Block interface {
	Kind() BlockKind
	// ID returns the optional "id" attribute used to key the block in a
	// list; empty when the schema did not provide one.
	ID() string
	block()
}

// TextBlock renders a run of text. Format is "markdown" when the schema asks
// for markdown rendering and empty for plain text.
type TextBlock struct {
	BlockID string
	Text    string
	Format  string
}

func (b TextBlock) Kind() BlockKind { return BlockKindText }
func (b TextBlock) ID() string      { return b.BlockID }
func (TextBlock) block()            {}

// Markdown reports whether the text should be rendered as markdown.
func (b TextBlock) Markdown() bool {
	return b.Format == TextFormatMarkdown
}

// TextFormatMarkdown is the only non-default text format.
const TextFormatMarkdown = "markdown"

// ImageBlock renders an image. A missing src is not an error; presentation
// layers render an explicit "no source" placeholder instead.
type ImageBlock struct {
	BlockID string
	Src     string
	Alt     string
}

func (b ImageBlock) Kind() BlockKind { return BlockKindImage }
func (b ImageBlock) ID() string      { return b.BlockID }
func (ImageBlock) block()            {}

// HasSource reports whether the block carries a usable src.
func (b ImageBlock) HasSource() bool {
	return b.Src != ""
}

// DefaultSubmitText labels the submit control when the schema omits one.
const DefaultSubmitText = "Submit"

// FormBlock describes a form: its fields and the optional onSubmit logic body
// executed by the sandbox after field validation passes.
type FormBlock struct {
	BlockID     string
	Title       string
	Description string
	Fields      []FieldSpec
	SubmitText  string
	OnSubmit    string
}

func (b FormBlock) Kind() BlockKind { return BlockKindForm }
func (b FormBlock) ID() string      { return b.BlockID }
func (FormBlock) block()            {}

// HasLogic reports whether an onSubmit body should run on submit.
func (b FormBlock) HasLogic() bool {
	return b.OnSubmit != ""
}

// UnknownBlock preserves a block whose type tag is not recognised. Type holds
// the raw tag ("" when the attribute was missing or not a string).
type UnknownBlock struct {
	BlockID string
	Type    string
}

func (b UnknownBlock) Kind() BlockKind { return BlockKindUnknown }
func (b UnknownBlock) ID() string      { return b.BlockID }
func (UnknownBlock) block()            {}

// Document is a parsed schema. List records whether the source was an array,
// which presentation layers use to decide between a list and a single block.
type Document struct {
	Blocks []Block
	List   bool
}

// Len returns the number of blocks in the document.
func (d Document) Len() int {
	return len(d.Blocks)
}
