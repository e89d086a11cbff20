package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseError reports a schema that could not be turned into a Document:
// malformed JSON or a value of the wrong shape. Message carries the parser's
// text without the package prefix so it can be shown to end users.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return "schema: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes raw JSON text into a Document. The top-level value must be an
// object or an array of objects; anything else yields a *ParseError.
func Parse(raw []byte) (Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, &ParseError{Message: "document is empty"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return Document{}, &ParseError{Message: jsonMessage(err), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Document{}, &ParseError{Message: "unexpected data after top-level value"}
	}

	return FromValue(value)
}

// ParseString is Parse for string input.
func ParseString(raw string) (Document, error) {
	return Parse([]byte(raw))
}

// FromValue builds a Document from an already-decoded JSON value
// (map[string]any or []any). Numbers may be json.Number or any Go numeric
// type.
func FromValue(value any) (Document, error) {
	switch typed := value.(type) {
	case map[string]any:
		return Document{Blocks: []Block{decodeBlock(typed)}}, nil
	case []any:
		blocks := make([]Block, 0, len(typed))
		for idx, item := range typed {
			obj, ok := item.(map[string]any)
			if !ok {
				return Document{}, &ParseError{
					Message: fmt.Sprintf("block %d: expected object, got %s", idx, jsonKind(item)),
				}
			}
			blocks = append(blocks, decodeBlock(obj))
		}
		return Document{Blocks: blocks, List: true}, nil
	case []map[string]any:
		blocks := make([]Block, 0, len(typed))
		for _, obj := range typed {
			blocks = append(blocks, decodeBlock(obj))
		}
		return Document{Blocks: blocks, List: true}, nil
	default:
		return Document{}, &ParseError{
			Message: fmt.Sprintf("expected object or array of objects, got %s", jsonKind(value)),
		}
	}
}

func decodeBlock(obj map[string]any) Block {
	id := identifier(obj["id"])
	kind, _ := obj["type"].(string)

	switch BlockKind(kind) {
	case BlockKindText:
		text, _ := stringValue(obj["text"])
		format, _ := obj["format"].(string)
		return TextBlock{BlockID: id, Text: text, Format: strings.ToLower(strings.TrimSpace(format))}
	case BlockKindImage:
		src, _ := stringValue(obj["src"])
		alt, _ := stringValue(obj["alt"])
		return ImageBlock{BlockID: id, Src: src, Alt: alt}
	case BlockKindForm:
		return decodeForm(id, obj)
	default:
		return UnknownBlock{BlockID: id, Type: kind}
	}
}

func decodeForm(id string, obj map[string]any) FormBlock {
	form := FormBlock{BlockID: id, SubmitText: DefaultSubmitText}
	form.Title, _ = stringValue(obj["title"])
	form.Description, _ = stringValue(obj["description"])
	if text, ok := stringValue(obj["submitText"]); ok && text != "" {
		form.SubmitText = text
	}
	// Only string logic bodies are executed.
	if logic, ok := obj["onSubmit"].(string); ok {
		form.OnSubmit = logic
	}

	rawFields, _ := obj["fields"].([]any)
	for idx, raw := range rawFields {
		fieldObj, ok := raw.(map[string]any)
		if !ok {
			fieldObj = map[string]any{}
		}
		form.Fields = append(form.Fields, decodeField(idx, fieldObj))
	}
	return form
}

func decodeField(index int, obj map[string]any) FieldSpec {
	field := FieldSpec{Index: index}
	field.Name, _ = stringValue(obj["name"])
	field.Label, _ = stringValue(obj["label"])
	field.Placeholder, _ = stringValue(obj["placeholder"])
	field.VisibleWhen, _ = obj["visibleWhen"].(string)

	field.RawType, _ = obj["type"].(string)
	field.Type, _ = ParseFieldType(field.RawType)

	field.Required = truthy(obj["required"])
	field.Min = floatPointer(obj["min"])
	field.Max = floatPointer(obj["max"])
	field.MinLength = intPointer(obj["minLength"])
	field.MaxLength = intPointer(obj["maxLength"])
	if truthy(obj["pattern"]) {
		field.Pattern, _ = stringValue(obj["pattern"])
	}
	if rows, ok := numberValue(obj["rows"]); ok && rows > 0 {
		field.Rows = int(rows)
	}
	if value, ok := obj["defaultValue"]; ok && value != nil {
		field.DefaultValue = plainValue(value)
		field.HasDefault = true
	}
	field.Options = decodeOptions(obj["options"])
	return field
}

func decodeOptions(raw any) []Option {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	options := make([]Option, 0, len(items))
	for _, item := range items {
		switch typed := item.(type) {
		case []any:
			var opt Option
			if len(typed) > 0 {
				opt.Value, _ = stringValue(typed[0])
			}
			opt.Label = opt.Value
			if len(typed) > 1 {
				if label, ok := stringValue(typed[1]); ok {
					opt.Label = label
				}
			}
			options = append(options, opt)
		case map[string]any:
			var opt Option
			opt.Value, _ = stringValue(typed["value"])
			opt.Label = opt.Value
			if label, ok := stringValue(typed["label"]); ok {
				opt.Label = label
			}
			options = append(options, opt)
		default:
			value, ok := stringValue(typed)
			if !ok {
				continue
			}
			options = append(options, Option{Value: value, Label: value})
		}
	}
	return options
}

func jsonMessage(err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("%s (offset %d)", syntaxErr.Error(), syntaxErr.Offset)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return "unexpected end of JSON input"
	}
	return err.Error()
}

func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := numberValue(value); ok {
			return "number"
		}
		return fmt.Sprintf("%T", value)
	}
}
