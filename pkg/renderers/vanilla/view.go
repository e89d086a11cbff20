package vanilla

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/form"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/widgets"
	"github.com/samber/lo"
)

type formView struct {
	Key         string      `json:"key"`
	State       string      `json:"state"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Fields      []fieldView `json:"fields"`
	Submitting  bool        `json:"submitting"`
	SubmitLabel string      `json:"submit_label"`
	Result      *resultView `json:"result,omitempty"`
}

type fieldView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Caption     string       `json:"caption"`
	Required    bool         `json:"required"`
	Control     string       `json:"control"`
	InputType   string       `json:"input_type"`
	Rows        string       `json:"rows"`
	Placeholder string       `json:"placeholder"`
	Value       string       `json:"value"`
	Checked     bool         `json:"checked"`
	Min         string       `json:"min"`
	Max         string       `json:"max"`
	MinLength   string       `json:"min_length"`
	MaxLength   string       `json:"max_length"`
	Error       string       `json:"error"`
	Options     []optionView `json:"options"`
}

type optionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type resultView struct {
	Message string `json:"message"`
	IsError bool   `json:"is_error"`
}

func newFormView(node blocks.FormNode, registry *widgets.Registry) formView {
	view := formView{
		Key:         node.NodeKey,
		Title:       node.Block.Title,
		Description: node.Block.Description,
		SubmitLabel: node.Block.SubmitText,
	}
	engine := node.Engine
	if engine == nil {
		view.State = form.Idle.String()
		return view
	}

	view.State = engine.State().String()
	view.Submitting = engine.IsSubmitting()
	view.SubmitLabel = engine.SubmitLabel()
	if result := engine.Result(); result != nil {
		view.Result = &resultView{Message: result.Message, IsError: result.IsError}
	}
	view.Fields = lo.Map(engine.Fields(), func(field form.FieldView, _ int) fieldView {
		return newFieldView(node.NodeKey, field, registry.Resolve(field.Spec))
	})
	return view
}

func newFieldView(formKey string, field form.FieldView, widget string) fieldView {
	spec := field.Spec
	view := fieldView{
		ID:          "fb-" + formKey + "-" + field.Key,
		Name:        field.Key,
		Caption:     spec.Caption(),
		Required:    spec.Required,
		InputType:   spec.InputType(),
		Placeholder: spec.Placeholder,
		Error:       field.Error,
		Min:         formatFloat(spec.Min),
		Max:         formatFloat(spec.Max),
		MinLength:   formatInt(spec.MinLength),
		MaxLength:   formatInt(spec.MaxLength),
	}

	switch widget {
	case widgets.WidgetTextarea:
		view.Control = widget
		view.Rows = strconv.Itoa(spec.TextareaRows())
	case widgets.WidgetSelect, widgets.WidgetCheckbox:
		view.Control = widget
	default:
		view.Control = widgets.WidgetInput
	}

	if view.Control == widgets.WidgetCheckbox {
		view.Checked, _ = form.Coerce(spec, field.Value).(bool)
	} else {
		view.Value = displayValue(field.Value)
	}

	view.Options = lo.Map(spec.Options, func(option schema.Option, _ int) optionView {
		return optionView{
			Value:    option.Value,
			Label:    option.Label,
			Selected: view.Value != "" && option.Value == view.Value,
		}
	})
	return view
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
