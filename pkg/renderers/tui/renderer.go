package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/goliatone/go-formblocks/pkg/blocks"
	"github.com/goliatone/go-formblocks/pkg/form"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/schema"
	"github.com/goliatone/go-formblocks/pkg/widgets"
)

// Name is the registry name of the terminal renderer.
const Name = "tui"

const (
	selectPlaceholder = "Select..."
	retryPrompt       = "Edit and submit again?"
)

// Report is the serialized outcome of one form after an interactive session.
type Report struct {
	Key    string            `json:"key"`
	State  string            `json:"state"`
	Values map[string]any    `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
	Result *form.Result      `json:"result,omitempty"`
}

// Renderer implements render.Renderer for terminal-driven sessions: content
// blocks are printed, every form is filled field by field through the prompt
// driver and submitted, and the collected reports are returned serialized.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	maxAttempts  int
	theme        Theme
	widgets      *widgets.Registry
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
		widgets:      widgets.NewRegistry(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render walks the tree in order. It stops at the first driver error, which
// includes ErrAborted when the user interrupts a prompt.
func (r *Renderer) Render(ctx context.Context, tree blocks.Tree, _ render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	reports := make([]Report, 0, len(tree.Forms()))
	for _, node := range tree.Nodes {
		if n, ok := node.(blocks.FormNode); ok {
			report, err := r.fill(ctx, n)
			if err != nil {
				return nil, err
			}
			reports = append(reports, report)
			continue
		}
		if err := r.describe(ctx, node); err != nil {
			return nil, err
		}
	}
	return r.serialize(reports)
}

func (r *Renderer) describe(ctx context.Context, node blocks.Node) error {
	switch n := node.(type) {
	case blocks.TextNode:
		return r.info(ctx, n.Text)
	case blocks.ImageNode:
		caption := n.Alt
		if caption == "" {
			caption = "image"
		}
		return r.info(ctx, fmt.Sprintf("[%s] %s", caption, n.Src))
	case blocks.MissingImageNode:
		return r.info(ctx, "["+n.Message+"]")
	case blocks.UnknownBlockNode:
		return r.fail(ctx, n.Message)
	case blocks.SchemaErrorNode:
		return r.fail(ctx, n.Message)
	case blocks.FaultNode:
		return r.fail(ctx, n.Message)
	default:
		return nil
	}
}

// fill prompts every visible field, submits, and offers another round while
// the form is rejected.
func (r *Renderer) fill(ctx context.Context, node blocks.FormNode) (Report, error) {
	engine := node.Engine
	if engine == nil {
		return Report{Key: node.NodeKey, State: form.Idle.String(), Values: map[string]any{}}, nil
	}
	if node.Block.Title != "" {
		if err := r.info(ctx, node.Block.Title); err != nil {
			return Report{}, err
		}
	}
	if node.Block.Description != "" {
		if err := r.info(ctx, node.Block.Description); err != nil {
			return Report{}, err
		}
	}

	for attempt := 1; ; attempt++ {
		if err := r.promptFields(ctx, engine); err != nil {
			return Report{}, err
		}

		submission := engine.Submit(ctx)
		if err := r.announce(ctx, submission); err != nil {
			return Report{}, err
		}
		if submission.State == form.Accepted {
			return newReport(node.NodeKey, submission), nil
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return newReport(node.NodeKey, submission), nil
		}
		again, err := r.driver.Confirm(ctx, ConfirmConfig{Message: retryPrompt, Default: true})
		if err != nil {
			return Report{}, err
		}
		if !again {
			return newReport(node.NodeKey, submission), nil
		}
	}
}

// promptFields asks for each visible field once. Visibility is re-read after
// every answer, so a field revealed by an earlier answer is asked as well.
func (r *Renderer) promptFields(ctx context.Context, engine *form.Engine) error {
	asked := make(map[int]bool)
	for {
		view, ok := lo.Find(engine.Fields(), func(view form.FieldView) bool {
			return !asked[view.Spec.Index]
		})
		if !ok {
			return nil
		}
		asked[view.Spec.Index] = true

		value, err := r.promptField(ctx, engine, view)
		if err != nil {
			return err
		}
		if err := engine.SetValue(view.Key, value); err != nil {
			return fmt.Errorf("tui: set %s: %w", view.Key, err)
		}
	}
}

func (r *Renderer) promptField(ctx context.Context, engine *form.Engine, view form.FieldView) (any, error) {
	spec := view.Spec
	label := spec.Caption()
	help := spec.Placeholder
	current := displayValue(view.Value)
	check := func(text string) error {
		return engine.ValidateField(view.Key, text)
	}

	for {
		var (
			answer any
			err    error
		)
		switch r.widgets.Resolve(spec) {
		case widgets.WidgetCheckbox:
			checked, _ := form.Coerce(spec, view.Value).(bool)
			answer, err = r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: checked, Help: help})
		case widgets.WidgetSelect:
			answer, err = r.promptSelect(ctx, spec, label, current)
		case widgets.WidgetTextarea:
			answer, err = r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: current, Help: help})
		case widgets.WidgetPassword:
			answer, err = r.driver.Password(ctx, InputConfig{Message: label, Default: current, Help: help, Validator: check})
		default:
			answer, err = r.driver.Input(ctx, InputConfig{Message: label, Default: current, Help: help, Validator: check})
		}
		if err != nil {
			return nil, err
		}

		if err := engine.ValidateField(view.Key, answer); err != nil {
			if err := r.fail(ctx, fmt.Sprintf("Invalid %s: %v", label, err)); err != nil {
				return nil, err
			}
			continue
		}
		return answer, nil
	}
}

// promptSelect returns the chosen option value. Optional selects offer a
// leading placeholder that maps to the empty string.
func (r *Renderer) promptSelect(ctx context.Context, spec schema.FieldSpec, label, current string) (string, error) {
	values := lo.Map(spec.Options, func(option schema.Option, _ int) string { return option.Value })
	labels := lo.Map(spec.Options, func(option schema.Option, _ int) string { return option.Label })
	if !spec.Required {
		values = append([]string{""}, values...)
		labels = append([]string{selectPlaceholder}, labels...)
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      labels,
		DefaultIndex: indexOf(values, current),
		Help:         spec.Placeholder,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(values) {
		return "", nil
	}
	return values[idx], nil
}

func (r *Renderer) announce(ctx context.Context, submission form.Submission) error {
	if submission.Result != nil {
		if submission.Result.IsError {
			return r.fail(ctx, submission.Result.Message)
		}
		return r.info(ctx, submission.Result.Message)
	}
	for _, key := range slices.Sorted(maps.Keys(submission.Errors)) {
		if err := r.fail(ctx, submission.Errors[key]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) fail(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func newReport(key string, submission form.Submission) Report {
	report := Report{
		Key:    key,
		State:  submission.State.String(),
		Values: submission.Values,
		Result: submission.Result,
	}
	if len(submission.Errors) > 0 {
		report.Errors = submission.Errors
	}
	if report.Values == nil {
		report.Values = map[string]any{}
	}
	return report
}

func (r *Renderer) serialize(reports []Report) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(reports)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(reports)), nil
	default:
		return json.MarshalIndent(reports, "", "  ")
	}
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func flattenForm(reports []Report) string {
	flattened := url.Values{}
	for _, report := range reports {
		for key, value := range report.Values {
			flattened.Set(report.Key+"."+key, displayValue(value))
		}
	}
	return flattened.Encode()
}

func prettyPrint(reports []Report) string {
	var b strings.Builder
	for idx, report := range reports {
		if idx > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s\n", report.Key, report.State)
		for _, key := range slices.Sorted(maps.Keys(report.Values)) {
			fmt.Fprintf(&b, "%s=%s\n", key, displayValue(report.Values[key]))
		}
		if report.Result != nil {
			fmt.Fprintf(&b, "%s\n", report.Result.Message)
		}
	}
	return b.String()
}
