package definition

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

const (
	captureFunc = "captureValue"
	noValue     = "<no value>"
)

// renderer produces one node of a step input tree
type renderer interface {
	render(data map[string]any) (any, error)
}

type (
	literal struct{ value any }

	mapRenderer struct {
		keys   []string
		values map[string]renderer
	}

	listRenderer []renderer

	// textRenderer interpolates a template into a string
	textRenderer struct{ tmpl *template.Template }

	// valueRenderer evaluates a single template action and keeps the type
	// of its result
	valueRenderer struct{ tmpl *template.Template }
)

// compileValue turns an input tree into renderers. String leaves holding
// template actions are parsed once here.
func compileValue(path string, v any) (renderer, error) {
	switch t := v.(type) {
	case map[string]any:
		m := mapRenderer{values: make(map[string]renderer, len(t))}
		for k, val := range t {
			r, err := compileValue(path+"."+k, val)
			if err != nil {
				return nil, err
			}
			m.keys = append(m.keys, k)
			m.values[k] = r
		}
		sort.Strings(m.keys)
		return m, nil
	case []any:
		l := make(listRenderer, 0, len(t))
		for i, val := range t {
			r, err := compileValue(fmt.Sprintf("%s[%d]", path, i), val)
			if err != nil {
				return nil, err
			}
			l = append(l, r)
		}
		return l, nil
	case string:
		return compileString(path, t)
	}
	return literal{value: v}, nil
}

func compileString(path, s string) (renderer, error) {
	if !strings.Contains(s, "{{") {
		return literal{value: s}, nil
	}

	if pipeline, ok := singleAction(s); ok {
		tmpl, err := newTemplate(path).Parse("{{ " + captureFunc + " (" + pipeline + ") }}")
		if err == nil {
			return valueRenderer{tmpl: tmpl}, nil
		}
		// Fall through: not every action is a valid operand
	}

	tmpl, err := newTemplate(path).Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrTemplateRender, path, err)
	}
	return textRenderer{tmpl: tmpl}, nil
}

func newTemplate(name string) *template.Template {
	return template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{captureFunc: func(v any) string { return "" }})
}

// singleAction reports whether s is exactly one template action and
// returns its pipeline
func singleAction(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	inner := s[2 : len(s)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	inner = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(inner, "-"), "-"))
	if inner == "" || strings.HasPrefix(inner, "/*") || strings.Contains(inner, ":=") {
		return "", false
	}
	return inner, true
}

func (l literal) render(map[string]any) (any, error) {
	return l.value, nil
}

func (m mapRenderer) render(data map[string]any) (any, error) {
	res := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		v, err := m.values[k].render(data)
		if err != nil {
			return nil, err
		}
		res[k] = v
	}
	return res, nil
}

func (l listRenderer) render(data map[string]any) (any, error) {
	res := make([]any, 0, len(l))
	for _, r := range l {
		v, err := r.render(data)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

func (t textRenderer) render(data map[string]any) (any, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTemplateRender, err)
	}
	return strings.ReplaceAll(buf.String(), noValue, ""), nil
}

func (t valueRenderer) render(data map[string]any) (any, error) {
	tmpl, err := t.tmpl.Clone()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTemplateRender, err)
	}

	var captured any
	tmpl.Funcs(template.FuncMap{captureFunc: func(v any) string {
		captured = v
		return ""
	}})
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTemplateRender, err)
	}
	return captured, nil
}
