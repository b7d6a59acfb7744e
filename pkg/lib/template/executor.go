package template

import (
	"bytes"
	"fmt"
	"text/template"
)

// Executor wraps a parsed text template. Templates are parsed with
// missingkey=error so a data/template mismatch fails loudly instead of
// rendering "<no value>" into a config file.
type Executor struct {
	template *template.Template
}

func NewExecutor(name, content string, funcs template.FuncMap) (*Executor, error) {
	tmpl := template.New(name).Option("missingkey=error")
	if funcs != nil {
		tmpl = tmpl.Funcs(funcs)
	}
	tmpl, err := tmpl.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &Executor{template: tmpl}, nil
}

// Execute renders the template against the provided data.
func (e *Executor) Execute(data any) ([]byte, error) {
	tpl := new(bytes.Buffer)
	if err := e.template.Execute(tpl, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", e.template.Name(), err)
	}
	return tpl.Bytes(), nil
}
