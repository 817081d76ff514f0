package notifx

import (
	"bytes"
	htmltemplate "html/template"
	"sort"
	"strings"
	"sync"
	texttemplate "text/template"
)

type compiledTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// TemplateRegistry stores and renders named email templates.
type TemplateRegistry struct {
	templates map[string]*compiledTemplate
	mu        sync.RWMutex
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*compiledTemplate),
	}
}

// Register parses tmpl and stores it under name, replacing any previous
// template of that name.
func (r *TemplateRegistry) Register(name string, tmpl Template) error {
	parseErr := func(err error) error {
		return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
	}

	if strings.TrimSpace(tmpl.Subject) == "" {
		return notifxErrors.NewWithMessage(ErrTemplateParse, "template subject is required").WithDetail("template", name)
	}

	var (
		ct  compiledTemplate
		err error
	)
	if ct.subject, err = texttemplate.New(name + ".subject").Option("missingkey=zero").Parse(tmpl.Subject); err != nil {
		return parseErr(err)
	}
	if tmpl.Text != "" {
		if ct.text, err = texttemplate.New(name + ".text").Option("missingkey=zero").Parse(tmpl.Text); err != nil {
			return parseErr(err)
		}
	}
	if tmpl.HTML != "" {
		if ct.html, err = htmltemplate.New(name + ".html").Option("missingkey=zero").Parse(tmpl.HTML); err != nil {
			return parseErr(err)
		}
	}

	r.mu.Lock()
	r.templates[name] = &ct
	r.mu.Unlock()

	return nil
}

func (r *TemplateRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

// Names returns the registered template names, sorted.
func (r *TemplateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template with data.
func (r *TemplateRegistry) Render(name string, data any) (Rendered, error) {
	r.mu.RLock()
	ct, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return Rendered{}, notifxErrors.New(ErrTemplateNotFound).WithDetail("template", name)
	}

	renderErr := func(err error) error {
		return notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
	}

	var out Rendered
	var buf bytes.Buffer
	if err := ct.subject.Execute(&buf, data); err != nil {
		return Rendered{}, renderErr(err)
	}
	out.Subject = strings.TrimSpace(buf.String())

	if ct.text != nil {
		buf.Reset()
		if err := ct.text.Execute(&buf, data); err != nil {
			return Rendered{}, renderErr(err)
		}
		out.Text = buf.String()
	}
	if ct.html != nil {
		buf.Reset()
		if err := ct.html.Execute(&buf, data); err != nil {
			return Rendered{}, renderErr(err)
		}
		out.HTML = buf.String()
	}

	return out, nil
}
