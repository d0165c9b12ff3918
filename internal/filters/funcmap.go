package filters

import (
	"fmt"
	"html/template"
)

// FuncMap returns the registered filters as template functions. Arguments come
// first and the bound value last, so filters chain in pipelines:
//
//	{{ .Name | capitalize }}
//	{{ .Key | truncate 40 }}
//	{{ .Label | highlight $.Query }}
//
// highlight returns sanitized template.HTML; the others return plain strings
// and are escaped by html/template as usual.
func (r *Registry) FuncMap() template.FuncMap {
	funcs := template.FuncMap{}
	for _, name := range r.Names() {
		funcs[name] = r.pipe(name)
	}
	funcs["highlight"] = func(args ...any) (template.HTML, error) {
		out, err := r.pipe("highlight")(args...)
		if err != nil {
			return "", err
		}
		return template.HTML(r.Sanitize(out)), nil
	}
	return funcs
}

func (r *Registry) pipe(name string) func(args ...any) (string, error) {
	return func(args ...any) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%s: %w: missing input", name, ErrInvalidArgument)
		}
		input := args[len(args)-1]
		return r.Apply(name, input, args[:len(args)-1]...)
	}
}
