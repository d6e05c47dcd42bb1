package client

import (
	"sort"
	"strings"
)

// ValidationError lists the required fields left empty. It is returned before any
// request is sent.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "required fields are empty: " + strings.Join(e.Fields, ", ")
}

type BlogForm struct {
	Title       string
	Description string
	Image       *Upload
}

func (f BlogForm) Validate() error {
	fields := missing(map[string]string{"title": f.Title, "description": f.Description})
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Fields: []string{"text"}}
	}
	return nil
}

func missing(values map[string]string) []string {
	var fields []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}
