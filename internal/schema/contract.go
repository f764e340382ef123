// Package schema describes the four input tables the ROAS pipeline accepts and
// checks that a loaded table carries the columns its contract requires.
package schema

// Field describes one column of an input table.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "text" | "int" | "float" | "date"
	Required bool   `json:"required,omitempty"`

	// Label is the header as the input files spell it, used in error
	// reports. Empty means Name.
	Label string `json:"label,omitempty"`

	// Default is written into the column when it is absent from the input or,
	// for numeric fields, when a cell is empty. Nil means no default.
	Default any `json:"default,omitempty"`
}

// Contract is the column contract for one named input table.
type Contract struct {
	Name      string            `json:"name"`
	Fields    []Field           `json:"fields"`
	HeaderMap map[string]string `json:"header_map,omitempty"`
}

// Required lists the required column names in contract order.
func (c Contract) Required() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Label returns the reported header for the field called name.
func (c Contract) Label(name string) string {
	if f, ok := c.Field(name); ok && f.Label != "" {
		return f.Label
	}
	return name
}

// Defaults maps every field that declares a default to that value.
func (c Contract) Defaults() map[string]any {
	out := map[string]any{}
	for _, f := range c.Fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// Types maps field name to its declared type, for the Coerce transformer.
func (c Contract) Types() map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		out[f.Name] = f.Type
	}
	return out
}

// Field returns the field named name.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
