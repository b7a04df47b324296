// Package pagemodel defines the page model records exchanged between the
// editor and the backend: components, their editable properties and the
// documents offered for combo fields.
package pagemodel

import (
	"slices"

	"github.com/matzehuels/pagecomposer/pkg/errors"
)

// Type distinguishes component records.
type Type string

// Component types.
const (
	TypePage          Type = "PAGE"
	TypeContainer     Type = "CONTAINER_COMPONENT"
	TypeContainerItem Type = "CONTAINER_ITEM_COMPONENT"
)

// Component is one record of a page model or a toolkit.
type Component struct {
	ID       string   `json:"id" bson:"id" toml:"id"`
	Name     string   `json:"name" bson:"name" toml:"name"`
	Type     Type     `json:"type" bson:"type" toml:"type"`
	Template string   `json:"template,omitempty" bson:"template,omitempty" toml:"template"`
	ParentID string   `json:"parentId,omitempty" bson:"parentId,omitempty" toml:"parent"`
	Path     string   `json:"path,omitempty" bson:"path,omitempty" toml:"path"`
	XType    string   `json:"xtype,omitempty" bson:"xtype,omitempty" toml:"xtype"`
	Children []string `json:"children,omitempty" bson:"children,omitempty" toml:"children"`
}

// IsContainer reports whether c holds items.
func (c Component) IsContainer() bool { return c.Type == TypeContainer }

// IsItem reports whether c is a container item.
func (c Component) IsItem() bool { return c.Type == TypeContainerItem }

// HasChild reports whether id is one of c's children.
func (c Component) HasChild(id string) bool { return slices.Contains(c.Children, id) }

// Property is an editable parameter of a component.
type Property struct {
	Name        string `json:"name" bson:"name" toml:"name"`
	Value       string `json:"value" bson:"value" toml:"value"`
	Label       string `json:"label" bson:"label" toml:"label"`
	Required    bool   `json:"required" bson:"required" toml:"required"`
	Description string `json:"description,omitempty" bson:"description,omitempty" toml:"description"`
	DocType     string `json:"docType,omitempty" bson:"docType,omitempty" toml:"doc_type"`
	Type        string `json:"type" bson:"type" toml:"type"`
}

// Field types of properties.
const (
	FieldText     = "textfield"
	FieldTextArea = "textarea"
	FieldNumber   = "numberfield"
	FieldCheckbox = "checkbox"
	FieldCombo    = "combo"
)

// Document is a selectable document path.
type Document struct {
	Path string `json:"path" bson:"path" toml:"path"`
}

// Page describes an editable page.
type Page struct {
	ID        string `json:"id" bson:"id" toml:"id"`
	SiteID    string `json:"siteId" bson:"siteId" toml:"site"`
	ToolkitID string `json:"toolkitId,omitempty" bson:"toolkitId,omitempty" toml:"toolkit"`
	RootID    string `json:"rootId" bson:"rootId" toml:"root"`
	HTML      string `json:"html,omitempty" bson:"html,omitempty" toml:"html"`
}

// ListResponse is the envelope of record lists.
type ListResponse[T any] struct {
	Success bool   `json:"success"`
	Data    []T    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ItemResponse is the envelope of single records.
type ItemResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// PropertiesResponse is the body of the parameters endpoint.
type PropertiesResponse struct {
	Properties []Property `json:"properties"`
}

// ApplyValues sets property values by name. Names that are not properties
// of the component are an INVALID_INPUT error; nothing is changed then.
func ApplyValues(props []Property, values map[string]string) ([]Property, error) {
	out := slices.Clone(props)
	known := make(map[string]int, len(out))
	for i, p := range out {
		known[p.Name] = i
	}
	for name := range values {
		if _, ok := known[name]; !ok {
			return props, errors.New(errors.ErrCodeInvalidInput, "unknown property %q", name)
		}
	}
	for name, v := range values {
		out[known[name]].Value = v
	}
	return out, nil
}

// Missing returns the names of required properties with empty values.
func Missing(props []Property) []string {
	var out []string
	for _, p := range props {
		if p.Required && p.Value == "" {
			out = append(out, p.Name)
		}
	}
	return out
}
