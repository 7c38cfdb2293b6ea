// Package reply parses the JSON object returned by the remote function and flattens it into markdown.
package reply

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ReplyField is the conventional name of the primary text field
const ReplyField = "reply"

// Payload is the parsed reply: the primary text plus every other top-level field, in document order
type Payload struct {
	Reply      string
	Fields     []Field
	StatusCode int    // HTTP status the payload arrived with, 0 if unknown
	Raw        string // The undecoded body
}

// Field is one extra named value of a payload. Its shape is decided when the payload is formatted.
type Field struct {
	Name  string
	Value gjson.Result
}

// Shape is the rendering a field's value gets
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeTable
	ShapeKeyValue
	ShapeScalar
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeTable:
		return "table"
	case ShapeKeyValue:
		return "key-value"
	case ShapeScalar:
		return "scalar"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Parse decodes a response body. The body must be a JSON object; Raw is kept even when it is not.
func Parse(body []byte) (Payload, error) {
	if !gjson.ValidBytes(body) {
		return Payload{Raw: string(body)}, fmt.Errorf("response is not valid JSON: %s", truncate(string(body), 200))
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Payload{Raw: string(body)}, fmt.Errorf("response is a JSON %s, expected an object", typeName(root))
	}

	payload := Payload{Raw: string(body)}
	root.ForEach(func(key, value gjson.Result) bool {
		if key.String() == ReplyField {
			if value.Type != gjson.Null {
				payload.Reply = value.String()
			}
			return true
		}
		payload.Fields = append(payload.Fields, Field{Name: key.String(), Value: value})
		return true
	})
	return payload, nil
}

// HasReply reports whether the payload carries usable primary text
func (p Payload) HasReply() bool {
	return strings.TrimSpace(p.Reply) != ""
}

// Get returns the named extra field's value, or a zero Result if absent
func (p Payload) Get(name string) gjson.Result {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return gjson.Result{}
}

// Shape infers how a field should be rendered
func (f Field) Shape() Shape {
	v := f.Value
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ShapeEmpty
	case v.Type == gjson.String && v.Str == "":
		return ShapeEmpty
	case v.IsArray():
		items := v.Array()
		if len(items) == 0 {
			return ShapeEmpty
		}
		for _, item := range items {
			if !item.IsObject() {
				return ShapeScalar
			}
		}
		return ShapeTable
	case v.IsObject():
		if len(v.Map()) == 0 {
			return ShapeEmpty
		}
		return ShapeKeyValue
	default:
		return ShapeScalar
	}
}

func typeName(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "array"
	case r.Type == gjson.String:
		return "string"
	case r.Type == gjson.Number:
		return "number"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "boolean"
	default:
		return "null"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
