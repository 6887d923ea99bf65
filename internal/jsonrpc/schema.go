package jsonrpc

import (
	"encoding/json"
	"math"
)

// ParamType is a one-letter schema type tag.
type ParamType byte

// Schema type tags.
const (
	TypeBoolean ParamType = 'b'
	TypeInteger ParamType = 'i'
	TypeDouble  ParamType = 'd'
	TypeString  ParamType = 's'
	TypeObject  ParamType = 'o'
	TypeArray   ParamType = 'a'
)

// Param declares one schema entry of a method.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
}

// Params holds validated, normalized parameters keyed by schema name.
type Params map[string]any

// Has reports whether the parameter was provided.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns a string parameter or "".
func (p Params) String(name string) string {
	v, _ := p[name].(string)
	return v
}

// Int returns an integer parameter or def.
func (p Params) Int(name string, def int64) int64 {
	if v, ok := p[name].(int64); ok {
		return v
	}
	return def
}

// Float returns a double parameter or def. Integer values are accepted.
func (p Params) Float(name string, def float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return def
}

// Bool returns a boolean parameter or def.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name].(bool); ok {
		return v
	}
	return def
}

// Object returns an object parameter or nil.
func (p Params) Object(name string) map[string]any {
	v, _ := p[name].(map[string]any)
	return v
}

// Array returns an array parameter or nil.
func (p Params) Array(name string) []any {
	v, _ := p[name].([]any)
	return v
}

// StringArray returns an array parameter coerced to strings, skipping
// non-string elements.
func (p Params) StringArray(name string) []string {
	raw := p.Array(name)
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// validateParams checks raw request params against the schema and builds the
// normalized parameter map. Array-form params are matched positionally,
// object-form by name.
func validateParams(schema []Param, raw json.RawMessage) (Params, error) {
	normalized := Params{}
	if len(raw) == 0 {
		for _, def := range schema {
			if def.Required {
				return nil, Errorf(KindInvalidParams, "missing parameter %q", def.Name)
			}
		}
		return normalized, nil
	}

	var values map[string]json.RawMessage
	switch firstByte(raw) {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, Errorf(KindInvalidParams, "malformed params")
		}
		if len(list) > len(schema) {
			return nil, Errorf(KindInvalidParams, "too many parameters")
		}
		values = make(map[string]json.RawMessage, len(list))
		for i, v := range list {
			values[schema[i].Name] = v
		}
	case '{':
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, Errorf(KindInvalidParams, "malformed params")
		}
	default:
		return nil, Errorf(KindBadRequest, "params must be an object or an array")
	}

	for _, def := range schema {
		value, ok := values[def.Name]
		if !ok || string(value) == "null" {
			if def.Required {
				return nil, Errorf(KindInvalidParams, "missing parameter %q", def.Name)
			}
			continue
		}
		converted, err := convertParam(def, value)
		if err != nil {
			return nil, err
		}
		normalized[def.Name] = converted
	}
	return normalized, nil
}

func convertParam(def Param, raw json.RawMessage) (any, error) {
	switch def.Type {
	case TypeBoolean:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, typeError(def)
		}
		return v, nil
	case TypeInteger:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil || v != math.Trunc(v) {
			return nil, typeError(def)
		}
		return int64(v), nil
	case TypeDouble:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, typeError(def)
		}
		return v, nil
	case TypeString:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, typeError(def)
		}
		return v, nil
	case TypeObject:
		if firstByte(raw) != '{' {
			return nil, typeError(def)
		}
		var v map[string]any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, typeError(def)
		}
		return v, nil
	case TypeArray:
		if firstByte(raw) != '[' {
			return nil, typeError(def)
		}
		var v []any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, typeError(def)
		}
		return v, nil
	}
	return nil, Errorf(KindInternal, "unknown schema type %q", def.Type)
}

func typeError(def Param) error {
	return Errorf(KindInvalidParams, "parameter %q has wrong type", def.Name)
}

func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
