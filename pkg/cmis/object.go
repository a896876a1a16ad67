package cmis

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Properties is the canonical, flat shape of the properties of an object:
// property id to value. Multi-valued properties are []interface{}.
type Properties map[string]interface{}

// Object is a CMIS object as returned by the object, children, query and
// create* calls.
//
// The server answers with either the verbose shape
//
//	{"properties": {"cmis:name": {"value": "x", ...}}}
//
// or the succinct one
//
//	{"succinctProperties": {"cmis:name": "x"}}
//
// depending on the endpoint and on the succinct parameter. Both are decoded
// into the same flat Properties.
type Object struct {
	Properties Properties
}

type verboseProperty struct {
	Value interface{} `json:"value"`
}

type rawObject struct {
	Properties map[string]verboseProperty `json:"properties"`
	Succinct   map[string]interface{}     `json:"succinctProperties"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(b []byte) error {
	var raw rawObject
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.Properties = normalize(raw)
	return nil
}

// MarshalJSON writes the succinct shape.
func (o Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"succinctProperties": o.Properties})
}

func normalize(raw rawObject) Properties {
	props := make(Properties, len(raw.Properties)+len(raw.Succinct))
	for id, p := range raw.Properties {
		props[id] = p.Value
	}
	// The succinct values win: a server sending both is sending the same
	// data twice.
	for id, v := range raw.Succinct {
		props[id] = v
	}
	return props
}

// ID returns the cmis:objectId.
func (o *Object) ID() string { return o.Properties.String(PropObjectID) }

// Name returns the cmis:name.
func (o *Object) Name() string { return o.Properties.String(PropName) }

// TypeID returns the cmis:objectTypeId.
func (o *Object) TypeID() string { return o.Properties.String(PropObjectTypeID) }

// BaseTypeID returns the cmis:baseTypeId.
func (o *Object) BaseTypeID() string { return o.Properties.String(PropBaseTypeID) }

// IsFolder returns true for objects of the cmis:folder base type.
func (o *Object) IsFolder() bool { return o.BaseTypeID() == BaseFolder }

// String returns the value of a property as a string. For a multi-valued
// property, the first value is returned.
func (p Properties) String(id string) string {
	switch v := p[id].(type) {
	case nil:
		return ""
	case string:
		return v
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		return Properties{id: v[0]}.String(id)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the values of a property, a single value giving a slice of
// one element.
func (p Properties) Strings(id string) []string {
	switch v := p[id].(type) {
	case nil:
		return nil
	case []interface{}:
		res := make([]string, 0, len(v))
		for _, item := range v {
			res = append(res, Properties{id: item}.String(id))
		}
		return res
	default:
		return []string{p.String(id)}
	}
}

// Int64 returns the value of an integer property, or 0.
func (p Properties) Int64(id string) int64 {
	switch v := p[id].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Bool returns the value of a boolean property, or false.
func (p Properties) Bool(id string) bool {
	switch v := p[id].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Decode copies the properties into a struct whose fields are tagged with
// the property ids, like:
//
//	type Document struct {
//		ID   string `property:"cmis:objectId"`
//		Size int64  `property:"cmis:contentStreamLength"`
//	}
//
// Values are weakly typed, so a number sent as a string is accepted.
func (p Properties) Decode(out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "property",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]interface{}(p))
}
