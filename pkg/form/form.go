// Package form implements the form-parameter convention of the CMIS Browser
// Binding: a cmisaction field, plain fields, and indexed families of fields
// like propertyId[0]/propertyValue[0] or addACEPrincipal[0]/
// addACEPermission[0][0].
//
// A Form is built in order and encoded either as
// application/x-www-form-urlencoded or as multipart/form-data with a binary
// content part. Decode is the inverse operation.
package form

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/nemakiware/cmis-fixture/pkg/filetype"
)

// Names of the fields used by the convention.
const (
	ActionField              = "cmisaction"
	ContentField             = "content"
	PropertyIDField          = "propertyId"
	PropertyValueField       = "propertyValue"
	AddACEPrincipalField     = "addACEPrincipal"
	AddACEPermissionField    = "addACEPermission"
	RemoveACEPrincipalField  = "removeACEPrincipal"
	RemoveACEPermissionField = "removeACEPermission"
)

// Content types of the two codec modes.
const (
	URLEncoded = "application/x-www-form-urlencoded"
	Multipart  = "multipart/form-data"
)

// Field is a single key/value pair of a form, as sent on the wire.
type Field struct {
	Key   string
	Value string
}

// Content is the binary part of a createDocument (or setContentStream)
// action. When MimeType is empty, it is guessed from the first bytes of the
// body and from the extension of the filename.
type Content struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// Form is an ordered list of fields for one CMIS action. The zero value is
// not usable, use New.
type Form struct {
	fields  []Field
	props   int
	adds    int
	removes int
}

// New returns a form for the given action (createFolder, applyACL, ...).
func New(action string) *Form {
	return &Form{fields: []Field{{Key: ActionField, Value: action}}}
}

// Action returns the value of the cmisaction field.
func (f *Form) Action() string {
	return f.Get(ActionField)
}

// Set appends a plain field.
func (f *Form) Set(key, value string) *Form {
	f.fields = append(f.fields, Field{Key: key, Value: value})
	return f
}

// Get returns the value of the first field with the given key, or "".
func (f *Form) Get(key string) string {
	for _, field := range f.fields {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// AddProperty appends a property. A single value is sent as
// propertyValue[i], several values as propertyValue[i][j].
func (f *Form) AddProperty(id string, values ...string) *Form {
	i := f.props
	f.props++
	f.Set(indexed(PropertyIDField, i), id)
	if len(values) == 1 {
		return f.Set(indexed(PropertyValueField, i), values[0])
	}
	for j, v := range values {
		f.Set(indexed(PropertyValueField, i, j), v)
	}
	return f
}

// AddACE appends an access control entry to add: the principal as
// addACEPrincipal[i] and each permission as addACEPermission[i][j].
func (f *Form) AddACE(principal string, permissions ...string) *Form {
	i := f.adds
	f.adds++
	return f.ace(AddACEPrincipalField, AddACEPermissionField, i, principal, permissions)
}

// RemoveACE appends an access control entry to remove, with the same
// indexing as AddACE.
func (f *Form) RemoveACE(principal string, permissions ...string) *Form {
	i := f.removes
	f.removes++
	return f.ace(RemoveACEPrincipalField, RemoveACEPermissionField, i, principal, permissions)
}

func (f *Form) ace(principalKey, permKey string, i int, principal string, permissions []string) *Form {
	f.Set(indexed(principalKey, i), principal)
	for j, perm := range permissions {
		f.Set(indexed(permKey, i, j), perm)
	}
	return f
}

// Fields returns a copy of the fields, in order.
func (f *Form) Fields() []Field {
	fields := make([]Field, len(f.fields))
	copy(fields, f.fields)
	return fields
}

// Values returns the fields as url.Values.
func (f *Form) Values() url.Values {
	v := make(url.Values, len(f.fields))
	for _, field := range f.fields {
		v.Add(field.Key, field.Value)
	}
	return v
}

// Encode returns the url-encoded body. Unlike url.Values.Encode, the order
// of the fields is kept.
func (f *Form) Encode() string {
	var buf strings.Builder
	for i, field := range f.fields {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(field.Key))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(field.Value))
	}
	return buf.String()
}

// Reader returns the url-encoded body and its content type.
func (f *Form) Reader() (io.Reader, string) {
	return strings.NewReader(f.Encode()), URLEncoded
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Multipart returns a multipart/form-data body with all the fields followed
// by the content part, and the content type with its boundary. A nil content
// gives a multipart body without file part.
func (f *Form) Multipart(content *Content) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range f.fields {
		if err := w.WriteField(field.Key, field.Value); err != nil {
			return nil, "", err
		}
	}
	if content != nil {
		body := content.Body
		if body == nil {
			body = strings.NewReader("")
		}
		mimetype := content.MimeType
		if mimetype == "" {
			mimetype, body = filetype.Sniff(content.Filename, body)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			ContentField, quoteEscaper.Replace(content.Filename)))
		h.Set("Content-Type", mimetype)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err = io.Copy(part, body); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func indexed(name string, indexes ...int) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, i := range indexes {
		fmt.Fprintf(&sb, "[%d]", i)
	}
	return sb.String()
}
