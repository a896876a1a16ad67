package form

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Property is a decoded propertyId[i] with its values.
type Property struct {
	ID     string
	Values []string
}

// ACE is a decoded access control entry of an applyACL action.
type ACE struct {
	Principal   string
	Permissions []string
}

// Decoded is the logical content of a Browser Binding form.
type Decoded struct {
	Action     string
	Fields     url.Values
	Properties []Property
	AddACEs    []ACE
	RemoveACEs []ACE
	Content    *Content
}

// ErrMalformed is returned when the indexed fields of a form are not
// consistent, like a propertyValue[3] without propertyId[3].
var ErrMalformed = errors.New("malformed browser binding form")

// Property returns the values of the property with the given id.
func (d *Decoded) Property(id string) ([]string, bool) {
	for _, p := range d.Properties {
		if p.ID == id {
			return p.Values, true
		}
	}
	return nil, false
}

// PropertyValue returns the first value of the property with the given id.
func (d *Decoded) PropertyValue(id string) string {
	values, _ := d.Property(id)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

var indexedKey = regexp.MustCompile(`^([A-Za-z]+)\[(\d+)\](?:\[(\d+)\])?$`)

type family struct {
	heads  map[int]string
	values map[int]map[int]string
}

func newFamily() *family {
	return &family{heads: map[int]string{}, values: map[int]map[int]string{}}
}

func (fam *family) add(i, j int, v string) {
	if fam.values[i] == nil {
		fam.values[i] = map[int]string{}
	}
	fam.values[i][j] = v
}

// entries returns the heads in index order, each one with its values in
// index order. The indexes must run from 0 without gaps, and a value
// without head is an error.
func (fam *family) entries(name string) ([]string, [][]string, error) {
	for i := range fam.values {
		if _, ok := fam.heads[i]; !ok {
			return nil, nil, fmt.Errorf("%w: values at index %d without %s", ErrMalformed, i, name)
		}
	}
	indexes := make([]int, 0, len(fam.heads))
	for i := range fam.heads {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	heads := make([]string, len(indexes))
	values := make([][]string, len(indexes))
	for k, i := range indexes {
		if i != k {
			return nil, nil, fmt.Errorf("%w: %s[%d] is missing", ErrMalformed, name, k)
		}
		heads[k] = fam.heads[i]
		vs := fam.values[i]
		for j := 0; j < len(vs); j++ {
			v, ok := vs[j]
			if !ok {
				return nil, nil, fmt.Errorf("%w: value %d of %s[%d] is missing", ErrMalformed, j, name, i)
			}
			values[k] = append(values[k], v)
		}
	}
	return heads, values, nil
}

// Decode recovers the logical structure of a form from its values. Fields
// that are not part of an indexed family are returned in Fields.
func Decode(values url.Values) (*Decoded, error) {
	d := &Decoded{Fields: url.Values{}}
	props, adds, removes := newFamily(), newFamily(), newFamily()

	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if key == ActionField {
			d.Action = vs[0]
			continue
		}
		m := indexedKey.FindStringSubmatch(key)
		if m == nil {
			d.Fields[key] = vs
			continue
		}
		i, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("%w: bad index in %s", ErrMalformed, key)
		}
		j := 0
		double := m[3] != ""
		if double {
			if j, err = strconv.Atoi(m[3]); err != nil {
				return nil, fmt.Errorf("%w: bad index in %s", ErrMalformed, key)
			}
		}
		v := vs[0]
		switch m[1] {
		case PropertyIDField:
			props.heads[i] = v
		case PropertyValueField:
			props.add(i, j, v)
		case AddACEPrincipalField:
			adds.heads[i] = v
		case AddACEPermissionField:
			if !double {
				return nil, fmt.Errorf("%w: %s needs two indexes", ErrMalformed, key)
			}
			adds.add(i, j, v)
		case RemoveACEPrincipalField:
			removes.heads[i] = v
		case RemoveACEPermissionField:
			if !double {
				return nil, fmt.Errorf("%w: %s needs two indexes", ErrMalformed, key)
			}
			removes.add(i, j, v)
		default:
			d.Fields[key] = vs
		}
	}

	ids, vals, err := props.entries(PropertyIDField)
	if err != nil {
		return nil, err
	}
	for k, id := range ids {
		d.Properties = append(d.Properties, Property{ID: id, Values: vals[k]})
	}
	if d.AddACEs, err = aces(adds, AddACEPrincipalField); err != nil {
		return nil, err
	}
	if d.RemoveACEs, err = aces(removes, RemoveACEPrincipalField); err != nil {
		return nil, err
	}
	return d, nil
}

func aces(fam *family, name string) ([]ACE, error) {
	principals, perms, err := fam.entries(name)
	if err != nil {
		return nil, err
	}
	var list []ACE
	for k, p := range principals {
		list = append(list, ACE{Principal: p, Permissions: perms[k]})
	}
	return list, nil
}

// maxMemory is the size of the multipart parts kept in memory when parsing
// a request. Fixture documents are small.
const maxMemory = 32 << 20

// DecodeRequest decodes the body of an HTTP request, in either codec mode.
// The content part, if any, is fully read into memory.
func DecodeRequest(r *http.Request) (*Decoded, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, Multipart) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return Decode(r.PostForm)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	d, err := Decode(url.Values(r.MultipartForm.Value))
	if err != nil {
		return nil, err
	}
	if files := r.MultipartForm.File[ContentField]; len(files) > 0 {
		fh := files[0]
		file, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer file.Close()
		b, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		d.Content = &Content{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Body:     bytes.NewReader(b),
		}
	}
	return d, nil
}
