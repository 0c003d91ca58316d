// Package viewstate maps per-screen view state structs to and from the
// address-bar query string, and projects them onto backend query parameters.
//
// A view state is a flat struct (embedded structs are flattened) whose fields
// are string, int or bool. Each field carries two tags:
//
//	query:"<key>[,default=<text>][,page][,size]"
//	url:"<backend key>[,omitempty]" | url:"-"
//
// The query tag names the address-bar key. "page" marks the offset field and
// "size" the page size field. The url tag is read by go-querystring to build
// the backend request; a field with url:"-" is presentation-only and never
// invalidates loaded data.
package viewstate

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/google/go-querystring/query"
)

type field struct {
	key    string
	index  []int
	kind   reflect.Kind
	def    string
	page   bool
	size   bool
	server bool
}

type schema struct {
	fields []field
	byKey  map[string]int
	offset int
	limit  int
}

var schemas sync.Map // reflect.Type -> *schema

func schemaOf(t reflect.Type) *schema {
	if s, ok := schemas.Load(t); ok {
		return s.(*schema)
	}
	s := &schema{byKey: make(map[string]int), offset: -1, limit: -1}
	collect(t, nil, s)
	actual, _ := schemas.LoadOrStore(t, s)
	return actual.(*schema)
}

func collect(t reflect.Type, prefix []int, s *schema) {
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("viewstate: %s is not a struct", t))
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		index := append(append([]int{}, prefix...), i)
		tag, hasTag := sf.Tag.Lookup("query")
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && !hasTag {
			collect(sf.Type, index, s)
			continue
		}
		if !hasTag || tag == "-" {
			continue
		}
		switch sf.Type.Kind() {
		case reflect.String, reflect.Int, reflect.Bool:
		default:
			panic(fmt.Sprintf("viewstate: field %s has unsupported kind %s", sf.Name, sf.Type.Kind()))
		}
		urlTag, ok := sf.Tag.Lookup("url")
		if !ok {
			panic(fmt.Sprintf("viewstate: field %s needs an url tag", sf.Name))
		}

		parts := strings.Split(tag, ",")
		f := field{
			key:    parts[0],
			index:  index,
			kind:   sf.Type.Kind(),
			server: urlTag != "-",
		}
		for _, opt := range parts[1:] {
			switch {
			case opt == "page":
				f.page = true
			case opt == "size":
				f.size = true
			case strings.HasPrefix(opt, "default="):
				f.def = strings.TrimPrefix(opt, "default=")
			}
		}
		if _, dup := s.byKey[f.key]; dup {
			panic(fmt.Sprintf("viewstate: duplicate key %q", f.key))
		}
		s.byKey[f.key] = len(s.fields)
		if f.page {
			s.offset = len(s.fields)
		}
		if f.size {
			s.limit = len(s.fields)
		}
		s.fields = append(s.fields, f)
	}
}

// set parses text into v. Missing, empty or malformed text yields the default.
func (f field) set(v reflect.Value, text string, present bool) {
	if !present || text == "" {
		text = f.def
	}
	switch f.kind {
	case reflect.String:
		v.SetString(text)
	case reflect.Int:
		n, err := strconv.Atoi(text)
		if err != nil || n < 0 {
			n, _ = strconv.Atoi(f.def)
		}
		v.SetInt(int64(n))
	case reflect.Bool:
		switch text {
		case "true":
			v.SetBool(true)
		case "false":
			v.SetBool(false)
		default:
			v.SetBool(f.def == "true")
		}
	}
}

func (f field) text(v reflect.Value) string {
	switch f.kind {
	case reflect.Int:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	default:
		return v.String()
	}
}

func parse(rawQuery string) url.Values {
	// ParseQuery keeps every well-formed pair even when it reports an error.
	q, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return q
}

// Decode builds a view state from a raw query string. It never fails:
// absent, empty and malformed values take the field default and
// unrecognized keys are ignored.
func Decode[S any](rawQuery string) S {
	var s S
	v := reflect.ValueOf(&s).Elem()
	sc := schemaOf(v.Type())
	q := parse(rawQuery)
	for _, f := range sc.fields {
		vals, ok := q[f.key]
		text := ""
		if ok && len(vals) > 0 {
			text = vals[0]
		}
		f.set(v.FieldByIndex(f.index), text, ok)
	}
	return s
}

// Default returns the view state of an empty address bar.
func Default[S any]() S {
	return Decode[S]("")
}

// Encode renders every field, in declaration order, including empty ones.
func Encode[S any](s S) string {
	v := reflect.ValueOf(s)
	sc := schemaOf(v.Type())
	var b strings.Builder
	for i, f := range sc.fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.text(v.FieldByIndex(f.index))))
	}
	return b.String()
}

// IsCanonical reports whether rawQuery already carries every recognized key
// exactly once with the value Encode would write for s.
func IsCanonical[S any](rawQuery string, s S) bool {
	q, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return false
	}
	v := reflect.ValueOf(s)
	for _, f := range schemaOf(v.Type()).fields {
		vals := q[f.key]
		if len(vals) != 1 || vals[0] != f.text(v.FieldByIndex(f.index)) {
			return false
		}
	}
	return true
}

// Params projects the server-relevant fields onto backend query parameters.
// Empty text and zero limit/offset are omitted; sort_asc is always sent.
func Params[S any](s S) (url.Values, error) {
	values, err := query.Values(s)
	if err != nil {
		return nil, fmt.Errorf("encode backend params: %w", err)
	}
	return values, nil
}

// Keys lists the address-bar keys of S in declaration order.
func Keys[S any]() []string {
	var s S
	sc := schemaOf(reflect.TypeOf(s))
	keys := make([]string, 0, len(sc.fields))
	for _, f := range sc.fields {
		keys = append(keys, f.key)
	}
	return keys
}

// IsServer reports whether key is a server-relevant field of S.
func IsServer[S any](key string) bool {
	var s S
	sc := schemaOf(reflect.TypeOf(s))
	i, ok := sc.byKey[key]
	return ok && sc.fields[i].server
}

// Text returns the encoded value of key, or "" when S has no such field.
func Text[S any](s S, key string) string {
	v := reflect.ValueOf(s)
	sc := schemaOf(v.Type())
	i, ok := sc.byKey[key]
	if !ok {
		return ""
	}
	f := sc.fields[i]
	return f.text(v.FieldByIndex(f.index))
}

// SetText assigns text to key using the Decode rules.
// It returns false when S has no such field.
func SetText[S any](s *S, key, text string) bool {
	v := reflect.ValueOf(s).Elem()
	sc := schemaOf(v.Type())
	i, ok := sc.byKey[key]
	if !ok {
		return false
	}
	f := sc.fields[i]
	f.set(v.FieldByIndex(f.index), text, true)
	return true
}

// ServerChanged reports whether any server-relevant field other than the
// offset differs between a and b.
func ServerChanged[S any](a, b S) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	for _, f := range schemaOf(va.Type()).fields {
		if !f.server || f.page {
			continue
		}
		if f.text(va.FieldByIndex(f.index)) != f.text(vb.FieldByIndex(f.index)) {
			return true
		}
	}
	return false
}

// Offset returns the pagination offset of s, 0 when S is not paginated.
func Offset[S any](s S) int {
	v := reflect.ValueOf(s)
	sc := schemaOf(v.Type())
	if sc.offset < 0 {
		return 0
	}
	return int(v.FieldByIndex(sc.fields[sc.offset].index).Int())
}

// SetOffset sets the pagination offset. It is a no-op when S is not paginated.
func SetOffset[S any](s *S, offset int) {
	v := reflect.ValueOf(s).Elem()
	sc := schemaOf(v.Type())
	if sc.offset < 0 {
		return
	}
	v.FieldByIndex(sc.fields[sc.offset].index).SetInt(int64(offset))
}

// Limit returns the page size of s, 0 when S is not paginated.
func Limit[S any](s S) int {
	v := reflect.ValueOf(s)
	sc := schemaOf(v.Type())
	if sc.limit < 0 {
		return 0
	}
	return int(v.FieldByIndex(sc.fields[sc.limit].index).Int())
}

// Paginated reports whether S has an offset field.
func Paginated[S any]() bool {
	var s S
	return schemaOf(reflect.TypeOf(s)).offset >= 0
}
