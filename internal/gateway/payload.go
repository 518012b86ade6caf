package gateway

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/encoding"
)

// Field is one key/value pair of a form payload.
type Field struct {
	Key   string
	Value string
}

// Fields keeps insertion order, which several gateways validate.
type Fields []Field

func (f Fields) With(key, value string) Fields {
	return append(f, Field{Key: key, Value: value})
}

// WithOptional appends the pair only when value is non-empty.
func (f Fields) WithOptional(key, value string) Fields {
	if value == "" {
		return f
	}
	return f.With(key, value)
}

func (f Fields) Get(key string) string {
	for _, field := range f {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// EncodeForm renders the fields as application/x-www-form-urlencoded. Values are
// transcoded with charset first when one is given; characters outside the
// charset are replaced.
func EncodeForm(fields Fields, charset encoding.Encoding) ([]byte, error) {
	var b strings.Builder
	for i, f := range fields {
		key, value := f.Key, f.Value
		if charset != nil {
			enc := encoding.ReplaceUnsupported(charset.NewEncoder())
			var err error
			if key, err = enc.String(key); err != nil {
				return nil, fmt.Errorf("encoding form key %q: %w", f.Key, err)
			}
			if value, err = enc.String(value); err != nil {
				return nil, fmt.Errorf("encoding form value for %q: %w", f.Key, err)
			}
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}
	return []byte(b.String()), nil
}

// FormMediaType returns the content type for a form body in the given charset name.
func FormMediaType(charsetName string) string {
	if charsetName == "" {
		return MediaTypeForm
	}
	return MediaTypeForm + "; charset=" + charsetName
}

// EncodeXML marshals v behind an XML declaration and optional doctype.
func EncodeXML(v any, doctype string) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling xml payload: %w", err)
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	if doctype != "" {
		b.WriteString(doctype)
		b.WriteByte('\n')
	}
	b.Write(body)
	return []byte(b.String()), nil
}

func EncodeJSON(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling json payload: %w", err)
	}
	return body, nil
}

// ParseForm decodes a form body into ordered fields. Repeated keys are kept.
func ParseForm(body []byte) (Fields, error) {
	var fields Fields
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decoding form key: %w", err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decoding form value for %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	return fields, nil
}
