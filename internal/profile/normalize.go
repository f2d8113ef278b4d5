package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

type fieldInfo struct {
	index int
	kind  reflect.Kind
}

var (
	fieldsOnce  sync.Once
	fieldsByTag map[string]fieldInfo
	fieldOrder  []string
)

func profileFields() (map[string]fieldInfo, []string) {
	fieldsOnce.Do(func() {
		t := reflect.TypeOf(BusinessProfile{})
		fieldsByTag = make(map[string]fieldInfo, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			fieldsByTag[tag] = fieldInfo{index: i, kind: f.Type.Kind()}
			fieldOrder = append(fieldOrder, tag)
		}
	})
	return fieldsByTag, fieldOrder
}

// FieldNames lists the JSON names of every BusinessProfile field in declaration order.
func FieldNames() []string {
	_, order := profileFields()
	return append([]string(nil), order...)
}

// Normalize coerces raw into a BusinessProfile. Every field ends up type-correct:
// missing text is "", missing flags are false and missing lists are empty, never nil.
// Unknown keys are ignored.
func Normalize(raw map[string]any) BusinessProfile {
	fields, _ := profileFields()
	var p BusinessProfile
	v := reflect.ValueOf(&p).Elem()
	for tag, info := range fields {
		val := raw[tag]
		dst := v.Field(info.index)
		switch info.kind {
		case reflect.String:
			dst.SetString(coerceString(val))
		case reflect.Bool:
			dst.SetBool(coerceBool(val))
		case reflect.Slice:
			dst.Set(reflect.ValueOf(coerceList(val)))
		}
	}
	return p
}

// NormalizeJSON decodes body as an object and normalizes it.
func NormalizeJSON(body []byte) (BusinessProfile, map[string]any, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return BusinessProfile{}, nil, fmt.Errorf("decode profile payload: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return Normalize(raw), raw, nil
}

func coerceString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		return strings.Join(coerceList(v), ", ")
	case []string:
		return strings.Join(coerceList(v), ", ")
	default:
		return ""
	}
}

func coerceBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return false
	}
}

func coerceList(val any) []string {
	out := []string{}
	switch v := val.(type) {
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			switch item.(type) {
			case []any, map[string]any:
				continue
			}
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' || r == ';' }) {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
