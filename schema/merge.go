package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

var ErrNotMergeable = errors.New("schema: value type does not support field merge")

// Merge returns a copy of base with the top-level fields named in fields
// replaced. It is shallow: a nested struct or map given in fields replaces the
// whole field, it is not merged into the old one.
//
// Struct fields are matched by json tag name, then by Go name (case
// insensitive). Field values are decoded with mapstructure, so a
// map[string]any unmarshalled from JSON can set typed fields. Unknown fields
// are an error.
func Merge[V any](base V, fields map[string]any) (V, error) {
	out := base
	rv := reflect.ValueOf(&out).Elem()
	switch rv.Kind() {
	case reflect.Struct:
		if err := mergeStruct(rv, fields); err != nil {
			var zero V
			return zero, err
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			var zero V
			return zero, fmt.Errorf("%w: %s", ErrNotMergeable, rv.Type())
		}
		merged, err := mergeMap(rv, fields)
		if err != nil {
			var zero V
			return zero, err
		}
		return merged.Interface().(V), nil
	default:
		var zero V
		return zero, fmt.Errorf("%w: %s", ErrNotMergeable, rv.Type())
	}
}

func mergeStruct(rv reflect.Value, fields map[string]any) error {
	t := rv.Type()
	for key, val := range fields {
		idx, ok := fieldIndex(t, key)
		if !ok {
			return fmt.Errorf("schema: merge: unknown field %q on %s", key, t)
		}
		f := rv.Field(idx)
		fresh, err := decodeInto(f.Type(), val)
		if err != nil {
			return fmt.Errorf("schema: merge field %q: %w", key, err)
		}
		f.Set(fresh)
	}
	return nil
}

func mergeMap(rv reflect.Value, fields map[string]any) (reflect.Value, error) {
	t := rv.Type()
	out := reflect.MakeMapWithSize(t, rv.Len()+len(fields))
	if !rv.IsNil() {
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
	}
	for key, val := range fields {
		fresh, err := decodeInto(t.Elem(), val)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("schema: merge key %q: %w", key, err)
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), fresh)
	}
	return out, nil
}

func decodeInto(t reflect.Type, val any) (reflect.Value, error) {
	ptr := reflect.New(t)
	if val == nil {
		return ptr.Elem(), nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      ptr.Interface(),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(val); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func fieldIndex(t reflect.Type, key string) (int, bool) {
	fold := -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if name == key {
			return i, true
		}
		if fold < 0 && strings.EqualFold(name, key) {
			fold = i
		}
	}
	return fold, fold >= 0
}
