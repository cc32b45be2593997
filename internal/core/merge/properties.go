package merge

import (
	"reflect"
	"strings"

	"usbmap/internal/domain"
)

// Properties folds src into dst, both pointers to the same type.
//
// Zero values in src are treated as "not reported" and leave dst alone. Lists
// are unioned in order, maps and structs merge key by key, and any other value
// in src replaces the one in dst. Struct fields tagged `merge:"-"` are left
// for the caller.
func Properties(dst, src any) error {
	dv := reflect.ValueOf(dst)
	sv := reflect.ValueOf(src)
	if dv.Kind() != reflect.Pointer || sv.Kind() != reflect.Pointer || dv.Type() != sv.Type() {
		return &domain.MergeViolationError{Path: "(root)", Historical: dv.Type().String(), Fresh: sv.Type().String()}
	}
	if dv.Elem().Kind() == reflect.Struct {
		return mergeStruct("", dv.Elem(), sv.Elem())
	}
	return mergeValue("", dv.Elem(), sv.Elem())
}

func mergeValue(path string, dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}
	if dst.IsZero() {
		dst.Set(clone(src))
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return mergeStruct(path, dst, src)

	case reflect.Pointer:
		if dst.Elem().Kind() == reflect.Struct {
			return mergeValue(path, dst.Elem(), src.Elem())
		}
		dst.Set(clone(src))
		return nil

	case reflect.Slice:
		dst.Set(union(dst, src))
		return nil

	case reflect.Map:
		return mergeMap(path, dst, src)

	case reflect.Interface:
		merged, err := mergeDynamic(path, dst.Elem(), src.Elem())
		if err != nil {
			return err
		}
		dst.Set(merged)
		return nil

	default:
		dst.Set(src)
		return nil
	}
}

func mergeStruct(path string, dst, src reflect.Value) error {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("merge") == "-" {
			continue
		}
		if err := mergeValue(join(path, fieldName(f)), dst.Field(i), src.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func mergeMap(path string, dst, src reflect.Value) error {
	out := reflect.MakeMapWithSize(dst.Type(), dst.Len())
	iter := dst.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}

	iter = src.MapRange()
	for iter.Next() {
		key, fresh := iter.Key(), iter.Value()
		existing := out.MapIndex(key)
		if !existing.IsValid() {
			out.SetMapIndex(key, clone(fresh))
			continue
		}
		slot := reflect.New(dst.Type().Elem()).Elem()
		slot.Set(clone(existing))
		if err := mergeValue(join(path, keyName(key)), slot, fresh); err != nil {
			return err
		}
		out.SetMapIndex(key, slot)
	}
	dst.Set(out)
	return nil
}

// mergeDynamic merges the concrete values held in two interfaces. Values of
// different kinds at the same position cannot be reconciled.
func mergeDynamic(path string, dst, src reflect.Value) (reflect.Value, error) {
	if !src.IsValid() || src.IsZero() {
		return dst, nil
	}
	if !dst.IsValid() || dst.IsZero() {
		return clone(src), nil
	}
	if kindClass(dst) != kindClass(src) {
		return reflect.Value{}, &domain.MergeViolationError{
			Path:       displayPath(path),
			Historical: kindClass(dst),
			Fresh:      kindClass(src),
		}
	}

	switch dst.Kind() {
	case reflect.Map:
		if dst.Type() != src.Type() {
			return clone(src), nil
		}
		slot := reflect.New(dst.Type()).Elem()
		slot.Set(clone(dst))
		if err := mergeMap(path, slot, src); err != nil {
			return reflect.Value{}, err
		}
		return slot, nil
	case reflect.Slice:
		if dst.Type() != src.Type() {
			return clone(src), nil
		}
		return union(dst, src), nil
	default:
		return src, nil
	}
}

// union appends the elements of src that dst does not already hold.
func union(dst, src reflect.Value) reflect.Value {
	out := reflect.MakeSlice(dst.Type(), 0, dst.Len()+src.Len())
	out = reflect.AppendSlice(out, dst)
	for i := 0; i < src.Len(); i++ {
		item := src.Index(i)
		if !containsValue(out, item) {
			out = reflect.Append(out, clone(item))
		}
	}
	return out
}

func containsValue(list, item reflect.Value) bool {
	for i := 0; i < list.Len(); i++ {
		if reflect.DeepEqual(list.Index(i).Interface(), item.Interface()) {
			return true
		}
	}
	return false
}

// kindClass groups reflect kinds into the shapes the merge distinguishes.
func kindClass(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Map, reflect.Struct:
		return "mapping"
	case reflect.Slice, reflect.Array:
		return "list"
	default:
		return "scalar"
	}
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func keyName(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return "?"
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
