// Package filter strips markup tag pairs from user supplied text and
// enforces minimum lengths declared with the `filter` struct tag.
package filter

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

const tagName = "filter"

type ValidationError struct {
	Field string
	Min   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required to be filled.", e.Field)
}

// Apply returns a copy of v with tag pairs removed from every exported
// string field. v may be a struct, a pointer to a struct or a string; any
// other value is returned unchanged. The input is never mutated.
func Apply[T any](v T) (T, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v, nil
	}

	switch rv.Kind() {
	case reflect.String:
		out := reflect.New(rv.Type()).Elem()
		out.SetString(StripTags(rv.String()))
		return out.Interface().(T), nil
	case reflect.Struct:
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		if err := filterStruct(out); err != nil {
			var zero T
			return zero, err
		}
		return out.Interface().(T), nil
	case reflect.Pointer:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return v, nil
		}
		out := reflect.New(rv.Elem().Type())
		out.Elem().Set(rv.Elem())
		if err := filterStruct(out.Elem()); err != nil {
			var zero T
			return zero, err
		}
		return out.Interface().(T), nil
	}

	return v, nil
}

// ApplyAll filters every element of vs and fails on the first invalid one.
func ApplyAll[T any](vs []T) ([]T, error) {
	if vs == nil {
		return nil, nil
	}

	out := make([]T, len(vs))
	for i, v := range vs {
		f, err := Apply(v)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}

	return out, nil
}

func filterStruct(sv reflect.Value) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}

		fv := sv.Field(i)
		var value string
		switch {
		case fv.Kind() == reflect.String:
			value = StripTags(fv.String())
			fv.SetString(value)
		case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.String:
			if fv.IsNil() {
				continue
			}
			value = StripTags(fv.Elem().String())
			p := reflect.New(fv.Type().Elem())
			p.Elem().SetString(value)
			fv.Set(p)
		default:
			continue
		}

		min, err := minLength(field)
		if err != nil {
			return err
		}
		if min > 0 && (strings.TrimSpace(value) == "" || len([]rune(value)) < min) {
			return &ValidationError{Field: field.Name, Min: min}
		}
	}

	return nil
}

func minLength(field reflect.StructField) (int, error) {
	tag, ok := field.Tag.Lookup(tagName)
	if !ok {
		return 0, nil
	}

	for _, opt := range strings.Split(tag, ",") {
		if v, found := strings.CutPrefix(strings.TrimSpace(opt), "min="); found {
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s tag on %s: %w", tagName, field.Name, err)
			}
			return n, nil
		}
	}

	return 0, nil
}

// StripTags removes every `<name ...>...</name>` pair from s, matching tag
// names case-insensitively. A closing tag may name any prefix of the opening
// tag's name; the longest prefix that closes is used, and within it the
// nearest closing tag. Passes repeat until nothing is removed, so the result
// never contains a pair.
func StripTags(s string) string {
	for strings.Contains(s, "</") {
		next := stripPass(s)
		if next == s {
			break
		}
		s = next
	}

	return s
}

func stripPass(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(rs); {
		if rs[i] == '<' {
			if end, ok := matchPair(rs, i); ok {
				i = end
				continue
			}
		}
		b.WriteRune(rs[i])
		i++
	}

	return b.String()
}

// matchPair reports the end of the tag pair opening at rs[start], if any.
func matchPair(rs []rune, start int) (int, bool) {
	j := start + 1
	for j < len(rs) && isWordRune(rs[j]) {
		j++
	}
	name := rs[start+1 : j]
	if len(name) == 0 {
		return 0, false
	}

	gt := j
	for gt < len(rs) && rs[gt] != '>' {
		gt++
	}
	if gt == len(rs) {
		return 0, false
	}

	for k := len(name); k > 0; k-- {
		if end, ok := findClosing(rs, gt+1, name[:k]); ok {
			return end, true
		}
	}

	return 0, false
}

func findClosing(rs []rune, from int, name []rune) (int, bool) {
	width := len(name) + 3
	for p := from; p+width <= len(rs); p++ {
		if rs[p] != '<' || rs[p+1] != '/' || rs[p+width-1] != '>' {
			continue
		}
		if equalFold(rs[p+2:p+width-1], name) {
			return p + width, true
		}
	}

	return 0, false
}

func equalFold(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && unicode.ToLower(a[i]) != unicode.ToLower(b[i]) && unicode.ToUpper(a[i]) != unicode.ToUpper(b[i]) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Pc, r)
}
