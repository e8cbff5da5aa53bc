package container

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`%%|%([^%\s]+)%`)
	wholeRe       = regexp.MustCompile(`^%([^%\s]+)%$`)
)

// parameterResolver substitutes %name% placeholders against a raw parameter
// bag. Resolved parameters keep their %% escapes until unescapeValue runs.
type parameterResolver struct {
	raw      map[string]any
	resolved map[string]any
}

func newParameterResolver(raw map[string]any) *parameterResolver {
	return &parameterResolver{raw: raw, resolved: make(map[string]any, len(raw))}
}

func (r *parameterResolver) get(name string, stack []string) (any, error) {
	if v, ok := r.resolved[name]; ok {
		return v, nil
	}
	raw, ok := r.raw[name]
	if !ok {
		if len(stack) > 0 {
			return nil, compileErrorf("", ErrParameterNotFound, "%q (required by parameter %q)", name, stack[len(stack)-1])
		}
		return nil, compileErrorf("", ErrParameterNotFound, "%q", name)
	}
	for _, s := range stack {
		if s == name {
			return nil, compileErrorf("", ErrCircularReference, "parameters %s", cyclePath(stack, name))
		}
	}
	v, err := r.resolve(normalizeValue(raw), append(stack, name))
	if err != nil {
		return nil, err
	}
	r.resolved[name] = v
	return v, nil
}

func (r *parameterResolver) resolve(v any, stack []string) (any, error) {
	switch t := v.(type) {
	case string:
		return r.resolveString(t, stack)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := r.resolve(e, stack)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			rk, err := r.resolveString(k, stack)
			if err != nil {
				return nil, err
			}
			key, ok := rk.(string)
			if !ok {
				return nil, compileErrorf("", ErrInvalidDefinition, "map key %q must resolve to a string, got %T", k, rk)
			}
			rv, err := r.resolve(e, stack)
			if err != nil {
				return nil, err
			}
			out[key] = rv
		}
		return out, nil
	}
	return v, nil
}

func (r *parameterResolver) resolveString(s string, stack []string) (any, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}
	if m := wholeRe.FindStringSubmatch(s); m != nil {
		return r.get(m[1], stack)
	}

	var err error
	out := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		if err != nil || match == "%%" {
			return match
		}
		name := match[1 : len(match)-1]
		v, gerr := r.get(name, stack)
		if gerr != nil {
			err = gerr
			return match
		}
		str, ok := scalarString(v)
		if !ok {
			err = compileErrorf("", ErrInvalidDefinition,
				"parameter %q of type %T cannot be embedded in string %q", name, v, s)
			return match
		}
		return str
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func unescapeValue(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, "%%", "%")
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = unescapeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[strings.ReplaceAll(k, "%%", "%")] = unescapeValue(e)
		}
		return out
	}
	return v
}

// normalizeValue folds Go values into the dump value domain: nil, bool,
// int64, float64, string, []any and map[string]any. Values outside that
// domain are returned untouched so the serializer can name them.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string:
		return v
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	}

	// Named scalar types, unsigned integers, remaining slices and string-keyed
	// maps of other element types.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
		return v
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalizeValue(iter.Value().Interface())
		}
		return out
	}
	return v
}
