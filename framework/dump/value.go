package dump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// encodeValue writes v as JSON. Map keys are sorted, and floats always carry
// a fraction or exponent so the decoder can tell them from integers.
func encodeValue(buf *bytes.Buffer, v any, path string) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return &SerializationError{Path: path, Type: "float64(" + strconv.FormatFloat(t, 'g', -1, 64) + ")"}
		}
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case string:
		if !utf8.ValidString(t) {
			return &SerializationError{Path: path, Type: "string(invalid UTF-8)"}
		}
		b, _ := json.Marshal(t)
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if !utf8.ValidString(k) {
				return &SerializationError{Path: path, Type: "map key(invalid UTF-8)"}
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeValue(buf, t[k], fmt.Sprintf("%s[%q]", path, k)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return &SerializationError{Path: path, Type: fmt.Sprintf("%T", v)}
	}
	return nil
}

func marshalValue(v any, path string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, path); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalValue is the inverse of encodeValue.
func unmarshalValue(raw json.RawMessage, path string) (any, error) {
	if len(raw) == 0 {
		return nil, corruptf("missing value at %s", path)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, corrupt("value at "+path, err)
	}
	return fromJSON(v, path)
}

func fromJSON(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		s := t.String()
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, corrupt("float at "+path, err)
			}
			return f, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, corrupt("integer at "+path, err)
		}
		return i, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			ev, err := fromJSON(e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ev, err := fromJSON(e, fmt.Sprintf("%s[%q]", path, k))
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	}
	return nil, corruptf("unexpected %T at %s", v, path)
}
