// Package dump converts a compiled container.Dump to and from its durable
// byte form.
//
// The encoding is a JSON envelope:
//
//	{"format":"go-container/dump","version":1,"checksum":"<sha256 hex of payload>","payload":{...}}
//
// The payload keeps services in dump order and sorts every map, so equal
// dumps always encode to identical bytes. The checksum lets a reader reject
// truncated or edited artifacts instead of restoring bad state.
package dump

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/km-arc/go-container/framework/container"
)

const (
	// Format identifies the envelope.
	Format = "go-container/dump"
	// Version is bumped on any incompatible payload change.
	Version = 1
)

type envelope struct {
	Format   string          `json:"format"`
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

type payload struct {
	Parameters json.RawMessage   `json:"parameters"`
	Aliases    map[string]string `json:"aliases"`
	Services   []service         `json:"services"`
	IsCompiled bool              `json:"is_compiled"`
}

type service struct {
	ID        string     `json:"id"`
	Class     string     `json:"class,omitempty"`
	Factory   *factory   `json:"factory,omitempty"`
	Arguments []argument `json:"arguments,omitempty"`
	Calls     []call     `json:"calls,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Transient bool       `json:"transient,omitempty"`
}

type factory struct {
	Service string `json:"service,omitempty"`
	Class   string `json:"class,omitempty"`
	Method  string `json:"method"`
}

type argument struct {
	Kind     string          `json:"kind"`
	Value    json.RawMessage `json:"value,omitempty"`
	Ref      string          `json:"ref,omitempty"`
	Optional bool            `json:"optional,omitempty"`
}

type call struct {
	Method    string     `json:"method"`
	Arguments []argument `json:"arguments,omitempty"`
}

// ── Marshal ───────────────────────────────────────────────────────────────────

// Marshal encodes d. Values outside the dump value domain (nil, bool, int64,
// float64, string, []any, map[string]any) fail with *SerializationError.
func Marshal(d *container.Dump) ([]byte, error) {
	if d == nil {
		return nil, &SerializationError{Path: "dump", Type: "nil"}
	}

	params, err := marshalValue(stringMap(d.Parameters), "parameters")
	if err != nil {
		return nil, err
	}
	p := payload{
		Parameters: params,
		Aliases:    d.Aliases,
		Services:   make([]service, 0, len(d.Services)),
		IsCompiled: d.IsCompiled,
	}
	if p.Aliases == nil {
		p.Aliases = map[string]string{}
	}
	for k, v := range p.Aliases {
		if err := checkText(fmt.Sprintf("aliases[%q]", k), k, v); err != nil {
			return nil, err
		}
	}

	for _, e := range d.Services {
		s, err := encodeService(e)
		if err != nil {
			return nil, err
		}
		p.Services = append(p.Services, s)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("dump: encoding payload: %w", err)
	}
	sum := sha256.Sum256(body)

	out, err := json.Marshal(envelope{
		Format:   Format,
		Version:  Version,
		Checksum: hex.EncodeToString(sum[:]),
		Payload:  body,
	})
	if err != nil {
		return nil, fmt.Errorf("dump: encoding envelope: %w", err)
	}
	return append(out, '\n'), nil
}

func encodeService(e container.ServiceEntry) (service, error) {
	path := fmt.Sprintf("services[%q]", e.ID)
	def := e.Definition
	if err := checkText(path, append([]string{e.ID, def.Class}, def.Tags...)...); err != nil {
		return service{}, err
	}

	s := service{
		ID:        e.ID,
		Class:     def.Class,
		Tags:      def.Tags,
		Transient: def.Transient,
	}
	if f := def.Factory; f != nil {
		if err := checkText(path+".factory", f.Service, f.Class, f.Method); err != nil {
			return service{}, err
		}
		s.Factory = &factory{Service: f.Service, Class: f.Class, Method: f.Method}
	}

	var err error
	if s.Arguments, err = encodeArguments(def.Arguments, path+".arguments"); err != nil {
		return service{}, err
	}
	for i, c := range def.Calls {
		cpath := fmt.Sprintf("%s.calls[%d]", path, i)
		if err := checkText(cpath, c.Method); err != nil {
			return service{}, err
		}
		args, err := encodeArguments(c.Arguments, cpath+".arguments")
		if err != nil {
			return service{}, err
		}
		s.Calls = append(s.Calls, call{Method: c.Method, Arguments: args})
	}
	return s, nil
}

func encodeArguments(args []container.Argument, path string) ([]argument, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]argument, len(args))
	for i, a := range args {
		apath := fmt.Sprintf("%s[%d]", path, i)
		if err := checkText(apath, a.Ref); err != nil {
			return nil, err
		}
		if err := checkArgument(a, apath); err != nil {
			return nil, err
		}
		out[i] = argument{Kind: a.Kind.String(), Ref: a.Ref, Optional: a.Optional}
		if a.Kind == container.ValueArgument {
			raw, err := marshalValue(a.Value, apath)
			if err != nil {
				return nil, err
			}
			out[i].Value = raw
		}
	}
	return out, nil
}

// checkArgument rejects fields the encoding does not carry for a kind.
func checkArgument(a container.Argument, path string) error {
	var stray bool
	switch a.Kind {
	case container.ValueArgument:
		stray = a.Ref != "" || a.Optional
	case container.ParameterArgument:
		stray = a.Value != nil || a.Optional
	case container.ServiceArgument:
		stray = a.Value != nil
	default:
		return &SerializationError{Path: path, Type: fmt.Sprintf("argument kind %d", a.Kind)}
	}
	if stray {
		return &SerializationError{Path: path, Type: fmt.Sprintf("%s argument with stray fields", a.Kind)}
	}
	return nil
}

func checkText(path string, ss ...string) error {
	for _, s := range ss {
		if !utf8.ValidString(s) {
			return &SerializationError{Path: path, Type: "string(invalid UTF-8)"}
		}
	}
	return nil
}

func stringMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// ── Unmarshal ─────────────────────────────────────────────────────────────────

// Unmarshal decodes data produced by Marshal. Any defect, from a truncated
// file to a checksum mismatch, yields a *CorruptArtifactError and a nil dump.
func Unmarshal(data []byte) (*container.Dump, error) {
	var env envelope
	if err := decodeStrict(data, &env); err != nil {
		return nil, corrupt("malformed envelope", err)
	}
	if env.Format != Format {
		return nil, corruptf("unknown format %q", env.Format)
	}
	if env.Version != Version {
		return nil, corruptf("unsupported version %d", env.Version)
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, corruptf("checksum mismatch")
	}

	var p payload
	if err := decodeStrict(env.Payload, &p); err != nil {
		return nil, corrupt("malformed payload", err)
	}

	pv, err := unmarshalValue(p.Parameters, "parameters")
	if err != nil {
		return nil, err
	}
	params, ok := pv.(map[string]any)
	if !ok {
		return nil, corruptf("parameters is %T, want an object", pv)
	}

	d := &container.Dump{
		Parameters: params,
		Aliases:    p.Aliases,
		Services:   make([]container.ServiceEntry, 0, len(p.Services)),
		IsCompiled: p.IsCompiled,
	}
	if d.Aliases == nil {
		d.Aliases = map[string]string{}
	}

	seen := make(map[string]bool, len(p.Services))
	for _, s := range p.Services {
		if s.ID == "" || seen[s.ID] {
			return nil, corruptf("missing or duplicate service id %q", s.ID)
		}
		seen[s.ID] = true

		def, err := decodeService(s)
		if err != nil {
			return nil, err
		}
		d.Services = append(d.Services, container.ServiceEntry{ID: s.ID, Definition: def})
	}
	return d, nil
}

func decodeService(s service) (container.Definition, error) {
	path := fmt.Sprintf("services[%q]", s.ID)
	def := container.Definition{Class: s.Class, Transient: s.Transient}
	if len(s.Tags) > 0 {
		def.Tags = s.Tags
	}
	if f := s.Factory; f != nil {
		if f.Method == "" {
			return container.Definition{}, corruptf("%s.factory has no method", path)
		}
		def.Factory = &container.Factory{Service: f.Service, Class: f.Class, Method: f.Method}
	}

	var err error
	if def.Arguments, err = decodeArguments(s.Arguments, path+".arguments"); err != nil {
		return container.Definition{}, err
	}
	for i, c := range s.Calls {
		cpath := fmt.Sprintf("%s.calls[%d]", path, i)
		if c.Method == "" {
			return container.Definition{}, corruptf("%s has no method", cpath)
		}
		args, err := decodeArguments(c.Arguments, cpath+".arguments")
		if err != nil {
			return container.Definition{}, err
		}
		def.Calls = append(def.Calls, container.Call{Method: c.Method, Arguments: args})
	}
	return def, nil
}

func decodeArguments(args []argument, path string) ([]container.Argument, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]container.Argument, len(args))
	for i, a := range args {
		apath := fmt.Sprintf("%s[%d]", path, i)
		switch a.Kind {
		case container.ValueArgument.String():
			v, err := unmarshalValue(a.Value, apath)
			if err != nil {
				return nil, err
			}
			out[i] = container.Argument{Kind: container.ValueArgument, Value: v}
		case container.ParameterArgument.String():
			out[i] = container.Argument{Kind: container.ParameterArgument, Ref: a.Ref}
		case container.ServiceArgument.String():
			if a.Ref == "" {
				return nil, corruptf("%s has an empty reference", apath)
			}
			out[i] = container.Argument{Kind: container.ServiceArgument, Ref: a.Ref, Optional: a.Optional}
		default:
			return nil, corruptf("%s has unknown kind %q", apath, a.Kind)
		}
	}
	return out, nil
}

// decodeStrict rejects unknown fields and trailing content.
func decodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing content")
	}
	return nil
}
