// Package loader reads service definitions from YAML into a container.Source.
//
//	parameters:
//	  mailer.transport: smtp
//	services:
//	  mailer:
//	    class: Mailer
//	    arguments: ["@transport", "@?logger", "%mailer.port%", "port %mailer.port%"]
//	    calls: [[SetLogger, ["@logger"]]]
//	    tags: [app.mailer]
//	    shared: false
//	  transport:
//	    factory: "Transport::fromDSN"    # or ["@builder", "build"]
//	  mail: "@mailer"                     # alias
//
// "@id" references a service, "@?id" an optional one, "@@x" is the literal
// "@x" and a string that is exactly "%name%" references a parameter.
package loader

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-container/framework/container"
)

// ErrInvalidFile is matched by every error Load reports about its input.
var ErrInvalidFile = errors.New("loader: invalid definition file")

var paramRe = regexp.MustCompile(`^%([^%\s]+)%$`)

// LoadFile reads path and applies it to src.
func LoadFile(src *container.Source, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	if err := Load(src, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

type service struct {
	id  string
	def *container.Definition
}

type alias struct{ id, target string }

type staged struct {
	params   [][2]any
	services []service
	aliases  []alias
}

// Load parses data and registers its parameters, services and aliases on
// src in file order. Nothing is applied when the input is invalid.
func Load(src *container.Source, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return invalidf(root, "top level must be a mapping")
	}

	var st staged
	for i := 0; i < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var err error
		switch key.Value {
		case "parameters":
			err = st.parameters(val)
		case "services":
			err = st.servicesNode(val)
		default:
			err = invalidf(key, "unknown section %q", key.Value)
		}
		if err != nil {
			return err
		}
	}

	for _, p := range st.params {
		src.SetParameter(p[0].(string), p[1])
	}
	for _, s := range st.services {
		src.Register(s.id, s.def)
	}
	for _, a := range st.aliases {
		src.SetAlias(a.id, a.target)
	}
	return nil
}

func (st *staged) parameters(n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return invalidf(n, "parameters must be a mapping")
	}
	for i := 0; i < len(n.Content); i += 2 {
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return invalidf(n.Content[i+1], "parameter %q: %v", n.Content[i].Value, err)
		}
		st.params = append(st.params, [2]any{n.Content[i].Value, v})
	}
	return nil
}

func (st *staged) servicesNode(n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return invalidf(n, "services must be a mapping")
	}
	for i := 0; i < len(n.Content); i += 2 {
		id, body := n.Content[i].Value, n.Content[i+1]
		if id == "" {
			return invalidf(n.Content[i], "empty service id")
		}

		if body.Kind == yaml.ScalarNode && strings.HasPrefix(body.Value, "@") {
			target := strings.TrimPrefix(body.Value, "@")
			if target == "" || target == id {
				return invalidf(body, "service %q: invalid alias %q", id, body.Value)
			}
			st.aliases = append(st.aliases, alias{id: id, target: target})
			continue
		}

		def, err := definition(id, body)
		if err != nil {
			return err
		}
		st.services = append(st.services, service{id: id, def: def})
	}
	return nil
}

func definition(id string, n *yaml.Node) (*container.Definition, error) {
	if n.Kind != yaml.MappingNode {
		return nil, invalidf(n, "service %q must be a mapping or an alias", id)
	}
	def := &container.Definition{}
	for i := 0; i < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		var err error
		switch key.Value {
		case "class":
			def.Class, err = scalar(val)
		case "factory":
			def.Factory, err = factory(val)
		case "arguments":
			def.Arguments, err = arguments(val)
		case "calls":
			def.Calls, err = calls(val)
		case "tags":
			err = val.Decode(&def.Tags)
		case "shared":
			var shared bool
			err = val.Decode(&shared)
			def.Transient = !shared
		default:
			err = fmt.Errorf("unknown key %q", key.Value)
		}
		if err != nil {
			return nil, invalidf(val, "service %q: %s: %v", id, key.Value, err)
		}
	}
	return def, nil
}

func factory(n *yaml.Node) (*container.Factory, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		class, method, ok := strings.Cut(n.Value, "::")
		if !ok || class == "" || method == "" {
			return nil, fmt.Errorf("want \"Class::method\", got %q", n.Value)
		}
		return &container.Factory{Class: class, Method: method}, nil
	case yaml.SequenceNode:
		var pair []string
		if err := n.Decode(&pair); err != nil || len(pair) != 2 || pair[1] == "" {
			return nil, errors.New("want [\"@service\", method] or [Class, method]")
		}
		if svc, ok := strings.CutPrefix(pair[0], "@"); ok {
			return &container.Factory{Service: svc, Method: pair[1]}, nil
		}
		return &container.Factory{Class: pair[0], Method: pair[1]}, nil
	}
	return nil, errors.New("want a string or a two-element list")
}

func calls(n *yaml.Node) ([]container.Call, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("want a list of [method, [arguments]]")
	}
	out := make([]container.Call, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind != yaml.SequenceNode || len(c.Content) == 0 || len(c.Content) > 2 {
			return nil, fmt.Errorf("line %d: want [method, [arguments]]", c.Line)
		}
		method, err := scalar(c.Content[0])
		if err != nil {
			return nil, err
		}
		call := container.Call{Method: method}
		if len(c.Content) == 2 {
			if call.Arguments, err = arguments(c.Content[1]); err != nil {
				return nil, err
			}
		}
		out = append(out, call)
	}
	return out, nil
}

func arguments(n *yaml.Node) ([]container.Argument, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("want a list")
	}
	out := make([]container.Argument, 0, len(n.Content))
	for _, a := range n.Content {
		if a.Kind == yaml.ScalarNode && a.ShortTag() == "!!str" {
			out = append(out, argument(a.Value))
			continue
		}
		var v any
		if err := a.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, container.Value(v))
	}
	return out, nil
}

func argument(s string) container.Argument {
	switch {
	case strings.HasPrefix(s, "@@"):
		return container.Value(s[1:])
	case strings.HasPrefix(s, "@?"):
		return container.OptionalRef(s[2:])
	case strings.HasPrefix(s, "@"):
		return container.Ref(s[1:])
	}
	if m := paramRe.FindStringSubmatch(s); m != nil {
		return container.Param(m[1])
	}
	return container.Value(s)
}

func scalar(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode || isNull(n) {
		return "", fmt.Errorf("line %d: want a string", n.Line)
	}
	return n.Value, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func invalidf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidFile, n.Line, fmt.Sprintf(format, args...))
}
