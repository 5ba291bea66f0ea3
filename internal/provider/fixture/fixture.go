// Package fixture serves objects declared in a YAML file.
//
// The file is re-read on every fetch and query, so editing it changes the
// next snapshot without a restart:
//
//	objects:
//	  - id: emp_001
//	    types: [person, employee]
//	    source: hr_system
//	    properties:
//	      name: Alice Johnson
//	      hired_at: {$timestamp: "2025-06-06T14:03:00Z"}
//	      swipes: {$link: "swipe[.employee_id == 'emp_001']", label: Swipes}
//	lazy:
//	  swipe:
//	    - id: swipe_1
//	      types: [swipe]
//	      properties: {employee_id: emp_001, date: "2025-06-06"}
//
// Objects under lazy are served through lazy-load scopes of the same type.
// Only "==" conditions are supported; they match the property's scalar text
// or, for the __id__ field, the object id.
package fixture

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
	"github.com/roach88/sap/internal/provider"
)

// Reserved mapping keys for non-scalar values.
const (
	KeyTimestamp = "$timestamp"
	KeyLink      = "$link"
	KeyLinkLabel = "label"
)

// Document is a parsed fixture file.
type Document struct {
	Objects []model.Object
	Lazy    map[string][]model.Object
}

type documentYAML struct {
	Objects []objectYAML            `yaml:"objects"`
	Lazy    map[string][]objectYAML `yaml:"lazy"`
}

type objectYAML struct {
	ID         string    `yaml:"id"`
	Types      []string  `yaml:"types"`
	Source     string    `yaml:"source"`
	Properties yaml.Node `yaml:"properties"`
}

// Load reads and decodes a fixture file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes fixture YAML.
func Parse(data []byte) (*Document, error) {
	var raw documentYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &Document{Lazy: make(map[string][]model.Object, len(raw.Lazy))}
	objs, err := decodeObjects(raw.Objects, "objects")
	if err != nil {
		return nil, err
	}
	doc.Objects = objs
	for typ, list := range raw.Lazy {
		objs, err := decodeObjects(list, "lazy."+typ)
		if err != nil {
			return nil, err
		}
		doc.Lazy[typ] = objs
	}
	return doc, nil
}

func decodeObjects(list []objectYAML, where string) ([]model.Object, error) {
	out := make([]model.Object, 0, len(list))
	for i, o := range list {
		props := map[string]model.Value{}
		if !o.Properties.IsZero() {
			v, err := decodeNode(&o.Properties)
			if err != nil {
				return nil, fmt.Errorf("%s[%d].properties: %w", where, i, err)
			}
			m, ok := v.(model.Map)
			if !ok {
				return nil, fmt.Errorf("%s[%d].properties: line %d: expected a mapping", where, i, o.Properties.Line)
			}
			props = m
		}
		obj, err := model.MakeObject(o.ID, o.Types, o.Source, props)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", where, i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// decodeNode converts a YAML node to a Value. Scalars keep their YAML type
// except timestamps, which stay strings unless wrapped in $timestamp.
func decodeNode(n *yaml.Node) (model.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return model.Null{}, nil
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.SequenceNode:
		arr := make(model.Array, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.MappingNode:
		return decodeMapping(n)
	case yaml.ScalarNode:
		return decodeScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported node", n.Line)
}

func decodeMapping(n *yaml.Node) (model.Value, error) {
	m := make(model.Map, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := decodeNode(n.Content[i+1])
		if err != nil {
			return nil, err
		}
		m[key] = v
	}

	if raw, ok := m[KeyTimestamp]; ok {
		s, isStr := raw.(model.String)
		if len(m) != 1 || !isStr {
			return nil, fmt.Errorf("line %d: %s takes a single string", n.Line, KeyTimestamp)
		}
		ts, err := model.ParseTimestamp(string(s))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return ts, nil
	}
	if raw, ok := m[KeyLink]; ok {
		query, _ := raw.(model.String)
		label, _ := m[KeyLinkLabel].(model.String)
		if len(m) > 2 || (len(m) == 2 && m[KeyLinkLabel] == nil) {
			return nil, fmt.Errorf("line %d: %s allows only a %q key beside it", n.Line, KeyLink, KeyLinkLabel)
		}
		link, err := model.MakeLink(string(query), string(label))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return link, nil
	}
	return m, nil
}

func decodeScalar(n *yaml.Node) (model.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return model.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return model.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return model.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return model.Float(f), nil
	default:
		return model.String(n.Value), nil
	}
}

// Provider serves a fixture file.
type Provider struct {
	Path string
	Meta provider.Info
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Func{Meta: p.Meta}.Info()
}

// Fetch implements provider.Provider.
func (p *Provider) Fetch(ctx context.Context) ([]model.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := Load(p.Path)
	if err != nil {
		return nil, err
	}
	return doc.Objects, nil
}

// Query implements provider.Provider. Providers without declared scopes do
// not lazy-load.
func (p *Provider) Query() lazyload.QueryFunc {
	if len(p.Meta.Scopes) == 0 {
		return nil
	}
	return p.query
}

func (p *Provider) query(ctx context.Context, scope lazyload.Scope, conds []lazyload.Condition, _ bool, ids lazyload.IDTypeSet) ([]model.Object, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	for _, c := range conds {
		if c.Operator != lazyload.OpEquals {
			return nil, "", lazyload.Decline("fixture queries only support '==', got %q on %s", c.Operator, c.Field)
		}
	}

	doc, err := Load(p.Path)
	if err != nil {
		return nil, "", err
	}
	candidates, ok := doc.Lazy[scope.Type]
	if !ok {
		return nil, "", lazyload.Decline("fixture has no lazy objects of type %s", scope.Type)
	}

	var wanted map[string]bool
	if scope.NeedsIDTypes {
		wanted = make(map[string]bool)
		for _, id := range ids.IDsOfType(scope.Type) {
			wanted[id] = true
		}
	}

	out := []model.Object{}
	for _, obj := range candidates {
		if wanted != nil && !wanted[obj.ID] {
			continue
		}
		if Matches(obj, conds) {
			out = append(out, obj)
		}
	}
	return out, "", nil
}

// Matches reports whether obj satisfies every equality condition.
func Matches(obj model.Object, conds []lazyload.Condition) bool {
	for _, c := range conds {
		if c.Field == lazyload.IDField {
			if obj.ID != c.Value {
				return false
			}
			continue
		}
		text, ok := scalarText(obj.Properties[c.Field])
		if !ok || text != c.Value {
			return false
		}
	}
	return true
}

func scalarText(v model.Value) (string, bool) {
	switch val := v.(type) {
	case model.String:
		return string(val), true
	case model.Int:
		return strconv.FormatInt(int64(val), 10), true
	case model.Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64), true
	case model.Bool:
		return strconv.FormatBool(bool(val)), true
	}
	return "", false
}
