package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vec3 is a three component vector.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// UnmarshalYAML accepts either a mapping ({x: 1, y: 2, z: 3}) or a
// three element sequence ([1, 2, 3]).
func (v *Vec3) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var xs []float64
		if err := node.Decode(&xs); err != nil {
			return err
		}
		if len(xs) != 3 {
			return fmt.Errorf("line %d: vector needs 3 components, got %d", node.Line, len(xs))
		}
		v.X, v.Y, v.Z = xs[0], xs[1], xs[2]
		return nil
	}

	type plain Vec3
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = Vec3(p)
	return nil
}

// Lerp interpolates between a and b.
func Lerp(a, b Vec3, t float64) Vec3 {
	t = math.Max(0, math.Min(1, t))
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// PartialVec3 overrides selected components of a vector.
type PartialVec3 struct {
	X, Y, Z *float64
}

// Empty reports whether no component is set.
func (p PartialVec3) Empty() bool {
	return p.X == nil && p.Y == nil && p.Z == nil
}

// Apply returns base with the set components replaced.
func (p PartialVec3) Apply(base Vec3) Vec3 {
	if p.X != nil {
		base.X = *p.X
	}
	if p.Y != nil {
		base.Y = *p.Y
	}
	if p.Z != nil {
		base.Z = *p.Z
	}
	return base
}

// Node is one object in the scene hierarchy.
type Node struct {
	Name     string  `yaml:"name"`
	Position Vec3    `yaml:"position"`
	Rotation Vec3    `yaml:"rotation"`
	Scale    *Vec3   `yaml:"scale"`
	Children []*Node `yaml:"children"`
}

// Transform is a point-in-time copy of a node's transform.
type Transform struct {
	Path     string `json:"path"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
	Scale    Vec3   `json:"scale"`
}

// Object is a snapshot of a node that can be kept in a keyed store.
type Object struct {
	ID        string    `json:"objectId"`
	Name      string    `json:"name"`
	Transform Transform `json:"transform"`
}

func (o *Object) ObjectID() string      { return o.ID }
func (o *Object) SetObjectID(id string) { o.ID = id }

func (o *Object) ToJSON() (string, error) {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Document is a decoded scene file.
type Document struct {
	Name  string  `yaml:"name"`
	Nodes []*Node `yaml:"nodes"`
}

// Load reads a scene description from a YAML file. A document without a
// name is named after the file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Parse decodes a YAML scene description.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing scene file: %w", err)
	}
	if err := validate(doc.Nodes, ""); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validate(nodes []*Node, parent string) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Name == "" {
			return fmt.Errorf("scene node under %q has no name", parent)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate scene node %q", join(parent, n.Name))
		}
		seen[n.Name] = true
		if n.Scale == nil {
			n.Scale = &Vec3{X: 1, Y: 1, Z: 1}
		}
		if err := validate(n.Children, join(parent, n.Name)); err != nil {
			return err
		}
	}
	return nil
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
