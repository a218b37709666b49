// Package scene is a small in-memory host environment: a hierarchy of named
// nodes with transforms. All state is owned by the main loop; every exported
// method marshals onto it.
package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mimirmcp/mimir-host/internal/mainloop"
)

// ErrNodeNotFound is returned when a hierarchy path does not resolve.
var ErrNodeNotFound = errors.New("scene: node not found")

// Kind selects one of the transform channels.
type Kind int

const (
	Position Kind = iota
	Rotation
	Scale
)

func (k Kind) String() string {
	switch k {
	case Position:
		return "position"
	case Rotation:
		return "rotation"
	case Scale:
		return "scale"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type tweenKey struct {
	node *Node
	kind Kind
}

type tween struct {
	start    Vec3
	goal     Vec3
	elapsed  time.Duration
	duration time.Duration
	done     chan struct{}
}

// DefaultName names a scene whose document carries no name.
const DefaultName = "Untitled"

// Scene holds the node hierarchy.
type Scene struct {
	name   string
	loop   *mainloop.Loop
	roots  []*Node
	tweens map[tweenKey]*tween
}

// Tree is a snapshot of the node hierarchy.
type Tree struct {
	Scene     string     `json:"scene"`
	RootCount int        `json:"rootCount"`
	Hierarchy []TreeNode `json:"hierarchy"`
}

// TreeNode is one node of a Tree; ID is the node name.
type TreeNode struct {
	ID       string     `json:"id"`
	Path     string     `json:"path"`
	Children []TreeNode `json:"children"`
}

// New builds a scene from doc and hooks tween updates into the loop.
func New(loop *mainloop.Loop, doc *Document) (*Scene, error) {
	if doc == nil {
		return nil, errors.New("scene: nil document")
	}
	if err := validate(doc.Nodes, ""); err != nil {
		return nil, err
	}
	name := doc.Name
	if name == "" {
		name = DefaultName
	}
	s := &Scene{
		name:   name,
		loop:   loop,
		roots:  doc.Nodes,
		tweens: make(map[tweenKey]*tween),
	}
	loop.OnTick(s.advance)
	return s, nil
}

// Name returns the scene name.
func (s *Scene) Name() string { return s.name }

// Hierarchy snapshots the node tree.
func (s *Scene) Hierarchy(ctx context.Context) (Tree, error) {
	var out Tree
	err := s.loop.Do(ctx, func(context.Context) error {
		out = Tree{Scene: s.name, RootCount: len(s.roots), Hierarchy: treeOf(s.roots, "")}
		return nil
	})
	return out, err
}

func treeOf(nodes []*Node, parent string) []TreeNode {
	out := make([]TreeNode, 0, len(nodes))
	for _, n := range nodes {
		path := join(parent, n.Name)
		out = append(out, TreeNode{ID: n.Name, Path: path, Children: treeOf(n.Children, path)})
	}
	return out
}

// Inspect returns the transform of the node at path.
func (s *Scene) Inspect(ctx context.Context, path string) (Transform, error) {
	var out Transform
	err := s.loop.Do(ctx, func(context.Context) error {
		n, err := s.find(path)
		if err != nil {
			return err
		}
		out = transformOf(n, normalize(path))
		return nil
	})
	return out, err
}

// Objects snapshots every node, depth first. Each object is keyed by its path.
func (s *Scene) Objects(ctx context.Context) ([]*Object, error) {
	var out []*Object
	err := s.loop.Do(ctx, func(context.Context) error {
		walk(s.roots, "", func(n *Node, path string) {
			out = append(out, &Object{ID: path, Name: n.Name, Transform: transformOf(n, path)})
		})
		return nil
	})
	return out, err
}

// Tween moves one transform channel of the node at path toward the values in
// goal over d, returning once the tween finishes. A non-positive d applies
// the change immediately. Starting a tween cancels any tween already running
// on the same node and channel.
func (s *Scene) Tween(ctx context.Context, path string, kind Kind, goal PartialVec3, d time.Duration) error {
	var tw *tween
	err := s.loop.Do(ctx, func(context.Context) error {
		n, err := s.find(path)
		if err != nil {
			return err
		}
		key := tweenKey{node: n, kind: kind}
		s.cancelLocked(key)

		current := get(n, kind)
		target := goal.Apply(current)
		if d <= 0 {
			set(n, kind, target)
			return nil
		}
		tw = &tween{start: current, goal: target, duration: d, done: make(chan struct{})}
		s.tweens[key] = tw
		return nil
	})
	if err != nil || tw == nil {
		return err
	}

	select {
	case <-tw.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loop.Done():
		return mainloop.ErrStopped
	}
}

// ActiveTweens reports how many tweens are in flight.
func (s *Scene) ActiveTweens(ctx context.Context) (int, error) {
	var n int
	err := s.loop.Do(ctx, func(context.Context) error {
		n = len(s.tweens)
		return nil
	})
	return n, err
}

func (s *Scene) cancelLocked(key tweenKey) {
	if tw, ok := s.tweens[key]; ok {
		close(tw.done)
		delete(s.tweens, key)
	}
}

// advance runs on the loop goroutine.
func (s *Scene) advance(dt time.Duration) {
	for key, tw := range s.tweens {
		tw.elapsed += dt
		t := float64(tw.elapsed) / float64(tw.duration)
		if t >= 1 {
			set(key.node, key.kind, tw.goal)
			close(tw.done)
			delete(s.tweens, key)
			continue
		}
		set(key.node, key.kind, Lerp(tw.start, tw.goal, t))
	}
}

func (s *Scene) find(path string) (*Node, error) {
	path = normalize(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNodeNotFound)
	}

	nodes := s.roots
	var cur *Node
	for _, part := range strings.Split(path, "/") {
		cur = nil
		for _, n := range nodes {
			if n.Name == part {
				cur = n
				break
			}
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
		}
		nodes = cur.Children
	}
	return cur, nil
}

func normalize(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

func walk(nodes []*Node, parent string, fn func(n *Node, path string)) {
	for _, n := range nodes {
		path := join(parent, n.Name)
		fn(n, path)
		walk(n.Children, path, fn)
	}
}

func transformOf(n *Node, path string) Transform {
	return Transform{Path: path, Position: n.Position, Rotation: n.Rotation, Scale: *n.Scale}
}

func get(n *Node, kind Kind) Vec3 {
	switch kind {
	case Rotation:
		return n.Rotation
	case Scale:
		return *n.Scale
	default:
		return n.Position
	}
}

func set(n *Node, kind Kind, v Vec3) {
	switch kind {
	case Rotation:
		n.Rotation = v
	case Scale:
		*n.Scale = v
	default:
		n.Position = v
	}
}
