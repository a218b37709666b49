package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
	"github.com/mimirmcp/mimir-host/internal/scene"
)

var channels = []struct {
	kind scene.Kind
	x    string
	y    string
	z    string
	time string
}{
	{scene.Position, "Optional X position.", "Optional Y position.", "Optional Z position.",
		"Optional seconds to ease toward the new position (0 for immediate)."},
	{scene.Rotation, "Optional X rotation in degrees.", "Optional Y rotation in degrees.", "Optional Z rotation in degrees.",
		"Optional seconds to ease toward the new rotation (0 for immediate)."},
	{scene.Scale, "Optional scale X value.", "Optional scale Y value.", "Optional scale Z value.",
		"Optional seconds to ease toward the new scale (0 for immediate)."},
}

type channelArgs struct {
	X, Y, Z    *float64
	Transition *float64
}

// transformChangeTool updates any mix of position, rotation and scale in one
// call, running the channel tweens side by side.
type transformChangeTool struct {
	scene *scene.Scene

	Path string
	Args [3]channelArgs
}

// TransformChange builds transform_change.
func TransformChange(s *scene.Scene) *transformChangeTool {
	return &transformChangeTool{scene: s}
}

func (t *transformChangeTool) Name() string { return "transform_change" }

func (t *transformChangeTool) Description() string {
	return "Adjusts a node's position, rotation or scale. Specify at least one axis per call " +
		"and an optional <channel>_transition_time for smoothing."
}

func (t *transformChangeTool) Params() []*mcp.Param {
	params := []*mcp.Param{
		mcp.String("path", "Hierarchy path of the node, e.g. World/Player", &t.Path).Required(),
	}
	for i, ch := range channels {
		k := ch.kind.String()
		a := &t.Args[i]
		params = append(params,
			mcp.NullableNumber(k+"_x", ch.x, &a.X),
			mcp.NullableNumber(k+"_y", ch.y, &a.Y),
			mcp.NullableNumber(k+"_z", ch.z, &a.Z),
			mcp.NullableNumber(k+"_transition_time", ch.time, &a.Transition),
		)
	}
	return params
}

type channelChange struct {
	kind scene.Kind
	goal scene.PartialVec3
	d    time.Duration
}

func (t *transformChangeTool) Execute(ctx context.Context, call *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	if t.scene == nil {
		return noScene()
	}
	tr, err := t.scene.Inspect(ctx, t.Path)
	if err != nil {
		return transformFault(err, t.Path)
	}

	var changes []channelChange
	var applied []string
	for i, ch := range channels {
		a := t.Args[i]
		goal := scene.PartialVec3{X: a.X, Y: a.Y, Z: a.Z}
		if goal.Empty() {
			continue
		}
		k := ch.kind.String()
		d, rpcErr := transition(k+"_transition_time", a.Transition)
		if rpcErr != nil {
			return nil, rpcErr
		}
		changes = append(changes, channelChange{kind: ch.kind, goal: goal, d: d})
		applied = append(applied, k)
	}
	if len(changes) == 0 {
		return mcp.Fault(protocol.CodeInvalidParams, "No transform properties were specified to update.")
	}
	path := tr.Path

	call.Release()

	call.Log().WithFields(logrus.Fields{"path": path, "channels": applied}).Debug("changing transform")
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range changes {
		g.Go(func() error {
			return t.scene.Tween(gctx, path, c.kind, c.goal, c.d)
		})
	}
	if err := g.Wait(); err != nil {
		return transformFault(err, path)
	}
	return mcp.Reply(fmt.Sprintf("Updated '%s' (%s).", path, strings.Join(applied, ", ")))
}
