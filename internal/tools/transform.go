package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
	"github.com/mimirmcp/mimir-host/internal/scene"
)

type transformInspectTool struct {
	scene *scene.Scene

	Path string
}

// TransformInspect reports the transform of one node.
func TransformInspect(s *scene.Scene) *transformInspectTool {
	return &transformInspectTool{scene: s}
}

func (t *transformInspectTool) Name() string { return "transform_inspect" }

func (t *transformInspectTool) Description() string {
	return "Return the position, rotation and scale of the node at a hierarchy path."
}

func (t *transformInspectTool) Params() []*mcp.Param {
	return []*mcp.Param{
		mcp.String("path", "Hierarchy path of the node, e.g. World/Player", &t.Path).Required(),
	}
}

func (t *transformInspectTool) Execute(ctx context.Context, _ *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	if t.scene == nil {
		return noScene()
	}
	tr, err := t.scene.Inspect(ctx, t.Path)
	if err != nil {
		return transformFault(err, t.Path)
	}
	b, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return mcp.Fault(protocol.CodeInternalError, "Failed to encode transform: %v", err)
	}
	return mcp.Reply(string(b))
}

// transformUpdateTool sets or tweens one transform channel.
type transformUpdateTool struct {
	scene *scene.Scene
	kind  scene.Kind

	Path       string
	X, Y, Z    *float64
	Transition *float64
}

// TransformUpdate builds transform_<kind>_update.
func TransformUpdate(s *scene.Scene, kind scene.Kind) *transformUpdateTool {
	return &transformUpdateTool{scene: s, kind: kind}
}

func (t *transformUpdateTool) Name() string {
	return "transform_" + t.kind.String() + "_update"
}

func (t *transformUpdateTool) Description() string {
	return fmt.Sprintf("Update the %s of the node at a hierarchy path. Unset components are kept. "+
		"A positive %s_transition_time animates the change over that many seconds.", t.kind, t.kind)
}

func (t *transformUpdateTool) Params() []*mcp.Param {
	k := t.kind.String()
	return []*mcp.Param{
		mcp.String("path", "Hierarchy path of the node, e.g. World/Player", &t.Path).Required(),
		mcp.NullableNumber(k+"_x", "New x component", &t.X),
		mcp.NullableNumber(k+"_y", "New y component", &t.Y),
		mcp.NullableNumber(k+"_z", "New z component", &t.Z),
		mcp.NullableNumber(k+"_transition_time", "Seconds to animate over; 0 applies immediately", &t.Transition),
	}
}

func (t *transformUpdateTool) Execute(ctx context.Context, call *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	k := t.kind.String()
	if t.scene == nil {
		return noScene()
	}

	goal := scene.PartialVec3{X: t.X, Y: t.Y, Z: t.Z}
	if goal.Empty() {
		return mcp.Fault(protocol.CodeInvalidParams, "Specify at least one of %s_x, %s_y or %s_z.", k, k, k)
	}
	d, rpcErr := transition(k+"_transition_time", t.Transition)
	if rpcErr != nil {
		return nil, rpcErr
	}
	path := t.Path

	// Tweens can run for seconds; let other calls of this tool proceed.
	call.Release()

	call.Log().WithFields(logrus.Fields{"path": path, "kind": k, "duration": d}).Debug("updating transform")
	if err := t.scene.Tween(ctx, path, t.kind, goal, d); err != nil {
		return transformFault(err, path)
	}

	tr, err := t.scene.Inspect(ctx, path)
	if err != nil {
		return transformFault(err, path)
	}
	v := tr.Position
	switch t.kind {
	case scene.Rotation:
		v = tr.Rotation
	case scene.Scale:
		v = tr.Scale
	}
	return mcp.Reply(fmt.Sprintf("Set %s of '%s' to (%s, %s, %s).", k, tr.Path, num(v.X), num(v.Y), num(v.Z)))
}

// maxTransition is the longest transition, in seconds, a time.Duration holds.
var maxTransition = float64(math.MaxInt64) / float64(time.Second)

// transition converts an optional seconds parameter into a duration.
func transition(param string, seconds *float64) (time.Duration, *protocol.ResponseError) {
	if seconds == nil {
		return 0, nil
	}
	v := *seconds
	if math.IsNaN(v) || v < 0 {
		return 0, protocol.Errorf(protocol.CodeInvalidParams, "Parameter '%s' must not be negative.", param)
	}
	if v >= maxTransition {
		return 0, protocol.Errorf(protocol.CodeInvalidParams, "Parameter '%s' must be less than %.0f seconds.", param, maxTransition)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func transformFault(err error, path string) ([]protocol.ContentItem, *protocol.ResponseError) {
	if errors.Is(err, scene.ErrNodeNotFound) {
		return mcp.Fault(protocol.CodePrecondition, "Transform not found at path '%s'.", path)
	}
	return hostFault(err)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
