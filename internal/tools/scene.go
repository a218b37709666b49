package tools

import (
	"context"
	"encoding/json"

	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
	"github.com/mimirmcp/mimir-host/internal/scene"
)

type sceneHierarchyTool struct {
	scene *scene.Scene
}

// SceneHierarchy reports the scene tree as JSON.
func SceneHierarchy(s *scene.Scene) *sceneHierarchyTool {
	return &sceneHierarchyTool{scene: s}
}

func (t *sceneHierarchyTool) Name() string { return "scene_hierarchy" }

func (t *sceneHierarchyTool) Description() string {
	return "Returns the active scene hierarchy as JSON grouped by node name."
}

func (t *sceneHierarchyTool) Params() []*mcp.Param { return nil }

func (t *sceneHierarchyTool) Execute(ctx context.Context, _ *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	if t.scene == nil {
		return noScene()
	}
	tree, err := t.scene.Hierarchy(ctx)
	if err != nil {
		return hostFault(err)
	}
	b, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return mcp.Fault(protocol.CodeInternalError, "Failed to encode hierarchy: %v", err)
	}
	return mcp.Reply(string(b))
}

func noScene() ([]protocol.ContentItem, *protocol.ResponseError) {
	return mcp.Fault(protocol.CodePrecondition, "No active scene.")
}
