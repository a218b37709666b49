package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
	"github.com/mimirmcp/mimir-host/internal/store"
)

// databaseReadTool exposes a keyed store as a read-only tool.
type databaseReadTool struct {
	db store.Database

	ObjectID *string
}

// DatabaseRead builds read_<name>_database for db.
func DatabaseRead(db store.Database) *databaseReadTool {
	return &databaseReadTool{db: db}
}

// DatabaseToolName is the tool name a database is exposed under.
func DatabaseToolName(name string) string {
	return fmt.Sprintf("read_%s_database", name)
}

func (t *databaseReadTool) Name() string { return DatabaseToolName(t.db.Name()) }

func (t *databaseReadTool) Description() string {
	return fmt.Sprintf("Read items from the %s database. Pass object_id for a single item, or omit it to list every item.", t.db.Name())
}

func (t *databaseReadTool) Params() []*mcp.Param {
	return []*mcp.Param{
		mcp.NullableString("object_id", "ID of the item to read; omit to read all items", &t.ObjectID),
	}
}

func (t *databaseReadTool) Execute(ctx context.Context, call *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	name := t.db.Name()
	if err := t.db.Reload(ctx); err != nil && !errors.Is(err, store.ErrNoLoader) {
		if errors.Is(err, store.ErrClosed) {
			return mcp.Fault(protocol.CodePrecondition, "The %s database is closed.", name)
		}
		call.Log().WithError(err).WithField("database", name).Warn("database reload failed")
		return hostFault(err)
	}

	if t.ObjectID != nil && *t.ObjectID != "" {
		id := *t.ObjectID
		text, ok, err := t.db.ItemText(id)
		if err != nil {
			return mcp.Fault(protocol.CodeInternalError, "Failed to serialize item '%s': %v", id, err)
		}
		if !ok {
			return mcp.Reply(fmt.Sprintf("Item with ID '%s' not found in %s database.", id, name))
		}
		return mcp.Reply(text)
	}

	if t.db.Count() == 0 {
		return mcp.Reply(fmt.Sprintf("The %s database is empty.", name))
	}
	text, err := t.db.Text()
	if err != nil {
		return mcp.Fault(protocol.CodeInternalError, "Failed to serialize the %s database: %v", name, err)
	}
	return mcp.Reply(text)
}
