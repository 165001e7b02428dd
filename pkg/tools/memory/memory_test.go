package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/tools/memory"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, limit int) *memory.Store {
	t.Helper()
	return memory.New(filepath.Join(t.TempDir(), "mem", "memory.md"), limit)
}

func TestReadCreatesMissingFile(t *testing.T) {
	s := newStore(t, 0)

	text, err := s.Read(true)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newStore(t, 0)

	require.NoError(t, s.Append("X"))
	require.NoError(t, s.Append("Y"))

	text, err := s.Read(false)
	require.NoError(t, err)
	assert.Equal(t, "X\nY", text)
	assert.Less(t, strings.Index(text, "X"), strings.Index(text, "Y"))
}

func TestReadTruncatesToTrailingCharacters(t *testing.T) {
	s := newStore(t, 5)

	require.NoError(t, s.Append("héllo wörld"))

	text, err := s.Read(true)
	require.NoError(t, err)
	assert.Equal(t, "wörld", text)

	full, err := s.Read(false)
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", full)
}

func TestToolsThroughRegistry(t *testing.T) {
	s := newStore(t, 0)
	r := toolbox.New()
	r.Register(s.Tools()...)

	assert.Equal(t, 2, r.Len())

	res := r.Call(context.Background(), content.ToolCall{Name: "write_memory", Arguments: `{"content":"likes <tea> & cats"}`})
	require.False(t, res.IsError, res.Content)
	assert.JSONEq(t, `{"status":"ok","message":"Memory saved successfully"}`, res.Content)

	res = r.Call(context.Background(), content.ToolCall{Name: "write_memory", Arguments: `{"content":"lives in Lisbon"}`})
	require.False(t, res.IsError, res.Content)

	res = r.Call(context.Background(), content.ToolCall{Name: "read_memory", Arguments: `{}`})
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, `{"memory":"likes <tea> & cats\nlives in Lisbon","status":"ok"}`, res.Content)

	res = r.Call(context.Background(), content.ToolCall{Name: "read_memory", Arguments: `{"truncate":false}`})
	require.False(t, res.IsError, res.Content)
}

func TestWriteMemoryRequiresContent(t *testing.T) {
	r := toolbox.New()
	r.Register(newStore(t, 0).Tools()...)

	res := r.Call(context.Background(), content.ToolCall{Name: "write_memory", Arguments: `{}`})

	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error":"Bad arguments for write_memory: missing required argument \"content\""}`, res.Content)
}

func TestReadMemorySchema(t *testing.T) {
	d := newStore(t, 0).ReadTool().Descriptor()

	assert.Equal(t, "read_memory", d.Name)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"truncate": {"type": "boolean", "description": "Return only the most recent part of the memory (default true)"}
		},
		"required": []
	}`, string(d.Parameters))
}
