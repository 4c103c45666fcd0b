package flowlist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/logging"
	"github.com/harunnryd/flowlist/pkg/providers/mock"
	"github.com/harunnryd/flowlist/pkg/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Vendors.LLM.Provider = "mock"
	return cfg
}

func TestNewAppAnswersWithTools(t *testing.T) {
	cfg := testConfig(t)
	cfg.Observability.MetricsPath = filepath.Join(t.TempDir(), "metrics", "events.jsonl")
	adapter := mock.NewLLMAdapter(
		mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "create_task", Arguments: `{"title":"Buy milk"}`}),
		mock.Text("Added."),
	)
	app, err := New(Options{Config: cfg, Logger: logging.Nop(), Adapter: adapter})
	require.NoError(t, err)

	reply, err := app.Assistant().Respond(context.Background(), []llm.Message{llm.UserMessage("remind me")}, auth.Identity{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Added.", reply.Text)

	tasks, err := app.Store().ListTasks(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	stats := app.Stats()
	assert.Equal(t, 1, stats.TurnsCompleted)
	require.Len(t, stats.Tools, 1)
	assert.Equal(t, "create_task", stats.Tools[0].Name)

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
	raw, err := os.ReadFile(cfg.Observability.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"turn_completed"`)
	assert.Contains(t, string(raw), `"name":"tool_result"`)
}

func TestNewAppBuildsConfiguredPieces(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assistant.Tools = []string{"full"}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = filepath.Join(t.TempDir(), "flowlist.db")
	cfg.Auth.Mode = "token"
	cfg.Auth.Tokens = []TokenConfig{{Token: "t1", UserID: "bob"}}

	app, err := New(Options{Config: cfg, Logger: logging.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, 14, app.Registry().Len())
	_, ok := app.Store().(*sqlite.Store)
	assert.True(t, ok)
	_, ok = app.Resolver().(*auth.TokenResolver)
	assert.True(t, ok)

	reply, err := app.Assistant().Respond(context.Background(), []llm.Message{llm.UserMessage("hello")}, auth.Identity{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "mock reply to: hello", reply.Text)
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "redis"
	_, err := New(Options{Config: cfg, Logger: logging.Nop()})
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Vendors.LLM.Provider = "nope"
	_, err = New(Options{Config: cfg, Logger: logging.Nop()})
	assert.EqualError(t, err, "llm provider not registered: nope")
}
