package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/flowlist/pkg/assistant"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/errorsx"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeResponder struct {
	seen  [][]llm.Message
	users []auth.Identity
	fail  map[string]error
}

func (f *fakeResponder) Respond(_ context.Context, prior []llm.Message, user auth.Identity) (assistant.Reply, error) {
	f.seen = append(f.seen, append([]llm.Message(nil), prior...))
	f.users = append(f.users, user)
	last := prior[len(prior)-1].Content
	if err, ok := f.fail[last]; ok {
		return assistant.Reply{}, err
	}
	return assistant.Reply{Text: "re: " + last}, nil
}

func TestChatLoopKeepsHistory(t *testing.T) {
	r := &fakeResponder{}
	var out bytes.Buffer
	in := strings.NewReader("hello\n\nsecond\n/exit\nignored\n")

	err := chatLoop(context.Background(), in, &out, r, auth.Identity{UserID: "u1"}, plainRender)
	require.NoError(t, err)

	require.Len(t, r.seen, 2)
	assert.Len(t, r.seen[0], 1)
	require.Len(t, r.seen[1], 3)
	assert.Equal(t, llm.RoleAssistant, r.seen[1][1].Role)
	assert.Equal(t, "re: hello", r.seen[1][1].Content)
	assert.Equal(t, "u1", r.users[1].UserID)
	assert.Contains(t, out.String(), "re: second")
	assert.NotContains(t, out.String(), "ignored")
}

func TestChatLoopResetClearsHistory(t *testing.T) {
	r := &fakeResponder{}
	var out bytes.Buffer
	in := strings.NewReader("one\n/reset\ntwo\n")

	require.NoError(t, chatLoop(context.Background(), in, &out, r, auth.Identity{UserID: "u1"}, plainRender))

	require.Len(t, r.seen, 2)
	assert.Len(t, r.seen[1], 1)
	assert.Contains(t, out.String(), "conversation cleared")
}

func TestChatLoopDropsFailedMessage(t *testing.T) {
	r := &fakeResponder{fail: map[string]error{
		"boom": errorsx.Wrap(errors.New("upstream"), errorsx.ReasonAIService),
	}}
	var out bytes.Buffer
	in := strings.NewReader("boom\nafter\n")

	require.NoError(t, chatLoop(context.Background(), in, &out, r, auth.Identity{UserID: "u1"}, plainRender))

	require.Len(t, r.seen, 2)
	require.Len(t, r.seen[1], 1)
	assert.Equal(t, "after", r.seen[1][0].Content)
	assert.Contains(t, out.String(), "error (")
	assert.Contains(t, out.String(), "upstream")
}

func TestChatLoopRendersReplies(t *testing.T) {
	r := &fakeResponder{}
	var out bytes.Buffer
	render := func(s string) string { return "[" + s + "]" }

	require.NoError(t, chatLoop(context.Background(), strings.NewReader("hi\n"), &out, r, auth.Identity{UserID: "u1"}, render))
	assert.Contains(t, out.String(), "[re: hi]")
}

func TestWriteToolsFormats(t *testing.T) {
	registry, err := tools.FromSelection([]string{"minimal"})
	require.NoError(t, err)

	var js bytes.Buffer
	require.NoError(t, writeTools(&js, registry, "json"))
	var fromJSON []toolView
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	require.Len(t, fromJSON, registry.Len())
	assert.Equal(t, registry.Names()[0].String(), fromJSON[0].Name)
	assert.NotEmpty(t, fromJSON[0].Group)
	assert.Equal(t, "object", fromJSON[0].Parameters["type"])

	var ym bytes.Buffer
	require.NoError(t, writeTools(&ym, registry, "yaml"))
	var fromYAML []toolView
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Len(t, fromYAML, registry.Len())

	assert.Error(t, writeTools(&bytes.Buffer{}, registry, "xml"))
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FLOWLIST_CMD_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FLOWLIST_CMD_TEST_VALUE") })
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("FLOWLIST_CMD_TEST_VALUE"))
}

func TestRunHelp(t *testing.T) {
	err := run([]string{"--help"})
	var ferr *flags.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, flags.ErrHelp, ferr.Type)
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	assert.Error(t, run([]string{"bogus"}))
}

func TestRunReportsConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o600))

	err := run([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "-c", path, "tools"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}
