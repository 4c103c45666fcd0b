package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/harunnryd/flowlist/pkg/assistant"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/errorsx"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/runner"
)

// ChatCmd runs an interactive session against the configured model and store.
// Usage: flowlist chat --user alice
type ChatCmd struct {
	User  string `short:"u" long:"user" description:"user id the session acts as" default:"local"`
	Plain bool   `long:"plain" description:"print replies without markdown rendering"`

	root *Options
}

func (c *ChatCmd) Execute(_ []string) error {
	app, err := c.root.loadApp()
	if err != nil {
		return err
	}
	defer app.Close()

	render := plainRender
	if !c.Plain {
		render = markdownRender(80)
	}
	ctx, stop := runner.SignalContext(context.Background())
	defer stop()
	return chatLoop(ctx, os.Stdin, os.Stdout, app.Assistant(), auth.Identity{UserID: c.User}, render)
}

type turnResponder interface {
	Respond(ctx context.Context, prior []llm.Message, user auth.Identity) (assistant.Reply, error)
}

const (
	cmdExit  = "/exit"
	cmdReset = "/reset"
)

// chatLoop reads one user message per line until EOF, /exit or ctx is done.
// A failed turn leaves the history as it was before the message.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, r turnResponder, user auth.Identity, render func(string) string) error {
	var history []llm.Message
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	fmt.Fprintln(out, "Type a message. /reset clears the conversation, /exit quits.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case cmdExit:
			return nil
		case cmdReset:
			history = nil
			fmt.Fprintln(out, "conversation cleared")
			continue
		}

		next := append(append([]llm.Message(nil), history...), llm.UserMessage(line))
		reply, err := r.Respond(ctx, next, user)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "error (%s): %v\n", errorsx.Label(errorsx.Reason(err)), err)
			continue
		}
		history = append(next, llm.AssistantMessage(reply.Text))
		fmt.Fprintln(out, render(reply.Text))
	}
}

func plainRender(s string) string { return s }

// markdownRender falls back to plain text when the terminal renderer cannot be
// built or fails on a reply.
func markdownRender(width int) func(string) string {
	tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return plainRender
	}
	return func(s string) string {
		out, err := tr.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}
}
