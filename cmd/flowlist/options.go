package main

import (
	"github.com/harunnryd/flowlist/pkg/flowlist"
)

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config  string `short:"c" long:"config" description:"config YAML path" env:"FLOWLIST_CONFIG"`
	EnvFile string `long:"env-file" description:"dotenv file loaded before the config" default:".env"`

	Serve *ServeCmd `command:"serve" description:"Start the HTTP and websocket API"`
	Chat  *ChatCmd  `command:"chat" description:"Chat with the assistant in the terminal"`
	Tools *ToolsCmd `command:"tools" description:"Print the tool catalogue the model sees"`
}

func newOptions() *Options {
	o := &Options{}
	o.Serve = &ServeCmd{root: o}
	o.Chat = &ChatCmd{root: o}
	o.Tools = &ToolsCmd{root: o}
	return o
}

func (o *Options) loadConfig() (flowlist.Config, error) {
	return flowlist.LoadConfig(o.Config)
}

func (o *Options) loadApp() (*flowlist.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return flowlist.New(flowlist.Options{Config: cfg})
}
