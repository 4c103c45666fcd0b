// Command flowlist runs the FlowList assistant as an HTTP service or an
// interactive terminal chat.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, ferr.Message)
			return
		}
		fmt.Fprintln(os.Stderr, "flowlist:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts := newOptions()
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(cmd flags.Commander, rest []string) error {
		if cmd == nil {
			return nil
		}
		if err := loadEnvFile(opts.EnvFile); err != nil {
			return err
		}
		return cmd.Execute(rest)
	}
	_, err := parser.ParseArgs(args)
	return err
}

// loadEnvFile populates the process environment from a dotenv file. A missing
// file is not an error; variables already set are left alone.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
