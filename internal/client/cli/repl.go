package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// printFn writes the prompt without a trailing newline.
var printFn = fmt.Print

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Add(ctx context.Context, path string) error
	Parse(ctx context.Context, id int64) error
	Translate(ctx context.Context, id int64, language string) error
	ShowQueue(ctx context.Context) error
	ShowProgress(ctx context.Context, id int64) error
	Watch(ctx context.Context, id int64) error
	Refresh(ctx context.Context) error
	Delete(ctx context.Context, id int64) error
}

const helpText = `Available commands:
  list                        list records of the folder
  add <path>                  upload a file as a new record
  parse <id>                  queue a record for parsing
  translate <id> [language]   translate a parsed record
  queue                       show queued records
  progress <id>               show the latest progress of a record
  watch <id>                  follow a running operation
  refresh                     reload the folder
  delete <id>                 delete a record
  exit | quit                 leave the program`

func parseID(args []string, usage string) (int64, bool) {
	if len(args) == 0 {
		printlnFn("Usage:", usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		printlnFn("Invalid record id:", args[0])
		return 0, false
	}
	return id, true
}

func report(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		printlnFn("Error:", err.Error())
	}
}

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF, on "exit"/"quit", or when ctx is cancelled.
//
// Errors returned by commands are printed and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printFn(fmt.Sprintf("rk %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "l", "list":
			report(a.List(ctx))

		case "add":
			if len(args) == 0 {
				printlnFn("Usage: add <path>")
				continue
			}
			report(a.Add(ctx, strings.Join(args, " ")))

		case "parse":
			if id, ok := parseID(args, "parse <id>"); ok {
				report(a.Parse(ctx, id))
			}

		case "translate":
			if id, ok := parseID(args, "translate <id> [language]"); ok {
				report(a.Translate(ctx, id, strings.Join(args[1:], " ")))
			}

		case "queue":
			report(a.ShowQueue(ctx))

		case "progress":
			if id, ok := parseID(args, "progress <id>"); ok {
				report(a.ShowProgress(ctx, id))
			}

		case "watch":
			if id, ok := parseID(args, "watch <id>"); ok {
				report(a.Watch(ctx, id))
			}

		case "refresh":
			report(a.Refresh(ctx))

		case "delete":
			if id, ok := parseID(args, "delete <id>"); ok {
				report(a.Delete(ctx, id))
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if errors.Is(err, io.EOF) {
			return
		}
	}
}
