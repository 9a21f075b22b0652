// Package cli is the interactive command reader: it turns lines typed on
// standard input into tasks and prints their completions. It holds no
// editor state beyond the queue it feeds.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
	"github.com/Conceptual-Machines/hb100-editor/internal/task"
)

const prompt = "HB100> "

var helpText = strings.TrimSpace(`
Available commands:
  help                                        show this help
  quit                                        leave the editor
  list-presets                                list the known presets
  init                                        greet the device
  get-presets                                 download the device preset bank
  get-extras                                  download the extras catalogue
  interrupt                                   send a device-side wake/clear
  change-preset <1-200>                       switch the device to a slot
  rename-preset <1-200> <name>                (not implemented)
  upload-preset <1-200> <name>                upload a stored preset to a slot
  import-preset <binary|phb> <path>           import a preset file
  parse-preset <slot|name>                    show a stored preset
  export-preset <slot|name> <binary|phb> [path]  export a stored preset
`)

// Help returns the command summary.
func Help() string {
	return helpText
}

// Reader feeds the task queue from an input stream, one command per line.
type Reader struct {
	queue *task.Queue
	in    io.Reader
}

// NewReader creates a reader over standard input.
func NewReader(queue *task.Queue) *Reader {
	return &Reader{queue: queue, in: os.Stdin}
}

// Run consumes the input until EOF. Each non-empty line that task.New accepts
// becomes a task; other lines are dropped. The completion is printed to the
// terminal. Run is meant for its own goroutine.
func (r *Reader) Run() {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print(prompt)
			continue
		}
		t := task.New(strings.Fields(line))
		if t == nil {
			fmt.Print(prompt)
			continue
		}
		t.AttachCompletion(nil, printCompletion)
		r.queue.Add(t)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Reading standard input", logger.Fields{"err": err})
	}
}

func printCompletion(code int, payload any, _ any) {
	switch p := payload.(type) {
	case nil:
		if code != task.CodeOK {
			fmt.Printf("  -- error %d\n", code)
		}
	case string:
		fmt.Println(p)
	default:
		text, err := json.MarshalIndent(p, "", "    ")
		if err != nil {
			fmt.Printf("  -- error rendering result: %v\n", err)
			break
		}
		if code != task.CodeOK {
			fmt.Printf("  -- error %d\n", code)
		}
		fmt.Println(string(text))
	}
	fmt.Print(prompt)
}
