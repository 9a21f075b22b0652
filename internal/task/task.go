// Package task defines the editor's unit of work: a tagged command value
// built from an argv-style command line, optionally carrying a completion
// callback for the originator, plus the FIFO queue the event loop consumes.
package task

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
	"github.com/Conceptual-Machines/hb100-editor/internal/preset"
)

// ErrUnsupported marks a recognised command with no working implementation.
var ErrUnsupported = errors.New("unsupported command")

// Kind enumerates the commands a task can carry.
type Kind int

const (
	KindNone Kind = iota
	KindCLI
	KindHelp
	KindQuit
	KindListPresets
	KindInit
	KindGetPresets
	KindGetExtras
	KindInterrupt
	KindChangePreset
	KindRenamePreset
	KindUploadPreset
	KindImportPreset
	KindParsePreset
	KindExportPreset
)

var kindNames = map[Kind]string{
	KindCLI:          "cli",
	KindHelp:         "help",
	KindQuit:         "quit",
	KindListPresets:  "list-presets",
	KindInit:         "init",
	KindGetPresets:   "get-presets",
	KindGetExtras:    "get-extras",
	KindInterrupt:    "interrupt",
	KindChangePreset: "change-preset",
	KindRenamePreset: "rename-preset",
	KindUploadPreset: "upload-preset",
	KindImportPreset: "import-preset",
	KindParsePreset:  "parse-preset",
	KindExportPreset: "export-preset",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "none"
}

// Completion codes reported to task originators.
const (
	CodeOK              = 200
	CodeInvalidArgument = 400
	CodeNotFound        = 404
	CodeIOError         = 500
	CodeUnsupported     = 501
	CodeDisconnected    = 503
	CodeTimedOut        = 504
)

// CompletionFunc receives the outcome of a task: a code, an optional result
// document, and the context the originator attached.
type CompletionFunc func(code int, payload any, ctx any)

// Task is a tagged command with up to four numeric and four string slots.
type Task struct {
	Kind  Kind
	Nums  [4]int
	Texts [4]string

	ctx  any
	done CompletionFunc
	once sync.Once
}

// New builds a task from an argv-style command. The verb is matched
// case-insensitively; arity and numeric ranges are validated. Invalid input
// yields nil.
func New(argv []string) *Task {
	if len(argv) == 0 {
		return nil
	}
	verb := strings.ToLower(strings.TrimSpace(argv[0]))
	args := argv[1:]
	t := &Task{}
	switch verb {
	case "cli":
		t.Kind = KindCLI
	case "help":
		t.Kind = KindHelp
	case "quit":
		t.Kind = KindQuit
	case "list-presets":
		t.Kind = KindListPresets
	case "init":
		t.Kind = KindInit
	case "get-presets":
		t.Kind = KindGetPresets
	case "get-extras":
		t.Kind = KindGetExtras
	case "interrupt":
		t.Kind = KindInterrupt
	case "change-preset":
		if len(args) != 1 {
			return reject(verb)
		}
		slot, ok := parseSlot(args[0])
		if !ok {
			return reject(verb)
		}
		t.Kind = KindChangePreset
		t.Nums[0] = slot
	case "rename-preset":
		if len(args) != 2 {
			return reject(verb)
		}
		slot, ok := parseSlot(args[0])
		if !ok {
			return reject(verb)
		}
		t.Kind = KindRenamePreset
		t.Nums[0] = slot
		t.Texts[0] = args[1]
	case "upload-preset":
		if len(args) != 2 {
			return reject(verb)
		}
		slot, ok := parseSlot(args[0])
		if !ok || args[1] == "" {
			return reject(verb)
		}
		t.Kind = KindUploadPreset
		t.Nums[0] = slot
		t.Texts[0] = args[1]
	case "import-preset":
		if len(args) != 2 {
			return reject(verb)
		}
		phb, ok := parseFormat(args[0])
		if !ok || args[1] == "" {
			return reject(verb)
		}
		t.Kind = KindImportPreset
		t.Nums[0] = boolToInt(phb)
		t.Texts[0] = args[1]
	case "parse-preset":
		if len(args) != 1 || args[0] == "" {
			return reject(verb)
		}
		t.Kind = KindParsePreset
		t.Nums[0], t.Texts[0] = slotOrName(args[0])
	case "export-preset":
		if len(args) != 2 && len(args) != 3 {
			return reject(verb)
		}
		phb, ok := parseFormat(args[1])
		if !ok || args[0] == "" {
			return reject(verb)
		}
		t.Kind = KindExportPreset
		t.Nums[0], t.Texts[0] = slotOrName(args[0])
		t.Nums[1] = boolToInt(phb)
		if len(args) == 3 {
			t.Texts[1] = args[2]
		}
	default:
		logger.Warn("Unsupported command", logger.Fields{"command": verb})
		return nil
	}
	return t
}

func reject(verb string) *Task {
	logger.Error("Invalid command format", nil, logger.Fields{"command": verb})
	return nil
}

// AttachCompletion records the completion callback for the originator.
func (t *Task) AttachCompletion(ctx any, cb CompletionFunc) {
	t.ctx = ctx
	t.done = cb
}

// Complete reports the task outcome to the originator, at most once.
func (t *Task) Complete(code int, payload any) {
	t.once.Do(func() {
		if t.done != nil {
			t.done(code, payload, t.ctx)
		}
	})
}

// PHB reports whether the task's format slot selects the PHB format.
func (t *Task) PHB(slot int) bool {
	return t.Nums[slot] != 0
}

func parseSlot(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > preset.MaxID {
		return 0, false
	}
	return n, true
}

// slotOrName treats a positive integer of at most three digits as a device
// slot and anything else as a preset name.
func slotOrName(s string) (int, string) {
	if len(s) <= 3 {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n, ""
		}
	}
	return 0, s
}

func parseFormat(s string) (phb, ok bool) {
	switch strings.ToLower(s) {
	case "phb":
		return true, true
	case "binary":
		return false, true
	default:
		return false, false
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
