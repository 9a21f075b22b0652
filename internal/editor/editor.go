// Package editor owns the runtime: the preset store, the task queue, the USB
// engine and the optional HTTP/WebSocket server, plus the dispatch loop that
// serialises every command through the engine's single in-flight latch.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/hb100-editor/internal/cli"
	"github.com/Conceptual-Machines/hb100-editor/internal/config"
	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
	"github.com/Conceptual-Machines/hb100-editor/internal/preset"
	"github.com/Conceptual-Machines/hb100-editor/internal/server"
	"github.com/Conceptual-Machines/hb100-editor/internal/task"
	"github.com/Conceptual-Machines/hb100-editor/internal/usb"
)

const shutdownTimeout = 2 * time.Second

// Editor is the top-level runtime value. Everything the subsystems share is
// owned here and passed down explicitly.
type Editor struct {
	cfg    *config.Config
	store  *preset.Store
	queue  *task.Queue
	engine *usb.Engine
	api    *server.Server

	stop context.CancelFunc
}

// New wires the runtime together. The USB device is not touched yet.
func New(cfg *config.Config) (*Editor, error) {
	store, err := preset.NewStore(cfg.SavePresetsFolder)
	if err != nil {
		return nil, err
	}
	e := &Editor{
		cfg:    cfg,
		store:  store,
		queue:  task.NewQueue(),
		engine: usb.New(store),
	}
	if cfg.HTTPPort > 0 {
		e.api = server.New(e.queue)
	}
	return e, nil
}

// Run executes the editor until the context is cancelled, a quit task is
// processed, or (without an interactive CLI or API server) the startup tasks
// are done. In offline mode Run returns as soon as the startup preset
// conversion is done; no CLI, API server or dispatch loop is started.
func (e *Editor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.stop = cancel

	imported, err := e.convertStartupPreset()
	if err != nil {
		return err
	}
	if e.cfg.Offline {
		// No device work requested, we're done.
		return nil
	}

	e.seedStartupTasks(imported)

	if err := e.engine.Connect(e.cfg.DebugLibusb); err != nil {
		return err
	}
	defer e.engine.Close()

	if e.api != nil {
		if err := e.api.Start(e.cfg.HTTPPort); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			e.api.Shutdown(shutdownCtx)
		}()
	}

	if e.cfg.Interactive {
		go cli.NewReader(e.queue).Run()
	}

	// Unblock the queue pop when the context goes away, so the loop exits
	// after the current iteration and pending tasks are dropped.
	go func() {
		<-ctx.Done()
		e.queue.Deinit()
	}()

	e.loop(ctx)
	return nil
}

// loop is the dispatch loop: take the latch first, then pop one task and
// dispatch it. Every terminal transition gives the latch back.
func (e *Editor) loop(ctx context.Context) {
	for {
		if !e.engine.TryAcquire() {
			// A command still holds the latch; let it finish.
			time.Sleep(10 * time.Millisecond)
			continue
		}
		t, ok := e.queue.Pop()
		if !ok {
			e.engine.Release()
			return
		}
		e.dispatch(ctx, t)
		if ctx.Err() != nil {
			return
		}
		if !e.cfg.Interactive && e.api == nil && e.queue.IsEmpty() {
			// Nothing left to do and nobody to ask for more.
			return
		}
	}
}

// dispatch executes one task. Local tasks run inline; USB commands run in
// the engine, which owns the latch release for them.
func (e *Editor) dispatch(ctx context.Context, t *task.Task) {
	switch t.Kind {
	case task.KindInit, task.KindGetPresets, task.KindGetExtras,
		task.KindChangePreset, task.KindUploadPreset, task.KindInterrupt:
		e.engine.Run(ctx, t)
		return
	}

	code, payload := e.runLocal(t)
	e.engine.Release()
	t.Complete(code, payload)
}

func (e *Editor) runLocal(t *task.Task) (int, any) {
	switch t.Kind {
	case task.KindCLI, task.KindHelp:
		return task.CodeOK, cli.Help()
	case task.KindQuit:
		e.stop()
		return task.CodeOK, nil
	case task.KindListPresets:
		logger.Info("\n"+e.store.Print(), nil)
		return task.CodeOK, e.store.Document()
	case task.KindImportPreset:
		p, err := e.store.Import(t.Texts[0], t.PHB(0))
		if err != nil {
			logger.Error("Could not import preset", err, logger.Fields{"path": t.Texts[0]})
			return errorToCode(err), reasonOf(err)
		}
		logger.Info("  -- Successfully imported preset", logger.Fields{"name": p.Name})
		return task.CodeOK, map[string]any{"name": p.Name}
	case task.KindParsePreset:
		p := e.findPreset(t.Nums[0], t.Texts[0])
		if p == nil {
			logger.Warn("No such preset", nil)
			return task.CodeNotFound, reasonOf(preset.ErrNotFound)
		}
		logger.Info("\n"+p.Describe(), nil)
		return task.CodeOK, p.ToPHBObject()
	case task.KindExportPreset:
		p := e.findPreset(t.Nums[0], t.Texts[0])
		if p == nil {
			logger.Warn("No such preset", nil)
			return task.CodeNotFound, reasonOf(preset.ErrNotFound)
		}
		path := t.Texts[1]
		if path == "" {
			path = defaultExportPath(p, t.PHB(1))
		}
		if err := preset.Export(p, path, t.PHB(1)); err != nil {
			logger.Error("Could not export preset", err, logger.Fields{"path": path})
			return errorToCode(err), reasonOf(err)
		}
		logger.Info("  -- Successfully exported preset", logger.Fields{"name": p.Name, "path": path})
		return task.CodeOK, map[string]any{"name": p.Name, "path": path}
	case task.KindRenamePreset:
		logger.Warn("Task currently unsupported", logger.Fields{"task": t.Kind.String()})
		return task.CodeUnsupported, reasonOf(task.ErrUnsupported)
	default:
		logger.Warn("Task currently unsupported", logger.Fields{"task": t.Kind.String()})
		return task.CodeUnsupported, reasonOf(task.ErrUnsupported)
	}
}

func (e *Editor) findPreset(slot int, name string) *preset.Preset {
	if slot > 0 {
		return e.store.FindByID(slot)
	}
	return e.store.FindByName(name)
}

func defaultExportPath(p *preset.Preset, phb bool) string {
	if phb {
		return p.Name + ".phb"
	}
	return fmt.Sprintf("%03d-%s.bhb", p.ID, p.Name)
}

// convertStartupPreset handles the --preset-in/--phb-in/--preset-out/--phb-out
// options: import one preset, optionally convert it to the other formats,
// and register it by name for later tasks.
func (e *Editor) convertStartupPreset() (*preset.Preset, error) {
	cfg := e.cfg
	if cfg.PresetFileIn != "" && cfg.PHBFileIn != "" {
		return nil, errors.New("can't provide both binary and PHB file as preset input")
	}
	if (cfg.PresetFileOut != "" || cfg.PHBFileOut != "") &&
		cfg.PresetFileIn == "" && cfg.PHBFileIn == "" {
		return nil, errors.New("can't convert preset to a different format, no input preset provided")
	}
	var (
		p   *preset.Preset
		err error
	)
	switch {
	case cfg.PresetFileIn != "":
		p, err = preset.ReadFile(cfg.PresetFileIn, false)
	case cfg.PHBFileIn != "":
		p, err = preset.ReadFile(cfg.PHBFileIn, true)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.PresetFileOut != "" {
		if err := preset.WriteFile(p, cfg.PresetFileOut, false); err != nil {
			return nil, err
		}
	}
	if cfg.PHBFileOut != "" {
		if err := preset.WriteFile(p, cfg.PHBFileOut, true); err != nil {
			return nil, err
		}
	}
	if cfg.PresetFileOut == "" && cfg.PHBFileOut == "" {
		logger.Info("\n"+p.Describe(), nil)
	}
	if err := e.store.AddByName(p); err != nil {
		return nil, err
	}
	return p, nil
}

// seedStartupTasks enqueues the work the options ask for: the handshake, the
// bank and extras downloads, then any preset change or upload.
func (e *Editor) seedStartupTasks(imported *preset.Preset) {
	if !e.cfg.NoInit {
		e.queue.Add(task.New([]string{"init"}))
	}
	if !e.cfg.NoGetPresets {
		e.queue.Add(task.New([]string{"get-presets"}))
	}
	if !e.cfg.NoGetExtras {
		e.queue.Add(task.New([]string{"get-extras"}))
	}
	if e.cfg.ChangePreset > 0 {
		if e.cfg.ChangePreset > preset.MaxID {
			logger.Warn("Invalid preset number", logger.Fields{"preset": e.cfg.ChangePreset})
		} else {
			e.queue.Add(task.New([]string{"change-preset", strconv.Itoa(e.cfg.ChangePreset)}))
		}
	}
	if e.cfg.UploadPreset > 0 {
		switch {
		case imported == nil:
			logger.Warn("Can't upload a preset, none was imported", nil)
		case e.cfg.UploadPreset > preset.MaxID:
			logger.Warn("Invalid preset number", logger.Fields{"preset": e.cfg.UploadPreset})
		default:
			e.queue.Add(task.New([]string{"upload-preset", strconv.Itoa(e.cfg.UploadPreset), imported.Name}))
		}
	}
}

func errorToCode(err error) int {
	switch {
	case errors.Is(err, preset.ErrNotFound):
		return task.CodeNotFound
	case errors.Is(err, preset.ErrMalformedPreset),
		errors.Is(err, preset.ErrJSONInvalid),
		errors.Is(err, preset.ErrInvalidArgument):
		return task.CodeInvalidArgument
	default:
		return task.CodeIOError
	}
}

func reasonOf(err error) map[string]any {
	return map[string]any{"reason": err.Error()}
}
