package usb

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
	"github.com/Conceptual-Machines/hb100-editor/internal/preset"
	"github.com/Conceptual-Machines/hb100-editor/internal/task"
)

// DeviceInfo holds the ASCII identification fields the device returns to the
// init handshake.
type DeviceInfo struct {
	Description string `json:"description"`
	Firmware    string `json:"firmware"`
	Hardware    string `json:"hardware"`
	Build       string `json:"build"`
}

// Engine drives the HB100 protocol: it owns the transport, the single
// in-flight latch, and the reassembly buffer commands accumulate framed
// responses into.
type Engine struct {
	store    *preset.Store
	tr       Transport
	inFlight atomic.Bool

	buf     []byte
	scratch [preset.Size]byte

	info   DeviceInfo
	extras []string
}

// New creates an engine over the given preset store. No device is opened
// until Connect.
func New(store *preset.Store) *Engine {
	return &Engine{
		store: store,
		buf:   make([]byte, 0, BufferSize),
	}
}

// Connect opens the USB device and keeps it as the engine transport.
func (e *Engine) Connect(debugLevel int) error {
	dev, err := Open(debugLevel)
	if err != nil {
		return err
	}
	e.tr = dev
	return nil
}

// SetTransport installs a transport directly, in place of the USB device.
// The tests use it to run commands against a mock transport.
func (e *Engine) SetTransport(tr Transport) {
	e.tr = tr
}

// Connected reports whether a transport is available.
func (e *Engine) Connected() bool {
	return e.tr != nil
}

// Close shuts the transport down.
func (e *Engine) Close() {
	if e.tr != nil {
		e.tr.Close()
		e.tr = nil
	}
}

// Info returns the identification parsed from the last init handshake.
func (e *Engine) Info() DeviceInfo {
	return e.info
}

// Extras returns the names parsed from the last get-extras command.
func (e *Engine) Extras() []string {
	return e.extras
}

// TryAcquire attempts to take the single in-flight latch.
func (e *Engine) TryAcquire() bool {
	return e.inFlight.CompareAndSwap(false, true)
}

// Release frees the in-flight latch. Every terminal transition of a command
// must call this before the task completion runs.
func (e *Engine) Release() {
	e.inFlight.Store(false)
}

// InFlight reports whether a command currently holds the latch.
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// Run executes one USB command to completion. The caller must hold the
// latch; Run releases it before invoking the task's completion callback.
func (e *Engine) Run(ctx context.Context, t *task.Task) {
	if e.tr == nil {
		logger.Warn("Task currently unavailable (disconnected)", logger.Fields{"task": t.Kind.String()})
		e.Release()
		t.Complete(task.CodeDisconnected, reason("Disconnected"))
		return
	}
	var (
		code    int
		payload any
	)
	switch t.Kind {
	case task.KindInit:
		code, payload = e.runInit(ctx)
	case task.KindGetPresets:
		code, payload = e.runGetPresets(ctx)
	case task.KindGetExtras:
		code, payload = e.runGetExtras(ctx)
	case task.KindChangePreset:
		code, payload = e.runChangePreset(t.Nums[0])
	case task.KindUploadPreset:
		code, payload = e.runUploadPreset(ctx, t.Nums[0], t.Texts[0])
	case task.KindInterrupt:
		code, payload = e.runInterrupt()
	default:
		logger.Warn("Task currently unsupported", logger.Fields{"task": t.Kind.String()})
		code, payload = task.CodeUnsupported, reason("Unsupported")
	}
	e.Release()
	t.Complete(code, payload)
}

// sendFrame zero-pads the payload to the 64 byte transfer unit and writes it
// to the OUT endpoint.
func (e *Engine) sendFrame(payload []byte) error {
	frame := make([]byte, FrameSize)
	copy(frame, payload)
	logger.HexDump("OUT frame", frame)
	_, err := e.tr.BulkOut(frame)
	return err
}

// sendRaw writes the payload as-is, without padding.
func (e *Engine) sendRaw(payload []byte) error {
	logger.HexDump("OUT payload", payload)
	_, err := e.tr.BulkOut(payload)
	return err
}

// drain repeatedly submits IN transfers, de-frames each fragment into the
// reassembly buffer, and stops on the first timeout (the device's way of
// saying the stream is over). Any other transfer failure aborts the drain.
func (e *Engine) drain(ctx context.Context, rules frameRules) ([]byte, error) {
	e.buf = e.buf[:0]
	frag := make([]byte, FrameSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := e.tr.BulkIn(frag)
		if errors.Is(err, ErrTimedOut) {
			return e.buf, nil
		}
		if err != nil {
			logger.Warn("USB transfer failed", logger.Fields{"err": err})
			return nil, err
		}
		if n == 0 {
			continue
		}
		logger.HexDump("IN fragment", frag[:n])
		payload, ok := Deframe(frag[:n], len(e.buf) == 0, rules)
		if !ok {
			logger.Warn("Skipping unexpected data frame", nil)
			continue
		}
		if len(e.buf)+len(payload) > BufferSize {
			return nil, errors.New("response larger than the reassembly buffer")
		}
		e.buf = append(e.buf, payload...)
	}
}

func reason(text string) map[string]any {
	return map[string]any{"reason": text}
}

// errorCode maps an engine error onto a completion code.
func errorCode(err error) (int, any) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return task.CodeTimedOut, reason("Interrupted")
	case errors.Is(err, ErrDisconnected):
		return task.CodeDisconnected, reason("Disconnected")
	case errors.Is(err, ErrTimedOut):
		return task.CodeTimedOut, reason("Timed out")
	default:
		return task.CodeIOError, reason(err.Error())
	}
}
