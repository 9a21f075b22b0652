package usb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
	"github.com/Conceptual-Machines/hb100-editor/internal/preset"
	"github.com/Conceptual-Machines/hb100-editor/internal/task"
)

// runInit greets the device (two OUT frames), drains the framed response and
// parses the four fixed ASCII identification fields out of it.
func (e *Engine) runInit(ctx context.Context) (int, any) {
	logger.Info("Greeting the device", nil)
	if err := e.sendFrame(init1); err != nil {
		return errorCode(err)
	}
	if err := e.sendFrame(init2); err != nil {
		return errorCode(err)
	}
	buf, err := e.drain(ctx, initFrames)
	if err != nil {
		return errorCode(err)
	}
	e.info = parseDeviceInfo(buf)
	logger.Info("  -- "+e.info.Description, nil)
	logger.Info("  -- "+e.info.Firmware, nil)
	logger.Info("  -- "+e.info.Hardware, nil)
	logger.Info("  -- "+e.info.Build, nil)
	return task.CodeOK, e.info
}

// parseDeviceInfo extracts the ASCII fields at their fixed offsets: a 31
// byte description, then three 6 byte version fields at 32, 39 and 46.
func parseDeviceInfo(buf []byte) DeviceInfo {
	return DeviceInfo{
		Description: asciiField(buf, 0, 31),
		Firmware:    asciiField(buf, 32, 6),
		Hardware:    asciiField(buf, 39, 6),
		Build:       asciiField(buf, 46, 6),
	}
}

func asciiField(buf []byte, offset, length int) string {
	if offset >= len(buf) {
		return ""
	}
	end := offset + length
	if end > len(buf) {
		end = len(buf)
	}
	field := buf[offset:end]
	if i := strings.IndexByte(string(field), 0); i >= 0 {
		field = field[:i]
	}
	return strings.TrimSpace(string(field))
}

// runGetPresets downloads the full device bank: two OUT frames, then a drain
// that reassembles up to 200 concatenated 184 byte presets. Every parsed
// preset is registered by its embedded slot id and, if a save folder is
// configured, written out as NNN-<name>.bhb.
func (e *Engine) runGetPresets(ctx context.Context) (int, any) {
	logger.Info("Getting all existing presets", nil)
	if err := e.sendFrame(getPresets1); err != nil {
		return errorCode(err)
	}
	if err := e.sendFrame(getPresets2); err != nil {
		return errorCode(err)
	}
	buf, err := e.drain(ctx, presetsFrames)
	if err != nil {
		return errorCode(err)
	}
	logger.Verbose("Presets payload", logger.Fields{"bytes": len(buf)})
	count, stored := 0, 0
	for offset := 0; offset+preset.Size <= len(buf) && count < preset.MaxID; offset += preset.Size {
		raw := buf[offset : offset+preset.Size]
		count++
		p, err := preset.FromBytes(raw)
		if err != nil {
			logger.Warn("Skipping unparseable preset", logger.Fields{"index": count, "err": err})
			continue
		}
		if err := e.store.AddByID(p, p.ID); err != nil {
			logger.Warn("Could not register preset", logger.Fields{"id": p.ID, "err": err})
			continue
		}
		stored++
		if folder := e.store.Folder(); folder != "" {
			name := fmt.Sprintf("%03d-%s.bhb", p.ID, p.Name)
			if err := os.WriteFile(filepath.Join(folder, name), raw, 0644); err != nil {
				logger.Warn("Could not save preset", logger.Fields{"file": name, "err": err})
			}
		}
	}
	logger.Info("  -- Received presets", logger.Fields{"count": count, "stored": stored})
	return task.CodeOK, map[string]any{"received": count, "stored": stored}
}

// runGetExtras downloads the auxiliary catalogue: from offset 5, up to
// twenty 16 byte ASCII names, terminated by a zero byte.
func (e *Engine) runGetExtras(ctx context.Context) (int, any) {
	logger.Info("Getting all existing extras (IRs?)", nil)
	if err := e.sendFrame(getExtras1); err != nil {
		return errorCode(err)
	}
	if err := e.sendFrame(getExtras2); err != nil {
		return errorCode(err)
	}
	buf, err := e.drain(ctx, extrasFrames)
	if err != nil {
		return errorCode(err)
	}
	var extras []string
	for offset, count := 5, 0; offset+16 <= len(buf) && buf[offset] != 0 && count < 20; offset, count = offset+16, count+1 {
		name := asciiField(buf, offset, 16)
		logger.Info("  -- "+name, nil)
		extras = append(extras, name)
	}
	e.extras = extras
	return task.CodeOK, map[string]any{"extras": extras}
}

// runChangePreset tells the device to switch to a slot. The payload is the
// 6 byte template plus the slot number; no response is awaited.
func (e *Engine) runChangePreset(slot int) (int, any) {
	logger.Info("Changing current preset", logger.Fields{"preset": slot})
	payload := make([]byte, 0, len(changePreset)+1)
	payload = append(payload, changePreset...)
	payload = append(payload, byte(slot))
	if err := e.sendRaw(payload); err != nil {
		return errorCode(err)
	}
	return task.CodeOK, map[string]any{"preset": slot}
}

// runUploadPreset writes a stored preset to a device slot: the preset is
// re-serialised into the scratch buffer, shipped as four OUT frames, and a
// final IN transfer is awaited as the completion signal.
func (e *Engine) runUploadPreset(ctx context.Context, slot int, name string) (int, any) {
	p := e.store.FindByName(name)
	if p == nil {
		logger.Warn("Can't upload preset (no such preset)", logger.Fields{"name": name})
		return task.CodeNotFound, reason("No such preset")
	}
	p.ID = slot
	if err := p.ToBytes(e.scratch[:]); err != nil {
		return task.CodeInvalidArgument, reason(err.Error())
	}
	logger.Info("Uploading preset", logger.Fields{"name": p.Name, "preset": p.ID})
	logger.HexDump("Preset bytes", e.scratch[:])
	// Frame 1: the upload announcement.
	if err := e.sendFrame(uploadPreset); err != nil {
		return errorCode(err)
	}
	// Frames 2..4: the 184 preset bytes split as 58+63+63, each fragment
	// led by its framing byte(s).
	frame2 := make([]byte, 0, FrameSize)
	frame2 = append(frame2, uploadPresetPrefix...)
	frame2 = append(frame2, e.scratch[:FrameSize-6]...)
	if err := e.sendFrame(frame2); err != nil {
		return errorCode(err)
	}
	frame3 := append([]byte{0x3f}, e.scratch[FrameSize-6:2*FrameSize-7]...)
	if err := e.sendFrame(frame3); err != nil {
		return errorCode(err)
	}
	frame4 := append([]byte{0x28}, e.scratch[2*FrameSize-7:]...)
	if err := e.sendFrame(frame4); err != nil {
		return errorCode(err)
	}
	// One IN transfer as the device's acknowledgement; its payload is not
	// interpreted.
	ack := make([]byte, FrameSize)
	if n, err := e.tr.BulkIn(ack); err == nil && n > 0 {
		logger.HexDump("Upload ack", ack[:n])
	}
	return task.CodeOK, map[string]any{"name": p.Name, "preset": p.ID}
}

// runInterrupt submits a single IN transfer as a device-side wake/clear; the
// response, if any, is discarded.
func (e *Engine) runInterrupt() (int, any) {
	logger.Info("Sending interrupt request", nil)
	buf := make([]byte, FrameSize)
	if _, err := e.tr.BulkIn(buf); err != nil && !isExpectedDrainEnd(err) {
		return errorCode(err)
	}
	return task.CodeOK, nil
}

func isExpectedDrainEnd(err error) bool {
	return err == nil || errors.Is(err, ErrTimedOut)
}
