package usb

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/hb100-editor/internal/preset"
	"github.com/Conceptual-Machines/hb100-editor/internal/task"
)

// mockTransport records OUT transfers and serves canned IN fragments,
// answering ErrTimedOut once they run out, like a drained device.
type mockTransport struct {
	out [][]byte
	in  [][]byte
}

func (m *mockTransport) BulkOut(p []byte) (int, error) {
	m.out = append(m.out, append([]byte(nil), p...))
	return len(p), nil
}

func (m *mockTransport) BulkIn(p []byte) (int, error) {
	if len(m.in) == 0 {
		return 0, ErrTimedOut
	}
	frag := m.in[0]
	m.in = m.in[1:]
	copy(p, frag)
	return len(frag), nil
}

func (m *mockTransport) Close() error { return nil }

func newTestEngine(t *testing.T, tr Transport) (*Engine, *preset.Store) {
	t.Helper()
	store, err := preset.NewStore("")
	require.NoError(t, err)
	e := New(store)
	e.SetTransport(tr)
	return e, store
}

func runTask(t *testing.T, e *Engine, argv ...string) (int, any) {
	t.Helper()
	tk := task.New(argv)
	require.NotNil(t, tk)
	var (
		code    int
		payload any
	)
	tk.AttachCompletion(nil, func(c int, p any, _ any) { code, payload = c, p })
	require.True(t, e.TryAcquire())
	e.Run(context.Background(), tk)
	return code, payload
}

func storePreset(t *testing.T, store *preset.Store, name string) *preset.Preset {
	t.Helper()
	p := &preset.Preset{Name: name}
	for i := range p.Effects {
		p.Effects[i].Type = i
		p.Effects[i].Active = true
		p.Effects[i].Values[0] = uint16(i + 1)
	}
	require.NoError(t, store.AddByName(p))
	return p
}

func TestLatchSingleInFlight(t *testing.T) {
	e, _ := newTestEngine(t, &mockTransport{})
	require.True(t, e.TryAcquire())
	assert.False(t, e.TryAcquire())
	assert.True(t, e.InFlight())
	e.Release()
	assert.True(t, e.TryAcquire())
	e.Release()
}

func TestRunReleasesLatchBeforeCompletion(t *testing.T) {
	e, _ := newTestEngine(t, &mockTransport{})
	tk := task.New([]string{"interrupt"})
	require.NotNil(t, tk)
	released := false
	tk.AttachCompletion(nil, func(int, any, any) { released = !e.InFlight() })
	require.True(t, e.TryAcquire())
	e.Run(context.Background(), tk)
	assert.True(t, released)
}

func TestDisconnectedTask(t *testing.T) {
	store, err := preset.NewStore("")
	require.NoError(t, err)
	e := New(store)
	code, _ := runTask(t, e, "init")
	assert.Equal(t, task.CodeDisconnected, code)
	assert.False(t, e.InFlight())
}

func TestChangePresetPayload(t *testing.T) {
	tr := &mockTransport{}
	e, _ := newTestEngine(t, tr)
	code, _ := runTask(t, e, "change-preset", "42")
	assert.Equal(t, task.CodeOK, code)
	require.Len(t, tr.out, 1)
	require.Len(t, tr.out[0], 7)
	assert.Equal(t, []byte{0x08, 0xaa, 0x55, 0x02, 0x00, 0x96}, tr.out[0][:6])
	assert.Equal(t, byte(0x2a), tr.out[0][6])
}

func TestUploadPresetFrames(t *testing.T) {
	tr := &mockTransport{}
	e, store := newTestEngine(t, tr)
	p := storePreset(t, store, "Clean")

	code, _ := runTask(t, e, "upload-preset", "3", "Clean")
	assert.Equal(t, task.CodeOK, code)
	require.Len(t, tr.out, 4)
	for _, frame := range tr.out {
		assert.Len(t, frame, FrameSize)
	}
	assert.Equal(t, uploadPreset, tr.out[0][:len(uploadPreset)])
	assert.Equal(t, uploadPresetPrefix, tr.out[1][:6])
	assert.Equal(t, byte(0x3f), tr.out[2][0])
	assert.Equal(t, byte(0x28), tr.out[3][0])

	// Frames 2..4, stripped of their framing, concatenate to the binary
	// form of the uploaded preset.
	var sent []byte
	sent = append(sent, tr.out[1][6:]...)
	sent = append(sent, tr.out[2][1:]...)
	sent = append(sent, tr.out[3][1:]...)

	assert.Equal(t, 3, p.ID)
	want, err := p.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(want, sent))
}

func TestUploadPresetUnknownName(t *testing.T) {
	tr := &mockTransport{}
	e, _ := newTestEngine(t, tr)
	code, _ := runTask(t, e, "upload-preset", "3", "Ghost")
	assert.Equal(t, task.CodeNotFound, code)
	assert.Empty(t, tr.out)
}

func TestInitParsesDeviceInfo(t *testing.T) {
	payload := make([]byte, 64)
	copy(payload[0:], "HB100 MULTI EFFECTS PROCESSOR")
	copy(payload[32:], "V1.0.0")
	copy(payload[39:], "HW1.0A")
	copy(payload[46:], "B0042Z")
	tr := &mockTransport{in: frameStream(initResponsePrefix, payload)}
	e, _ := newTestEngine(t, tr)

	code, _ := runTask(t, e, "init")
	assert.Equal(t, task.CodeOK, code)
	info := e.Info()
	assert.Equal(t, "HB100 MULTI EFFECTS PROCESSOR", info.Description)
	assert.Equal(t, "V1.0.0", info.Firmware)
	assert.Equal(t, "HW1.0A", info.Hardware)
	assert.Equal(t, "B0042Z", info.Build)
	// Two greeting frames went out.
	require.Len(t, tr.out, 2)
	assert.Equal(t, init1, tr.out[0][:len(init1)])
	assert.Equal(t, init2, tr.out[1][:len(init2)])
}

func TestBankDownloadStoresFullBank(t *testing.T) {
	// 200 presets, each 184 bytes, as one framed stream.
	var bank []byte
	for slot := 1; slot <= preset.MaxID; slot++ {
		p := &preset.Preset{ID: slot, Name: "Preset"}
		for i := range p.Effects {
			p.Effects[i].Type = i
		}
		raw, err := p.Bytes()
		require.NoError(t, err)
		bank = append(bank, raw...)
	}
	tr := &mockTransport{in: frameStream(presetsResponsePrefix, bank)}
	e, store := newTestEngine(t, tr)

	code, payload := runTask(t, e, "get-presets")
	assert.Equal(t, task.CodeOK, code)
	doc := payload.(map[string]any)
	assert.Equal(t, preset.MaxID, doc["received"])
	assert.Equal(t, preset.MaxID, doc["stored"])
	for slot := 1; slot <= preset.MaxID; slot++ {
		require.NotNil(t, store.FindByID(slot), "slot %d", slot)
		assert.Equal(t, slot, store.FindByID(slot).ID)
	}
}

func TestGetExtras(t *testing.T) {
	payload := make([]byte, 5+3*16+1)
	copy(payload[5:], "AMBIENCE 01     ")
	copy(payload[21:], "AMBIENCE 02     ")
	copy(payload[37:], "CAB IR SPECIAL  ")
	tr := &mockTransport{in: frameStream([]byte{0x3f}, payload[:])}
	e, _ := newTestEngine(t, tr)

	code, _ := runTask(t, e, "get-extras")
	assert.Equal(t, task.CodeOK, code)
	assert.Equal(t, []string{"AMBIENCE 01", "AMBIENCE 02", "CAB IR SPECIAL"}, e.Extras())
}

func TestInterrupt(t *testing.T) {
	tr := &mockTransport{}
	e, _ := newTestEngine(t, tr)
	code, _ := runTask(t, e, "interrupt")
	assert.Equal(t, task.CodeOK, code)
}
