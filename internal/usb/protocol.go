// Package usb implements the HB100 protocol engine: the bulk transport, the
// device's framing, and the multi-phase command state machines driving
// transfers over it.
package usb

import "time"

// Device identity and endpoints.
const (
	VendorID  = 0x0483
	ProductID = 0x5703
	// Bulk endpoints: IN 0x81, OUT 0x02, both on interface 0.
	EndpointInNum  = 1
	EndpointOutNum = 2

	// Timeout applied to every bulk transfer.
	Timeout = 1000 * time.Millisecond
	// FrameSize is the bulk transfer unit; outbound frames are zero-padded
	// to this size.
	FrameSize = 64
	// BufferSize bounds the reassembly buffer for a framed response.
	BufferSize = 40960
)

// Request payload templates, captured by reverse-engineering. They are
// bit-exact constants; do not touch the unexplained bytes.
var (
	init1 = []byte{
		0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	init2 = []byte{
		0x08, 0xaa, 0x55, 0x02, 0x00, 0x00, 0x00, 0x12, 0x97,
	}
	getPresets1 = []byte{
		0x08, 0xaa, 0x55, 0x02, 0x00, 0x31, 0x01, 0x34, 0x12,
	}
	getPresets2 = []byte{
		0x08, 0xaa, 0x55, 0x02, 0x00, 0xa0, 0x01, 0x1f, 0xc8,
	}
	getExtras1 = []byte{
		0x08, 0xaa, 0x55, 0x02, 0x00, 0xc1, 0x01, 0x27, 0xd3,
	}
	getExtras2 = []byte{
		0x08, 0xaa, 0x55, 0x02, 0x00, 0x8c, 0x01, 0x5c, 0x43,
	}
	changePreset = []byte{
		0x08, 0xaa, 0x55, 0x02, 0x00, 0x96,
	}
	uploadPreset = []byte{
		0x09, 0xaa, 0x55, 0x03, 0x00, 0xb4, 0x05, 0x00, 0xcc, 0xe7,
	}
	uploadPresetPrefix = []byte{
		0x3f, 0xaa, 0x55, 0xa0, 0x00, 0xc3,
	}
)

// Expected response prefixes on the first fragment of a framed stream.
var (
	initResponsePrefix    = []byte{0x3f, 0xaa, 0x55, 0x3f, 0x00, 0x01}
	presetsResponsePrefix = []byte{0x3f, 0xaa, 0x55, 0xa0, 0x00, 0x20}
)
