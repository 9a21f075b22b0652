package usb

import "bytes"

// frameRules describes how a command's response stream is framed. Prefix is
// the 6 byte header expected on the first fragment (nil if the stream has
// none); with Strict set, a first fragment that does not carry the prefix is
// dropped entirely instead of falling back to single-byte stripping.
type frameRules struct {
	Prefix []byte
	Strict bool
}

var (
	initFrames    = frameRules{Prefix: initResponsePrefix, Strict: true}
	presetsFrames = frameRules{Prefix: presetsResponsePrefix}
	extrasFrames  = frameRules{}
)

// isFramingByte reports whether b is one of the single-byte continuation
// markers the device inserts in front of bulk fragments. Observed values only.
func isFramingByte(b byte) bool {
	switch b {
	case 0x3f, 0x28, 0x0d, 0x0c:
		return true
	}
	return false
}

// Deframe strips the device's framing from one inbound fragment: the 6 byte
// prefix on the first fragment of a stream, a single framing byte on
// continuations. The second return is false when the fragment should be
// discarded without appending anything.
func Deframe(frag []byte, first bool, rules frameRules) ([]byte, bool) {
	if len(frag) == 0 {
		return frag, true
	}
	if first && rules.Prefix != nil {
		if bytes.HasPrefix(frag, rules.Prefix) {
			return frag[len(rules.Prefix):], true
		}
		if rules.Strict {
			return nil, false
		}
	}
	if isFramingByte(frag[0]) {
		return frag[1:], true
	}
	return frag, true
}
