// Package catalog holds the static description of the HB100 signal chain:
// the nine effect sections of a preset, the effects each section may hold,
// and the named parameters of every effect. The tables are fixed at compile
// time and never change at runtime.
package catalog

// Section indexes, in chain order. The wire layout of a preset stores the
// sections in exactly this order.
const (
	SectionFXComp = iota
	SectionDSOD
	SectionAmp
	SectionCab
	SectionNSGate
	SectionEQ
	SectionMod
	SectionDelay
	SectionReverb

	NumSections = 9
)

const (
	// MaxParams is the number of value slots every section reserves on the wire.
	MaxParams = 6
	// NumExpressions is the number of expression pedal parameters.
	NumExpressions = 6
)

// Effect describes one selectable algorithm within a section. ID doubles as
// the effect's position in the section table and as the selector value used
// on the wire and in PHB files.
type Effect struct {
	ID         uint16
	Name       string
	Params     int
	ParamNames []string
}

// Section describes one of the nine fixed positions in a preset. Size is the
// section's wire block size in bytes: a 4 byte header (active + selector),
// MaxParams 16-bit values, plus reserved trailing bytes on some sections.
type Section struct {
	Index   int
	Name    string
	Size    int
	Effects []Effect
}

// Reserved returns the number of reserved trailing bytes in the section's
// wire block. They are skipped on decode and zero-filled on encode.
func (s *Section) Reserved() int {
	return s.Size - 4 - 2*MaxParams
}

// Lookup returns the effect descriptor for a selector, or false if the
// selector is not in the section's table.
func (s *Section) Lookup(selector uint16) (*Effect, bool) {
	if int(selector) >= len(s.Effects) {
		return nil, false
	}
	return &s.Effects[selector], true
}

// ByName returns the section with the given name, or nil.
func ByName(name string) *Section {
	for i := range Sections {
		if Sections[i].Name == name {
			return &Sections[i]
		}
	}
	return nil
}

// Expressions lists the expression pedal parameter names, in wire order.
// They double as the keys of the "Exp" object in PHB files.
var Expressions = [NumExpressions]string{
	"TYPE", "MIN", "MAX", "VOLUME", "SWITCH", "MODE",
}

// Sections is the full catalogue, in chain (and wire) order.
// Block sizes sum to 157 bytes, keeping the fixed preset offsets:
// sections start at 15, expressions at 172.
var Sections = [NumSections]Section{
	{
		Index: SectionFXComp, Name: "FXCOMP", Size: 16,
		Effects: []Effect{
			{0, "Comp", 4, []string{"Sustain", "Attack", "Tone", "Level"}},
			{1, "TouchWah", 3, []string{"Sense", "Resonance", "Level"}},
			{2, "AutoWah", 3, []string{"Rate", "Depth", "Level"}},
			{3, "SlowGear", 2, []string{"Sense", "Rise"}},
		},
	},
	{
		Index: SectionDSOD, Name: "DSOD", Size: 16,
		Effects: []Effect{
			{0, "ScreamDrive", 3, []string{"Gain", "Tone", "Level"}},
			{1, "BluesDrive", 3, []string{"Gain", "Tone", "Level"}},
			{2, "Crunch", 3, []string{"Gain", "Tone", "Level"}},
			{3, "MetalDist", 4, []string{"Gain", "Low", "High", "Level"}},
			{4, "Fuzz", 3, []string{"Gain", "Tone", "Level"}},
		},
	},
	{
		Index: SectionAmp, Name: "AMP", Size: 16,
		Effects: []Effect{
			{0, "USClean", 6, []string{"Gain", "Bass", "Middle", "Treble", "Presence", "Master"}},
			{1, "USTweed", 6, []string{"Gain", "Bass", "Middle", "Treble", "Presence", "Master"}},
			{2, "BritCombo", 6, []string{"Gain", "Bass", "Middle", "Treble", "Presence", "Master"}},
			{3, "BritStack", 6, []string{"Gain", "Bass", "Middle", "Treble", "Presence", "Master"}},
			{4, "ModernHi", 6, []string{"Gain", "Bass", "Middle", "Treble", "Presence", "Master"}},
			{5, "Rectify", 6, []string{"Gain", "Bass", "Middle", "Treble", "Presence", "Master"}},
		},
	},
	{
		Index: SectionCab, Name: "CAB", Size: 16,
		Effects: []Effect{
			{0, "1x12US", 2, []string{"Level", "LowCut"}},
			{1, "2x12US", 2, []string{"Level", "LowCut"}},
			{2, "4x12Brit", 2, []string{"Level", "LowCut"}},
			{3, "4x12Modern", 2, []string{"Level", "LowCut"}},
			{4, "1x12Tweed", 2, []string{"Level", "LowCut"}},
			{5, "2x12Jazz", 2, []string{"Level", "LowCut"}},
		},
	},
	{
		Index: SectionNSGate, Name: "NSGATE", Size: 16,
		Effects: []Effect{
			{0, "NoiseGate", 2, []string{"Threshold", "Release"}},
			{1, "HardGate", 2, []string{"Threshold", "Release"}},
		},
	},
	{
		Index: SectionEQ, Name: "EQ", Size: 16,
		Effects: []Effect{
			{0, "6BandEQ", 6, []string{"100Hz", "200Hz", "400Hz", "800Hz", "1.6kHz", "3.2kHz"}},
			{1, "ParaEQ", 4, []string{"Freq", "Q", "Gain", "Level"}},
		},
	},
	{
		Index: SectionMod, Name: "MOD", Size: 20,
		Effects: []Effect{
			{0, "Chorus", 3, []string{"Rate", "Depth", "Level"}},
			{1, "Flanger", 4, []string{"Rate", "Depth", "Feedback", "Level"}},
			{2, "Phaser", 3, []string{"Rate", "Depth", "Level"}},
			{3, "Tremolo", 2, []string{"Rate", "Depth"}},
			{4, "Vibrato", 2, []string{"Rate", "Depth"}},
		},
	},
	{
		Index: SectionDelay, Name: "DELAY", Size: 20,
		Effects: []Effect{
			{0, "Digital", 3, []string{"Time", "Feedback", "Level"}},
			{1, "Analog", 3, []string{"Time", "Feedback", "Level"}},
			{2, "Tape", 4, []string{"Time", "Feedback", "Flutter", "Level"}},
			{3, "Echo", 4, []string{"Time", "Feedback", "Tone", "Level"}},
		},
	},
	{
		Index: SectionReverb, Name: "REVERB", Size: 21,
		Effects: []Effect{
			{0, "Room", 3, []string{"Decay", "Tone", "Level"}},
			{1, "Hall", 3, []string{"Decay", "PreDelay", "Level"}},
			{2, "Plate", 3, []string{"Decay", "Tone", "Level"}},
			{3, "Spring", 3, []string{"Decay", "Tone", "Level"}},
		},
	},
}
