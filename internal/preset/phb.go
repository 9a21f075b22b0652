package preset

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/hb100-editor/internal/catalog"
)

// PHB decorative fields, kept identical to what the vendor editor writes.
const (
	phbApp           = "HB100 Edit"
	phbAppVersion    = "V1.0.0"
	phbDevice        = "HB100"
	phbDeviceVersion = "V1.0.0"
	phbSchema        = "HB100 Preset"
)

// ToPHBObject builds the PHB document as a plain map, ready to be serialised
// or embedded in an API payload. Only the active parameter names of each
// chosen effect appear in Data.
func (p *Preset) ToPHBObject() map[string]any {
	info := map[string]any{
		"app":            phbApp,
		"app_version":    phbAppVersion,
		"device":         phbDevice,
		"device_version": phbDeviceVersion,
		"preset_name":    p.Name,
		"schema":         phbSchema,
	}
	modules := map[string]any{}
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		e := &p.Effects[i]
		sw := 0
		if e.Active {
			sw = 1
		}
		data := map[string]any{}
		if effect, ok := section.Lookup(e.ID); ok {
			for j := 0; j < effect.Params; j++ {
				data[effect.ParamNames[j]] = int(e.Values[j])
			}
		}
		modules[section.Name] = map[string]any{
			"TYPE":   int(e.ID),
			"SWITCH": sw,
			"Data":   data,
		}
	}
	exp := map[string]any{}
	for i, name := range catalog.Expressions {
		exp[name] = int(p.Expressions[i])
	}
	return map[string]any{
		"fileInfo":     info,
		"effectModule": modules,
		"Exp":          exp,
	}
}

// ToPHB serialises the preset to PHB (JSON) text: 4 space indent, keys
// sorted within every object.
func (p *Preset) ToPHB() (string, error) {
	text, err := json.MarshalIndent(p.ToPHBObject(), "", "    ")
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// FromPHB parses PHB (JSON) text into a preset. The slot id is not part of
// the PHB schema and is left at 0. Unknown keys are ignored.
func FromPHB(text string) (*Preset, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSONInvalid, err)
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedPreset)
	}
	exp, ok := doc["Exp"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing Exp object", ErrMalformedPreset)
	}
	modules, ok := doc["effectModule"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing effectModule object", ErrMalformedPreset)
	}
	info, ok := doc["fileInfo"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing fileInfo object", ErrMalformedPreset)
	}
	name, ok := info["preset_name"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing preset name", ErrMalformedPreset)
	}
	p := &Preset{Name: strings.TrimSpace(name)}
	for i := range catalog.Sections {
		section := &catalog.Sections[i]
		je, ok := modules[section.Name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: missing effect section %s", ErrMalformedPreset, section.Name)
		}
		selector, err := phbInt(je["TYPE"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s TYPE", ErrMalformedPreset, section.Name)
		}
		sw, err := phbInt(je["SWITCH"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s SWITCH", ErrMalformedPreset, section.Name)
		}
		data, ok := je["Data"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s Data", ErrMalformedPreset, section.Name)
		}
		e := &p.Effects[i]
		e.Type = i
		e.ID = uint16(selector)
		e.Active = sw != 0
		effect, ok := section.Lookup(e.ID)
		if !ok || selector < 0 {
			return nil, fmt.Errorf("%w: section %s selector %d", ErrUnknownEffect, section.Name, selector)
		}
		for j := 0; j < effect.Params; j++ {
			v, err := phbInt(data[effect.ParamNames[j]])
			if err != nil {
				return nil, fmt.Errorf("%w: %s missing %s", ErrMalformedPreset, section.Name, effect.ParamNames[j])
			}
			e.Values[j] = uint16(v)
		}
	}
	for i, pname := range catalog.Expressions {
		v, err := phbInt(exp[pname])
		if err != nil {
			return nil, fmt.Errorf("%w: missing expression %s", ErrMalformedPreset, pname)
		}
		p.Expressions[i] = uint16(v)
	}
	return p, nil
}

// phbInt extracts an integer from a decoded JSON value, rejecting anything
// that is not a whole number.
func phbInt(v any) (int64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, ErrMalformedPreset
	}
	n, err := num.Int64()
	if err != nil {
		return 0, ErrMalformedPreset
	}
	return n, nil
}
