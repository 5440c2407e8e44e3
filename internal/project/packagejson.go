package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Script is a package.json script entry.
type Script struct {
	Name    string
	Command string
}

// PackageUpdate lists additions to package.json. Existing values always win.
type PackageUpdate struct {
	Scripts []Script
	// Type is set as "type" when package.json has none.
	Type string
}

// DefaultScripts returns start/dev scripts for an entry file.
func DefaultScripts(lang Language, entry string) []Script {
	entry = filepath.ToSlash(entry)
	if lang == TypeScript {
		return []Script{
			{Name: "start", Command: "ts-node " + entry},
			{Name: "dev", Command: "nodemon --exec ts-node " + entry},
		}
	}
	return []Script{
		{Name: "start", Command: "node " + entry},
		{Name: "dev", Command: "nodemon " + entry},
	}
}

// UpdatePackageJSON applies upd to package.json content, preserving key
// order. It reports whether anything changed.
func UpdatePackageJSON(data []byte, upd PackageUpdate) ([]byte, bool, error) {
	obj, err := decodeObject(jsonc.ToJSON(data))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", PackageJSON, err)
	}

	changed := false
	if upd.Type != "" {
		if _, ok := obj.get("type"); !ok {
			if err := obj.set("type", upd.Type); err != nil {
				return nil, false, err
			}
			changed = true
		}
	}

	if len(upd.Scripts) > 0 {
		scripts := newObject()
		if raw, ok := obj.get("scripts"); ok {
			if scripts, err = decodeObject(raw); err != nil {
				return nil, false, fmt.Errorf("parse scripts: %w", err)
			}
		}
		added := false
		for _, s := range upd.Scripts {
			if _, ok := scripts.get(s.Name); ok {
				continue
			}
			if err := scripts.set(s.Name, s.Command); err != nil {
				return nil, false, err
			}
			added = true
		}
		if added {
			if err := obj.setRaw("scripts", scripts); err != nil {
				return nil, false, err
			}
			changed = true
		}
	}

	if !changed {
		return data, false, nil
	}
	out, err := obj.indent()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// EnsurePackage applies upd to dir/package.json on disk and returns the
// previous and new content.
func EnsurePackage(dir string, upd PackageUpdate) (before, after string, err error) {
	path := filepath.Join(dir, PackageJSON)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", PackageJSON, err)
	}
	out, changed, err := UpdatePackageJSON(data, upd)
	if err != nil {
		return "", "", err
	}
	if !changed {
		return string(data), string(data), nil
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", "", err
	}
	return string(data), string(out), nil
}

// NewPackageJSON renders a default package.json for a fresh project.
// JavaScript projects are ESM. TypeScript projects leave "type" unset so
// ts-node runs the entry as CommonJS.
func NewPackageJSON(name string, lang Language, entry string) ([]byte, error) {
	obj := newObject()
	fields := []struct {
		key   string
		value any
	}{
		{"name", name},
		{"version", "1.0.0"},
		{"description", ""},
		{"main", filepath.ToSlash(entry)},
	}
	if lang != TypeScript {
		fields = append(fields, struct {
			key   string
			value any
		}{"type", "module"})
	}
	for _, f := range fields {
		if err := obj.set(f.key, f.value); err != nil {
			return nil, err
		}
	}
	scripts := newObject()
	for _, s := range DefaultScripts(lang, entry) {
		if err := scripts.set(s.Name, s.Command); err != nil {
			return nil, err
		}
	}
	if err := obj.setRaw("scripts", scripts); err != nil {
		return nil, err
	}
	if err := obj.set("license", "ISC"); err != nil {
		return nil, err
	}
	return obj.indent()
}

// ---------------------------------------------------------------------------
// Ordered JSON object
// ---------------------------------------------------------------------------

// object keeps the key order of a JSON object so rewriting package.json does
// not reshuffle the user's file.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func newObject() *object {
	return &object{values: make(map[string]json.RawMessage)}
}

func decodeObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	obj := newObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if _, exists := obj.values[key]; !exists {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return obj, nil
}

func (o *object) get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *object) set(key string, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return err
	}
	o.put(key, bytes.TrimSpace(buf.Bytes()))
	return nil
}

func (o *object) setRaw(key string, child *object) error {
	raw, err := child.MarshalJSON()
	if err != nil {
		return err
	}
	o.put(key, raw)
	return nil
}

func (o *object) put(key string, raw json.RawMessage) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(o.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *object) indent() ([]byte, error) {
	raw, err := o.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var compact, out bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, err
	}
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
