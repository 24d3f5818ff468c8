package host

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jhump/annoinject/processor"
)

// Current schema version; increment when the manifest format changes.
const manifestSchema uint16 = 1

const manifestFile = "manifest.mp"

// Manifest is what an incremental build remembers about the previous one:
// how each processor was configured and, for each package, what its sources
// looked like and which files each processor generated for it.
type Manifest struct {
	Schema uint16
	// ID is the compilation that wrote the manifest.
	ID         string
	Processors map[string]ProcessorState
	Packages   map[string]*PackageState
}

// ProcessorState is how a processor was configured in the previous build.
// A processor whose state changed is run in full.
type ProcessorState struct {
	Kind          string
	Supported     []string
	OptionsDigest string
}

func (s ProcessorState) equal(o ProcessorState) bool {
	if s.Kind != o.Kind || s.OptionsDigest != o.OptionsDigest || len(s.Supported) != len(o.Supported) {
		return false
	}
	for i := range s.Supported {
		if s.Supported[i] != o.Supported[i] {
			return false
		}
	}
	return true
}

// PackageState is a package's source digest and the outputs that processors
// generated into it, keyed by processor name.
type PackageState struct {
	Digest  string
	Outputs map[string][]string
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Schema:     manifestSchema,
		Processors: map[string]ProcessorState{},
		Packages:   map[string]*PackageState{},
	}
}

// LoadManifest reads the manifest in dir. A missing manifest, or one written
// with a different schema, yields an empty manifest. A manifest that cannot be
// decoded also yields an empty one, along with the error.
func LoadManifest(dir string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(dir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewManifest(), nil
		}
		return NewManifest(), err
	}
	defer func() {
		_ = f.Close()
	}()
	var m Manifest
	if err := msgpack.NewDecoder(f).Decode(&m); err != nil {
		return NewManifest(), fmt.Errorf("decoding manifest: %w", err)
	}
	if m.Schema != manifestSchema {
		return NewManifest(), nil
	}
	if m.Processors == nil {
		m.Processors = map[string]ProcessorState{}
	}
	if m.Packages == nil {
		m.Packages = map[string]*PackageState{}
	}
	return &m, nil
}

// Save writes the manifest to dir. The file is replaced atomically, so a
// failed save leaves the previous manifest in place.
func (m *Manifest) Save(dir string) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if err = msgpack.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dir, manifestFile))
}

func (m *Manifest) pkg(pkgPath string) *PackageState {
	ps := m.Packages[pkgPath]
	if ps == nil {
		ps = &PackageState{}
		m.Packages[pkgPath] = ps
	}
	if ps.Outputs == nil {
		ps.Outputs = map[string][]string{}
	}
	return ps
}

// knownOutputs returns every generated file that the manifest records.
func (m *Manifest) knownOutputs() map[string]bool {
	outs := map[string]bool{}
	for _, ps := range m.Packages {
		for _, files := range ps.Outputs {
			for _, f := range files {
				outs[f] = true
			}
		}
	}
	return outs
}

// outputsExist reports whether all files the named processor generated for
// the package are still on disk.
func (m *Manifest) outputsExist(proc, pkgPath string) bool {
	ps := m.Packages[pkgPath]
	if ps == nil {
		return true
	}
	for _, f := range ps.Outputs[proc] {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}

// allOutputsExist is outputsExist for every package in the manifest.
func (m *Manifest) allOutputsExist(proc string) bool {
	for pkgPath := range m.Packages {
		if !m.outputsExist(proc, pkgPath) {
			return false
		}
	}
	return true
}

// PackageDigest hashes the names and contents of the given files, skipping
// those in exclude. The order of files does not matter.
func PackageDigest(files []string, exclude map[string]bool) (string, error) {
	sorted := make([]string, 0, len(files))
	for _, f := range files {
		if !exclude[f] {
			sorted = append(sorted, f)
		}
	}
	sort.Strings(sorted)
	h := sha256.New()
	for _, name := range sorted {
		if err := hashFile(h, name); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(h io.Writer, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	_, _ = fmt.Fprintf(h, "%s\x00", filepath.Base(name))
	_, err = io.Copy(h, f)
	return err
}

// OptionsDigest hashes the values of the given option keys, so that changing
// an option a processor reads invalidates its outputs.
func OptionsDigest(opts processor.Options, keys processor.Set) string {
	h := sha256.New()
	for _, k := range keys.Sorted() {
		if v, ok := opts.Get(k); ok {
			_, _ = fmt.Fprintf(h, "%s=%s\x00", k, v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
