package host

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jhump/annoinject/processor"
)

// OutputLocator maps the slash-separated output paths that processors create,
// "<package path>/<file name>", to locations on disk.
type OutputLocator struct {
	// Root, if not blank, is the directory under which all outputs are
	// written, in a sub-directory named after the package path.
	Root string
	// Dirs maps the import paths of loaded packages to their source
	// directories. Outputs for these packages go next to their sources when
	// Root is blank.
	Dirs map[string]string
}

// Locate returns the file name on disk for the given output path, creating
// its directory when needed.
func (l OutputLocator) Locate(p string) (string, error) {
	dir, err := l.outputDir(path.Dir(p))
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Join(dir, path.Base(p)))
}

// Open creates, or truncates, the file for the given output path and returns
// its name on disk along with the open file.
func (l OutputLocator) Open(p string) (string, io.WriteCloser, error) {
	dest, err := l.Locate(p)
	if err != nil {
		return "", nil, err
	}
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	if err != nil {
		return "", nil, err
	}
	return dest, f, nil
}

func (l OutputLocator) outputDir(pkgPath string) (string, error) {
	if l.Root != "" {
		out := filepath.Join(l.Root, filepath.FromSlash(pkgPath))
		if err := os.MkdirAll(out, os.ModePerm); err != nil {
			return "", fmt.Errorf("could not create output directory %s: %w", out, err)
		}
		return out, nil
	}
	if dir, ok := l.Dirs[pkgPath]; ok {
		if inGoroot(dir) {
			return "", fmt.Errorf("cannot generate output for package %q because it is in GOROOT", pkgPath)
		}
		return dir, nil
	}
	if gopaths := os.Getenv("GOPATH"); gopaths != "" {
		for _, gopath := range filepath.SplitList(gopaths) {
			out := filepath.Join(gopath, "src", filepath.FromSlash(pkgPath))
			if _, err := os.Stat(out); err == nil {
				return out, nil
			}
		}
	}
	out := filepath.Join(runtime.GOROOT(), "src", filepath.FromSlash(pkgPath))
	if _, err := os.Stat(out); err == nil {
		return "", fmt.Errorf("cannot generate output for package %q because it is in GOROOT", pkgPath)
	}
	return "", fmt.Errorf("could not determine output directory for package %q", pkgPath)
}

func inGoroot(dir string) bool {
	goroot := runtime.GOROOT()
	if goroot == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Join(goroot, "src"), dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DefaultOutputFactory returns an output factory that writes files where
// OutputLocator{Root: rootDir, Dirs: dirs} says. Existing files are truncated.
func DefaultOutputFactory(rootDir string, dirs map[string]string) processor.OutputFactory {
	loc := OutputLocator{Root: rootDir, Dirs: dirs}
	return func(p string) (io.WriteCloser, error) {
		_, f, err := loc.Open(p)
		return f, err
	}
}
