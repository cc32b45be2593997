package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"howett.net/plist"

	"usbmap/internal/core/emit"
)

// PlistExporter writes an emitted configuration as an XML property list.
type PlistExporter struct{}

// NewPlistExporter creates a new plist exporter
func NewPlistExporter() *PlistExporter {
	return &PlistExporter{}
}

// Format returns the codec format identifier
func (e *PlistExporter) Format() string {
	return "plist"
}

// Export encodes the configuration's Info.plist. Dictionary keys are sorted
// so the output is byte-for-byte reproducible.
func (e *PlistExporter) Export(cfg *emit.Config, w io.Writer) error {
	encoder := plist.NewEncoderForFormat(w, plist.XMLFormat)
	encoder.Indent("\t")
	if err := encoder.Encode(cfg.InfoPlist()); err != nil {
		return fmt.Errorf("failed to encode plist: %w", err)
	}
	return nil
}

// WriteBundle writes <dir>/<bundle>/Contents/Info.plist. The bundle is built
// in a temporary directory beside the destination and renamed into place,
// replacing any previous bundle. It returns the bundle path.
func (e *PlistExporter) WriteBundle(dir string, cfg *emit.Config) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.MkdirTemp(dir, ".usbmap-build-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	contents := filepath.Join(tmp, "Contents")
	if err := os.Mkdir(contents, 0o755); err != nil {
		return "", fmt.Errorf("failed to create bundle contents: %w", err)
	}

	f, err := os.Create(filepath.Join(contents, "Info.plist"))
	if err != nil {
		return "", fmt.Errorf("failed to create Info.plist: %w", err)
	}
	if err := e.Export(cfg, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to sync Info.plist: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close Info.plist: %w", err)
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		return "", fmt.Errorf("failed to set bundle permissions: %w", err)
	}

	dest := filepath.Join(dir, cfg.BundleName())
	old := tmp + ".previous"
	moved := false
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, old); err != nil {
			return "", fmt.Errorf("failed to move existing bundle aside: %w", err)
		}
		moved = true
	}
	if err := os.Rename(tmp, dest); err != nil {
		if moved {
			_ = os.Rename(old, dest)
		}
		return "", fmt.Errorf("failed to install bundle: %w", err)
	}
	if moved {
		if err := os.RemoveAll(old); err != nil {
			return "", fmt.Errorf("failed to remove previous bundle: %w", err)
		}
	}
	return dest, nil
}
