package splitter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/dgallion1/xmlsaw/errs"
	"github.com/dgallion1/xmlsaw/xmltree"
)

// ManifestName is the summary file a sink writes alongside its chunks.
const ManifestName = "manifest.json"

// SinkConfig controls where and how chunk files are written.
type SinkConfig struct {
	Dir      string // Output directory, created on first write.
	Gzip     bool   // Compress each chunk file.
	Manifest bool   // Write manifest.json on Close.
}

// ManifestEntry records one written chunk file. Checksum covers the
// serialized document body before compression.
type ManifestEntry struct {
	File     string `json:"file"`
	Nodes    int    `json:"nodes"`
	Bytes    int    `json:"bytes"`
	Checksum string `json:"checksum"`
}

// DirSink persists chunks as numbered documents in a directory. Files are
// named chunk_NNNN.xml (chunk_NNNN.xml.gz when compressing) after the chunk
// index; a name collision is an error, never an overwrite.
type DirSink struct {
	cfg     SinkConfig
	made    bool
	written []ManifestEntry
}

// NewDirSink returns a sink writing into cfg.Dir.
func NewDirSink(cfg SinkConfig) (*DirSink, error) {
	if cfg.Dir == "" {
		return nil, errors.Mark(errors.New("sink: output directory is required"), errs.ErrInvalidInput)
	}
	return &DirSink{cfg: cfg}, nil
}

// Write serializes one chunk to its numbered file.
func (d *DirSink) Write(c Chunk) error {
	if c.Element == nil {
		return errors.Mark(errors.New("sink: chunk has no element"), errs.ErrInvalidInput)
	}
	if err := d.ensureDir(); err != nil {
		return err
	}

	name := fmt.Sprintf("chunk_%04d.xml", c.Index)
	if d.cfg.Gzip {
		name += ".gz"
	}
	body, err := xmltree.Bytes(c.Element)
	if err != nil {
		return err
	}

	p := filepath.Join(d.cfg.Dir, name)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create chunk file %s", p)
	}
	werr := writeBody(f, body, d.cfg.Gzip)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return errors.Wrapf(werr, "write chunk file %s", p)
	}

	d.written = append(d.written, ManifestEntry{
		File:     name,
		Nodes:    c.Nodes,
		Bytes:    len(body),
		Checksum: fmt.Sprintf("xxh64:%016x", xxhash.Sum64(body)),
	})
	return nil
}

// Close finalizes the sink, writing the manifest when configured. The sink
// must not be written to afterwards.
func (d *DirSink) Close() error {
	if !d.cfg.Manifest {
		return nil
	}
	if err := d.ensureDir(); err != nil {
		return err
	}
	chunks := d.written
	if chunks == nil {
		chunks = []ManifestEntry{}
	}
	body, err := json.MarshalIndent(struct {
		Chunks []ManifestEntry `json:"chunks"`
	}{Chunks: chunks}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	p := filepath.Join(d.cfg.Dir, ManifestName)
	if err := os.WriteFile(p, append(body, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write manifest %s", p)
	}
	return nil
}

func (d *DirSink) ensureDir() error {
	if d.made {
		return nil
	}
	if err := os.MkdirAll(d.cfg.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output dir %s", d.cfg.Dir)
	}
	d.made = true
	return nil
}

func writeBody(f *os.File, body []byte, compress bool) error {
	if !compress {
		_, err := f.Write(body)
		return err
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(body); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
