// Package source resolves an input location into a lazily enumerable stream
// of documents. A location is classified once, at resolve time, as a single
// document, a directory of documents, or a ZIP archive of documents; the
// partitioner then consumes whichever entries the source yields without
// caring which kind it came from.
package source

import (
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/dgallion1/xmlsaw/errs"
)

// DefaultPattern selects the documents a directory source enumerates.
const DefaultPattern = "*.xml"

// Options control directory enumeration.
type Options struct {
	Pattern   string // Glob applied to base names; default "*.xml".
	Recursive bool   // Descend into subdirectories.
}

// Kind classifies a resolved location.
type Kind int

const (
	KindDocument Kind = iota
	KindDirectory
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	}
	return "unknown"
}

// Entry is one enumerable document. ID is the file path, or
// "archive.zip!inner/doc.xml" for an archive member. An Entry is only valid
// while the enumeration that produced it is active: archive-backed entries
// read from a handle that closes when iteration stops.
type Entry struct {
	ID   string
	open func() (io.ReadCloser, error)
}

// NewEntry builds an Entry around a custom opener. Callers with documents
// outside the filesystem (test fixtures, remote stores) can feed these
// straight to the splitter.
func NewEntry(id string, open func() (io.ReadCloser, error)) Entry {
	return Entry{ID: id, open: open}
}

// Open returns a reader over the entry's decompressed content. The caller
// owns the returned reader and must close it.
func (e Entry) Open() (io.ReadCloser, error) { return e.open() }

// Source is a resolved input location.
type Source struct {
	kind  Kind
	path  string
	files []string // matched file paths, or archive member names
}

// Kind reports how the location was classified.
func (s *Source) Kind() Kind { return s.kind }

// Path returns the location the source was resolved from.
func (s *Source) Path() string { return s.path }

// Resolve classifies pathname and verifies it yields at least one document.
// Classification errors follow the shared taxonomy: a missing path is
// ErrNotFound, an unreadable archive is ErrCorruptInput, a directory or
// archive without matching documents is ErrNotFound, and anything that is
// neither file, directory, nor archive is ErrInvalidInput.
func Resolve(pathname string, opts Options) (*Source, error) {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	// Match against a throwaway name to validate the pattern syntax early.
	if _, err := filepath.Match(opts.Pattern, "x"); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "pattern %q", opts.Pattern), errs.ErrInvalidInput)
	}

	fi, err := os.Stat(pathname)
	if err != nil {
		if oserror.IsNotExist(err) {
			return nil, errors.Mark(errors.Newf("input %s does not exist", pathname), errs.ErrNotFound)
		}
		return nil, errors.Wrapf(err, "stat %s", pathname)
	}

	switch {
	case fi.IsDir():
		files, err := matchDir(pathname, opts)
		if err != nil {
			return nil, err
		}
		return &Source{kind: KindDirectory, path: pathname, files: files}, nil
	case fi.Mode().IsRegular() && strings.EqualFold(filepath.Ext(pathname), ".zip"):
		names, err := matchArchive(pathname)
		if err != nil {
			return nil, err
		}
		return &Source{kind: KindArchive, path: pathname, files: names}, nil
	case fi.Mode().IsRegular():
		return &Source{kind: KindDocument, path: pathname, files: []string{pathname}}, nil
	default:
		return nil, errors.Mark(errors.Newf("input %s is neither a document, a directory, nor an archive", pathname), errs.ErrInvalidInput)
	}
}

// Entries enumerates the source's documents in deterministic order:
// directory files sorted by path, archive members in archive order. Each
// call returns a fresh sequence; an archive handle opens when iteration
// starts and closes when it stops, including on early break.
func (s *Source) Entries() iter.Seq2[Entry, error] {
	if s.kind == KindArchive {
		return s.archiveEntries()
	}
	return s.fileEntries()
}

func (s *Source) fileEntries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, p := range s.files {
			if !yield(Entry{ID: p, open: fileOpener(p)}, nil) {
				return
			}
		}
	}
}

func (s *Source) archiveEntries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		zr, err := zip.OpenReader(s.path)
		if err != nil {
			yield(Entry{}, errors.Mark(errors.Wrapf(err, "open archive %s", s.path), errs.ErrCorruptInput))
			return
		}
		defer zr.Close()

		wanted := make(map[string]bool, len(s.files))
		for _, n := range s.files {
			wanted[n] = true
		}
		for _, f := range zr.File {
			if !wanted[f.Name] {
				continue
			}
			if !yield(Entry{ID: s.path + "!" + f.Name, open: memberOpener(f)}, nil) {
				return
			}
		}
	}
}

// matchDir collects files under dir whose base name matches the pattern. A
// trailing .gz is treated as a transparent compression suffix, so
// data.xml.gz matches *.xml.
func matchDir(dir string, opts Options) ([]string, error) {
	var files []string
	if opts.Recursive {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && matchName(d.Name(), opts.Pattern) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", dir)
		}
	} else {
		ents, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "read dir %s", dir)
		}
		for _, d := range ents {
			if !d.IsDir() && matchName(d.Name(), opts.Pattern) {
				files = append(files, filepath.Join(dir, d.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.Mark(
			errors.Newf("no files matching %q in %s (recursive=%t)", opts.Pattern, dir, opts.Recursive),
			errs.ErrNotFound)
	}
	return files, nil
}

func matchName(name, pattern string) bool {
	if ok, _ := filepath.Match(pattern, name); ok {
		return true
	}
	if stripped, found := strings.CutSuffix(name, ".gz"); found {
		ok, _ := filepath.Match(pattern, stripped)
		return ok
	}
	return false
}

// matchArchive lists the archive's document members: .xml or .xml.gz files,
// skipping directories and reserved metadata entries.
func matchArchive(pathname string) ([]string, error) {
	zr, err := zip.OpenReader(pathname)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open archive %s", pathname), errs.ErrCorruptInput)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		if memberWanted(f) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return nil, errors.Mark(errors.Newf("no document entries in archive %s", pathname), errs.ErrNotFound)
	}
	return names, nil
}

func memberWanted(f *zip.File) bool {
	name := f.Name
	if strings.HasSuffix(name, "/") || f.FileInfo().IsDir() {
		return false
	}
	if strings.HasPrefix(name, "__MACOSX/") {
		return false
	}
	base := path.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	return strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, ".xml.gz")
}

func fileOpener(p string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := os.Open(p)
		if err != nil {
			if oserror.IsNotExist(err) {
				return nil, errors.Mark(err, errs.ErrNotFound)
			}
			return nil, errors.Wrapf(err, "open %s", p)
		}
		return maybeGzip(f, p)
	}
}

func memberOpener(f *zip.File) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "open archive entry %s", f.Name), errs.ErrCorruptInput)
		}
		return maybeGzip(rc, f.Name)
	}
}

// maybeGzip wraps rc in a gzip reader when name carries a .gz suffix.
func maybeGzip(rc io.ReadCloser, name string) (io.ReadCloser, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".gz") {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, errors.Mark(errors.Wrapf(err, "decompress %s", name), errs.ErrCorruptInput)
	}
	return &gzipReadCloser{Reader: gz, raw: rc}, nil
}

// gzipReadCloser closes both the gzip stream and the underlying reader.
type gzipReadCloser struct {
	*gzip.Reader
	raw io.Closer
}

func (g *gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.raw.Close(); err == nil {
		err = cerr
	}
	return err
}
