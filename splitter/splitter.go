// Package splitter carves bounded-size chunks out of arbitrarily large XML
// inputs. Matched subtrees are materialized one at a time from an
// incremental parse and grouped under synthetic <chunk> containers, so a
// multi-gigabyte document can be partitioned in memory proportional to one
// chunk.
package splitter

import (
	"iter"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"

	"github.com/dgallion1/xmlsaw/errs"
	"github.com/dgallion1/xmlsaw/source"
)

// ChunkTag is the tag of the synthetic container wrapping each chunk.
const ChunkTag = "chunk"

// DefaultChunkSize is the number of matched nodes per chunk when unset.
const DefaultChunkSize = 1000

// Config controls partitioning behavior.
type Config struct {
	Tag       string // Element tag to match; required.
	ChunkSize int    // Matched nodes per chunk; default 1000, minimum 1.
}

// Chunk is one emitted group of matched nodes, wrapped in a <chunk> element.
// Index increases monotonically across every source of a single Split call,
// and a Chunk is immutable once emitted.
type Chunk struct {
	Element *etree.Element
	Index   int
	Nodes   int
}

// Splitter partitions documents into chunks of matched subtrees.
type Splitter struct {
	cfg Config
}

// New validates cfg and returns a Splitter.
func New(cfg Config) (*Splitter, error) {
	if cfg.Tag == "" {
		return nil, errors.Mark(errors.New("splitter: tag is required"), errs.ErrInvalidInput)
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkSize < 1 {
		return nil, errors.Mark(errors.Newf("splitter: chunk size %d is below 1", cfg.ChunkSize), errs.ErrInvalidInput)
	}
	return &Splitter{cfg: cfg}, nil
}

// Split consumes entries strictly in order and yields chunks. Every chunk
// except the final one holds exactly ChunkSize matched nodes; the final
// chunk holds the remainder. A malformed entry yields a syntax error naming
// the entry, and ranging onward resumes with the next entry, so whether an
// error aborts the run is the consumer's choice. Nodes grouped before a
// failure are kept. Breaking out of the loop releases any open entry
// reader.
func (s *Splitter) Split(entries iter.Seq2[source.Entry, error]) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		var group []*etree.Element
		index := 0

		emit := func() bool {
			el := etree.NewElement(ChunkTag)
			for _, n := range group {
				el.AddChild(n)
			}
			c := Chunk{Element: el, Index: index, Nodes: len(group)}
			index++
			group = nil
			return yield(c, nil)
		}

		for entry, err := range entries {
			if err != nil {
				if !yield(Chunk{}, err) {
					return
				}
				continue
			}
			aborted, err := s.scanEntry(entry, func(el *etree.Element) bool {
				group = append(group, el)
				if len(group) >= s.cfg.ChunkSize {
					return emit()
				}
				return true
			})
			if err != nil {
				if !yield(Chunk{}, err) {
					return
				}
				continue
			}
			if aborted {
				return
			}
		}

		if len(group) > 0 {
			emit()
		}
	}
}

// scanEntry parses one entry, invoking collect for each matched subtree.
// aborted reports that collect, and therefore the consumer, stopped the run.
func (s *Splitter) scanEntry(entry source.Entry, collect func(*etree.Element) bool) (aborted bool, err error) {
	rc, err := entry.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	aborted, err = scanSubtrees(rc, s.cfg.Tag, collect)
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "parse %s", entry.ID), errs.ErrSyntax)
	}
	return aborted, nil
}
