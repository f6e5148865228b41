// Package analysis computes per-scene text statistics and caches them by
// content fingerprint, so unchanged scenes are never re-analyzed.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/jmurray2011/quire/internal/logging"
	"github.com/jmurray2011/quire/pkg/lru"
)

// Defaults used by configuration; the size, encoding and top-words defaults
// also apply when the matching Options field is zero.
const (
	DefaultCacheSize     = 1000
	DefaultMaxFileSize   = 10 * 1024 * 1024
	DefaultEncoding      = "utf-8"
	DefaultTopWordsCount = 5

	// fingerprintChunk bounds the memory used while hashing a file.
	fingerprintChunk = 64 * 1024
)

// Options configures an Analyzer. It is fixed for the analyzer's lifetime.
type Options struct {
	// CacheSize is the number of results kept. Zero disables caching.
	CacheSize     int
	MaxFileSize   int64
	Encoding      string
	Stopwords     []string
	TopWordsCount int
	Logger        logging.Logger
}

// Stats reports cache activity and how often file content was read.
type Stats struct {
	Cache             lru.Stats
	CacheLen          int
	CacheCap          int
	ContentReads      uint64
	FingerprintErrors uint64
}

// Analyzer produces a Result per file and is safe for concurrent use.
// Create one per process and share it; the cache lives as long as it does.
type Analyzer struct {
	cache       *lru.Cache[string, *Result]
	maxFileSize int64
	topWords    int
	stopwords   map[string]struct{}
	decoder     *decoder
	logger      logging.Logger

	contentReads      atomic.Uint64
	fingerprintErrors atomic.Uint64

	// open, readFile and measure are swapped in tests to observe or break
	// the fingerprint, read and analysis steps.
	open     func(string) (io.ReadCloser, error)
	readFile func(string) ([]byte, error)
	measure  func(string) *Result
}

// New builds an analyzer from opts.
func New(opts Options) (*Analyzer, error) {
	if opts.CacheSize < 0 {
		return nil, fmt.Errorf("cache size must be non-negative, got %d", opts.CacheSize)
	}
	if opts.MaxFileSize < 0 {
		return nil, fmt.Errorf("max file size must be non-negative, got %d", opts.MaxFileSize)
	}
	if opts.TopWordsCount < 0 {
		return nil, fmt.Errorf("top words count must be non-negative, got %d", opts.TopWordsCount)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize == 0 {
		maxFileSize = DefaultMaxFileSize
	}
	topWords := opts.TopWordsCount
	if topWords == 0 {
		topWords = DefaultTopWordsCount
	}

	dec, err := newDecoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		cache:       lru.New[string, *Result](opts.CacheSize),
		maxFileSize: maxFileSize,
		topWords:    topWords,
		stopwords:   NewStopwordSet(opts.Stopwords),
		decoder:     dec,
		logger:      logging.OrNop(opts.Logger).WithField("component", "analysis"),
		open:        openFile,
	}
	a.readFile = a.readLimited
	a.measure = a.measureText
	return a, nil
}

// Fingerprint returns the hex SHA-256 of the file's content. The file is
// streamed in fixed-size chunks rather than loaded whole, and no more than
// the size limit is hashed: a longer file yields a *SizeLimitError.
func (a *Analyzer) Fingerprint(path string) (string, error) {
	f, err := a.open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	buf := make([]byte, fingerprintChunk)
	n, err := io.CopyBuffer(h, io.LimitReader(f, a.maxFileSize+1), buf)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	if n > a.maxFileSize {
		return "", &SizeLimitError{Path: path, Size: n, Limit: a.maxFileSize}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Analyze returns the analysis of the file at path.
//
// A *SizeLimitError is returned when the file exceeds the configured maximum;
// that is the only error Analyze returns. Every other failure (missing file,
// unreadable or undecodable content, a fault during analysis) is logged and
// reported as a nil Result with a nil error.
//
// With useCache set, a file whose content fingerprint is already cached is
// answered from the cache without reading its content for analysis. A fresh
// result is cached under the hash of the bytes it was computed from, so an
// edit landing between the lookup and the read cannot mislabel it.
func (a *Analyzer) Analyze(path string, useCache bool) (*Result, error) {
	log := a.logger.WithField("path", path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Error("file not found")
		} else {
			log.Error("stat failed: %v", err)
		}
		return nil, nil
	}
	if info.Size() > a.maxFileSize {
		return nil, &SizeLimitError{Path: path, Size: info.Size(), Limit: a.maxFileSize}
	}

	if useCache {
		fingerprint, err := a.Fingerprint(path)
		var sizeErr *SizeLimitError
		switch {
		case errors.As(err, &sizeErr):
			return nil, sizeErr
		case err != nil:
			a.fingerprintErrors.Add(1)
			log.Warn("cache miss due to error: %v", err)
		default:
			if cached, ok := a.cache.Get(fingerprint); ok {
				log.Debug("cache hit")
				return cached.Clone(), nil
			}
		}
	}

	a.contentReads.Add(1)
	raw, err := a.readFile(path)
	if err != nil {
		log.Error("error reading file: %v", err)
		return nil, nil
	}
	if n := int64(len(raw)); n > a.maxFileSize {
		return nil, &SizeLimitError{Path: path, Size: n, Limit: a.maxFileSize}
	}
	text, err := a.decoder.decode(raw)
	if err != nil {
		log.Error("error reading file: %v", err)
		return nil, nil
	}

	result, err := a.compute(text)
	if err != nil {
		log.Error("analysis error: %v", err)
		return nil, nil
	}

	if useCache {
		sum := sha256.Sum256(raw)
		a.cache.Put(hex.EncodeToString(sum[:]), result.Clone())
		log.Debug("cached analysis")
	}

	return result, nil
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// readLimited reads at most one byte past the size limit, so a file that
// grew after the size check is caught without loading all of it.
func (a *Analyzer) readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, a.maxFileSize+1))
}

// compute runs the text statistics. A panic is converted to an error.
func (a *Analyzer) compute(text string) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()
	return a.measure(text), nil
}

func (a *Analyzer) measureText(text string) *Result {
	freq, order := WordFrequency(text, a.stopwords)
	return &Result{
		WordCount: CountWords(text),
		TopWords:  TopWords(freq, order, a.topWords),
		TODOs:     ExtractTODOs(text),
		Frequency: freq,
	}
}

// ClearCache drops every cached result.
func (a *Analyzer) ClearCache() {
	a.cache.Clear()
}

// CacheLen returns the number of cached results.
func (a *Analyzer) CacheLen() int {
	return a.cache.Len()
}

// Stats returns a snapshot of cache and read counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Cache:             a.cache.Stats(),
		CacheLen:          a.cache.Len(),
		CacheCap:          a.cache.Cap(),
		ContentReads:      a.contentReads.Load(),
		FingerprintErrors: a.fingerprintErrors.Load(),
	}
}

// Encoding returns the canonical name of the configured text encoding.
func (a *Analyzer) Encoding() string {
	return a.decoder.name
}
