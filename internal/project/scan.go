package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jmurray2011/quire/internal/logging"
)

// UnnumberedScene is the scene number given to files without digits in
// their name, so they sort after numbered scenes.
const UnnumberedScene = 9999

// SceneExt is the extension of scene files.
const SceneExt = ".md"

var (
	bookRe  = regexp.MustCompile(`(?i)^book(\d+)$`)
	actRe   = regexp.MustCompile(`(?i)^act(\d+)$`)
	digitRe = regexp.MustCompile(`\d+`)
)

// ScanError reports a failure while walking the drafts tree.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ParseBookAct extracts book and act numbers from path components. A later
// matching component overrides an earlier one; ok is false unless both were found.
func ParseBookAct(parts []string) (book, act int, ok bool) {
	var haveBook, haveAct bool
	for _, p := range parts {
		if m := bookRe.FindStringSubmatch(p); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				book, haveBook = n, true
			}
		} else if m := actRe.FindStringSubmatch(p); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				act, haveAct = n, true
			}
		}
	}
	return book, act, haveBook && haveAct
}

// SceneNumber returns the first run of digits in the file stem, or
// UnnumberedScene when there is none.
func SceneNumber(name string) int {
	stem := sceneName(name)
	if m := digitRe.FindString(stem); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return UnnumberedScene
}

// Scan walks draftsDir for scene files under BookN/ActN directories.
// A missing drafts directory is not an error: it is logged and an empty
// structure is returned.
func Scan(draftsDir string, logger logging.Logger) (*Structure, error) {
	logger = logging.OrNop(logger).WithField("drafts_dir", draftsDir)
	s := &Structure{Root: draftsDir}

	info, err := os.Stat(draftsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("drafts directory not found")
			return s, nil
		}
		return nil, &ScanError{Root: draftsDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Root: draftsDir, Err: errors.New("not a directory")}
	}

	books := make(map[int]map[int][]*Scene)
	skipped := 0

	err = filepath.WalkDir(draftsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != SceneExt {
			return nil
		}

		rel, err := filepath.Rel(draftsDir, path)
		if err != nil {
			return err
		}
		book, act, ok := ParseBookAct(strings.Split(filepath.ToSlash(rel), "/"))
		if !ok {
			skipped++
			logger.Debug("skipping %s: not under a BookN/ActN directory", rel)
			return nil
		}

		if books[book] == nil {
			books[book] = make(map[int][]*Scene)
		}
		books[book][act] = append(books[book][act], &Scene{
			Path:   path,
			Name:   sceneName(path),
			Book:   book,
			Act:    act,
			Number: SceneNumber(path),
		})
		return nil
	})
	if err != nil {
		return nil, &ScanError{Root: draftsDir, Err: err}
	}

	for _, bn := range sortedKeys(books) {
		b := &Book{Number: bn}
		for _, an := range sortedKeys(books[bn]) {
			scenes := books[bn][an]
			sort.SliceStable(scenes, func(i, j int) bool {
				if scenes[i].Number != scenes[j].Number {
					return scenes[i].Number < scenes[j].Number
				}
				return scenes[i].Path < scenes[j].Path
			})
			b.Acts = append(b.Acts, &Act{Number: an, Scenes: scenes})
		}
		s.Books = append(s.Books, b)
	}

	logger.Debug("found %d scenes in %d books (%d files skipped)", s.SceneCount(), len(s.Books), skipped)
	return s, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
