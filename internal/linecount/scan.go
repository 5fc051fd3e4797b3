package linecount

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/valerioTomassi/linefile/internal/files"
	"github.com/valerioTomassi/linefile/internal/logging"
)

// FileStat describes the line structure of one file.
type FileStat struct {
	File         string `json:"file"`
	Lines        int    `json:"lines"`
	Blank        int    `json:"blank"`
	Bytes        int64  `json:"bytes"`
	Unterminated bool   `json:"unterminated"`
}

// osFS is the native filesystem. util.Walk needs a full billy.Filesystem,
// which osfs.Default is not.
var osFS = osfs.New("")

// ScanDir walks root on the OS filesystem and measures every regular file.
func ScanDir(ctx context.Context, root string, ignoreDirs []string) ([]FileStat, error) {
	return ScanDirWithFS(ctx, osFS, root, ignoreDirs)
}

// ScanDirWithFS is like ScanDir but walks fsys. Results are sorted by path,
// relative to root. Files that cannot be read are logged and left out.
func ScanDirWithFS(ctx context.Context, fsys billy.Filesystem, root string, ignoreDirs []string) ([]FileStat, error) {
	logger := logging.FromContext(ctx)

	skip := make(map[string]bool)
	for _, d := range ignoreDirs {
		skip[strings.TrimSpace(d)] = true
	}

	repoRoot := findRepoRoot(fsys, root)
	gi, err := loadGitIgnore(fsys, repoRoot)
	if err != nil {
		logger.Warn("ignoring unreadable .gitignore", "root", repoRoot, "error", err)
	}

	type fileJob struct {
		rel  string
		path string
	}

	jobs := make(chan fileJob, 64)
	var stats []FileStat
	var mu sync.Mutex

	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobs {
				st, err := measureFile(fsys, job.path, logger)
				if err != nil {
					logger.Warn("skipping unreadable file", "path", job.path, "error", err)
					continue
				}
				st.File = job.rel
				mu.Lock()
				stats = append(stats, st)
				mu.Unlock()
			}
		}()
	}

	err = util.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if info.IsDir() {
			if path == root {
				return nil
			}
			if info.Name() == ".git" || skip[info.Name()] {
				return filepath.SkipDir
			}
			if gi != nil && gi.match(relTo(repoRoot, path), true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if gi != nil && gi.match(relTo(repoRoot, path), false) {
			return nil
		}

		jobs <- fileJob{rel: relTo(root, path), path: path}
		return nil
	})

	close(jobs)
	wg.Wait()

	sort.Slice(stats, func(i, j int) bool { return stats[i].File < stats[j].File })
	return stats, err
}

// measureFile reads path once through a LineFile.
func measureFile(fsys billy.Basic, path string, logger *slog.Logger) (FileStat, error) {
	var st FileStat
	err := files.Use(path, func(f *files.LineFile) error {
		for line, err := range f.Lines() {
			if err != nil {
				return err
			}
			st.Lines++
			st.Bytes += int64(len(line))
			if strings.TrimRight(line, "\r\n") == "" {
				st.Blank++
			}
			st.Unterminated = !strings.HasSuffix(line, "\n")
		}
		return nil
	}, files.WithFilesystem(fsys), files.WithLogger(logger))
	return st, err
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
