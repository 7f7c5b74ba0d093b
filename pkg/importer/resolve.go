package importer

import (
	"os"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// SearchDirs returns the directories a URL is resolved against: the
// directory of prev, when prev names a file, followed by includePaths.
func SearchDirs(prev string, includePaths []string) []string {
	dirs := make([]string, 0, len(includePaths)+1)
	prev = strings.TrimPrefix(prev, fileScheme)
	if prev != "" && prev != "stdin" {
		dirs = append(dirs, filepath.Dir(prev))
	}
	for _, p := range includePaths {
		if p != "" {
			dirs = append(dirs, p)
		}
	}
	return dirs
}

// ResolvePath finds url relative to the directory of prev and then each
// include path, returning the first regular file that exists. An absolute
// url is checked as is.
func ResolvePath(url, prev string, includePaths []string) (string, error) {
	url = strings.TrimPrefix(url, fileScheme)
	if filepath.IsAbs(url) {
		if isFile(url) {
			return url, nil
		}
		return "", NotFoundError(url, []string{filepath.Dir(url)})
	}

	return findIn(url, SearchDirs(prev, includePaths))
}

func findIn(url string, dirs []string) (string, error) {
	for _, dir := range dirs {
		candidate, err := filepath.Abs(filepath.Join(dir, url))
		if err != nil {
			continue
		}
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", NotFoundError(url, dirs)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
