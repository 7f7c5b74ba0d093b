package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bep/godartsass/v2"

	"github.com/openfroyo/sassdata/pkg/loader"
)

// Resolver adapts an Importer to the Dart Sass import protocol. Relative
// URLs are resolved against the entry stylesheet's directory and the
// importer's include paths.
type Resolver struct {
	ctx      context.Context
	importer *Importer
	entry    string
}

var _ godartsass.ImportResolver = (*Resolver)(nil)

// Resolver returns an import resolver for a compilation of entry.
func (im *Importer) Resolver(ctx context.Context, entry string) *Resolver {
	return &Resolver{ctx: ctx, importer: im, entry: entry}
}

// CanonicalizeURL returns a file:// URL for supported data files and the
// empty string, which leaves the URL to other importers, for anything else.
func (r *Resolver) CanonicalizeURL(url string) (string, error) {
	if !loader.IsSupported(url) {
		return "", nil
	}

	path, err := ResolvePath(url, r.entry, r.importer.IncludePaths())
	if err != nil {
		return "", err
	}
	return fileScheme + filepath.ToSlash(path), nil
}

// Load runs the import for a canonical URL returned by CanonicalizeURL.
func (r *Resolver) Load(canonicalizedURL string) (godartsass.Import, error) {
	path := filepath.FromSlash(strings.TrimPrefix(canonicalizedURL, fileScheme))

	result := r.importer.ImportFile(r.ctx, path)
	switch result.Status {
	case StatusOK:
		return godartsass.Import{
			Content:      result.Contents,
			SourceSyntax: godartsass.SourceSyntaxSCSS,
		}, nil
	case StatusFailed:
		return godartsass.Import{}, result.Err
	default:
		return godartsass.Import{}, fmt.Errorf("unsupported import %s", canonicalizedURL)
	}
}
