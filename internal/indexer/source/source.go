// Package source enumerates the documents of a corpus and fetches their plain
// text, either from a local directory or from a list of URLs.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/resilience"
)

// Source lists document references in processing order and returns the plain
// text of one reference.
type Source interface {
	References() []string
	Fetch(ctx context.Context, ref string) (string, error)
}

// Open selects the directory or URL list source according to cfg.Offline.
func Open(cfg config.BuildConfig) (Source, error) {
	if cfg.Source == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "build.source is empty")
	}
	if cfg.Offline {
		return NewDirectory(cfg.Source, cfg.StripHeader)
	}
	return NewURLList(cfg.Source, FetchOptions{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Retry: resilience.Backoff{
			Attempts: cfg.FetchAttempts,
			Initial:  cfg.FetchBackoff,
			Jitter:   0.1,
		},
		PerHost: cfg.FetchPerHost,
	})
}

// Directory reads every regular file of one directory, ordered by name.
type Directory struct {
	root        string
	stripHeader bool
	refs        []string
}

func NewDirectory(root string, stripHeader bool) (*Directory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing corpus %s: %w", root,
			apperrors.New(apperrors.ErrSourceUnreadable, err.Error()))
	}
	refs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			refs = append(refs, entry.Name())
		}
	}
	sort.Strings(refs)
	return &Directory{root: root, stripHeader: stripHeader, refs: refs}, nil
}

func (d *Directory) References() []string {
	return d.refs
}

func (d *Directory) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(d.root, ref))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", ref,
			apperrors.New(apperrors.ErrDocumentUnreadable, err.Error()))
	}
	raw := string(data)
	if d.stripHeader {
		raw = StripHeader(raw)
	}
	return ExtractText(strings.NewReader(raw))
}

const headerSeparator = "\r\n\r\n"

// StripHeader drops a crawl header: the text starts at the second blank CRLF
// line. Content with fewer than two blank lines is returned unchanged.
func StripHeader(raw string) string {
	first := strings.Index(raw, headerSeparator)
	if first < 0 {
		return raw
	}
	second := strings.Index(raw[first+1:], headerSeparator)
	if second < 0 {
		return raw
	}
	return raw[first+1+second:]
}

// Document is an in-memory corpus entry.
type Document struct {
	Reference string
	Text      string
}

// Memory serves documents held in memory. A document whose Text is
// Unreadable fails to fetch.
type Memory struct {
	docs []Document
}

// Unreadable marks a Memory document that cannot be fetched.
const Unreadable = "\x00unreadable"

func NewMemory(docs ...Document) *Memory {
	return &Memory{docs: docs}
}

func (m *Memory) References() []string {
	refs := make([]string, len(m.docs))
	for i, d := range m.docs {
		refs[i] = d.Reference
	}
	return refs
}

func (m *Memory) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, d := range m.docs {
		if d.Reference != ref {
			continue
		}
		if d.Text == Unreadable {
			return "", apperrors.Newf(apperrors.ErrDocumentUnreadable, "document %s is unreadable", ref)
		}
		return d.Text, nil
	}
	return "", apperrors.Newf(apperrors.ErrDocumentUnreadable, "document %s does not exist", ref)
}
