package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/resilience"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxPageBytes = 16 << 20

// FetchOptions tune how URLList downloads pages.
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
	Retry     resilience.Backoff
	// PerHost caps requests per second to one host; 0 disables the cap.
	PerHost float64
}

// URLList fetches every URL of a list file over HTTP. The first whitespace
// separated field of each line is the URL; repeats are dropped. Transport
// errors and 5xx answers are retried, other statuses are not.
type URLList struct {
	urls    []string
	client  *http.Client
	opts    FetchOptions
	limiter *ratelimit.Limiter
}

func NewURLList(path string, opts FetchOptions) (*URLList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening url list %s: %w", path,
			apperrors.New(apperrors.ErrSourceUnreadable, err.Error()))
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if _, dup := seen[fields[0]]; dup {
			continue
		}
		seen[fields[0]] = struct{}{}
		urls = append(urls, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list %s: %w", path,
			apperrors.New(apperrors.ErrSourceUnreadable, err.Error()))
	}
	return &URLList{
		urls:    urls,
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: ratelimit.New(opts.PerHost, 1),
	}, nil
}

func (u *URLList) References() []string {
	return u.urls
}

func (u *URLList) Fetch(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", ref,
			apperrors.New(apperrors.ErrDocumentUnreadable, err.Error()))
	}
	if u.opts.UserAgent != "" {
		req.Header.Set("User-Agent", u.opts.UserAgent)
	}

	var text string
	err = u.opts.Retry.Do(ctx, "fetch "+ref, func(ctx context.Context) error {
		if err := u.limiter.Wait(ctx, req.URL.Host); err != nil {
			return resilience.Permanent(err)
		}
		var getErr error
		text, getErr = u.get(req.WithContext(ctx))
		return getErr
	})
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", ref,
			apperrors.New(apperrors.ErrDocumentUnreadable, err.Error()))
	}
	return text, nil
}

func (u *URLList) get(req *http.Request) (string, error) {
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", resilience.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}
	text, err := ExtractText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", resilience.Permanent(err)
	}
	return text, nil
}

// ExtractText returns the visible text of an HTML document with whitespace
// collapsed to single spaces. Script and style bodies are dropped. Inline
// markup joins the text around it; block-level tags and line breaks separate
// words. Plain text passes through unchanged apart from whitespace.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var sb strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("parsing html: %w",
					apperrors.New(apperrors.ErrDocumentUnreadable, err.Error()))
			}
			return strings.Join(strings.Fields(sb.String()), " "), nil
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := atom.Lookup(name)
			if hiddenTags[tag] {
				switch {
				case tt == html.StartTagToken:
					skipDepth++
				case tt == html.EndTagToken && skipDepth > 0:
					skipDepth--
				}
			}
			if blockTags[tag] {
				sb.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

var hiddenTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
}

var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Body: true, atom.Br: true, atom.Caption: true, atom.Dd: true,
	atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Head: true, atom.Header: true,
	atom.Hr: true, atom.Html: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.Option: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tbody: true,
	atom.Td: true, atom.Tfoot: true, atom.Th: true, atom.Thead: true,
	atom.Title: true, atom.Tr: true, atom.Ul: true,
}
