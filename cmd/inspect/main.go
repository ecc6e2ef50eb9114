package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/inspect"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/logger"
)

// request is one lookup selected on the command line.
type request struct {
	term   string
	doc    string
	prefix string
	docs   string
	match  string
	limit  int
}

func (r request) empty() bool {
	return r.term == "" && r.doc == "" && r.prefix == "" && r.docs == ""
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	indexDir := flag.String("index-dir", "", "directory holding the built index")
	stopList := flag.String("stoplist", "", "stop-word list the index was built with")
	var req request
	flag.StringVar(&req.term, "term", "", "word to describe")
	flag.StringVar(&req.doc, "doc", "", "document reference to describe")
	flag.StringVar(&req.prefix, "prefix", "", "list stemmed terms starting with this prefix")
	flag.StringVar(&req.docs, "docs", "", "space-separated words; list the documents containing them")
	flag.StringVar(&req.match, "match", "any", "with -docs: any or all of the words")
	flag.IntVar(&req.limit, "limit", 50, "maximum terms or documents listed (0 lists all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "index-dir":
			cfg.Index.Dir = *indexDir
		case "stoplist":
			cfg.Build.StopList = *stopList
		}
	})
	if req.empty() {
		flag.Usage()
		os.Exit(2)
	}

	logCloser := logger.Setup(cfg.Logging)
	err = run(cfg, req, os.Stdout)
	if err != nil {
		slog.Error("lookup failed", "error", err)
	}
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run answers req against the index in cfg and writes the result to w.
// Lookup misses are printed as "not present" and are not errors.
func run(cfg *config.Config, req request, w io.Writer) error {
	idx, err := segment.Open(cfg.Index.Dir)
	if err != nil {
		return fmt.Errorf("opening index %s: %w", cfg.Index.Dir, err)
	}
	defer idx.Close()

	stop, err := tokenizer.LoadStopWords(cfg.Build.StopList)
	if err != nil {
		slog.Warn("stop list unavailable", "path", cfg.Build.StopList, "error", err)
	}
	in := inspect.New(idx, tokenizer.New(stop, nil))

	var result any
	switch {
	case req.docs != "":
		var match inspect.Match
		match, err = inspect.ParseMatch(req.match)
		if err != nil {
			return err
		}
		result, err = in.Documents(strings.Fields(req.docs), match, req.limit)
	case req.prefix != "":
		result, err = in.Prefix(req.prefix, req.limit)
	case req.term != "" && req.doc != "":
		result, err = in.TermInDocument(req.term, req.doc)
	case req.term != "":
		result, err = in.Term(req.term)
	case req.doc != "":
		result, err = in.Document(req.doc)
	default:
		return apperrors.New(apperrors.ErrInvalidInput, "no lookup requested")
	}
	if err != nil {
		if apperrors.IsLookupMiss(err) {
			_, werr := fmt.Fprintf(w, "not present: %v\n", err)
			return werr
		}
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
