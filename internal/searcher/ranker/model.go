package ranker

import (
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
)

// Model selects a scoring function.
type Model int

const (
	OkapiTF Model = iota + 1
	TFIDF
	BM25
	Laplace
	JelinekMercer
)

var modelNames = map[Model]string{
	OkapiTF:       "okapi-tf",
	TFIDF:         "tf-idf",
	BM25:          "bm25",
	Laplace:       "laplace",
	JelinekMercer: "jelinek-mercer",
}

// Models lists every model in selector order.
var Models = []Model{OkapiTF, TFIDF, BM25, Laplace, JelinekMercer}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseModel accepts a model name or its numeric selector 1..5.
func ParseModel(s string) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "1", "okapi-tf", "okapi", "tf":
		return OkapiTF, nil
	case "2", "tf-idf", "tfidf":
		return TFIDF, nil
	case "3", "bm25", "okapi-bm25":
		return BM25, nil
	case "4", "laplace", "lm-laplace":
		return Laplace, nil
	case "5", "jelinek-mercer", "jm", "lm-jm":
		return JelinekMercer, nil
	}
	return 0, apperrors.Newf(apperrors.ErrUnknownModel, "model %q", s)
}

// vector reports whether m scores by normalised dot product.
func (m Model) vector() bool {
	return m == OkapiTF || m == TFIDF
}

// Params are the tunable constants of the models.
type Params struct {
	OkapiK               float64
	OkapiLengthWeight    float64
	K1                   float64
	B                    float64
	K3                   float64
	NormalizeQueryVector bool
}

// Fingerprint renders every constant of p so that results computed under
// different constants can be told apart.
func (p Params) Fingerprint() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return strings.Join([]string{
		f(p.OkapiK),
		f(p.OkapiLengthWeight),
		f(p.K1),
		f(p.B),
		f(p.K3),
		strconv.FormatBool(p.NormalizeQueryVector),
	}, ",")
}

func DefaultParams() Params {
	return Params{
		OkapiK:            0.5,
		OkapiLengthWeight: 1.5,
		K1:                1.2,
		B:                 0.75,
		K3:                500,
	}
}

// ParamsFromConfig takes the constants from cfg, falling back to the defaults
// for zero Okapi constants and BM25 k1/k3.
func ParamsFromConfig(cfg config.RankingConfig) Params {
	p := DefaultParams()
	if cfg.Okapi.K > 0 {
		p.OkapiK = cfg.Okapi.K
	}
	if cfg.Okapi.LengthWeight > 0 {
		p.OkapiLengthWeight = cfg.Okapi.LengthWeight
	}
	if cfg.BM25.K1 > 0 {
		p.K1 = cfg.BM25.K1
	}
	p.B = cfg.BM25.B
	if cfg.BM25.K3 > 0 {
		p.K3 = cfg.BM25.K3
	}
	p.NormalizeQueryVector = cfg.NormalizeQueryVector
	return p
}
