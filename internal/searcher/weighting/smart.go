package weighting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
)

// TFMode selects the term-frequency component of a SMART code.
type TFMode byte

const (
	TFNatural    TFMode = 'n' // tf
	TFLog        TFMode = 'l' // 1 + ln tf
	TFAugmented  TFMode = 'a' // 0.5 + 0.5 tf / max tf of the term
	TFLogAverage TFMode = 'L' // (1 + ln tf) / (1 + ln mean tf of the term)
)

// DFMode selects the document-frequency component of a SMART code.
type DFMode byte

const (
	DFNone DFMode = 'n' // 1
	DFIDF  DFMode = 't' // ln(N / df)
	DFProb DFMode = 'p' // max(0, ln((N - df) / df))
)

// NormMode selects the document normalization of a SMART code.
type NormMode byte

const (
	NormNone   NormMode = 'n' // 1
	NormCosine NormMode = 'c' // sqrt(sum tf^2)
	NormByte   NormMode = 'b' // sqrt(sum len(term) * tf)
)

func (m TFMode) String() string   { return string(rune(m)) }
func (m DFMode) String() string   { return string(rune(m)) }
func (m NormMode) String() string { return string(rune(m)) }

// termStats are the per-term aggregates the TF and DF components need.
type termStats struct {
	df     int
	maxTF  int
	meanTF float64
}

var tfFuncs = map[TFMode]func(tf int, st termStats) float64{
	TFNatural: func(tf int, _ termStats) float64 { return float64(tf) },
	TFLog:     func(tf int, _ termStats) float64 { return 1 + math.Log(float64(tf)) },
	TFAugmented: func(tf int, st termStats) float64 {
		return 0.5 + 0.5*float64(tf)/float64(st.maxTF)
	},
	TFLogAverage: func(tf int, st termStats) float64 {
		return (1 + math.Log(float64(tf))) / (1 + math.Log(st.meanTF))
	},
}

var dfFuncs = map[DFMode]func(n, df int) float64{
	DFNone: func(_, _ int) float64 { return 1 },
	DFIDF:  func(n, df int) float64 { return math.Log(float64(n) / float64(df)) },
	DFProb: func(n, df int) float64 {
		// ln(0) is -Inf when every document has the term; the clamp takes it to 0.
		return math.Max(0, math.Log(float64(n-df)/float64(df)))
	},
}

var normFuncs = map[NormMode]func(terms map[string]int) float64{
	NormNone:   func(map[string]int) float64 { return 1 },
	NormCosine: euclidean,
	NormByte: func(terms map[string]int) float64 {
		var sum float64
		for term, tf := range terms {
			sum += float64(utf8.RuneCountInString(term) * tf)
		}
		return math.Sqrt(sum)
	},
}

// ParseTFMode returns the TF mode for a single SMART letter.
func ParseTFMode(s string) (TFMode, error) {
	if len(s) == 1 {
		if _, ok := tfFuncs[TFMode(s[0])]; ok {
			return TFMode(s[0]), nil
		}
	}
	return 0, fmt.Errorf("tf mode %q: %w", s, apperrors.ErrUnknownMode)
}

// ParseDFMode returns the DF mode for a single SMART letter.
func ParseDFMode(s string) (DFMode, error) {
	if len(s) == 1 {
		if _, ok := dfFuncs[DFMode(s[0])]; ok {
			return DFMode(s[0]), nil
		}
	}
	return 0, fmt.Errorf("df mode %q: %w", s, apperrors.ErrUnknownMode)
}

// ParseNormMode returns the normalization mode for a single SMART letter.
func ParseNormMode(s string) (NormMode, error) {
	if len(s) == 1 {
		if _, ok := normFuncs[NormMode(s[0])]; ok {
			return NormMode(s[0]), nil
		}
	}
	return 0, fmt.Errorf("norm mode %q: %w", s, apperrors.ErrUnknownMode)
}

// Code is a parsed three-letter SMART code such as lnc.
type Code struct {
	TF   TFMode
	DF   DFMode
	Norm NormMode
}

func (c Code) String() string {
	return c.TF.String() + c.DF.String() + c.Norm.String()
}

// ParseSMART parses "lnc" or the dotted form "l.n.c".
func ParseSMART(code string) (Code, error) {
	letters := strings.ReplaceAll(code, ".", "")
	if len(letters) != 3 {
		return Code{}, fmt.Errorf("smart code %q must have three letters: %w", code, apperrors.ErrUnknownMode)
	}
	tf, tfErr := ParseTFMode(letters[0:1])
	df, dfErr := ParseDFMode(letters[1:2])
	norm, normErr := ParseNormMode(letters[2:3])
	if err := errors.Join(tfErr, dfErr, normErr); err != nil {
		return Code{}, fmt.Errorf("smart code %q: %w", code, err)
	}
	return Code{TF: tf, DF: df, Norm: norm}, nil
}

// SMART is a TF·DF weighting with a selectable normalization.
type SMART struct {
	code  Code
	n     int
	tf    func(tf int, st termStats) float64
	df    func(n, df int) float64
	stats map[string]termStats
	norms map[string]float64
}

// NewSMART precomputes the norm of every document and the statistics of
// every term in store. code must come from ParseSMART or use the exported
// mode constants.
func NewSMART(store Store, code Code) *SMART {
	tf, ok := tfFuncs[code.TF]
	if !ok {
		panic(fmt.Sprintf("weighting: tf mode %q", code.TF))
	}
	df, ok := dfFuncs[code.DF]
	if !ok {
		panic(fmt.Sprintf("weighting: df mode %q", code.DF))
	}
	norm, ok := normFuncs[code.Norm]
	if !ok {
		panic(fmt.Sprintf("weighting: norm mode %q", code.Norm))
	}

	terms := store.Terms()
	stats := make(map[string]termStats, len(terms))
	for _, term := range terms {
		docs := store.DocumentsFor(term)
		st := termStats{df: len(docs)}
		sum := 0
		for _, f := range docs {
			sum += f
			st.maxTF = max(st.maxTF, f)
		}
		st.meanTF = float64(sum) / float64(len(docs))
		stats[term] = st
	}

	return &SMART{
		code:  code,
		n:     store.DocumentCount(),
		tf:    tf,
		df:    df,
		stats: stats,
		norms: computeNorms(store, norm),
	}
}

func (s *SMART) Name() string { return "smart:" + s.code.String() }

func (s *SMART) Code() Code { return s.code }

func (s *SMART) Norm(doc string) float64 { return lookupNorm(s.norms, doc) }

// Contribution returns queryTF · TF(docTF) · DF(term). It panics when term
// is not in the store the scheme was built over.
func (s *SMART) Contribution(term, _ string, queryTF, docTF int) float64 {
	st, ok := s.stats[term]
	if !ok {
		panic(fmt.Sprintf("weighting: no statistics for term %q", term))
	}
	return float64(queryTF) * s.tf(docTF, st) * s.df(s.n, st.df)
}
