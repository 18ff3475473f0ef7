// Package detail synthesizes the reading view of a story: factual
// sentences, attributed quotes and interpretation paragraphs.
package detail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/story-radar/internal/models"
)

// BlockType is the kind of a content block.
type BlockType string

const (
	BlockFactual        BlockType = "factual"
	BlockOpinion        BlockType = "opinion"
	BlockInterpretation BlockType = "interpretation"
)

// Block is one paragraph of synthesized content. Attribution is set on
// opinion blocks only.
type Block struct {
	Type        BlockType `json:"type"`
	Text        string    `json:"text"`
	Attribution string    `json:"attribution,omitempty"`
}

// Voice is a person or organisation quoted in coverage.
type Voice struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Result is the synthesized detail of one story. Blocks are ordered
// factual, then opinion, then interpretation.
type Result struct {
	Blocks       []Block `json:"blocks"`
	QuotedVoices []Voice `json:"quoted_voices"`
}

// Analyzer generates short neutral analysis paragraphs for text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, maxTokens int) ([]string, error)
}

const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxTokens   = 300
	DefaultConcurrency = 4

	maxAnalysisInput  = 4000
	maxAnalysisBlocks = 2
	maxFactualBlocks  = 6
	maxOpinionBlocks  = 3
	maxQuotedVoices   = 5
	topicHintWords    = 5
)

const whatToWatch = "What to watch: Developments may continue as more information becomes available. " +
	"Check back for updates from primary sources."

// Synthesizer builds story detail. The zero value works without external
// analysis; set Analyzer to replace the heuristic interpretation blocks with
// generated ones.
type Synthesizer struct {
	Analyzer    Analyzer
	Timeout     time.Duration
	MaxTokens   int
	Concurrency int
	Logger      *slog.Logger
}

// Synthesize builds the detail of one story. It never fails: when the
// analyzer is missing, slow or broken the heuristic interpretation blocks
// are kept.
func (s *Synthesizer) Synthesize(ctx context.Context, docs []models.Document) Result {
	if len(docs) == 0 {
		return Result{}
	}

	summaries := joinSummaries(docs)

	factual := extractFactual(docs)
	if len(factual) == 0 {
		factual = fallbackSentences(summaries)
	}

	blocks := make([]Block, 0, len(factual)+maxOpinionBlocks+maxAnalysisBlocks)
	for _, text := range factual {
		blocks = append(blocks, Block{Type: BlockFactual, Text: text})
	}

	quotes := extractQuotes(summaries)
	for i, q := range quotes {
		if i == maxOpinionBlocks {
			break
		}
		blocks = append(blocks, Block{Type: BlockOpinion, Text: q.text, Attribution: q.attribution})
	}

	interpretation := s.analysis(ctx, docs)
	if len(interpretation) == 0 {
		interpretation = heuristicInterpretation(docs)
	}
	for _, text := range interpretation {
		blocks = append(blocks, Block{Type: BlockInterpretation, Text: text})
	}

	return Result{Blocks: blocks, QuotedVoices: voices(quotes)}
}

// SynthesizeMany synthesizes every group concurrently. Results keep the
// order of groups; a slow analysis call only delays its own group.
func (s *Synthesizer) SynthesizeMany(ctx context.Context, groups [][]models.Document) []Result {
	results := make([]Result, len(groups))
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, docs := range groups {
		g.Go(func() error {
			results[i] = s.Synthesize(gctx, docs)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Synthesizer) analysis(ctx context.Context, docs []models.Document) []string {
	if s.Analyzer == nil {
		return nil
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	paragraphs, err := s.Analyzer.Analyze(ctx, AnalysisInput(docs), maxTokens)
	if err != nil {
		s.logger().Debug("analysis unavailable, keeping heuristic blocks", slog.Any("err", err))
		return nil
	}

	out := make([]string, 0, maxAnalysisBlocks)
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == maxAnalysisBlocks {
			break
		}
	}
	return out
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// AnalysisInput renders docs as "[publisher] summary" paragraphs, capped in
// length, for the analyzer.
func AnalysisInput(docs []models.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("[%s] %s", d.Publisher, d.Summary)
	}
	return truncateRunes(strings.Join(parts, "\n\n"), maxAnalysisInput)
}

func heuristicInterpretation(docs []models.Document) []string {
	words := strings.Fields(docs[0].Title)
	hint := "this story"
	if len(words) > 0 {
		hint = strings.Join(words[:min(topicHintWords, len(words))], " ")
	}
	return []string{
		fmt.Sprintf("Coverage from %d sources. Multiple outlets are reporting on %s.", len(docs), hint),
		whatToWatch,
	}
}

func voices(quotes []quote) []Voice {
	out := make([]Voice, 0, len(quotes))
	seen := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		if len(out) == maxQuotedVoices {
			break
		}
		if _, dup := seen[q.attribution]; dup {
			continue
		}
		seen[q.attribution] = struct{}{}
		out = append(out, Voice{Name: q.attribution, Role: InferRole(q.attribution)})
	}
	return out
}

func joinSummaries(docs []models.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Summary
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
