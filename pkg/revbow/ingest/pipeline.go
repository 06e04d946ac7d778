package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pipeline turns review texts into token streams.
// Stopword edits on the tokenizer must not race with a running pipeline.
type Pipeline struct {
	tokenizer *Tokenizer
}

// NewPipeline creates an ingestion pipeline around tokenizer
func NewPipeline(tokenizer *Tokenizer) *Pipeline {
	return &Pipeline{tokenizer: tokenizer}
}

// Tokenizer returns the tokenizer used by the pipeline.
func (p *Pipeline) Tokenizer() *Tokenizer {
	return p.tokenizer
}

// Process tokenizes a single text.
func (p *Pipeline) Process(text string) []string {
	return p.tokenizer.Tokenize(text)
}

// Stream tokenizes texts in order and concatenates the results.
// No marker separates one text from the next, so the last token of a
// review is adjacent to the first token of the following one.
func (p *Pipeline) Stream(texts []string) []string {
	var out []string
	for _, text := range texts {
		out = append(out, p.tokenizer.Tokenize(text)...)
	}
	return out
}

// Documents tokenizes each text separately.
func (p *Pipeline) Documents(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, text := range texts {
		out[i] = p.tokenizer.Tokenize(text)
	}
	return out
}

// StreamAll builds one stream per entry of groups in parallel. The result is
// index-aligned with groups.
func (p *Pipeline) StreamAll(ctx context.Context, groups [][]string, workers int) ([][]string, error) {
	out := make([][]string, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, texts := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = p.Stream(texts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
