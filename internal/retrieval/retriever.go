package retrieval

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/llm"
)

// DocumentLister supplies the reference documents eligible for retrieval
// (soft-deleted rows excluded by the implementation).
type DocumentLister interface {
	ListActiveDocuments(ctx context.Context) ([]domain.Document, error)
}

// TextReader resolves a document's stored content reference to its extracted
// text. A failed read skips that document for the current turn.
type TextReader interface {
	ReadText(ref string) (string, error)
}

// Retriever runs the per-turn retrieval pipeline over every stored document.
//
// Retrieval is best-effort: an unreadable document or a chunk whose embedding
// call fails is skipped without aborting the turn. Each request re-embeds the
// query and every chunk; nothing is cached between turns.
type Retriever struct {
	Docs     DocumentLister
	Texts    TextReader
	Embedder llm.Embedder

	// ChunkSize is the chunk window in runes (default 1000).
	ChunkSize int
	// TopKPerDoc caps selected excerpts per document (default 3).
	TopKPerDoc int
}

// Retrieve embeds the query once and returns the top-K scored excerpts of
// every readable document, in document order. A query that cannot be embedded
// contributes no excerpts; the assembler tolerates an empty set.
func (r *Retriever) Retrieve(ctx context.Context, query string) []Excerpt {
	tr := otel.Tracer("retrieval/Retriever")
	ctx, span := tr.Start(ctx, "Retrieve",
		trace.WithAttributes(attribute.Int("query.runes", len([]rune(query)))),
	)
	defer span.End()

	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	k := r.TopKPerDoc
	if k <= 0 {
		k = 3
	}

	queryVec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		span.AddEvent("query embedding failed")
		return nil
	}

	docs, err := r.Docs.ListActiveDocuments(ctx)
	if err != nil || len(docs) == 0 {
		return nil
	}

	var out []Excerpt
	for _, doc := range docs {
		text, err := r.Texts.ReadText(doc.ContentRef)
		if err != nil || text == "" {
			// Unreadable document: skip it for this turn.
			continue
		}

		scored := make([]Excerpt, 0, k)
		for _, chunk := range Chunks(text, chunkSize) {
			vec, err := r.Embedder.Embed(ctx, chunk)
			if err != nil {
				// Failed chunk embedding: exclude from ranking, keep going.
				continue
			}
			scored = append(scored, Excerpt{
				DocumentName: doc.Name,
				Text:         chunk,
				Score:        Cosine(queryVec, vec),
			})
		}
		out = append(out, topK(scored, k)...)
	}

	span.SetAttributes(attribute.Int("excerpts", len(out)))
	return out
}
