package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docchat/backend/internal/metrics"
	"github.com/docchat/backend/internal/rag"
	"github.com/docchat/backend/pkg/logger"
)

// NoContextMarker is put in the prompt when retrieval finds nothing, so
// the model can honestly report insufficient grounding instead of seeing
// an empty context.
const NoContextMarker = "No relevant documents found."

// DegradedAnswerText is what the user sees when any retrieval-path error
// was swallowed at this boundary.
const DegradedAnswerText = "I'm sorry, I encountered an error while processing your request."

// promptTemplate binds the model to the retrieved context. The four
// constraints here are load-bearing: only the supplied context may be
// used, insufficient context must be called out explicitly, numbers are
// preserved verbatim, and the retrieval machinery is never mentioned to
// the user.
const promptTemplate = `You are a helpful and precise knowledge assistant.

Your task is to answer questions using ONLY the provided context retrieved from the uploaded documents.

Rules:
- Use only the information present in the context to answer the question.
- Do NOT add outside knowledge, assumptions, or general facts not supported by the context.
- If the context does not contain enough information to answer fully, state clearly what is missing or say: "I cannot find the answer in the provided documents."
- Keep answers clear, factual, and concise.
- Include numerical data exactly as stated in the context.

Context:
%s

User Question:
%s

Answer:
`

// AnswerCache stores full answers keyed by question and topK. Optional.
type AnswerCache interface {
	GetAnswer(ctx context.Context, question string, topK int) (*rag.Answer, bool, error)
	SetAnswer(ctx context.Context, question string, topK int, answer *rag.Answer) error
}

// Pipeline answers a question from the indexed corpus. Provider errors are
// deliberately swallowed into a degraded Answer here: a failed query must
// never break the chat experience, unlike a failed ingest.
type Pipeline struct {
	embedder    rag.Embedder
	index       rag.VectorIndex
	generator   rag.Generator
	cache       AnswerCache
	namespace   string
	defaultTopK int
}

func NewPipeline(
	embedder rag.Embedder,
	index rag.VectorIndex,
	generator rag.Generator,
	cache AnswerCache,
	namespace string,
	defaultTopK int,
) *Pipeline {
	if defaultTopK <= 0 {
		defaultTopK = 4
	}
	return &Pipeline{
		embedder:    embedder,
		index:       index,
		generator:   generator,
		cache:       cache,
		namespace:   namespace,
		defaultTopK: defaultTopK,
	}
}

// Answer retrieves the topK most similar chunks and generates a grounded
// answer. A non-positive topK is coerced to the configured default. The
// only hard error is an empty question; everything downstream degrades
// gracefully.
func (p *Pipeline) Answer(ctx context.Context, question string, topK int) (*rag.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question must not be empty")
	}
	if topK <= 0 {
		topK = p.defaultTopK
	}

	if p.cache != nil {
		if cached, ok, err := p.cache.GetAnswer(ctx, question, topK); err == nil && ok {
			metrics.AnswerTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	start := time.Now()

	answer, err := p.answer(ctx, question, topK)
	if err != nil {
		// Hidden from the user, visible to operators.
		logger.Error("Answer degraded",
			zap.String("question", question),
			zap.Error(err),
		)
		metrics.AnswerTotal.WithLabelValues("degraded").Inc()
		return &rag.Answer{
			Text:     DegradedAnswerText,
			Sources:  []string{},
			Degraded: true,
		}, nil
	}

	metrics.AnswerTotal.WithLabelValues("ok").Inc()
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())

	if p.cache != nil {
		if err := p.cache.SetAnswer(ctx, question, topK, answer); err != nil {
			logger.Warn("Answer cache write failed", zap.Error(err))
		}
	}

	return answer, nil
}

func (p *Pipeline) answer(ctx context.Context, question string, topK int) (*rag.Answer, error) {
	vector, err := p.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := p.index.Query(ctx, vector, topK, p.namespace)
	if err != nil {
		return nil, err
	}

	metrics.RetrievalMatches.Observe(float64(len(matches)))

	prompt := fmt.Sprintf(promptTemplate, BuildContext(matches), question)

	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, &rag.GenerationError{Err: err}
	}

	scores := make([]float32, len(matches))
	for i, match := range matches {
		scores[i] = match.Score
	}

	logger.Info("Question answered",
		zap.Int("matches", len(matches)),
		zap.Int("topK", topK),
	)

	return &rag.Answer{
		Text:    strings.TrimSpace(text),
		Sources: collectSources(matches),
		Scores:  scores,
	}, nil
}

// BuildContext assembles the ordered, 1-indexed context block handed to
// the generator.
func BuildContext(matches []rag.Match) string {
	if len(matches) == 0 {
		return NoContextMarker
	}

	parts := make([]string, len(matches))
	for i, match := range matches {
		parts[i] = fmt.Sprintf("(%d) %s", i+1, match.Text)
	}
	return strings.Join(parts, "\n\n")
}

// collectSources deduplicates source labels preserving first-seen order.
func collectSources(matches []rag.Match) []string {
	seen := make(map[string]struct{}, len(matches))
	sources := make([]string, 0, len(matches))

	for _, match := range matches {
		source := match.Metadata[rag.MetaSource]
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}

	return sources
}
