package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"studyprep/internal/models"
)

var (
	// ErrGenerationUnavailable is returned when the Groq integration is not configured.
	ErrGenerationUnavailable = errors.New("groq integration is not configured")
	// ErrNoQuestions is returned when no chunk yielded any usable records.
	ErrNoQuestions = errors.New("no questions could be generated")
)

// answerPlaceholder replaces blank or "not provided" answers from the model.
const answerPlaceholder = "Answer will be generated based on document content."

const requestTimeout = 60 * time.Second

// PipelineMetrics receives generation pipeline counters. Implementations
// must be safe for concurrent use; a nil value disables collection.
type PipelineMetrics interface {
	RecordChunkProcessed()
	RecordChunkFailure()
	RecordCompletionLatency(d time.Duration)
	RecordQuestionsGenerated(count int)
}

// GenerationService turns extracted document text into exam-prep QA records
// via the Groq chat-completion API.
type GenerationService struct {
	client  *openai.Client
	model   string
	metrics PipelineMetrics
}

// NewGenerationService builds the Groq client. An empty API key leaves the
// service disabled; GenerateQuestions then fails with ErrGenerationUnavailable.
func NewGenerationService(apiKey, model, endpoint string, m PipelineMetrics) *GenerationService {
	if apiKey == "" {
		return &GenerationService{model: model, metrics: m}
	}
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return &GenerationService{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		metrics: m,
	}
}

func (s *GenerationService) disabled() bool {
	return s.client == nil || s.model == ""
}

var (
	extraNewlines = regexp.MustCompile(`\n{3,}`)
	extraSpaces   = regexp.MustCompile(`  +`)
)

// cleanText collapses runs of blank lines and spaces before chunking.
func cleanText(text string) string {
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	text = extraSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

const systemPrompt = `You are an expert at extracting COMPLETE educational questions from documents and GENERATING comprehensive answers. CRITICAL: (1) Always include the FULL question text with ALL multiple choice options (A, B, C, D, etc.), complete sentences, and all parts of the question. Never truncate or cut off questions. (2) ALWAYS generate detailed answers based on the document content - never return "Answer not provided". For multiple choice questions, provide the correct option and explanation. For open-ended questions, provide comprehensive answers based on the document. Return only valid JSON arrays.`

const userPromptTemplate = `Extract important questions from this document content and GENERATE comprehensive answers based on the document.

CRITICAL INSTRUCTIONS - READ CAREFULLY:
1. Extract COMPLETE questions with ALL parts:
   - The full question text/stem
   - ALL multiple choice options (A., B., C., D., etc.) if the question has them
   - If a question says "Which of the following" or "Select the option", you MUST include all the A, B, C, D options that follow
   - Complete sentences even if they span multiple lines
   - All question parts and sub-questions

2. For multiple choice questions, the question field should contain the stem followed by every lettered option on its own line.

3. NEVER truncate or cut off questions. If a question has options, include ALL of them.

4. GENERATE ANSWERS: For each question, you MUST generate a comprehensive answer based on the document content:
   - For multiple choice questions: Provide the correct option letter (A, B, C, D, etc.) AND a brief explanation of why it's correct
   - For open-ended questions: Generate a detailed answer based on the information in the document
   - For fill-in-the-blank questions: Provide the missing word/phrase and explain it
   - Answers should be accurate, detailed, and based solely on the document content provided
   - If the document doesn't contain enough information, infer a reasonable answer based on the context

Return a JSON array of objects with these fields:
- question: string (COMPLETE question with ALL options if present - this is critical!)
- answer: string (GENERATED comprehensive answer based on document content - NEVER use "Answer not provided")
- importance: "high" | "medium" | "low"
- topic: string
- difficulty: "easy" | "medium" | "hard"
- confidence: number (0-1)

Return ONLY valid JSON array, no markdown, no explanations.

Document content:
%s`

// GenerateQuestions runs the full chunking and generation pipeline over the
// extracted text. Chunks are processed strictly in sequence; per-chunk
// failures are logged and skipped, and an error is reported only when no
// chunk produced a record.
func (s *GenerationService) GenerateQuestions(ctx context.Context, text, filename string) ([]models.Question, error) {
	if s.disabled() {
		return nil, ErrGenerationUnavailable
	}

	chunks := splitChunks(cleanText(text))
	log.Printf("generating questions for %s: %d chunk(s)", filename, len(chunks))

	var all []models.Question
	for i, chunk := range chunks {
		questions, err := s.generateFromChunk(ctx, chunk)
		if err != nil {
			log.Printf("chunk %d/%d of %s failed: %v", i+1, len(chunks), filename, err)
			if s.metrics != nil {
				s.metrics.RecordChunkFailure()
			}
			continue
		}
		all = append(all, questions...)
		if s.metrics != nil {
			s.metrics.RecordChunkProcessed()
		}
	}

	if len(all) == 0 {
		return nil, ErrNoQuestions
	}
	if s.metrics != nil {
		s.metrics.RecordQuestionsGenerated(len(all))
	}
	return all, nil
}

func (s *GenerationService) generateFromChunk(ctx context.Context, chunk string) ([]models.Question, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(userPromptTemplate, chunk),
			},
		},
		Temperature: 0.3,
		MaxTokens:   8000,
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordCompletionLatency(time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("request groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("groq returned no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		log.Printf("groq response truncated at max_tokens; some questions may be incomplete")
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, errors.New("groq returned empty content")
	}

	raw, recovered, err := decodeQuestionArray(choice.Message.Content)
	if err != nil {
		return nil, err
	}
	if recovered {
		log.Printf("groq response was repaired from a truncated JSON array")
	}

	var questions []models.Question
	for _, record := range raw {
		q, ok := normalizeQuestion(record)
		if !ok {
			continue
		}
		for _, flag := range q.Flags {
			log.Printf("question may be incomplete: %s (%.60s...)", flag, q.Question)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// decodeQuestionArray extracts the JSON array from a model response. It
// first strips markdown code fences, then slices from the first '[' to the
// last ']'. When the closing bracket is missing (a truncated response) it
// falls back to the last complete object and synthesizes the ']'; the
// recovered flag reports that the result is a best-effort repair rather
// than a strict parse.
func decodeQuestionArray(content string) ([]map[string]any, bool, error) {
	content = stripCodeFences(content)

	start := strings.Index(content, "[")
	if start == -1 {
		return nil, false, errors.New("no JSON array in response")
	}

	recovered := false
	if end := strings.LastIndex(content, "]"); end > start {
		content = content[start : end+1]
	} else {
		lastBrace := strings.LastIndex(content, "}")
		if lastBrace <= start {
			return nil, false, errors.New("JSON response is too incomplete to parse")
		}
		content = content[start:lastBrace+1] + "]"
		recovered = true
	}

	var records []map[string]any
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		return nil, false, fmt.Errorf("parse question json: %w", err)
	}
	return records, recovered, nil
}

// stripCodeFences removes a surrounding markdown code block if present.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	start := 3
	if idx := strings.Index(content[start:], "\n"); idx != -1 {
		start += idx + 1
	}
	if end := strings.Index(content[start:], "```"); end != -1 {
		return strings.TrimSpace(content[start : start+end])
	}
	return strings.TrimSpace(content[start:])
}

// normalizeQuestion coerces one raw record into a Question. Records whose
// question text is 10 characters or shorter are dropped.
func normalizeQuestion(record map[string]any) (models.Question, bool) {
	question := strings.TrimSpace(stringField(record, "question"))
	answer := strings.TrimSpace(stringField(record, "answer", "solution"))

	lower := strings.ToLower(answer)
	if answer == "" || strings.Contains(lower, "not provided") || strings.Contains(lower, "answer not") {
		answer = answerPlaceholder
	}

	q := models.Question{
		Question:   question,
		Answer:     answer,
		Importance: strings.ToLower(defaultString(stringField(record, "importance"), "medium")),
		Topic:      defaultString(stringField(record, "topic"), "General"),
		Difficulty: strings.ToLower(defaultString(stringField(record, "difficulty"), "medium")),
		Confidence: floatField(record, 0.8, "confidence"),
	}
	if len(q.Question) <= 10 {
		return models.Question{}, false
	}
	q.Flags = incompletenessFlags(q.Question)
	return q, true
}

// stringField looks the keys up case-insensitively and stringifies the
// first match.
func stringField(record map[string]any, keys ...string) string {
	for _, want := range keys {
		for k, v := range record {
			if !strings.EqualFold(k, want) {
				continue
			}
			switch val := v.(type) {
			case string:
				return val
			case float64:
				return strconv.FormatFloat(val, 'f', -1, 64)
			case bool:
				return strconv.FormatBool(val)
			case nil:
			default:
				if b, err := json.Marshal(val); err == nil {
					return string(b)
				}
			}
		}
	}
	return ""
}

func floatField(record map[string]any, fallback float64, keys ...string) float64 {
	for _, want := range keys {
		for k, v := range record {
			if !strings.EqualFold(k, want) {
				continue
			}
			switch val := v.(type) {
			case float64:
				return val
			case string:
				if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
					return f
				}
			}
		}
	}
	return fallback
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

var trailingStopWords = []string{
	"because", "when", "where", "which", "what", "how", "why",
	"the", "a ", "an ", "and ", "or ", "but ",
}

var optionMarker = regexp.MustCompile(`\b[A-Z]\.\s`)

// incompletenessFlags applies best-effort heuristics for questions the
// model may have cut off. Flags are diagnostics only; flagged questions are
// still returned.
func incompletenessFlags(question string) []string {
	var flags []string

	trimmed := strings.TrimRight(question, " \t")
	if len(question) > 50 && !strings.ContainsAny(question[len(question)-1:], ".?!:\n") && !strings.HasSuffix(question, "...") {
		tail := question
		if len(tail) > 50 {
			tail = tail[len(tail)-50:]
		}
		tail = strings.ToLower(tail)
		for _, word := range trailingStopWords {
			if strings.Contains(tail, word) {
				flags = append(flags, "ends with incomplete phrase")
				break
			}
		}
	}

	lower := strings.ToLower(question)
	if strings.Contains(lower, "option") || strings.Contains(lower, "choose") || strings.Contains(lower, "select") {
		if !optionMarker.MatchString(question) && len(question) < 200 {
			flags = append(flags, "mentions options but options not included")
		}
	}

	if strings.HasSuffix(trimmed, "because") {
		flags = append(flags, "ends with 'because' but no blank or continuation")
	}

	return flags
}
