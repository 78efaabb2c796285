package services

import (
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/nimrodfisher/insight-engine/pkg/models"
	"github.com/nimrodfisher/insight-engine/pkg/rules"
)

// minMatchTokenLength filters question tokens before description and
// business-question matching, so that articles and other short filler
// words cannot match everything.
const minMatchTokenLength = 4

// SchemaContext maps free-text analytical questions to the tables, metrics
// and query patterns documented for the schema. Matching is synonym and
// substring based: a bias for query planning, not an understanding of the
// question. Read-only after construction.
type SchemaContext struct {
	doc    rules.SchemaDoc
	logger *zap.Logger
}

// NewSchemaContext compiles a schema document into a matcher.
func NewSchemaContext(doc rules.SchemaDoc, logger *zap.Logger) *SchemaContext {
	return &SchemaContext{
		doc:    doc,
		logger: logger.Named("schema-context"),
	}
}

// MatchQuestion returns the tables, metrics and query patterns the
// question appears to reference. An empty document yields an empty
// mapping.
func (c *SchemaContext) MatchQuestion(question string) *models.QuestionMapping {
	mapping := &models.QuestionMapping{
		Tables:  []models.TableMatch{},
		Metrics: []models.MetricMatch{},
	}

	questionLower := strings.ToLower(question)
	tokens := questionTokens(questionLower)
	singulars := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		singulars[inflection.Singular(tok)] = struct{}{}
	}

	for _, model := range c.doc.Models {
		name := strings.ToLower(model.Name)
		_, nameAsToken := singulars[inflection.Singular(name)]
		switch {
		case strings.Contains(questionLower, name) || nameAsToken:
			mapping.Tables = append(mapping.Tables, models.TableMatch{
				Name:        model.Name,
				Confidence:  "high",
				Synonyms:    model.Synonyms,
				Description: model.Description,
			})
		case anySynonymIn(questionLower, model.Synonyms) || descriptionMentions(model.Description, tokens):
			mapping.Tables = append(mapping.Tables, models.TableMatch{
				Name:        model.Name,
				Confidence:  "medium",
				Synonyms:    model.Synonyms,
				Description: model.Description,
			})
		}
	}

	for _, metric := range c.doc.CommonMetrics {
		if strings.Contains(questionLower, strings.ToLower(metric.Name)) || anySynonymIn(questionLower, metric.Synonyms) {
			mapping.Metrics = append(mapping.Metrics, models.MetricMatch{
				Name:        metric.Name,
				Calculation: metric.Calculation,
				Synonyms:    metric.Synonyms,
			})
		}
	}

	leading := tokens
	if len(leading) > 5 {
		leading = leading[:5]
	}
	for _, doc := range c.doc.CommonBusinessQuestions {
		if anySynonymIn(questionLower, doc.Synonyms) || descriptionMentions(doc.Question, leading) {
			mapping.QueryPattern = doc.QueryPattern
			mapping.MatchedQuestion = doc.Question
		}
	}

	c.logger.Debug("Matched question against schema context",
		zap.Int("tables", len(mapping.Tables)),
		zap.Int("metrics", len(mapping.Metrics)),
		zap.Bool("pattern_matched", mapping.QueryPattern != ""))
	return mapping
}

// questionTokens splits a lowercased question on anything that is not a
// letter, digit or underscore, so "users, by plan?" tokenizes cleanly.
func questionTokens(questionLower string) []string {
	return strings.FieldsFunc(questionLower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return false
		}
		return true
	})
}

func anySynonymIn(questionLower string, synonyms []string) bool {
	for _, syn := range synonyms {
		if syn != "" && strings.Contains(questionLower, strings.ToLower(syn)) {
			return true
		}
	}
	return false
}

// descriptionMentions reports whether any sufficiently long question token
// appears in the text. Short tokens are ignored to keep filler words from
// matching every description.
func descriptionMentions(text string, tokens []string) bool {
	textLower := strings.ToLower(text)
	for _, tok := range tokens {
		if len(tok) >= minMatchTokenLength && strings.Contains(textLower, tok) {
			return true
		}
	}
	return false
}
