package models

// TableMatch is a schema table that appears relevant to a business question.
type TableMatch struct {
	Name        string   `json:"name"`
	Confidence  string   `json:"confidence"`
	Synonyms    []string `json:"synonyms,omitempty"`
	Description string   `json:"description,omitempty"`
}

// MetricMatch is a documented metric referenced by a business question.
type MetricMatch struct {
	Name        string   `json:"name"`
	Calculation string   `json:"calculation,omitempty"`
	Synonyms    []string `json:"synonyms,omitempty"`
}

// QuestionMapping links a free-form analytical question to the tables,
// metrics and query patterns documented for the schema.
type QuestionMapping struct {
	Tables          []TableMatch  `json:"relevant_tables"`
	Metrics         []MetricMatch `json:"relevant_metrics"`
	QueryPattern    string        `json:"suggested_query_pattern,omitempty"`
	MatchedQuestion string        `json:"matched_question,omitempty"`
}
