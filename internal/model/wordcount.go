package model

// WordCount is a single ranked term produced by text analysis.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}
