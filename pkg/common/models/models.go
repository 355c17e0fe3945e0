package models

import "time"

// PatientFields is the raw output of the heuristic field extractor.
// All three values are strings as found in the document; age and gender
// are coerced at storage time and may be empty when unknown.
type PatientFields struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

// Entity is the canonical labeled-span record produced by the
// normalizer. Confidence scores and character offsets from the model
// are not retained downstream.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// PatientView is a stored patient with its full report/entity hierarchy,
// ordered by identifier at every level.
type PatientView struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	Age     *int         `json:"age"`
	Gender  string       `json:"gender"`
	Reports []ReportView `json:"reports"`
}

type ReportView struct {
	ID        int64    `json:"report_id"`
	Filename  string   `json:"filename"`
	Processed bool     `json:"processed"`
	Entities  []Entity `json:"entities"`
}

// PatientMatch is one search result. Entities carries every entity of
// the patient across all of its reports, for display.
type PatientMatch struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Age      *int     `json:"age"`
	Gender   string   `json:"gender"`
	Entities []Entity `json:"entities"`
}

// AnalysisResult is returned for one processed document.
type AnalysisResult struct {
	JobID     string        `json:"job_id"`
	PatientID int64         `json:"patient_id"`
	ReportID  int64         `json:"report_id"`
	Filename  string        `json:"filename"`
	Fields    PatientFields `json:"fields"`
	Entities  []Entity      `json:"entities"`
}

// Event is the envelope published to the event bus after a successful
// store.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
