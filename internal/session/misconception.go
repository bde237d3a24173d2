package session

import "time"

// Misconception aggregates sightings of one categorical error tag
// within a session.
type Misconception struct {
	Count            int       `json:"count"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	ConfidenceScores []float64 `json:"confidence_scores"`
}

// MisconceptionSummary is the per-tag digest included in judge requests.
type MisconceptionSummary struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// RecordMisconceptions folds a list of tags observed on one step into
// the session's misconception map. Confidence values are clamped to
// [0,1] before being stored.
func (s *Session) RecordMisconceptions(tags []string, confidence float64) {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	now := time.Now().UTC()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		m, ok := s.Misconceptions[tag]
		if !ok {
			m = &Misconception{FirstSeen: now}
			if s.Misconceptions == nil {
				s.Misconceptions = map[string]*Misconception{}
			}
			s.Misconceptions[tag] = m
		}
		m.Count++
		m.LastSeen = now
		m.ConfidenceScores = append(m.ConfidenceScores, confidence)
	}
}

// MisconceptionSummaries digests the misconception map for inclusion
// in future judge requests.
func (s *Session) MisconceptionSummaries() map[string]MisconceptionSummary {
	out := make(map[string]MisconceptionSummary, len(s.Misconceptions))
	for tag, m := range s.Misconceptions {
		sum := 0.0
		for _, c := range m.ConfidenceScores {
			sum += c
		}
		avg := 0.0
		if len(m.ConfidenceScores) > 0 {
			avg = sum / float64(len(m.ConfidenceScores))
		}
		out[tag] = MisconceptionSummary{Count: m.Count, AvgConfidence: avg}
	}
	return out
}
