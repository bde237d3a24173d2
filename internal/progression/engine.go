// Package progression orders catalog items into a learning path and
// recommends what a learner should attempt next. Ordering is positional
// within a topic: subtopic number, then question number, then
// difficulty, with the item id as a stable tie-break.
package progression

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abhisek/tutord/internal/catalog"
)

// Engine computes progressions over a catalog snapshot.
type Engine struct {
	catalog *catalog.Catalog
}

// New creates an Engine over the given catalog.
func New(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

var (
	subtopicNumRe = regexp.MustCompile(`^(\d+)\.(\d+)`)
	questionNumRe = regexp.MustCompile(`-Q(\d+)$`)
)

// subtopicOrder extracts an order key from labels like
// "1.2 Substitution": major*10 + minor. Labels without a leading
// number sort first.
func subtopicOrder(label string) int {
	m := subtopicNumRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	return major*10 + minor
}

// questionNumber extracts N from ids ending in -Q<N>. Ids without the
// suffix sort first within their subtopic.
func questionNumber(id string) int {
	m := questionNumRe.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// DiscoverItems collects every item belonging to a topic, matched
// either by the id prefix "TOPIC-" or by the topic field, both
// case-insensitive, and returns them in progression order.
func (e *Engine) DiscoverItems(topic string) []*catalog.Item {
	topicLower := strings.ToLower(strings.TrimSpace(topic))
	prefix := strings.ToUpper(topicLower) + "-"

	var items []*catalog.Item
	for _, it := range e.catalog.AllItems() {
		if strings.HasPrefix(strings.ToUpper(it.ID), prefix) ||
			strings.EqualFold(it.Topic, topicLower) {
			items = append(items, it)
		}
	}
	sortProgression(items)
	return items
}

func sortProgression(items []*catalog.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if sa, sb := subtopicOrder(a.Subtopic), subtopicOrder(b.Subtopic); sa != sb {
			return sa < sb
		}
		if qa, qb := questionNumber(a.ID), questionNumber(b.ID); qa != qb {
			return qa < qb
		}
		if da, db := a.Complexity.Difficulty(), b.Complexity.Difficulty(); da != db {
			return da < db
		}
		return a.ID < b.ID
	})
}

// FilterBySubtopic narrows a progression to one subtopic, matching the
// subtopic field case-insensitively, then falling back to an
// id-contains check on the subtopic's name tokens. A filter that
// matches nothing yields an empty progression.
func FilterBySubtopic(items []*catalog.Item, subtopic string) []*catalog.Item {
	want := strings.TrimSpace(subtopic)
	if want == "" {
		return items
	}

	var out []*catalog.Item
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Subtopic), want) {
			out = append(out, it)
		}
	}
	if len(out) > 0 {
		return out
	}

	token := subtopicIDToken(want)
	if token == "" {
		return nil
	}
	for _, it := range items {
		if strings.Contains(strings.ToUpper(it.ID), token) {
			out = append(out, it)
		}
	}
	return out
}

// subtopicIDToken turns "1.2 Substitution and Evaluation" into
// "SUBSTITUTION-AND-EVALUATION", the form item ids embed.
func subtopicIDToken(label string) string {
	label = subtopicNumRe.ReplaceAllString(strings.TrimSpace(label), "")
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.Join(fields, "-"))
}

// RecommendNext picks the item a learner should do next within an
// ordered progression. completedOrder is the learner's completion
// history, oldest first. With nothing completed in scope it recommends
// the first item. Otherwise it positions on the most recently completed
// in-scope item and scans forward for the first uncompleted one.
// Completions outside the progression do not advance the position. A
// nil return means everything from that position onward is done.
func RecommendNext(items []*catalog.Item, completedOrder []string) *catalog.Item {
	if len(items) == 0 {
		return nil
	}

	pos := make(map[string]int, len(items))
	for i, it := range items {
		pos[it.ID] = i
	}
	done := make(map[string]bool, len(completedOrder))
	for _, id := range completedOrder {
		done[id] = true
	}

	recent := -1
	for i := len(completedOrder) - 1; i >= 0; i-- {
		if p, ok := pos[completedOrder[i]]; ok {
			recent = p
			break
		}
	}
	if recent == -1 {
		return items[0]
	}

	for i := recent + 1; i < len(items); i++ {
		if !done[items[i].ID] {
			return items[i]
		}
	}
	return nil
}

// Status summarizes a learner's standing within a topic progression.
type Status struct {
	Topic          string        `json:"topic"`
	TotalItems     int           `json:"total_items"`
	CompletedItems int           `json:"completed_items"`
	PercentDone    float64       `json:"percent_done"`
	NextItem       *catalog.Item `json:"-"`
	NextItemID     string        `json:"next_item_id,omitempty"`
	ItemIDs        []string      `json:"item_ids"`
}

// StatusFor computes the progression status for one learner and topic.
// completedOrder is the completion history, oldest first; only
// completions that belong to the progression count toward the
// percentage.
func (e *Engine) StatusFor(topic string, completedOrder []string) Status {
	items := e.DiscoverItems(topic)

	done := make(map[string]bool, len(completedOrder))
	for _, id := range completedOrder {
		done[id] = true
	}

	st := Status{Topic: topic, TotalItems: len(items)}
	for _, it := range items {
		st.ItemIDs = append(st.ItemIDs, it.ID)
		if done[it.ID] {
			st.CompletedItems++
		}
	}
	if st.TotalItems > 0 {
		st.PercentDone = float64(st.CompletedItems) / float64(st.TotalItems) * 100
	}
	if next := RecommendNext(items, completedOrder); next != nil {
		st.NextItem = next
		st.NextItemID = next.ID
	}
	return st
}
