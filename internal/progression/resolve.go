package progression

import (
	"sort"
	"strings"

	"github.com/abhisek/tutord/internal/catalog"
)

// Method tags how a topic reference was resolved to a concrete item,
// so callers and logs can tell an exact catalog hit from a legacy slug
// mapping.
type Method string

const (
	ResolvedByCatalog Method = "catalog"
	ResolvedByPattern Method = "pattern"
	Unresolved        Method = "unresolved"
)

// Resolution is the outcome of resolving a learner-supplied reference.
type Resolution struct {
	Item   *catalog.Item
	Method Method
	// AvailableTopics is populated on an unresolved reference so the
	// caller can tell the learner what exists.
	AvailableTopics []string
}

// legacySlugs maps topic slugs from older clients to the subtopic label
// their first question lives under.
var legacySlugs = map[string]string{
	"introduction-to-algebra":      "1.1 Introduction to Algebra",
	"substitution-and-evaluation":  "1.2 Substitution and Evaluation",
	"simplifying-expressions":      "1.3 Simplifying Expressions",
	"expanding-brackets":           "1.4 Expanding Brackets",
	"solving-linear-equations":     "1.5 Solving Linear Equations",
	"word-problems-with-equations": "1.6 Word Problems with Equations",
}

// Resolve turns a learner-supplied reference into a concrete item. The
// chain is: exact item id in the catalog, then legacy slug or subtopic
// reference mapped to the first uncompleted question of that subtopic.
// completedOrder is the completion history, oldest first. An unresolved
// reference carries the available topic list.
func (e *Engine) Resolve(ref string, completedOrder []string) Resolution {
	ref = strings.TrimSpace(ref)

	if it, ok := e.catalog.GetItem(strings.ToUpper(ref)); ok {
		return Resolution{Item: it, Method: ResolvedByCatalog}
	}

	if it := e.resolveSlug(ref, completedOrder); it != nil {
		return Resolution{Item: it, Method: ResolvedByPattern}
	}

	return Resolution{Method: Unresolved, AvailableTopics: e.AvailableTopics()}
}

func (e *Engine) resolveSlug(ref string, completedOrder []string) *catalog.Item {
	slug := strings.ToLower(strings.ReplaceAll(ref, " ", "-"))

	subtopic, ok := legacySlugs[slug]
	if !ok {
		// Treat the reference itself as a subtopic name or topic.
		subtopic = ref
	}

	for _, topic := range e.AvailableTopics() {
		scope := FilterBySubtopic(e.DiscoverItems(topic), subtopic)
		if len(scope) == 0 && strings.EqualFold(topic, ref) {
			scope = e.DiscoverItems(topic)
		}
		if next := RecommendNext(scope, completedOrder); next != nil {
			return next
		}
		if len(scope) > 0 {
			// Subtopic exists but is fully completed; restart it.
			return scope[0]
		}
	}
	return nil
}

// AvailableTopics lists the distinct topics present in the catalog,
// sorted for stable output.
func (e *Engine) AvailableTopics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, it := range e.catalog.AllItems() {
		t := strings.ToLower(strings.TrimSpace(it.Topic))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
