package gokafka

import (
	"sort"
	"sync"
)

// TopicsMap tracks how many active subscribers are interested in each
// topic. A consumer group may be driven by more than one concurrent
// Consume call — each covering its own topic list — and several of those
// lists can overlap. TopicsMap lets the group join with the union of every
// topic anyone currently cares about, while only treating the subscription
// as having actually changed when a topic's reference count crosses to or
// from zero; an overlapping topic that a second caller is already also
// interested in doesn't force a redundant rejoin.
type TopicsMap struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewTopicsMap returns an empty TopicsMap.
func NewTopicsMap() *TopicsMap {
	return &TopicsMap{counts: make(map[string]int)}
}

// track adds one reference for each topic in topics and reports whether the
// subscribed-topic set changed, i.e. whether any of them went from zero
// references to one. Every track call must be paired with exactly one
// untrack call for the same topics.
func (tm *TopicsMap) track(topics []string) (changed bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, topic := range topics {
		if tm.counts[topic] == 0 {
			changed = true
		}
		tm.counts[topic]++
	}
	return changed
}

// untrack is track's inverse: it removes one reference from each topic in
// topics and reports whether any topic's reference count fell to zero,
// dropping it out of the subscribed-topic set. untrack on a topic with no
// outstanding references is a no-op for that topic.
func (tm *TopicsMap) untrack(topics []string) (changed bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, topic := range topics {
		if tm.counts[topic] <= 0 {
			continue
		}
		tm.counts[topic]--
		if tm.counts[topic] == 0 {
			delete(tm.counts, topic)
			changed = true
		}
	}
	return changed
}

// snapshot returns every topic with at least one outstanding reference,
// sorted so callers that feed it into wire-protocol metadata (JoinGroup
// subscription bytes) get deterministic encoding.
func (tm *TopicsMap) snapshot() []string {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	topics := make([]string, 0, len(tm.counts))
	for topic := range tm.counts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// refCount reports topic's current reference count.
func (tm *TopicsMap) refCount(topic string) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.counts[topic]
}
