// Package hub fans telemetry out to websocket viewers using the
// channel-based broadcast pattern: one goroutine owns the client set, and
// each client has its own buffered send queue and write pump.
package hub

import "strings"

// Message is one broadcast frame. Topic is the bus message kind
// ("EstimatedState") and is matched against each viewer's filter.
type Message struct {
	Topic string
	Data  []byte
}

// NewMessage creates a message from pre-encoded JSON.
func NewMessage(topic string, data []byte) Message {
	return Message{Topic: topic, Data: data}
}

// ParseTopics splits a comma-separated filter ("EstimatedState,Voltage").
// An empty filter returns nil, meaning every topic.
func ParseTopics(s string) map[string]bool {
	var topics map[string]bool
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if topics == nil {
			topics = make(map[string]bool)
		}
		topics[t] = true
	}
	return topics
}
