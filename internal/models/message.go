package models

// ParsedMessage is one inbound message reduced to the fields the
// authorization engine needs. It only lives for one DATA event.
type ParsedMessage struct {
	ID      string // session-local, for log correlation
	From    string
	To      string
	Subject string
	Text    string

	// derived from To
	RecipientDomain string
	RecipientTag    string
	Tagged          bool
}

// OutboundMessage is a message handed to the sending collaborator.
// Delivery is a single best-effort attempt; there is no queue.
type OutboundMessage struct {
	From    string
	To      string
	Subject string
	Text    string
}
