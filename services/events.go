package services

// EventPublisher receives domain events for the staff live feed.
type EventPublisher interface {
	Publish(event string, data interface{})
}

type discardEvents struct{}

func (discardEvents) Publish(string, interface{}) {}

func publisherOrDiscard(p EventPublisher) EventPublisher {
	if p == nil {
		return discardEvents{}
	}
	return p
}
