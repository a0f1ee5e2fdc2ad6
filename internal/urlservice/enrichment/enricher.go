// Package enrichment derives traffic source and device class for click events.
package enrichment

import "go-shorturl/internal/urlservice/domain"

// Enricher fills the derived fields of a click event.
type Enricher struct {
	referer *RefererClassifier
	device  *DeviceDetector
}

func NewEnricher() *Enricher {
	return &Enricher{
		referer: NewRefererClassifier(),
		device:  NewDeviceDetector(),
	}
}

// Enrich sets Source from the event referrer and Device from userAgent.
func (e *Enricher) Enrich(event domain.ClickEvent, userAgent string) domain.ClickEvent {
	event.Source = e.referer.Classify(event.Referrer)
	event.Device = e.device.Detect(userAgent)
	return event
}
