package metrics

import "time"

// Lead outcomes
const (
	OutcomeDelivered = "delivered"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeLimited   = "rate_limited"
)

// LeadReceived records a lead submission and how it ended.
func LeadReceived(source, outcome string) {
	LeadsReceived.WithLabelValues(source, outcome).Inc()
}

// SinkDelivered records one sink delivery attempt.
func SinkDelivered(sink string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SinkDeliveries.WithLabelValues(sink, outcome).Inc()
	SinkDeliveryDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// ListingFeedFellBack records the listing source serving static links.
func ListingFeedFellBack() {
	ListingFeedFallbacks.Inc()
}
