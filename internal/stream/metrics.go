package stream

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	streamMetricsOnce   sync.Once
	eventsPublished     otelmetric.Int64Counter
	subscriberDrops     otelmetric.Int64Counter
	searchQueries       otelmetric.Int64Counter
	searchQueryFailures otelmetric.Int64Counter
)

func initStreamMetrics() {
	meter := otel.Meter("ai-chatbot/internal/stream")
	var err error
	eventsPublished, err = meter.Int64Counter(
		"chat_stream_events_published_total",
		otelmetric.WithDescription("Events appended to conversation channels"),
	)
	if err != nil {
		log.Printf("stream metrics init: chat_stream_events_published_total: %v", err)
	}
	subscriberDrops, err = meter.Int64Counter(
		"chat_stream_subscriber_drops_total",
		otelmetric.WithDescription("Events dropped for lagging subscribers"),
	)
	if err != nil {
		log.Printf("stream metrics init: chat_stream_subscriber_drops_total: %v", err)
	}
	searchQueries, err = meter.Int64Counter(
		"web_search_queries_total",
		otelmetric.WithDescription("Sub-queries issued against the search provider"),
	)
	if err != nil {
		log.Printf("stream metrics init: web_search_queries_total: %v", err)
	}
	searchQueryFailures, err = meter.Int64Counter(
		"web_search_query_failures_total",
		otelmetric.WithDescription("Sub-queries absorbed as empty results after a provider failure"),
	)
	if err != nil {
		log.Printf("stream metrics init: web_search_query_failures_total: %v", err)
	}
}

func recordEventPublished(ctx context.Context, eventType string) {
	streamMetricsOnce.Do(initStreamMetrics)
	if eventsPublished != nil {
		eventsPublished.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("event_type", eventType)))
	}
}

func recordSubscriberDrop(ctx context.Context) {
	streamMetricsOnce.Do(initStreamMetrics)
	if subscriberDrops != nil {
		subscriberDrops.Add(ctx, 1)
	}
}

// RecordSearchQuery counts one issued sub-query and whether its failure was
// absorbed into an empty result.
func RecordSearchQuery(ctx context.Context, failed bool) {
	streamMetricsOnce.Do(initStreamMetrics)
	if searchQueries != nil {
		searchQueries.Add(ctx, 1)
	}
	if failed && searchQueryFailures != nil {
		searchQueryFailures.Add(ctx, 1)
	}
}
