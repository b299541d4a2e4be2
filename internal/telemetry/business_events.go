package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func tracer() trace.Tracer {
	return otel.Tracer("quill")
}

// TraceSidebarBuild creates a span for a sidebar bundle rebuild
func TraceSidebarBuild(ctx context.Context, linkType string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "sidebar.build",
		trace.WithAttributes(attribute.String("sidebar.linktype", linkType)),
	)
}

// TraceLocationIngest creates a span for storing a location ping
func TraceLocationIngest(ctx context.Context, tid string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "owntracks.ingest",
		trace.WithAttributes(attribute.String("owntracks.tid", tid)),
	)
}

// TraceTrackQuery creates a span for building a day's tracks
func TraceTrackQuery(ctx context.Context, date string, convert bool) (context.Context, trace.Span) {
	return tracer().Start(ctx, "owntracks.tracks",
		trace.WithAttributes(
			attribute.String("owntracks.date", date),
			attribute.Bool("owntracks.convert", convert),
		),
	)
}

// TraceAccountEvent creates a span for an account operation such as
// register, login or password reset
func TraceAccountEvent(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "account."+operation,
		trace.WithAttributes(attribute.String("account.operation", operation)),
	)
}
