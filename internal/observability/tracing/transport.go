package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type transport struct {
	base   http.RoundTripper
	tracer trace.Tracer
	peer   string
}

// NewTransport wraps base with a client span per request and propagates the
// trace context downstream. peer names the remote service on the span.
func NewTransport(base http.RoundTripper, peer string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{
		base:   base,
		tracer: otel.Tracer("talentloop/http-client"),
		peer:   peer,
	}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "HTTP "+req.Method+" "+t.peer,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	// Path segments carry customer ids; only the host is recorded.
	span.SetAttributes(SafeAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("net.peer.name", req.URL.Hostname()),
		attribute.String("peer.service", t.peer),
	)...)

	outbound := req.Clone(ctx)
	InjectHeaders(ctx, outbound.Header)

	resp, err := t.base.RoundTrip(outbound)
	if err != nil {
		span.RecordError(SafeError(err))
		span.SetStatus(codes.Error, "transport error")
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "upstream error")
	}
	return resp, nil
}
