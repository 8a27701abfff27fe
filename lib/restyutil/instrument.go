package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives the full text of an HTTP exchange.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type exchangeDumper struct {
	output InstrumentOutput
	tracer trace.Tracer
	nextId *atomic.Uint64
}

// InstrumentClient wraps every request in a span and, while debug logging is enabled, dumps
// each exchange to output. It does nothing when output is nil. A nil tracer means the global
// "resty" tracer.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if output == nil {
		return
	}
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	d := exchangeDumper{output: output, tracer: tracer, nextId: &atomic.Uint64{}}
	client.OnBeforeRequest(d.start)
	client.OnAfterResponse(d.finish)
	client.OnError(d.fail)
}

type exchangeIdKeyType int

var exchangeIdKey exchangeIdKeyType

func exchangeId(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(exchangeIdKey).(string)
	return id, ok
}

func (d exchangeDumper) start(_ *resty.Client, req *resty.Request) error {
	ctx, _ := d.tracer.Start(req.Context(), req.Method)
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		id := fmt.Sprintf("%06d-%s", d.nextId.Add(1), req.Method)
		ctx = context.WithValue(ctx, exchangeIdKey, id)
	}
	req.SetContext(ctx)
	return nil
}

func (d exchangeDumper) finish(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// RawRequest is only populated once the request went out
	span.SetName("http " + res.Request.Method)
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	id, ok := exchangeId(ctx)
	if !ok {
		return nil
	}
	d.output.Write(id, dumpExchange(res))
	slog.DebugContext(ctx, "exchange dumped", "id", id, "status", res.StatusCode())
	return nil
}

func (d exchangeDumper) fail(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetName("http " + req.Method)
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}
}
