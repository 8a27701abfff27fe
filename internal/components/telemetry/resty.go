package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request   = "resty.request"
	report_resty_in_flight = "resty.in_flight"
)

type restyHooks struct {
	tel      API
	nextId   *atomic.Uint64
	inFlight *atomic.Int64
}

type restyReqKeyType int

var restyReqKey restyReqKeyType

type restyReq struct {
	id uint64
	// only differences of this are used so it does not go through chrono
	start time.Time
}

// InstrumentResty reports every request the client makes along with how many are in flight.
func InstrumentResty(client *resty.Client, tel API) {
	h := restyHooks{
		tel:      tel,
		nextId:   &atomic.Uint64{},
		inFlight: &atomic.Int64{},
	}
	client.OnBeforeRequest(h.before)
	client.OnAfterResponse(h.after)
	client.OnError(h.failed)
}

func (h restyHooks) before(_ *resty.Client, req *resty.Request) error {
	rr := restyReq{id: h.nextId.Add(1), start: time.Now()}
	req.SetContext(context.WithValue(req.Context(), restyReqKey, rr))

	h.tel.ReportCount(report_resty_in_flight, h.inFlight.Add(1))
	h.tel.ReportDebug(
		"request sent",
		KV{Key: "request", Value: rr.id},
		KV{Key: "method", Value: req.Method},
		KV{Key: "url", Value: req.URL},
	)
	return nil
}

// done releases the in flight slot of req and returns how long it took.
func (h restyHooks) done(req *resty.Request) (restyReq, time.Duration, bool) {
	rr, ok := req.Context().Value(restyReqKey).(restyReq)
	if !ok {
		return restyReq{}, 0, false
	}
	h.tel.ReportCount(report_resty_in_flight, h.inFlight.Add(-1))
	return rr, time.Since(rr.start), true
}

func (h restyHooks) after(_ *resty.Client, res *resty.Response) error {
	rr, took, ok := h.done(res.Request)
	if !ok {
		return nil
	}
	h.tel.ReportDebug(
		"response received",
		KV{Key: "request", Value: rr.id},
		KV{Key: "status", Value: res.StatusCode()},
		KV{Key: "took", Value: took},
	)
	return nil
}

func (h restyHooks) failed(req *resty.Request, err error) {
	_, took, ok := h.done(req)
	if !ok {
		return
	}
	h.tel.ReportWarning(
		report_resty_request,
		err,
		KV{Key: "method", Value: req.Method},
		KV{Key: "url", Value: req.URL},
		KV{Key: "took", Value: took},
	)
}
