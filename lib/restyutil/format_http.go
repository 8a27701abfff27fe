package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

// writeHeaders writes one "Key: Value" line per header value, keys sorted.
func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	// bodiless requests hand back a nil reader
	if body == nil {
		return ""
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	return string(contents)
}

// dumpExchange renders a finished request and its response as plain text.
func dumpExchange(res *resty.Response) string {
	var out strings.Builder
	raw := res.Request.RawRequest

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	if raw != nil {
		writeHeaders(&out, raw.Header)
		fmt.Fprintf(&out, "\n%s\n\n", requestBody(raw))
	}

	finalUrl := res.Request.URL
	if res.RawResponse != nil {
		if location, err := res.RawResponse.Location(); err == nil {
			finalUrl = location.String()
		}
	}

	out.WriteString("---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%d %s (%s)\n\n", res.StatusCode(), finalUrl, res.Time())
	writeHeaders(&out, res.Header())
	fmt.Fprintf(&out, "\n%s", res.String())
	return out.String()
}
