// Package restyutil records the raw http exchanges of a resty client, so a page that stopped
// parsing can be inspected as the client saw it.
package restyutil

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one formatted exchange per response.
type Output interface {
	Write(name string, contents string)
}

// FilesystemOutput writes every exchange to its own file in a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput empties `dir` (creating it if needed) and writes exchanges into it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(name string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, name), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write exchange", "name", name, "err", err)
	}
}

// Record writes every response `client` receives to `output`. Form fields whose name contains
// "password" or "token" are redacted. A nil output makes this a no-op.
func Record(client *resty.Client, output Output) {
	if output == nil {
		return
	}
	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := atomic.AddUint64(&counter, 1)
		output.Write(exchangeName(n, res.Request), formatExchange(res))
		return nil
	})
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// exchangeName is ex. "0003-post-bookingscentre-activities.txt".
func exchangeName(n uint64, req *resty.Request) string {
	path := req.URL
	if parsed, err := url.Parse(req.URL); err == nil {
		path = parsed.Path
	}
	path = strings.Trim(unsafeNameChars.ReplaceAllString(path, "-"), "-")
	return strings.ToLower(fmt.Sprintf("%04d-%s-%s.txt", n, req.Method, path))
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func sensitive(field string) bool {
	field = strings.ToLower(field)
	return strings.Contains(field, "password") || strings.Contains(field, "token")
}

func formatRequestBody(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	// resty hands out a nil body for requests without a payload
	if body == nil {
		return ""
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}

	if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return string(raw)
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return string(raw)
	}
	for field := range form {
		if sensitive(field) {
			form.Set(field, "<redacted>")
		}
	}
	return form.Encode()
}

// 1: request method
// 2: request url
// 3: request headers
// 4: request body
// 5: response status
// 6: redirect location, if any
// 7: response headers
// 8: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

func formatExchange(res *resty.Response) string {
	var requestHeaders, requestBody string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
		requestBody = formatRequestBody(res.Request.RawRequest)
	}

	location := ""
	if res.RawResponse != nil {
		if redirected, err := res.RawResponse.Location(); err == nil {
			location = "-> " + redirected.String()
		}
	}

	return fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, res.Request.URL,
		requestHeaders,
		requestBody,
		res.Status(), location,
		formatHeaders(res.Header()),
		res.String(),
	)
}
