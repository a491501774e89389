package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"sportscentre/internal/components/telemetry"
	"sportscentre/pkg/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type transportOptions struct {
	baseUrl   string
	timeout   time.Duration
	rateLimit rate.Limit
	bypass    bool
	tel       telemetry.API
	exchanges restyutil.Output
}

// transport is the pair of http clients a session talks to the portal with. Both share one
// cookie jar and one rate limiter, `follow` follows redirects within the portal's host while
// `probe` stops at the first response so the caller can inspect redirects itself.
type transport struct {
	follow *resty.Client
	probe  *resty.Client
}

func newTransport(opts transportOptions) (transport, error) {
	parsedBaseUrl, err := url.Parse(opts.baseUrl)
	if err != nil {
		return transport{}, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return transport{}, err
	}

	// burst >= 2 lets the follow and probe clients each have one request in flight
	rateLimiter := rate.NewLimiter(opts.rateLimit, 2)

	configure := func(client *resty.Client) {
		client.SetBaseURL(opts.baseUrl)
		client.SetCookieJar(jar)
		if opts.bypass {
			client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		}
		client.SetHeader("user-agent", userAgent)
		client.SetTimeout(opts.timeout)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
		telemetry.InstrumentResty(client, opts.tel)
		restyutil.Record(client, opts.exchanges)
	}

	follow := resty.New()
	configure(follow)
	follow.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()),
	)

	probe := resty.New()
	configure(probe)
	probe.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))

	return transport{follow: follow, probe: probe}, nil
}

// authRequired reports whether the portal answered with its login page instead of the
// resource, either by redirecting there or by refusing outright.
func authRequired(res *resty.Response) bool {
	switch res.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil && isLoginUrl(res.RawResponse.Request.URL.Path) {
		return true
	}
	if location := res.Header().Get("Location"); location != "" && isLoginUrl(location) {
		return true
	}
	return false
}

// checkResponse turns a transport failure, a login page or a non 200 status into an error.
func (s *Session) checkResponse(what string, res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if authRequired(res) {
		s.expire()
		return fmt.Errorf("%s: %w", what, ErrSessionExpired)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", ErrServiceUnavailable, what, res.Status())
	}
	return nil
}

// get fetches a page with the following client.
func (s *Session) get(ctx context.Context, what, path string) ([]byte, error) {
	res, err := s.transport.follow.R().
		SetContext(ctx).
		Get(path)
	if err := s.checkResponse(what, res, err); err != nil {
		return nil, err
	}
	return res.Body(), nil
}

// ajaxPost submits a form the way the portal's own scripts do.
func (s *Session) ajaxPost(ctx context.Context, what, path string, form map[string]string) error {
	res, err := s.transport.follow.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetFormData(form).
		Post(path)
	return s.checkResponse(what, res, err)
}
