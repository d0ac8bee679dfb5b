package backend

import (
	"net/http"
	"strings"
)

// userAgentRoundTripper adds the product token of this program to the
// User-Agent header set by the provider SDK.
type userAgentRoundTripper struct {
	product string
	rt      http.RoundTripper
}

func newUserAgentRoundTripper(rt http.RoundTripper, product string) *userAgentRoundTripper {
	return &userAgentRoundTripper{
		rt:      rt,
		product: product,
	}
}

func (u *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ua := req.Header.Get("User-Agent")
	if strings.Contains(ua, u.product) {
		return u.rt.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	if ua == "" {
		req.Header.Set("User-Agent", u.product)
	} else {
		req.Header.Set("User-Agent", ua+" "+u.product)
	}
	return u.rt.RoundTrip(req)
}
