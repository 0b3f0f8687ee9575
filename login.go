package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// captchaFields are the form fields that only belong on a challenge retry.
// They may appear as hidden inputs in the served form and must be stripped
// from a plain submission.
var captchaFields = []string{"hip_solution", "hip_token", "fid", "hip_type", "captcha_provider"}

// Login drives the login handshake: scrape the form, submit credentials, and
// either capture the session token or resolve a CAPTCHA challenge and retry
// exactly once. On success the token exchange and endpoint registration calls
// run before Login returns, leaving the session ready for authenticated use.
func (t *Transport) Login(ctx context.Context, username, password string, solver CaptchaSolver) error {
	var solution *captchaSolution

	for attempt := range 2 {
		doc, err := t.submitLoginForm(ctx, username, password, solution)
		if err != nil {
			return err
		}

		if token, ok := inputValue(doc, "skypetoken"); ok && token != "" {
			t.creds.SkypeToken = token
			return t.completeHandshake(ctx)
		}

		if container := elementByID(doc, "captchaContainer"); container != nil {
			if attempt > 0 {
				return ErrCaptchaUnresolved
			}
			challenge, err := t.fetchCaptchaChallenge(ctx, container)
			if err != nil {
				return err
			}
			if solver == nil {
				return ErrCaptchaUnresolved
			}
			answer, err := solver.Solve(ctx, challenge.ImageURL)
			if err != nil {
				return fmt.Errorf("solving captcha: %w", err)
			}
			solution = &captchaSolution{
				Answer: answer,
				HostID: challenge.HostID,
				FormID: challenge.FormID,
			}
			continue
		}

		if messages := textByClass(doc, "message_error"); len(messages) > 0 {
			return &LoginRejectedError{Message: strings.Join(messages, "\n")}
		}
		return ErrSessionTokenNotFound
	}
	return ErrCaptchaUnresolved
}

// submitLoginForm fetches the login page, inherits its hidden fields, fills
// in the credential fields and posts the form back.
func (t *Transport) submitLoginForm(ctx context.Context, username, password string, solution *captchaSolution) (*html.Node, error) {
	page, err := t.requestDOM(ctx, "login_get", requestParams{headers: t.navigationHeaders()})
	if err != nil {
		return nil, err
	}

	loginForm := elementByID(page, "loginForm")
	if loginForm == nil {
		// Some variants serve the form without the container id.
		loginForm = page
	}
	fields := formInputs(loginForm)

	now := time.Now()
	fields["username"] = username
	fields["password"] = password
	fields["timezone_field"] = timezoneField(now)
	fields["js_time"] = strconv.FormatInt(now.Unix(), 10)

	if solution != nil {
		fields["hip_solution"] = solution.Answer
		fields["hip_token"] = solution.HostID
		fields["fid"] = solution.FormID
		fields["hip_type"] = "visual"
		fields["captcha_provider"] = "Hip"
	} else {
		for _, name := range captchaFields {
			delete(fields, name)
		}
	}

	form := url.Values{}
	for name, value := range fields {
		form.Set(name, value)
	}
	return t.requestDOM(ctx, "login_post", requestParams{form: form, headers: t.navigationHeaders()})
}

// completeHandshake performs the two dependent calls that follow session
// token capture: the token exchange and the endpoint registration. The
// registration response is also what feeds the Set-RegistrationToken and
// cloud-prefix capture hooks.
func (t *Transport) completeHandshake(ctx context.Context) error {
	err := t.requestJSON(ctx, "asm", requestParams{
		form: url.Values{"skypetoken": {t.creds.SkypeToken}},
	}, nil)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}

	err = t.requestJSON(ctx, "endpoint", requestParams{
		headers: http.Header{
			"Authentication": {"skypetoken=" + t.creds.SkypeToken},
			"EndpointId":     {"{" + uuid.New().String() + "}"},
		},
		json: map[string]string{"skypetoken": t.creds.SkypeToken},
	}, nil)
	if err != nil {
		return fmt.Errorf("endpoint registration: %w", err)
	}
	return nil
}

// Logout issues the best-effort remote invalidation call. Locally held
// tokens are left in place; the session object is simply dropped afterwards.
func (t *Transport) Logout(ctx context.Context) error {
	resp, err := t.request(ctx, "logout", requestParams{headers: t.navigationHeaders()})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// timezoneField formats the local UTC offset the way the login form expects,
// e.g. +02|00.
func timezoneField(now time.Time) string {
	_, offset := now.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d|%02d", sign, offset/3600, (offset%3600)/60)
}

// navigationHeaders is the browser-like header set used on the scraped login
// pages. API calls get by with the transport defaults, but the login service
// serves different markup to unrecognized clients.
func (t *Transport) navigationHeaders() http.Header {
	return http.Header{
		"Upgrade-Insecure-Requests": {"1"},
		"User-Agent":                {t.profile.UserAgent},
		"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"},
		"Sec-Fetch-Site":            {"none"},
		"Sec-Fetch-Mode":            {"navigate"},
		"Sec-Fetch-User":            {"?1"},
		"Sec-Fetch-Dest":            {"document"},
		"Sec-Ch-Ua":                 {t.profile.SecChUa},
		"Sec-Ch-Ua-Mobile":          {t.profile.Mobile},
		"Sec-Ch-Ua-Platform":        {t.profile.Platform},
		"Accept-Encoding":           {"gzip, deflate, br, zstd"},
		"Accept-Language":           {"en-US,en;q=0.9"},
		http.HeaderOrderKey: {
			"upgrade-insecure-requests",
			"user-agent",
			"accept",
			"sec-fetch-site",
			"sec-fetch-mode",
			"sec-fetch-user",
			"sec-fetch-dest",
			"sec-ch-ua",
			"sec-ch-ua-mobile",
			"sec-ch-ua-platform",
			"accept-encoding",
			"accept-language",
		},
		http.PHeaderOrderKey: PseudoHeaderOrder,
	}
}
