package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// CaptchaChallenge is the metadata extracted from one visual challenge. It is
// transient: produced by a failed login attempt and consumed by exactly one
// retry.
type CaptchaChallenge struct {
	ImageURL string
	HostID   string // hid query parameter, echoed back as hip_token
	FormID   string // fid query parameter
}

// captchaSolution is a solved challenge ready to be merged into the login form.
type captchaSolution struct {
	Answer string
	HostID string
	FormID string
}

// CaptchaSolver obtains a solution for a visual challenge out-of-band.
type CaptchaSolver interface {
	Solve(ctx context.Context, imageURL string) (string, error)
}

var (
	hipURLRe   = regexp.MustCompile(`skypeHipUrl = "(.*)"`)
	imageURLRe = regexp.MustCompile(`imageurl:'([^']*)'`)
	hidRe      = regexp.MustCompile(`hid=([^&]*)`)
	fidRe      = regexp.MustCompile(`fid=([^&]*)`)
)

// extractChallengeURL pulls the challenge script URL out of the
// captchaContainer element of a login response.
func extractChallengeURL(container *html.Node) (string, error) {
	script := scriptText(container)
	m := hipURLRe.FindStringSubmatch(script)
	if m == nil {
		return "", errors.New("captcha container has no challenge url")
	}
	return m[1], nil
}

// parseChallengeScript extracts the image URL and the host/form identifiers
// from the fetched challenge script.
func parseChallengeScript(script string) (*CaptchaChallenge, error) {
	img := imageURLRe.FindStringSubmatch(script)
	if img == nil {
		return nil, errors.New("challenge script has no image url")
	}
	hid := hidRe.FindStringSubmatch(img[1])
	fid := fidRe.FindStringSubmatch(img[1])
	if hid == nil || fid == nil {
		return nil, errors.New("challenge image url has no hid/fid parameters")
	}
	return &CaptchaChallenge{ImageURL: img[1], HostID: hid[1], FormID: fid[1]}, nil
}

// fetchCaptchaChallenge resolves the challenge metadata referenced by a login
// response. The challenge URL is dynamic, so it is dispatched as an ad hoc
// descriptor rather than a catalog operation.
func (t *Transport) fetchCaptchaChallenge(ctx context.Context, container *html.Node) (*CaptchaChallenge, error) {
	challengeURL, err := extractChallengeURL(container)
	if err != nil {
		return nil, err
	}

	resp, err := t.requestEndpoint(ctx, newEndpoint("GET", challengeURL), requestParams{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	script, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}
	return parseChallengeScript(string(script))
}

// =============================================================================
// Console solver
// =============================================================================

// ConsoleCaptchaSolver prints the challenge image URL and reads the solution
// from the terminal. Used when no solver API key is configured.
type ConsoleCaptchaSolver struct {
	In  io.Reader
	Out io.Writer
}

func (s *ConsoleCaptchaSolver) Solve(ctx context.Context, imageURL string) (string, error) {
	fmt.Fprintf(s.Out, "\ncaptcha image: %s\nsolution: ", imageURL)
	scanner := bufio.NewScanner(s.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no captcha solution entered")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// =============================================================================
// 2Captcha API
// =============================================================================

type TwoCaptchaResponse struct {
	ErrorId          int            `json:"errorId"`
	ErrorCode        string         `json:"errorCode"`
	ErrorDescription string         `json:"errorDescription"`
	TaskId           int64          `json:"taskId"`
	Status           string         `json:"status"`
	Solution         map[string]any `json:"solution"`
}

// TwoCaptchaImageSolver solves visual challenges through the 2Captcha
// image-to-text task API.
type TwoCaptchaImageSolver struct {
	APIKey string
}

func (s *TwoCaptchaImageSolver) Solve(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 180*time.Second)
	defer cancel()

	image, err := doHTTPGet(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("fetching challenge image: %w", err)
	}

	res, err := TwoCaptcha(ctx, s.APIKey, map[string]any{
		"type": "ImageToTextTask",
		"body": base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", fmt.Errorf("2captcha request error: %v", err)
	}

	text, ok := res.Solution["text"].(string)
	if !ok || text == "" {
		return "", fmt.Errorf("2captcha solver error: no text in response")
	}
	return text, nil
}

func TwoCaptcha(ctx context.Context, apiKey string, taskData map[string]any) (*TwoCaptchaResponse, error) {
	res, err := twoCaptchaCreateTask(ctx, apiKey, taskData)
	if err != nil {
		return nil, err
	}
	if res.ErrorId != 0 {
		return nil, handleTwoCaptchaError(res.ErrorCode, res.ErrorDescription)
	}

	return twoCaptchaPollResult(ctx, apiKey, res.TaskId)
}

func twoCaptchaCreateTask(ctx context.Context, apiKey string, taskData map[string]any) (*TwoCaptchaResponse, error) {
	return TwoCaptchaRequest(ctx, "https://api.2captcha.com/createTask", map[string]any{
		"clientKey": apiKey,
		"task":      taskData,
	})
}

func twoCaptchaPollResult(ctx context.Context, apiKey string, taskId int64) (*TwoCaptchaResponse, error) {
	uri := "https://api.2captcha.com/getTaskResult"
	for {
		select {
		case <-ctx.Done():
			return nil, errors.New("solve timeout")
		case <-time.After(5 * time.Second): // 2captcha recommends 5s polling
		}

		res, err := TwoCaptchaRequest(ctx, uri, map[string]any{
			"clientKey": apiKey,
			"taskId":    taskId,
		})
		if err != nil {
			return nil, err
		}
		if res.ErrorId != 0 {
			return nil, handleTwoCaptchaError(res.ErrorCode, res.ErrorDescription)
		}
		if res.Status == "ready" {
			return res, nil
		}
	}
}

func handleTwoCaptchaError(code, description string) error {
	err := fmt.Errorf("2captcha error: %s - %s", code, description)
	if isFatalCaptchaError(code) {
		return NewFatalError(err)
	}
	return err
}

func TwoCaptchaRequest(ctx context.Context, uri string, payload any) (*TwoCaptchaResponse, error) {
	return doJSONRequest[TwoCaptchaResponse](ctx, uri, payload, 3)
}

// =============================================================================
// Helpers
// =============================================================================

// doJSONRequest posts a JSON payload to a solver API with retries. The solver
// APIs are not fingerprint-sensitive, so the plain net/http client is fine.
func doJSONRequest[T any](ctx context.Context, uri string, payload any, maxRetries int) (*T, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", uri, bytes.NewReader(payloadBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		responseData, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		result := new(T)
		if err := json.Unmarshal(responseData, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, fmt.Errorf("API request failed after %d retries: %w", maxRetries, lastErr)
}

func doHTTPGet(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
