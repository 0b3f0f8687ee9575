package main

import "os"

// Build-time variables - inject via ldflags
// Example: go build -ldflags "-X main.captchaAPIKey=YOUR_KEY"
var (
	captchaAPIKey string // -X main.captchaAPIKey=...
)

// GetCaptchaAPIKey returns the 2Captcha API key (build-time or env fallback).
// When empty, CAPTCHA challenges fall back to the console prompt.
func GetCaptchaAPIKey() string {
	if captchaAPIKey != "" {
		return captchaAPIKey
	}
	return os.Getenv("2CAP_KEY")
}
