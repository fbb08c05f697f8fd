package parser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"EngagementSync/internal/config"
	"EngagementSync/internal/domain"
)

const userAgent = "EngagementSync/1.0"

// ClientOptions tunes the HTTP collaborators shared by the API scanners.
type ClientOptions struct {
	Timeout    time.Duration
	RetryCount int
}

// newRapidAPIClient returns a resty client preconfigured for one RapidAPI host.
func newRapidAPIClient(api config.RapidAPIConfig, opts ClientOptions) *resty.Client {
	client := resty.New().
		SetBaseURL(api.BaseURL).
		SetHeader("user-agent", userAgent).
		SetHeader("x-rapidapi-key", api.APIKey).
		SetHeader("x-rapidapi-host", api.Host).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if res == nil {
				return err != nil
			}
			return res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= http.StatusInternalServerError
		})
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return client
}

// get performs a GET and turns transport and status failures into ErrFetchFailed.
func get(ctx context.Context, client *resty.Client, path string) ([]byte, error) {
	res, err := client.R().SetContext(ctx).Get(path)
	return checkResponse(res, err, path)
}

func checkResponse(res *resty.Response, err error, what string) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, what, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrFetchFailed, what, res.Status())
	}
	return res.Body(), nil
}

func requireKey(ctx context.Context, api config.RapidAPIConfig, name string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	if api.APIKey == "" {
		return fmt.Errorf("%w: %s api key is not configured", domain.ErrFetchFailed, name)
	}
	return nil
}
