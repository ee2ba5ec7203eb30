package error

import "net/http"

type RateLimitedError string

func (err RateLimitedError) Error() string {
	return string(err)
}

func (err RateLimitedError) ErrCode() string {
	return "RATE_LIMIT_EXCEEDED"
}

func (err RateLimitedError) StatusCode() int {
	return http.StatusTooManyRequests
}
