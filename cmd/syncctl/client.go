package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// newClient builds the shared REST client with the identity header applied.
func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiFlag).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	if userFlag != "" {
		c.SetHeader("X-User-Id", userFlag)
	}
	return c
}

// do executes the request and turns non-2xx responses into errors carrying
// the service's JSON error body.
func do(req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}
