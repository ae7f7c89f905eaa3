// Package lensapi talks to the Lens authorization service over GraphQL.
package lensapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/layer-3/herald/core"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	maxResponse    = 4 << 20
)

// GraphQL error codes reported in extensions.code
const (
	codeUnauthenticated = "UNAUTHENTICATED"
	codeForbidden       = "FORBIDDEN"
	codeBadUserInput    = "BAD_USER_INPUT"
	codeValidation      = "GRAPHQL_VALIDATION_FAILED"
	codeInternal        = "INTERNAL_SERVER_ERROR"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a GraphQL client for the authorization service
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a client for endpoint. A nil httpClient gets a default
// one with a request timeout.
func NewClient(endpoint string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{endpoint: endpoint, http: httpClient, logger: logger}
}

type request struct {
	OperationName string                 `json:"operationName,omitempty"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type response struct {
	Data   jsoniter.RawMessage `json:"data"`
	Errors []GraphQLError      `json:"errors"`
}

// GraphQLError is one entry of a GraphQL errors array
type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

func (e GraphQLError) Error() string {
	if e.Extensions.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Extensions.Code)
}

// do runs one operation and decodes its data into out. Failures come back
// classified for stage.
func (c *Client) do(ctx context.Context, stage core.Stage, op operation, vars map[string]interface{}, bearer string, out interface{}) error {
	body, err := json.Marshal(request{OperationName: op.name, Query: op.query, Variables: vars})
	if err != nil {
		return core.NewError(stage, core.ErrInvalidRequest, "cannot encode variables", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return core.NewError(stage, core.ErrInvalidRequest, "cannot build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	started := time.Now()
	rsp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("GraphQL request failed", zap.String("operation", op.name), zap.Error(err))
		return core.NewError(stage, core.ErrNetworkUnavailable, op.name, err)
	}
	defer rsp.Body.Close()

	limited := io.LimitedReader{R: rsp.Body, N: maxResponse + 1}
	raw, err := io.ReadAll(&limited)
	if err != nil {
		return core.NewError(stage, core.ErrNetworkUnavailable, "cannot read response", err)
	}

	c.logger.Debug("GraphQL response",
		zap.String("operation", op.name),
		zap.Int("status", rsp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	switch {
	case rsp.StatusCode >= http.StatusInternalServerError, rsp.StatusCode == http.StatusTooManyRequests:
		return core.NewError(stage, core.ErrNetworkUnavailable, fmt.Sprintf("%s: status %d", op.name, rsp.StatusCode), nil)
	case rsp.StatusCode == http.StatusUnauthorized:
		return core.NewError(stage, core.ErrUnauthorized, op.name, nil)
	}
	if len(raw) > maxResponse {
		return core.NewError(stage, core.ErrInvalidRequest, op.name+": response too large", nil)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if rsp.StatusCode != http.StatusOK {
			return core.NewError(stage, core.ErrInvalidRequest, fmt.Sprintf("%s: status %d", op.name, rsp.StatusCode), nil)
		}
		return core.NewError(stage, core.ErrNetworkUnavailable, "malformed response", err)
	}
	if len(parsed.Errors) > 0 {
		return classifyErrors(stage, op.name, parsed.Errors)
	}
	if rsp.StatusCode != http.StatusOK {
		return core.NewError(stage, core.ErrInvalidRequest, fmt.Sprintf("%s: status %d", op.name, rsp.StatusCode), nil)
	}
	if len(parsed.Data) == 0 || string(parsed.Data) == "null" {
		return core.NewError(stage, core.ErrInvalidRequest, op.name+": empty data", nil)
	}
	if err := json.Unmarshal(parsed.Data, out); err != nil {
		return core.NewError(stage, core.ErrInvalidRequest, op.name+": unexpected data shape", err)
	}
	return nil
}

func classifyErrors(stage core.Stage, opName string, errs []GraphQLError) error {
	first := errs[0]
	kind := core.ErrInvalidRequest
	switch first.Extensions.Code {
	case codeUnauthenticated, codeForbidden:
		kind = core.ErrUnauthorized
	case codeInternal:
		kind = core.ErrNetworkUnavailable
	case codeBadUserInput, codeValidation:
		kind = core.ErrInvalidRequest
	default:
		msg := strings.ToLower(first.Message)
		if strings.Contains(msg, "authentication required") || strings.Contains(msg, "not authenticated") {
			kind = core.ErrUnauthorized
		}
	}
	return core.NewError(stage, kind, opName, errors.Join(toErrors(errs)...))
}

func toErrors(errs []GraphQLError) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}
