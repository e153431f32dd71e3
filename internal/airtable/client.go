// Package airtable is the stateless gateway to the hosted tabular backend.
// It speaks the backend's record envelope ({"records": [{"id", "fields"}]}),
// drops not-yet-populated records before decoding, and surfaces every failure
// as a typed *Error naming the table and operation. The gateway never retries
// on its own: a failed call is terminal for the user action that issued it.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Hian201/AniceHolidaySample/pkg/httpclient"
)

// BatchLimit is the backend's per-request record cap for creates and deletes.
const BatchLimit = 10

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to one backend base (a fixed set of tables).
type Client struct {
	http    Doer
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates a gateway client. baseURL is the full base path,
// e.g. "https://api.airtable.com/v0/appKgJCDZqEcodSFT".
func NewClient(httpClient Doer, baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

// Record pairs a server-assigned record ID with its typed fields.
type Record[T any] struct {
	ID     string `json:"id,omitempty"`
	Fields T      `json:"fields"`
}

// recordEnvelope is the wire shape of every list/create response.
type recordEnvelope struct {
	Records []rawRecord `json:"records"`
}

type rawRecord struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

func (c *Client) tableURL(table string, extra ...string) string {
	parts := []string{c.baseURL, url.PathEscape(table)}
	parts = append(parts, extra...)
	return strings.Join(parts, "/")
}

// do executes one request with auth headers and records metrics. Transport
// failures come back as *Error with a zero status code.
func (c *Client) do(ctx context.Context, req *http.Request, table, op string) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	requestDuration.WithLabelValues(table, op).Observe(time.Since(start).Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(table, op, "transport_error").Inc()
		return nil, &Error{Table: table, Op: op, Err: err}
	}

	requestsTotal.WithLabelValues(table, op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := resp.StatusCode
		return nil, &Error{Table: table, Op: op, StatusCode: status, Err: httpclient.ParseResponseError(resp, table)}
	}

	return resp, nil
}

// decodeRecords decodes a record envelope, discarding any record whose fields
// object is empty (a row the backend created but nobody populated) and any
// record whose fields do not decode into T. Both cases are logged, counted,
// and otherwise treated as no data.
func decodeRecords[T any](c *Client, body *json.Decoder, table, op string) ([]Record[T], error) {
	var envelope recordEnvelope
	if err := body.Decode(&envelope); err != nil {
		return nil, &Error{Table: table, Op: op, Err: fmt.Errorf("decode response envelope: %w", err)}
	}

	records := make([]Record[T], 0, len(envelope.Records))
	for _, raw := range envelope.Records {
		var fieldSet map[string]json.RawMessage
		if err := json.Unmarshal(raw.Fields, &fieldSet); err != nil || len(fieldSet) == 0 {
			recordsDropped.WithLabelValues(table, "empty_fields").Inc()
			continue
		}

		var fields T
		if err := json.Unmarshal(raw.Fields, &fields); err != nil {
			recordsDropped.WithLabelValues(table, "decode_failure").Inc()
			c.logger.Warn("dropping undecodable record",
				slog.String("table", table),
				slog.String("record_id", raw.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		records = append(records, Record[T]{ID: raw.ID, Fields: fields})
	}

	return records, nil
}

// List fetches all records of a table, optionally narrowed by a server-side
// filter formula (sent URL-encoded as the filterFormula query parameter).
func List[T any](ctx context.Context, c *Client, table, filterFormula string) ([]Record[T], error) {
	reqURL := c.tableURL(table)
	if filterFormula != "" {
		reqURL += "?filterFormula=" + url.QueryEscape(filterFormula)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &Error{Table: table, Op: OpList, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.do(ctx, req, table, OpList)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeRecords[T](c, json.NewDecoder(resp.Body), table, OpList)
}

// Create uploads up to BatchLimit new records and returns them with their
// server-assigned IDs. Callers own the batching; oversized batches are
// rejected here rather than truncated.
func Create[T any](ctx context.Context, c *Client, table string, fields []T) ([]Record[T], error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > BatchLimit {
		return nil, &Error{Table: table, Op: OpCreate, Err: fmt.Errorf("batch of %d exceeds limit of %d", len(fields), BatchLimit)}
	}

	type uploadRecord struct {
		Fields T `json:"fields"`
	}
	payload := struct {
		Records []uploadRecord `json:"records"`
	}{Records: make([]uploadRecord, len(fields))}
	for i, f := range fields {
		payload.Records[i] = uploadRecord{Fields: f}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Table: table, Op: OpCreate, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(table), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Table: table, Op: OpCreate, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.do(ctx, req, table, OpCreate)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeRecords[T](c, json.NewDecoder(resp.Body), table, OpCreate)
}

// Patch updates one record with a partial field set. Only the fields present
// in the patch payload are sent; everything else is left untouched
// server-side. This send-only-what-changed contract is mandatory.
func Patch[T, P any](ctx context.Context, c *Client, table, id string, patch P) (Record[T], error) {
	var zero Record[T]

	payload := struct {
		Fields P `json:"fields"`
	}{Fields: patch}

	body, err := json.Marshal(payload)
	if err != nil {
		return zero, &Error{Table: table, Op: OpPatch, Err: fmt.Errorf("marshal patch: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.tableURL(table, url.PathEscape(id)), bytes.NewReader(body))
	if err != nil {
		return zero, &Error{Table: table, Op: OpPatch, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.do(ctx, req, table, OpPatch)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	var updated struct {
		ID     string `json:"id"`
		Fields T      `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return zero, &Error{Table: table, Op: OpPatch, Err: fmt.Errorf("decode response: %w", err)}
	}

	return Record[T]{ID: updated.ID, Fields: updated.Fields}, nil
}

// DeleteByID deletes a single record.
func DeleteByID(ctx context.Context, c *Client, table, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.tableURL(table, url.PathEscape(id)), http.NoBody)
	if err != nil {
		return &Error{Table: table, Op: OpDelete, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.do(ctx, req, table, OpDelete)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DeleteMany deletes the given records, splitting into sequential batches of
// at most BatchLimit. The first failing batch aborts the remainder.
func DeleteMany(ctx context.Context, c *Client, table string, ids []string) error {
	for start := 0; start < len(ids); start += BatchLimit {
		end := min(start+BatchLimit, len(ids))

		values := url.Values{}
		for _, id := range ids[start:end] {
			values.Add("records[]", id)
		}

		reqURL := c.tableURL(table) + "?" + values.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
		if err != nil {
			return &Error{Table: table, Op: OpDelete, Err: fmt.Errorf("create request: %w", err)}
		}

		resp, err := c.do(ctx, req, table, OpDelete)
		if err != nil {
			return err
		}
		resp.Body.Close()
	}
	return nil
}
