// Package remote talks to the external REST item resource.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ghuser/lotdesk/pkg/logger"
	lotdomain "github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

// Options configures the HTTP client for the item resource.
type Options struct {
	BaseURL string        // e.g. https://inventory.example.com/api
	Timeout time.Duration // zero leaves the transport default
	Debug   bool          // log request/response dumps
}

// ItemStore implements repositories.ItemStore over HTTP.
// Requests are never retried automatically; every failure surfaces as a
// *domain.TransportError.
type ItemStore struct {
	client *resty.Client
	log    logger.Logger
}

// NewItemStore returns an ItemStore for the resource rooted at opts.BaseURL.
func NewItemStore(opts Options, log logger.Logger) *ItemStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(&restyLogger{log: log}).
		SetDebug(opts.Debug)

	return &ItemStore{client: client, log: log}
}

// List fetches every item in server order.
func (s *ItemStore) List(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	resp, err := s.request(ctx).SetResult(&items).Get("/items")
	if err := check("list", resp, err); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches one item.
func (s *ItemStore) Get(ctx context.Context, id int) (models.Item, error) {
	var item models.Item
	resp, err := s.request(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		SetResult(&item).
		Get("/items/{id}")
	if err := check("get", resp, err); err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// Create posts item and returns the stored representation.
func (s *ItemStore) Create(ctx context.Context, item models.Item) (models.Item, error) {
	var created models.Item
	resp, err := s.request(ctx).
		SetBody(item).
		SetResult(&created).
		Post("/items")
	if err := check("create", resp, err); err != nil {
		return models.Item{}, err
	}
	return created, nil
}

// Update puts item under id and returns the stored representation.
func (s *ItemStore) Update(ctx context.Context, id int, item models.Item) (models.Item, error) {
	var updated models.Item
	resp, err := s.request(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		SetBody(item).
		SetResult(&updated).
		Put("/items/{id}")
	if err := check("update", resp, err); err != nil {
		return models.Item{}, err
	}
	return updated, nil
}

// Delete removes the item. Any response body is ignored.
func (s *ItemStore) Delete(ctx context.Context, id int) error {
	resp, err := s.request(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		Delete("/items/{id}")
	return check("delete", resp, err)
}

// Ping reports whether the item resource answers at all. Any response below
// 500 counts as reachable.
func (s *ItemStore) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Head("/items")
	if err != nil {
		return &lotdomain.TransportError{Op: "ping", Err: err}
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return &lotdomain.TransportError{Op: "ping", Status: resp.StatusCode(), Err: errors.New(resp.Status())}
	}
	return nil
}

func (s *ItemStore) request(ctx context.Context) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		SetError(&apiError{}).
		ForceContentType("application/json")
}

// apiError is the error body shape most item backends return.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// check converts a resty result into a TransportError.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &lotdomain.TransportError{Op: op, Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}

	msg := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*apiError); ok && body != nil {
		switch {
		case body.Error != "":
			msg = body.Error
		case body.Message != "":
			msg = body.Message
		}
	}
	return &lotdomain.TransportError{Op: op, Status: resp.StatusCode(), Err: errors.New(msg)}
}

// restyLogger adapts logger.Logger to resty's Logger interface.
type restyLogger struct {
	log logger.Logger
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error("resty", "detail", fmt.Sprintf(format, v...))
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn("resty", "detail", fmt.Sprintf(format, v...))
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug("resty", "detail", fmt.Sprintf(format, v...))
}
