package simplybook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Directory = (*RESTDirectory)(nil)
	_ driven.Directory = (*RPCDirectory)(nil)
)

// RESTDirectory lists services and providers through the v2 REST API.
type RESTDirectory struct {
	fetcher      *Fetcher
	servicesURL  string
	providersURL string
}

// NewRESTDirectory creates a directory reading {baseURL}/admin/services and
// {baseURL}/admin/providers.
func NewRESTDirectory(fetcher *Fetcher, baseURL string) (*RESTDirectory, error) {
	servicesURL, err := endpointURL(baseURL, "/admin/services")
	if err != nil {
		return nil, err
	}
	providersURL, err := endpointURL(baseURL, "/admin/providers")
	if err != nil {
		return nil, err
	}
	return &RESTDirectory{fetcher: fetcher, servicesURL: servicesURL, providersURL: providersURL}, nil
}

// ListServices returns every service on the account.
func (d *RESTDirectory) ListServices(ctx context.Context) ([]model.BookableService, error) {
	body, err := d.fetcher.Get(ctx, d.servicesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return DecodeServices(body)
}

// ListProviders returns every provider on the account.
func (d *RESTDirectory) ListProviders(ctx context.Context) ([]model.Provider, error) {
	body, err := d.fetcher.Get(ctx, d.providersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return DecodeProviders(body)
}

// RPCDirectory lists services and providers through getServiceList and
// getUnitList on the v1 JSON-RPC API.
type RPCDirectory struct {
	fetcher  *Fetcher
	endpoint string
}

// NewRPCDirectory creates a directory posting to the API root of baseURL.
func NewRPCDirectory(fetcher *Fetcher, baseURL string) (*RPCDirectory, error) {
	endpoint, err := endpointURL(baseURL, "/")
	if err != nil {
		return nil, err
	}
	return &RPCDirectory{fetcher: fetcher, endpoint: endpoint}, nil
}

// ListServices returns every service on the account.
func (d *RPCDirectory) ListServices(ctx context.Context) ([]model.BookableService, error) {
	body, err := callRPC(ctx, d.fetcher, d.endpoint, "getServiceList", nil, 1)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return DecodeServices(body)
}

// ListProviders returns every unit (provider) on the account.
func (d *RPCDirectory) ListProviders(ctx context.Context) ([]model.Provider, error) {
	body, err := callRPC(ctx, d.fetcher, d.endpoint, "getUnitList", nil, 3)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return DecodeProviders(body)
}

// DecodeServices reads a service list given as an array, a {"data": [...]}
// page, or a JSON-RPC result keyed by service ID. Services are sorted by ID.
func DecodeServices(body []byte) ([]model.BookableService, error) {
	records, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}

	services := make([]model.BookableService, 0, len(records))
	for i, rec := range records {
		id, ok := intValue(rec["id"])
		if !ok || id <= 0 {
			return nil, &model.SchemaError{Reason: fmt.Sprintf("service %d has no id", i)}
		}
		duration, _ := intValue(rec["duration"])
		services = append(services, model.BookableService{
			ID:              id,
			Name:            firstString(rec, "name"),
			Description:     firstString(rec, "description"),
			DurationMinutes: duration,
			Active:          flag(rec, true, "is_active", "is_visible"),
			ProviderIDs:     providerIDs(rec),
		})
	}

	slices.SortFunc(services, func(a, b model.BookableService) int { return a.ID - b.ID })
	return services, nil
}

// DecodeProviders reads a provider list in the same layouts as
// DecodeServices. Providers are sorted by ID.
func DecodeProviders(body []byte) ([]model.Provider, error) {
	records, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}

	providers := make([]model.Provider, 0, len(records))
	for i, rec := range records {
		id, ok := intValue(rec["id"])
		if !ok || id <= 0 {
			return nil, &model.SchemaError{Reason: fmt.Sprintf("provider %d has no id", i)}
		}
		providers = append(providers, model.Provider{
			ID:          id,
			Name:        firstString(rec, "name"),
			Description: firstString(rec, "description"),
			Active:      flag(rec, true, "is_active", "is_visible"),
		})
	}

	slices.SortFunc(providers, func(a, b model.Provider) int { return a.ID - b.ID })
	return providers, nil
}

// decodeRecords unwraps a list response into its objects. A null JSON-RPC
// result is an empty list.
func decodeRecords(body []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &model.UpstreamError{Body: model.Excerpt(body), Err: fmt.Errorf("decoding response: %w", err)}
	}

	payload := root
	if obj, ok := root.(map[string]any); ok {
		if rpcErr, ok := obj["error"]; ok && rpcErr != nil {
			return nil, &model.UpstreamError{Err: decodeRPCError(rpcErr)}
		}
		result, hasResult := obj["result"]
		data, hasData := obj["data"]
		switch {
		case hasResult:
			if result == nil {
				return []map[string]any{}, nil
			}
			payload = result
		case hasData && data != nil:
			payload = data
		default:
			return nil, &model.SchemaError{Reason: "list response has neither data nor result"}
		}
	}

	var items []any
	switch t := payload.(type) {
	case []any:
		items = t
	case map[string]any:
		// JSON-RPC lists are objects keyed by ID.
		items = make([]any, 0, len(t))
		for _, v := range t {
			items = append(items, v)
		}
	default:
		return nil, &model.SchemaError{Reason: fmt.Sprintf("list payload is %T", payload)}
	}

	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, &model.SchemaError{Reason: fmt.Sprintf("list item %d is %T, want object", i, item)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// providerIDs reads the providers of a service: a "providers" array in the
// REST API, a "unit_map" keyed by provider ID in the JSON-RPC API.
func providerIDs(rec map[string]any) []int {
	ids := []int{}
	if list, ok := rec["providers"].([]any); ok {
		for _, v := range list {
			if obj, ok := v.(map[string]any); ok {
				v = obj["id"]
			}
			if id, ok := intValue(v); ok {
				ids = append(ids, id)
			}
		}
	}
	if m, ok := rec["unit_map"].(map[string]any); ok {
		for k := range m {
			if id, err := strconv.Atoi(k); err == nil {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// flag reads the first present key as a boolean, or returns def when none is.
func flag(rec map[string]any, def bool, keys ...string) bool {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return truthy(v)
		}
	}
	return def
}

func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
