package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudflare/cloudflare-go"

	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

type Client struct {
	api      *cloudflare.API
	pageSize int
	metrics  *metrics.Metrics
}

func New(token string, pageSize int, metrics *metrics.Metrics, opts ...cloudflare.Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}

	api, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
	}

	return &Client{
		api:      api,
		pageSize: pageSize,
		metrics:  metrics,
	}, nil
}

// Records returns the complete, de-paginated record set of a zone, restricted
// to the reconcilable types. Any failed page aborts the whole fetch.
func (c *Client) Records(ctx context.Context, zoneID string) ([]provider.Record, error) {
	slog.Info("Getting DNS records", "zone", zoneID)
	start := time.Now()

	var allRecords []cloudflare.DNSRecord
	page := 1
	for {
		rc := cloudflare.ZoneIdentifier(zoneID)
		params := cloudflare.ListDNSRecordsParams{
			ResultInfo: cloudflare.ResultInfo{
				Page:    page,
				PerPage: c.pageSize,
			},
		}

		records, resultInfo, err := c.api.ListDNSRecords(ctx, rc, params)
		if err != nil {
			c.metrics.IncProviderRequest("read", zoneID, false)
			return nil, &provider.FetchError{ZoneID: zoneID, Err: err}
		}

		allRecords = append(allRecords, records...)
		if page >= resultInfo.TotalPages {
			break
		}
		page++
	}

	var result []provider.Record
	for _, r := range allRecords {
		if !provider.AllowedType(r.Type) {
			continue
		}
		result = append(result, provider.Record{
			ID:       r.ID,
			Type:     r.Type,
			Name:     r.Name,
			Content:  r.Content,
			TTL:      r.TTL,
			Proxied:  r.Proxied,
			Priority: priorityToInt(r.Priority),
			Comment:  r.Comment,
		})
	}

	c.metrics.IncProviderRequest("read", zoneID, true)
	slog.Debug("Retrieved DNS records", "zone", zoneID, "count", len(result), "duration", time.Since(start))
	return result, nil
}

func (c *Client) Create(ctx context.Context, zoneID string, record provider.Record) error {
	slog.Info("Creating DNS record", "zone", zoneID, "name", record.Name, "type", record.Type, "content", record.Content)
	start := time.Now()

	params := cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     record.TTL,
	}
	if provider.ProxyableType(record.Type) {
		params.Proxied = record.Proxied
	}
	if record.Priority != nil {
		params.Priority = uint16Ptr(*record.Priority)
	}
	if record.Comment != "" {
		params.Comment = record.Comment
	}

	_, err := c.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), params)
	if err != nil {
		c.metrics.IncProviderRequest("create", zoneID, false)
		return fmt.Errorf("failed to create DNS record: %w", err)
	}

	c.metrics.IncProviderRequest("create", zoneID, true)
	slog.Debug("Created DNS record", "zone", zoneID, "name", record.Name, "type", record.Type, "duration", time.Since(start))
	return nil
}

func (c *Client) Update(ctx context.Context, zoneID string, id string, record provider.Record) error {
	slog.Info("Updating DNS record", "zone", zoneID, "name", record.Name, "type", record.Type, "content", record.Content)
	start := time.Now()

	params := cloudflare.UpdateDNSRecordParams{
		ID:      id,
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		TTL:     record.TTL,
	}
	if provider.ProxyableType(record.Type) {
		params.Proxied = record.Proxied
	}
	if record.Priority != nil {
		params.Priority = uint16Ptr(*record.Priority)
	}
	if record.Comment != "" {
		comment := record.Comment
		params.Comment = &comment
	}

	_, err := c.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), params)
	if err != nil {
		c.metrics.IncProviderRequest("update", zoneID, false)
		return fmt.Errorf("failed to update DNS record: %w", err)
	}

	c.metrics.IncProviderRequest("update", zoneID, true)
	slog.Debug("Updated DNS record", "zone", zoneID, "name", record.Name, "type", record.Type, "duration", time.Since(start))
	return nil
}

func (c *Client) Delete(ctx context.Context, zoneID string, id string) error {
	slog.Info("Deleting DNS record", "zone", zoneID, "id", id)
	start := time.Now()

	err := c.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), id)
	if err != nil {
		c.metrics.IncProviderRequest("delete", zoneID, false)
		return fmt.Errorf("failed to delete DNS record: %w", err)
	}

	c.metrics.IncProviderRequest("delete", zoneID, true)
	slog.Debug("Deleted DNS record", "zone", zoneID, "id", id, "duration", time.Since(start))
	return nil
}

func priorityToInt(p *uint16) *int {
	if p == nil {
		return nil
	}
	v := int(*p)
	return &v
}

func uint16Ptr(v int) *uint16 {
	u := uint16(v)
	return &u
}
