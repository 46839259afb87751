package client

import (
	"context"
	"net/http"
	"time"

	"github.com/shikumiya/airtable-client/pkg/pagination"
	"github.com/shikumiya/airtable-client/pkg/query"
)

// GetAll fetches every page of the listing described by p, following the
// cursor until it runs out, and pacing between pages. p.Offset is ignored.
//
// Application-level errors of each page are collected in the Response.
// On a request failure the records gathered so far are returned together
// with the error.
func (c *Client) GetAll(ctx context.Context, p query.Params) (*Response, error) {
	start := time.Now()
	var records []Record
	var errs []APIError

	pages, err := pagination.Walk(ctx, c.pacer, func(ctx context.Context, cursor string) (string, int, error) {
		p.Offset = cursor
		page, err := c.list(ctx, p)
		if err != nil {
			return "", 0, err
		}
		if page.Error != nil {
			errs = append(errs, *page.Error)
		}
		records = append(records, page.Records...)
		return page.Offset, len(page.Records), nil
	})

	resp := NewResponse(records, "", errs)
	if err != nil {
		c.logger.Warn().Err(err).Int("pages", pages).Int("records", len(records)).Msg("GetAll stopped early")
		return resp, err
	}

	c.logger.Debug().
		Int("pages", pages).
		Int("records", len(records)).
		Int("errors", len(errs)).
		Dur("duration", time.Since(start)).
		Msg("GetAll complete")
	return resp, nil
}

// GetAllBy fetches every record whose field equals value.
func (c *Client) GetAllBy(ctx context.Context, field, value string, p query.Params) (*Response, error) {
	p.Formula = query.FieldEquals(field, value)
	return c.GetAll(ctx, p)
}

// BulkInsert creates records in chunks of BatchSize, one request per chunk,
// pacing between chunks. The created records are returned in input order.
// On a request failure the records created so far are returned with the
// error.
func (c *Client) BulkInsert(ctx context.Context, fieldsList []Fields) (*Response, error) {
	var inserted []Record
	var errs []APIError

	err := pagination.EachChunk(ctx, c.pacer, fieldsList, c.config.BatchSize, func(ctx context.Context, chunk []Fields) error {
		payload := batchPayload{
			Records:  make([]fieldsPayload, len(chunk)),
			Typecast: c.config.Typecast,
		}
		for i, fields := range chunk {
			payload.Records[i] = fieldsPayload{Fields: fields}
		}

		var page listPage
		if err := c.do(ctx, http.MethodPost, c.baseURL, nil, payload, &page); err != nil {
			return err
		}
		if page.Error != nil {
			errs = append(errs, *page.Error)
		}
		inserted = append(inserted, page.Records...)
		return nil
	})

	return NewResponse(inserted, "", errs), err
}

// BulkDelete deletes the records with the given ids. Each id is deleted by
// its own request; ids are grouped by BatchSize only to pace between
// groups. On a request failure the records deleted so far are returned
// with the error.
func (c *Client) BulkDelete(ctx context.Context, ids []string) (*Response, error) {
	var deleted []Record
	var errs []APIError

	err := pagination.EachChunk(ctx, c.pacer, ids, c.config.BatchSize, func(ctx context.Context, chunk []string) error {
		for _, id := range chunk {
			body, err := c.deleteOne(ctx, id)
			if err != nil {
				return err
			}
			if body.Error != nil {
				errs = append(errs, *body.Error)
			}
			if body.ID != "" {
				deleted = append(deleted, body.Record)
			}
		}
		return nil
	})

	return NewResponse(deleted, "", errs), err
}

// BulkDeleteRecords deletes the given records by id.
func (c *Client) BulkDeleteRecords(ctx context.Context, records []Record) (*Response, error) {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return c.BulkDelete(ctx, ids)
}
