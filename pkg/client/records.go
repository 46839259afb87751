package client

import (
	"context"
	"net/http"

	"github.com/shikumiya/airtable-client/pkg/query"
)

// Find returns the record with the given id. Only the Fields and View of p
// are used.
func (c *Client) Find(ctx context.Context, id string, p query.Params) (*Response, error) {
	return c.FindByFormula(ctx, query.RecordID(id), query.Params{Fields: p.Fields, View: p.View})
}

// FindBy returns the first record whose field equals value.
func (c *Client) FindBy(ctx context.Context, field, value string, p query.Params) (*Response, error) {
	return c.FindByFormula(ctx, query.FieldEquals(field, value), p)
}

// FindByFormula returns the first record matching formula.
func (c *Client) FindByFormula(ctx context.Context, formula string, p query.Params) (*Response, error) {
	p.MaxRecords = 1
	return c.GetByFormula(ctx, formula, p)
}

// First returns the first record of an unfiltered listing.
func (c *Client) First(ctx context.Context, p query.Params) (*Response, error) {
	p.Formula = ""
	p.MaxRecords = 1
	return c.Get(ctx, p)
}

// Get fetches one page. The returned Offset continues the listing.
func (c *Client) Get(ctx context.Context, p query.Params) (*Response, error) {
	page, err := c.list(ctx, p)
	if err != nil {
		return nil, err
	}

	var errs []APIError
	if page.Error != nil {
		errs = append(errs, *page.Error)
	}
	return NewResponse(page.Records, page.Offset, errs), nil
}

// GetBy fetches one page of records whose field equals value.
func (c *Client) GetBy(ctx context.Context, field, value string, p query.Params) (*Response, error) {
	return c.GetByFormula(ctx, query.FieldEquals(field, value), p)
}

// GetByFormula fetches one page of records matching formula.
func (c *Client) GetByFormula(ctx context.Context, formula string, p query.Params) (*Response, error) {
	p.Formula = formula
	return c.Get(ctx, p)
}

func (c *Client) list(ctx context.Context, p query.Params) (*listPage, error) {
	var page listPage
	if err := c.do(ctx, http.MethodGet, c.baseURL, p.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Insert creates one record.
func (c *Client) Insert(ctx context.Context, fields Fields) (*Response, error) {
	var body recordBody
	payload := fieldsPayload{Fields: fields, Typecast: c.config.Typecast}
	if err := c.do(ctx, http.MethodPost, c.baseURL, nil, payload, &body); err != nil {
		return nil, err
	}
	return body.response(), nil
}

// Update merges fields into the record with the given id. Fields not
// supplied keep their values.
func (c *Client) Update(ctx context.Context, id string, fields Fields) (*Response, error) {
	var body recordBody
	payload := fieldsPayload{Fields: fields, Typecast: c.config.Typecast}
	if err := c.do(ctx, http.MethodPatch, c.recordURL(id), nil, payload, &body); err != nil {
		return nil, err
	}
	return body.response(), nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) (*Response, error) {
	body, err := c.deleteOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return body.response(), nil
}

func (c *Client) deleteOne(ctx context.Context, id string) (*recordBody, error) {
	var body recordBody
	if err := c.do(ctx, http.MethodDelete, c.recordURL(id), nil, nil, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (b *recordBody) response() *Response {
	var records []Record
	if b.ID != "" {
		records = append(records, b.Record)
	}
	var errs []APIError
	if b.Error != nil {
		errs = append(errs, *b.Error)
	}
	return NewResponse(records, "", errs)
}
