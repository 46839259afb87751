// Package pagination drives multi-request operations against the Airtable
// API one request at a time.
//
// Airtable list responses carry an opaque offset cursor while more pages
// remain, and batch writes accept at most 10 records per request. This
// package provides the two loops built on those rules:
//
//	// Follow the cursor until it runs out
//	pages, err := pagination.Walk(ctx, pacer, func(ctx context.Context, cursor string) (string, int, error) {
//		page, err := fetch(ctx, cursor)
//		if err != nil {
//			return "", 0, err
//		}
//		all = append(all, page.Records...)
//		return page.Offset, len(page.Records), nil
//	})
//
//	// Send a large batch in chunks of 10
//	err := pagination.EachChunk(ctx, pacer, fieldsList, pagination.MaxRecordsPerRequest,
//		func(ctx context.Context, chunk []Fields) error {
//			return create(ctx, chunk)
//		})
//
// Both loops:
//   - Issue requests sequentially, never in parallel
//   - Call the pacer strictly between requests, never before the first or after the last
//   - Stop at the first error and return it
package pagination
