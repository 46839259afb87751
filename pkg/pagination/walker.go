package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// MaxRecordsPerRequest is the largest batch the server accepts in one
// create, update or delete request.
const MaxRecordsPerRequest = 10

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airtable_pages_fetched_total",
		Help: "Total number of list pages fetched by cursor walks",
	})

	chunksSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airtable_chunks_sent_total",
		Help: "Total number of chunks processed by bulk operations",
	})
)

// Pacer is called between successive requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FetchFunc fetches the page at cursor (empty for the first page) and
// returns the next cursor and the number of records the page held.
type FetchFunc func(ctx context.Context, cursor string) (next string, count int, err error)

// Walk calls fetch until it returns an empty cursor or an empty page. It
// returns the number of pages fetched.
func Walk(ctx context.Context, pacer Pacer, fetch FetchFunc) (int, error) {
	start := time.Now()
	cursor := ""
	pages := 0

	for {
		next, count, err := fetch(ctx, cursor)
		if err != nil {
			return pages, fmt.Errorf("fetch page %d: %w", pages+1, err)
		}
		pages++
		pagesFetchedTotal.Inc()

		log.Debug().
			Int("page", pages).
			Int("records", count).
			Bool("more", next != "").
			Msg("Page fetched")

		if next == "" || count == 0 {
			break
		}
		cursor = next

		if err := pace(ctx, pacer); err != nil {
			return pages, err
		}
	}

	log.Debug().
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Cursor walk complete")

	return pages, nil
}

// EachChunk splits items into chunks of at most size and calls fn once per
// chunk in order, pacing between calls.
func EachChunk[T any](ctx context.Context, pacer Pacer, items []T, size int, fn func(ctx context.Context, chunk []T) error) error {
	chunks := Chunk(items, size)

	for i, chunk := range chunks {
		if i > 0 {
			if err := pace(ctx, pacer); err != nil {
				return err
			}
		}

		if err := fn(ctx, chunk); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		chunksSentTotal.Inc()

		log.Debug().
			Int("chunk", i+1).
			Int("total", len(chunks)).
			Int("size", len(chunk)).
			Msg("Chunk processed")
	}

	return nil
}

// Chunk splits items into consecutive sub-slices of at most size elements.
// The sub-slices share the backing array of items. A non-positive size
// means MaxRecordsPerRequest.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxRecordsPerRequest
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end:end])
	}
	return chunks
}

func pace(ctx context.Context, pacer Pacer) error {
	if pacer == nil {
		return ctx.Err()
	}
	if err := pacer.Wait(ctx); err != nil {
		return fmt.Errorf("pacing: %w", err)
	}
	return nil
}
