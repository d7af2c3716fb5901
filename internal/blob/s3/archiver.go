package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"predictd/internal/domain"
)

// TradeJournal is the read side the archiver needs: the committed trades in
// commit order. The persistence coordinator satisfies it.
type TradeJournal interface {
	Trades() []*domain.Trade
}

// Archiver serializes the trade journal to JSONL and uploads it to
// archive/trades/YYYY-MM-DD.jsonl. Archives are write-only from the engine's
// point of view.
type Archiver struct {
	client  *Client
	journal TradeJournal
}

// NewArchiver creates an Archiver over the given client and journal.
func NewArchiver(client *Client, journal TradeJournal) *Archiver {
	return &Archiver{client: client, journal: journal}
}

// ArchiveTrades uploads a JSONL snapshot of every trade committed before the
// cutoff and returns the number of archived records. Nothing is uploaded
// when the journal is empty.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	var kept []*domain.Trade
	for _, t := range a.journal.Trades() {
		if t.CreatedAt.Before(before) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(kept)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := fmt.Sprintf("archive/trades/%s.jsonl", before.UTC().Format("2006-01-02"))
	_, err = a.client.S3().PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.Bucket()),
		Key:         aws.String(path),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload %s: %w", path, err)
	}
	return int64(len(kept)), nil
}

// marshalJSONL renders one JSON object per line.
func marshalJSONL(trades []*domain.Trade) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
