// Package tail invokes the source log read and hands the parsed header
// plus a streaming record reader to the caller.
package tail

import (
	"context"
	"fmt"

	"github.com/objectstream/ingestd/pkg/logstream"
	"github.com/objectstream/ingestd/pkg/sourceclient"
)

// Producer drives readLog for one source bucket's partition.
type Producer struct {
	client *sourceclient.Client
}

// NewProducer builds a Producer for one source bucket's client.
func NewProducer(client *sourceclient.Client) *Producer {
	return &Producer{client: client}
}

// Produce reads up to limit records starting at startSeq and returns the
// header plus a stream the caller must Close. targetLeader is always false
// for tail reads.
func (p *Producer) Produce(ctx context.Context, partitionID string, startSeq, limit int64) (*logstream.Stream, error) {
	stream, err := p.client.ReadLog(ctx, partitionID, startSeq, limit, false)
	if err != nil {
		return nil, fmt.Errorf("tail: read log: %w", err)
	}
	return stream, nil
}
