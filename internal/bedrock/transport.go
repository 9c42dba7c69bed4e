// Package bedrock opens bidirectional Nova Sonic streams through the AWS
// Bedrock runtime and adapts them to the streaming transport interface.
package bedrock

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/ebuka1017/Robin/internal/logging"
	"github.com/ebuka1017/Robin/internal/streaming"
)

// Client invokes Nova Sonic over the Bedrock runtime. Credentials come
// from the default AWS chain (environment, shared config, instance role).
type Client struct {
	runtime *bedrockruntime.Client
	modelID string
	log     *logging.Logger
}

// NewClient builds a Bedrock client for the given region and model.
func NewClient(ctx context.Context, region, modelID string, log *logging.Logger) (*Client, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &Client{
		runtime: bedrockruntime.NewFromConfig(awscfg),
		modelID: modelID,
		log:     log,
	}, nil
}

// Factory returns a transport factory that opens one fresh model stream
// per call.
func (c *Client) Factory() streaming.TransportFactory {
	return func(ctx context.Context) (streaming.ModelTransport, error) {
		return c.openStream(ctx)
	}
}

func (c *Client) openStream(ctx context.Context) (*bidiTransport, error) {
	out, err := c.runtime.InvokeModelWithBidirectionalStream(ctx, &bedrockruntime.InvokeModelWithBidirectionalStreamInput{
		ModelId: aws.String(c.modelID),
	})
	if err != nil {
		return nil, fmt.Errorf("invoking model stream: %w", err)
	}
	c.log.Debug().Str("modelId", c.modelID).Msg("model stream opened")
	return &bidiTransport{stream: out.GetStream(), log: c.log}, nil
}

// bidiTransport adapts one bidirectional event stream. The SDK stream
// allows one concurrent sender; the streaming layer already serializes
// sends, and closeOnce keeps Close idempotent against racing callers.
type bidiTransport struct {
	stream    *bedrockruntime.InvokeModelWithBidirectionalStreamEventStream
	log       *logging.Logger
	closeOnce sync.Once
	closeErr  error
}

func (t *bidiTransport) Send(ctx context.Context, payload []byte) error {
	chunk := &types.InvokeModelWithBidirectionalStreamInputMemberChunk{
		Value: types.BidirectionalInputPayloadPart{Bytes: payload},
	}
	if err := t.stream.Send(ctx, chunk); err != nil {
		return fmt.Errorf("sending to model stream: %w", err)
	}
	return nil
}

// Receive blocks for the next output chunk. It returns io.EOF once the
// model closes its side cleanly.
func (t *bidiTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case event, ok := <-t.stream.Events():
		if !ok {
			if err := t.stream.Err(); err != nil {
				return nil, fmt.Errorf("model stream failed: %w", err)
			}
			return nil, io.EOF
		}
		chunk, ok := event.(*types.InvokeModelWithBidirectionalStreamOutputMemberChunk)
		if !ok {
			t.log.Warn().Str("eventType", fmt.Sprintf("%T", event)).Msg("unexpected stream event type")
			return t.Receive(ctx)
		}
		return chunk.Value.Bytes, nil
	}
}

func (t *bidiTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.stream.Close()
	})
	return t.closeErr
}
