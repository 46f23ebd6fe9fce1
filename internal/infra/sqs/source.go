// Package sqs implements the queue work source against an SQS-compatible
// endpoint. The queue carries S3 bucket-notification envelopes; only
// created-object records yield work.
package sqs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
	"github.com/subatic/transcode-worker/internal/domain/port"
)

const longPollSeconds = 20

type api interface {
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *awssqs.ChangeMessageVisibilityInput, optFns ...func(*awssqs.Options)) (*awssqs.ChangeMessageVisibilityOutput, error)
}

type Source struct {
	client    api
	queueURL  string
	keyPrefix string
	logger    *zap.Logger

	// A single envelope may carry several created-object records. They are
	// handed out one at a time under the same receipt; the message is only
	// deleted once the last of them completes.
	mu      sync.Mutex
	pending []string
	receipt string
}

type SourceConfig struct {
	QueueURL  string
	Region    string
	AccessKey string
	SecretKey string
	// KeyPrefix is stripped from event object keys to recover the video id.
	KeyPrefix string
}

func NewSource(ctx context.Context, cfg SourceConfig, logger *zap.Logger) (*Source, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Source{
		client:    awssqs.NewFromConfig(awsCfg),
		queueURL:  cfg.QueueURL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

// Next hands out the next created-object key: first any record remaining
// from the current message, otherwise a fresh long poll. Malformed envelopes
// are deleted as poison messages.
func (s *Source) Next(ctx context.Context) (*port.WorkItem, error) {
	if item, ok := s.nextPending(); ok {
		return item, nil
	}

	out, err := s.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     longPollSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	receipt := aws.ToString(msg.ReceiptHandle)

	keys, err := entity.ParseS3Event([]byte(aws.ToString(msg.Body)))
	if err != nil {
		if errors.Is(err, entity.ErrMalformedEnvelope) {
			s.logger.Warn("deleting poison message", zap.Error(err))
			s.delete(ctx, receipt)
		}
		return nil, err
	}
	if len(keys) == 0 {
		// Not a created-object event; nothing to do with it.
		s.logger.Debug("ignoring non-create event message")
		s.delete(ctx, receipt)
		return nil, nil
	}

	s.mu.Lock()
	s.pending = keys[1:]
	s.receipt = receipt
	s.mu.Unlock()

	videoID := strings.TrimPrefix(keys[0], s.keyPrefix)
	return &port.WorkItem{VideoID: videoID, Receipt: receipt}, nil
}

func (s *Source) nextPending() (*port.WorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	key := s.pending[0]
	s.pending = s.pending[1:]
	return &port.WorkItem{
		VideoID: strings.TrimPrefix(key, s.keyPrefix),
		Receipt: s.receipt,
	}, true
}

// Complete deletes the message after full job completion. When the message
// carried several records, deletion waits until the last one completes.
func (s *Source) Complete(ctx context.Context, item *port.WorkItem) error {
	s.mu.Lock()
	if item.Receipt == s.receipt && len(s.pending) > 0 {
		s.mu.Unlock()
		return nil
	}
	if item.Receipt == s.receipt {
		s.receipt = ""
	}
	s.mu.Unlock()

	_, err := s.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(item.Receipt),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Release zeroes the visibility timeout so the message is redelivered.
// Records still pending from the same message are dropped; redelivery
// re-covers them.
func (s *Source) Release(ctx context.Context, item *port.WorkItem) error {
	s.mu.Lock()
	if item.Receipt == s.receipt {
		s.pending = nil
		s.receipt = ""
	}
	s.mu.Unlock()

	_, err := s.client.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(s.queueURL),
		ReceiptHandle:     aws.String(item.Receipt),
		VisibilityTimeout: 0,
	})
	if err != nil {
		return fmt.Errorf("release message: %w", err)
	}
	return nil
}

func (s *Source) delete(ctx context.Context, receipt string) {
	_, err := s.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		s.logger.Warn("failed to delete message", zap.Error(err))
	}
}
