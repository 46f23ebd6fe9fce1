package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEnvelope marks a work-source payload that does not match the
// expected schema. Poison messages are detected with errors.Is.
var ErrMalformedEnvelope = errors.New("malformed work envelope")

// S3EventEnvelope is the bucket-notification body delivered by the queue
// work source.
type S3EventEnvelope struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string `json:"eventName"`
	S3        struct {
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// Created reports whether the record describes a new object.
func (r S3EventRecord) Created() bool {
	return strings.HasPrefix(r.EventName, "ObjectCreated:")
}

// ParseS3Event decodes a queue message body and returns the object keys of
// its created-object records. Missing records or keys are schema errors, not
// silently skipped.
func ParseS3Event(body []byte) ([]string, error) {
	var env S3EventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(env.Records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrMalformedEnvelope)
	}

	var keys []string
	for _, rec := range env.Records {
		if !rec.Created() {
			continue
		}
		if rec.S3.Object.Key == "" {
			return nil, fmt.Errorf("%w: created record without object key", ErrMalformedEnvelope)
		}
		keys = append(keys, rec.S3.Object.Key)
	}
	return keys, nil
}

// WorkMessage is the direct-queue body used by the AMQP work source.
type WorkMessage struct {
	ID string `json:"id"`
}

// ParseWorkMessage decodes an AMQP message body.
func ParseWorkMessage(body []byte) (string, error) {
	var msg WorkMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if msg.ID == "" {
		return "", fmt.Errorf("%w: missing id", ErrMalformedEnvelope)
	}
	return msg.ID, nil
}

// NextVideoResponse is the webhook getNext body. An absent id means no work.
type NextVideoResponse struct {
	ID string `json:"id"`
}

// StatusUpdate is the terminal status report posted upstream.
type StatusUpdate struct {
	ID       string         `json:"id"`
	Status   ReportedStatus `json:"status"`
	Duration float64        `json:"duration"`
}
