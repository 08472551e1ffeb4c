// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ObjectEvent is a newly created object in the bucket.
type ObjectEvent struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	// Metadata holds user metadata with lower-cased keys and without the
	// x-amz-meta- prefix. Nil when the notification carried none.
	Metadata map[string]string
}

// notification is an S3 bucket notification as sent by AWS and MinIO.
type notification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key          string            `json:"key"`
				Size         int64             `json:"size"`
				ContentType  string            `json:"contentType"`
				UserMetadata map[string]string `json:"userMetadata"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseNotification extracts object-created events from a bucket
// notification. Other event types are dropped.
func ParseNotification(data []byte) ([]ObjectEvent, error) {
	var n notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode bucket notification: %w", err)
	}

	var events []ObjectEvent
	for _, r := range n.Records {
		if !strings.Contains(r.EventName, "ObjectCreated:") {
			continue
		}
		// Keys arrive form-encoded: spaces as '+', everything else as %XX.
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decode object key %q: %w", r.S3.Object.Key, err)
		}

		var meta map[string]string
		if len(r.S3.Object.UserMetadata) > 0 {
			meta = make(map[string]string, len(r.S3.Object.UserMetadata))
			for k, v := range r.S3.Object.UserMetadata {
				k = strings.ToLower(k)
				k = strings.TrimPrefix(k, "x-amz-meta-")
				meta[k] = v
			}
		}

		events = append(events, ObjectEvent{
			Bucket:      r.S3.Bucket.Name,
			Key:         key,
			Size:        r.S3.Object.Size,
			ContentType: r.S3.Object.ContentType,
			Metadata:    meta,
		})
	}
	return events, nil
}
