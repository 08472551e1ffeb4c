// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ingest

import "testing"

func TestParseNotification(t *testing.T) {
	msg := `{"Records":[{"eventName":"ObjectCreated:CompleteMultipartUpload","s3":{
		"bucket":{"name":"themes"},
		"object":{"key":"imports/a%2Bb%20c.jpg","size":42,"contentType":"image/jpeg",
			"userMetadata":{"X-Amz-Meta-Theme-Name":"Spring","content-type":"image/jpeg"}}}}]}`

	events, err := ParseNotification([]byte(msg))
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events: got %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Key != "imports/a+b c.jpg" {
		t.Errorf("key: got %q", ev.Key)
	}
	if ev.Bucket != "themes" || ev.Size != 42 || ev.ContentType != "image/jpeg" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Metadata["theme-name"] != "Spring" {
		t.Errorf("metadata: %v", ev.Metadata)
	}
}

func TestParseNotificationWithoutMetadata(t *testing.T) {
	events, err := ParseNotification([]byte(`{"Records":[{"eventName":"s3:ObjectCreated:Copy","s3":{"object":{"key":"imports/x.png"}}}]}`))
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if len(events) != 1 || events[0].Metadata != nil {
		t.Errorf("expected one event with nil metadata, got %+v", events)
	}
}

func TestParseNotificationBadKey(t *testing.T) {
	if _, err := ParseNotification([]byte(`{"Records":[{"eventName":"s3:ObjectCreated:Put","s3":{"object":{"key":"%zz"}}}]}`)); err == nil {
		t.Error("expected error for malformed key encoding")
	}
}
