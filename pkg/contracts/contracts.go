// Package contracts pins the wire formats shortsfeed exchanges with the feed
// backend and the view event bus.
package contracts

import (
	"encoding/json"
	"fmt"
)

// FeedPageContract is a GET /api/feed response as served by the backend.
// published_at is unix seconds.
const FeedPageContract = `[
	{
		"id": "dQw4w9WgXcQ",
		"channel_id": "UCGV3L8VTtvew5_yYVPObX0Q",
		"channel_name": "Gopher Shorts",
		"title": "Goroutines in 60 seconds",
		"thumbnail": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		"published_at": 1717200000,
		"embed_url": "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1"
	},
	{
		"id": "9bZkp7q19f0",
		"channel_id": "UCGV3L8VTtvew5_yYVPObX0Q",
		"channel_name": "@UCGV3L8VTtvew5_yYVPObX0Q",
		"title": "Select without default",
		"thumbnail": "https://i.ytimg.com/vi/9bZkp7q19f0/hqdefault.jpg",
		"published_at": 1717100000,
		"embed_url": "https://www.youtube.com/embed/9bZkp7q19f0?autoplay=1"
	}
]`

// ExhaustedPageContract is the response once a session has nothing left.
const ExhaustedPageContract = `[]`

// ErrorContract is the backend's error body.
const ErrorContract = `{"detail": "invalid session"}`

// ViewedEventContract is the payload published on the view subject.
const ViewedEventContract = `{"video_id": "dQw4w9WgXcQ", "viewed_at": "2024-06-01T00:00:00Z"}`

// VideoFields are the keys every feed item carries.
var VideoFields = []string{"id", "channel_id", "channel_name", "title", "thumbnail", "published_at", "embed_url"}

// ViewedEventFields are the keys of a view event.
var ViewedEventFields = []string{"video_id", "viewed_at"}

// CheckObject reports the first required key missing from a JSON object.
func CheckObject(raw []byte, required []string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("not a JSON object: %w", err)
	}
	for _, key := range required {
		if _, ok := obj[key]; !ok {
			return fmt.Errorf("missing field %q", key)
		}
	}
	return nil
}

// CheckPage validates every item of a feed page.
func CheckPage(raw []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("feed page is not a JSON array: %w", err)
	}
	for i, item := range items {
		if err := CheckObject(item, VideoFields); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}
