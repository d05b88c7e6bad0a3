package generate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeTopics reads study material as either a JSON array of topics or a
// JSON object mapping titles to content. Object order is preserved.
func DecodeTopics(r io.Reader) ([]Topic, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	var list []Topic
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("decode topics: expected array or object")
	}
	var topics []Topic
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode topics: %w", err)
		}
		var content string
		if err := dec.Decode(&content); err != nil {
			return nil, fmt.Errorf("decode topic %v: %w", keyTok, err)
		}
		topics = append(topics, Topic{Title: keyTok.(string), Content: content})
	}
	return topics, nil
}
