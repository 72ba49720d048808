package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// Payload is the opaque key-value bag attached to a hit. The client never interprets it.
type Payload map[string]any

// Result is a single search hit.
type Result struct {
	payload Payload
	score   *float64
}

// New creates a search result. A nil score marks an unranked hit.
func New(payload Payload, score *float64) Result {
	return Result{payload: payload, score: score}
}

// Payload returns a shallow copy of the hit payload.
func (r *Result) Payload() Payload { return maps.Clone(r.payload) }

// Score returns the relevance score and whether it was present.
func (r *Result) Score() (float64, bool) {
	if r.score == nil {
		return 0, false
	}
	return *r.score, true
}

// List is an ordered sequence of hits. Backend order is the effective ranking.
type List []Result

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(body []byte) error {
	res, err := Decode(body)
	if err != nil {
		return err
	}
	*l = res
	return nil
}

// Decode parses a backend response body into hits, preserving backend order.
// A JSON null decodes to an empty list.
//
// Two item shapes are accepted: an envelope {"payload": {...}, "score": n}
// and a bare payload object, which becomes an unranked hit. Anything else
// is an error.
func Decode(body []byte) (List, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	out := make(List, len(raw))
	for i, item := range raw {
		r, err := decodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("decode search result #%d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func decodeItem(item json.RawMessage) (Result, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return Result{}, err
	}
	if obj == nil {
		return Result{}, errors.New("hit is null")
	}

	rawPayload, ok := obj["payload"]
	if !ok {
		var p Payload
		if err := json.Unmarshal(item, &p); err != nil {
			return Result{}, err
		}
		return New(p, nil), nil
	}

	var p Payload
	if err := json.Unmarshal(rawPayload, &p); err != nil {
		return Result{}, fmt.Errorf("payload: %w", err)
	}
	var score *float64
	if rawScore, ok := obj["score"]; ok {
		if err := json.Unmarshal(rawScore, &score); err != nil {
			return Result{}, fmt.Errorf("score: %w", err)
		}
	}
	return New(p, score), nil
}
