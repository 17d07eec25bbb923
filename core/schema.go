package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Event is a single threat-intelligence record as held by the document store.
type Event struct {
	ID           string      `json:"id" bson:"_id" example:"5f1f0c1e-2d0b-4a8e-9a57-0d3c2f5b7e11"`
	Source       string      `json:"source,omitempty" bson:"source,omitempty" example:"feed"`
	FeedProvider string      `json:"feed_provider,omitempty" bson:"feed_provider,omitempty" example:"abuse.ch"`
	FeedName     string      `json:"feed_name,omitempty" bson:"feed_name,omitempty" example:"urlhaus"`
	ImportTime   time.Time   `json:"import_time" bson:"import_time" swaggertype:"string" example:"2024-05-01T12:00:00Z"`
	DetectTime   *time.Time  `json:"detect_time,omitempty" bson:"detect_time,omitempty" swaggertype:"string"`
	Tags         []string    `json:"tags,omitempty" bson:"tags,omitempty"`
	Observables  Observables `json:"observables" bson:"observables"`
}

// Observables groups the typed indicators attached to an event.
type Observables struct {
	IPv4      []IPv4Observable      `json:"ipv4,omitempty" bson:"ipv4,omitempty"`
	FQDN      []FQDNObservable      `json:"fqdn,omitempty" bson:"fqdn,omitempty"`
	DNSAnswer []DNSAnswerObservable `json:"dns_answer,omitempty" bson:"dns_answer,omitempty"`
}

// IPv4Observable is a bare IPv4 address indicator.
type IPv4Observable struct {
	IPv4 string `json:"ipv4" bson:"ipv4"`
}

// FQDNObservable is a fully-qualified domain name indicator.
type FQDNObservable struct {
	FQDN string `json:"fqdn" bson:"fqdn"`
}

// DNSAnswerObservable is a single resource record from a DNS response.
type DNSAnswerObservable struct {
	Name    string `json:"name" bson:"name"`
	Section string `json:"section,omitempty" bson:"section,omitempty"`
	RRClass string `json:"rr_class,omitempty" bson:"rr_class,omitempty"`
	RRType  string `json:"rr_type,omitempty" bson:"rr_type,omitempty"`
	FQDN    string `json:"fqdn,omitempty" bson:"fqdn,omitempty"`
	IPv4    string `json:"ipv4,omitempty" bson:"ipv4,omitempty"`
	IPv6    string `json:"ipv6,omitempty" bson:"ipv6,omitempty"`
}

// NewEvent creates an Event with a generated UUID imported now.
func NewEvent() *Event {
	return &Event{
		ID:         uuid.New().String(),
		ImportTime: time.Now().UTC(),
	}
}

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are tried in order when a stored timestamp is a string.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
}

// timeDecodeHook converts stored timestamps (strings or unix seconds) into time.Time.
func timeDecodeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unrecognized timestamp %q", v)
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return data, nil
}

// EventFromMap builds an Event from a decoded store record. Records without an
// import_time, or with fields of the wrong shape, are rejected with ErrMalformedEvent.
func EventFromMap(raw map[string]interface{}) (*Event, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedEvent)
	}

	var event Event
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &event,
		DecodeHook: timeDecodeHook,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.ImportTime.IsZero() {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEvent, FieldImportTime)
	}
	return &event, nil
}

// ToMap returns the JSON document form of the event, as written to the stores.
func (e *Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", e.ID, err)
	}
	return doc, nil
}
