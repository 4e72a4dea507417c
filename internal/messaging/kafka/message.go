// Package kafka carries pipeline messages over Apache Kafka using
// segmentio/kafka-go.
package kafka

import (
	"sort"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

func toKafka(msg messaging.Message) kafkago.Message {
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(msg.Headers[k])})
	}

	return kafkago.Message{
		Topic:   msg.Topic.String(),
		Key:     []byte(msg.Key),
		Value:   []byte(msg.Payload),
		Headers: headers,
		Time:    msg.PublishedAt,
	}
}

func fromKafka(km kafkago.Message) messaging.Message {
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}

	return messaging.Message{
		ID:          headers[messaging.HeaderMessageID],
		Topic:       domain.Topic(km.Topic),
		Key:         string(km.Key),
		Payload:     string(km.Value),
		Headers:     headers,
		PublishedAt: km.Time,
	}
}
