// Package kafka carries transcription tasks to workers and their results
// back to the gateway over Kafka (segmentio/kafka-go).
//
//   - Component: runs registered consumers and closes the producer on shutdown
//   - kafka/producer: JSON publishing with retries
//   - kafka/consumer: consumer-group reads with commit after handling
//
// Messages carry W3C trace context and the request id in headers, see
// HeaderCarrier.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "scribegate"
package kafka
