package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/streadway/amqp"
)

const retryHeader = "x-retry-count"

// RabbitMQQueue is a Queue backed by durable RabbitMQ queues, one per topic.
type RabbitMQQueue struct {
	conn       *amqp.Connection
	mu         sync.Mutex // guards ch for publishing
	ch         *amqp.Channel
	MaxRetries int
}

func NewRabbitMQQueue(url string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &RabbitMQQueue{conn: conn, ch: ch, MaxRetries: 3}, nil
}

func declare(ch *amqp.Channel, topic string) error {
	_, err := ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

func (q *RabbitMQQueue) Publish(topic string, job Job) error {
	return q.publish(topic, job, 0)
}

func (q *RabbitMQQueue) publish(topic string, job Job, retries int32) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := declare(q.ch, topic); err != nil {
		return fmt.Errorf("declare %s: %w", topic, err)
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: retries},
		Body:         body,
	})
}

// Subscribe consumes topic on its own channel. Failed jobs are republished
// with an incremented retry header until MaxRetries, then dropped.
func (q *RabbitMQQueue) Subscribe(topic string, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, topic); err != nil {
		return fmt.Errorf("declare %s: %w", topic, err)
	}
	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("⚠️ Invalid job:", err)
				d.Ack(false)
				continue
			}

			if err := handler(job); err != nil {
				retries := retryCount(d.Headers)
				if int(retries) < q.MaxRetries {
					log.Printf("⚠️ %s job failed (attempt %d/%d): %v\n", topic, retries+1, q.MaxRetries, err)
					if perr := q.publish(topic, job, retries+1); perr != nil {
						log.Println("⚠️ Failed to requeue job:", perr)
						d.Nack(false, true)
						continue
					}
				} else {
					log.Printf("⚠️ %s job permanently failed after %d attempts: %+v\n", topic, q.MaxRetries, job)
				}
			}
			d.Ack(false)
		}
	}()
	return nil
}

func retryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

func (q *RabbitMQQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}

var _ Queue = (*RabbitMQQueue)(nil)
