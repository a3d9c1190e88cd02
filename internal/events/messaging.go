package events

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const OrderCompletedQueue = "order.completed"

func MustDialRabbit(url string) *amqp.Connection {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Fatalf("connect to RabbitMQ: %v", err)
	}
	return conn
}
