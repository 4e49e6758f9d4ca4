package services

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"livematch-service/logger"
)

// AMQPConsumer 第二条推送通道：部分上游环境走 AMQP 投递和 MQTT
// 相同格式的事件。消息体交给 PushHandler，和 MQTT 共用归一化逻辑
type AMQPConsumer struct {
	url     string
	queue   string
	handler *PushHandler

	conn    *amqp.Connection
	channel *amqp.Channel
	done    chan bool
}

// NewAMQPConsumer 创建 AMQP 消费者
func NewAMQPConsumer(url, queue string, handler *PushHandler) *AMQPConsumer {
	return &AMQPConsumer{
		url:     url,
		queue:   queue,
		handler: handler,
		done:    make(chan bool),
	}
}

// Start 连接并开始消费，断线自动重连
func (c *AMQPConsumer) Start() error {
	if err := c.connect(); err != nil {
		return err
	}

	go c.reconnectLoop()
	return nil
}

// Stop 停止消费
func (c *AMQPConsumer) Stop() {
	close(c.done)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}

	logger.Println("[AMQP] Consumer stopped")
}

func (c *AMQPConsumer) connect() error {
	logger.Printf("[AMQP] Connecting to %s...", c.url)

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	c.conn = conn

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	c.channel = channel

	// 设置QoS
	if err := channel.Qos(100, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// 声明队列
	queue, err := channel.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	deliveries, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go c.consumeLoop(deliveries)

	logger.Printf("[AMQP] ✅ Consuming from queue %s", queue.Name)
	return nil
}

func (c *AMQPConsumer) consumeLoop(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.handler.HandleMessage("amqp:"+c.queue, d.Body, time.Now())
	}
}

// reconnectLoop 监听连接断开，退避重连
func (c *AMQPConsumer) reconnectLoop() {
	for {
		closed := make(chan *amqp.Error)
		c.conn.NotifyClose(closed)

		select {
		case <-c.done:
			return
		case err := <-closed:
			if err != nil {
				logger.Errorf("[AMQP] Connection lost: %v", err)
			}
		}

		// 退避重连，直到成功或停止
		for {
			select {
			case <-c.done:
				return
			case <-time.After(5 * time.Second):
			}

			if err := c.connect(); err != nil {
				logger.Errorf("[AMQP] Reconnect failed: %v", err)
				continue
			}
			logger.Println("[AMQP] ✅ Reconnected")
			break
		}
	}
}
