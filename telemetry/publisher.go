// Package telemetry publishes per-iteration registration progress to MQTT so
// an operator (or a recorder UI) can watch convergence live instead of
// waiting for Register to return.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/photoicp/icp"
)

// IterationReport is the JSON payload published after every Step.
type IterationReport struct {
	Iteration   int     `json:"iteration"`
	State       string  `json:"state"`
	Degenerate  bool    `json:"degenerate"`
	Angle       float64 `json:"angleDeltaRad"`
	Translation float64 `json:"translationDeltaMm"`
	Scale       float64 `json:"scale"`
	Timestamp   int64   `json:"timestamp"`
}

// FinalReport is published once Register returns.
type FinalReport struct {
	Status     string  `json:"status"`
	Iterations int     `json:"iterations"`
	Scale      float64 `json:"scale"`
	Timestamp  int64   `json:"timestamp"`
}

// Publisher publishes registration progress to MQTT. If the client is nil,
// publishing is a no-op, so a controller can run headless in tests.
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	retain bool
	mu     sync.Mutex
}

// NewPublisher builds a Publisher writing to topics under prefix. If prefix
// is empty, PHOTOICP_PUBLISH_PREFIX is consulted, defaulting to "photoicp".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = os.Getenv("PHOTOICP_PUBLISH_PREFIX")
	}
	if prefix == "" {
		prefix = "photoicp"
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		qos:    0,
		retain: false,
	}
}

// SetQoS sets the MQTT quality-of-service level used for every publish.
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// PublishIteration reports one completed Step, using the incremental delta
// and the controller's running iteration count.
func (p *Publisher) PublishIteration(sessionID string, iteration int, state icp.State, delta icp.Transform, degenerate bool) error {
	report := IterationReport{
		Iteration:   iteration,
		State:       state.String(),
		Degenerate:  degenerate,
		Angle:       delta.Q.AngleDelta(),
		Translation: delta.T.Norm(),
		Scale:       delta.S,
		Timestamp:   time.Now().Unix(),
	}
	return p.publish(fmt.Sprintf("%s/%s/iteration", p.prefix, sessionID), report)
}

// PublishFinal reports the terminal outcome of a Register call.
func (p *Publisher) PublishFinal(sessionID string, status icp.Status, iterations int, global icp.Transform) error {
	report := FinalReport{
		Status:     status.String(),
		Iterations: iterations,
		Scale:      global.S,
		Timestamp:  time.Now().Unix(),
	}
	return p.publish(fmt.Sprintf("%s/%s/final", p.prefix, sessionID), report)
}

func (p *Publisher) publish(topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || !p.client.IsConnected() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetry: marshaling %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, data)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("telemetry: publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// Connect dials broker and returns a ready mqtt.Client, or nil if broker is
// empty (telemetry disabled).
func Connect(broker, clientID string) (mqtt.Client, error) {
	if broker == "" {
		log.Println("telemetry: MQTT disabled, no broker configured")
		return nil, nil
	}
	if clientID == "" {
		clientID = "photoicp"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connecting to %s: %w", broker, token.Error())
	}
	return client, nil
}
