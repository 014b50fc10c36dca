package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/luki/soilmon/internal/telemetry"
)

// Options configures the connection to the remote sensor database.
type Options struct {
	HistoryURL string // base URL of the historical query endpoint
	Broker     string // MQTT broker, e.g. "tcp://127.0.0.1:1883"
	Topic      string // topic carrying snapshot payloads
	ClientID   string
}

// Remote reads historical data over HTTP and live snapshots over MQTT.
// Reconnect policy is fail-fast: a lost connection is surfaced to the
// subscriber as a terminal error rather than retried here.
type Remote struct {
	opts   Options
	client mqtt.Client
	http   *http.Client
	log    *slog.Logger

	mu     sync.Mutex
	onLost func(error)
}

// NewRemote connects to the MQTT broker and returns the source.
func NewRemote(opts Options, log *slog.Logger) (*Remote, error) {
	r := &Remote{
		opts: opts,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log.With(slog.String("component", "source")),
	}

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			r.connectionLost(err)
		})

	r.client = mqtt.NewClient(mqttOpts)
	token := r.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}

	return r, nil
}

func (r *Remote) connectionLost(err error) {
	r.log.Error("live connection lost", "error", err)

	r.mu.Lock()
	onLost := r.onLost
	r.onLost = nil
	r.mu.Unlock()

	if onLost != nil {
		onLost(fmt.Errorf("live connection lost: %w", err))
	}
}

// History implements Source. It queries all records newer than
// now - lookback; the response is a JSON array in insertion order.
func (r *Remote) History(ctx context.Context, lookback time.Duration) (telemetry.Snapshot, error) {
	since := time.Now().Add(-lookback).UnixMilli()
	url := r.opts.HistoryURL + "/readings?since=" + strconv.FormatInt(since, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("historical query: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("historical query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("historical query: status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("historical query: read body: %w", err)
	}
	return DecodeSnapshot(body)
}

// Subscribe implements Source. Every message published on the topic is
// decoded as a full snapshot and handed to onUpdate.
func (r *Remote) Subscribe(onUpdate func(telemetry.Snapshot), onError func(error)) (Unsubscribe, error) {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		snap, err := DecodeSnapshot(msg.Payload())
		if err != nil {
			r.log.Warn("dropping undecodable snapshot", "error", err)
			return
		}
		if len(snap) == 0 {
			return
		}
		onUpdate(snap)
	}

	token := r.client.Subscribe(r.opts.Topic, 1, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", r.opts.Topic, err)
	}

	r.mu.Lock()
	r.onLost = onError
	r.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			r.mu.Lock()
			r.onLost = nil
			r.mu.Unlock()

			t := r.client.Unsubscribe(r.opts.Topic)
			t.Wait()
			if err := t.Error(); err != nil {
				r.log.Warn("unsubscribe failed", "error", err)
			}
		})
	}
	return unsub, nil
}

// Close disconnects from the broker.
func (r *Remote) Close() {
	r.mu.Lock()
	r.onLost = nil
	r.mu.Unlock()

	r.client.Disconnect(250)
}

// DecodeSnapshot parses the wire form of a snapshot: a JSON array of
// flat record objects, each carrying a "key" plus measurement fields.
// Array order is the insertion order; the last element is the newest.
func DecodeSnapshot(data []byte) (telemetry.Snapshot, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := make(telemetry.Snapshot, 0, len(items))
	for _, fields := range items {
		key, _ := fields["key"].(string)
		delete(fields, "key")
		snap = append(snap, telemetry.RawRecord{Key: key, Fields: fields})
	}
	return snap, nil
}
