/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mqtt wraps the paho client into a Session with a persistent broker
// session, automatic reconnect and ordered channel delivery.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/carverauto/noiseradar/pkg/logger"
	"github.com/carverauto/noiseradar/pkg/models"
)

const (
	defaultReconnectInterval = 2 * time.Second
	defaultBufferSize        = 1024
	defaultKeepAlive         = 30 * time.Second
	defaultPingTimeout       = 10 * time.Second
	disconnectQuiesceMs      = 250
	subscribeTimeout         = 10 * time.Second
)

var (
	ErrBrokerRequired   = errors.New("mqtt broker url is required")
	ErrCAParsingFailed  = errors.New("failed to parse MQTT CA certificate")
	errAlreadyConnected = errors.New("mqtt session already connected")
)

// Config describes a session.
type Config struct {
	BrokerURL         string
	Username          string
	Password          string
	ClientID          string
	CleanSession      bool
	ReconnectInterval time.Duration
	TLS               *tls.Config
	Subscriptions     []Subscription
	BufferSize        int
}

// ClientID builds the conventional "<prefix>-<pid>" identifier.
func ClientID(prefix string) string {
	if prefix == "" {
		prefix = "noiseradar"
	}

	return fmt.Sprintf("%s-%d", prefix, os.Getpid())
}

// TLSConfigFrom builds a client TLS config trusting the CA in tlsCfg.CAFile
// and presenting a client certificate when one is configured.
func TLSConfigFrom(tlsCfg *models.TLSConfig) (*tls.Config, error) {
	if tlsCfg == nil {
		return nil, nil
	}

	conf := &tls.Config{MinVersion: tls.VersionTLS12}

	if tlsCfg.CAFile != "" {
		caCert, err := os.ReadFile(tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read MQTT CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, ErrCAParsingFailed
		}

		conf.RootCAs = pool
	}

	if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load MQTT client certificate: %w", err)
		}

		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}

// PahoSession implements Session on top of eclipse/paho.mqtt.golang.
type PahoSession struct {
	cfg    Config
	logger logger.Logger

	client   paho.Client
	messages chan Message
	closing  chan struct{}

	mu     sync.RWMutex
	status ConnectionStatus

	// sendMu is held for reading by every handler that may send on
	// messages. Disconnect takes it for writing before closing the channel.
	sendMu sync.RWMutex
	closed bool

	closeOnce sync.Once
}

var _ Session = (*PahoSession)(nil)

// NewSession validates cfg and prepares a session. Nothing is dialed until
// Connect.
func NewSession(cfg Config, log logger.Logger) (*PahoSession, error) {
	if cfg.BrokerURL == "" {
		return nil, ErrBrokerRequired
	}

	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	if cfg.ClientID == "" {
		cfg.ClientID = ClientID("")
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &PahoSession{
		cfg:      cfg,
		logger:   log,
		messages: make(chan Message, cfg.BufferSize),
		closing:  make(chan struct{}),
		status:   StatusDisconnected,
	}

	s.client = paho.NewClient(s.clientOptions())

	return s, nil
}

func (s *PahoSession) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(s.cfg.CleanSession).
		SetKeepAlive(defaultKeepAlive).
		SetPingTimeout(defaultPingTimeout).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(s.cfg.ReconnectInterval).
		SetMaxReconnectInterval(s.cfg.ReconnectInterval).
		SetDefaultPublishHandler(s.handleMessage).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost).
		SetReconnectingHandler(s.onReconnecting)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	if s.cfg.TLS != nil {
		opts.SetTLSConfig(s.cfg.TLS)
	}

	return opts
}

// Connect dials the broker and blocks until the first connection succeeds or
// ctx ends. Later drops are handled by the client's own reconnect loop.
func (s *PahoSession) Connect(ctx context.Context) error {
	if s.client.IsConnected() {
		return errAlreadyConnected
	}

	s.logger.Info().
		Str("broker", s.cfg.BrokerURL).
		Str("client_id", s.cfg.ClientID).
		Bool("clean_session", s.cfg.CleanSession).
		Dur("reconnect_interval", s.cfg.ReconnectInterval).
		Bool("tls", s.cfg.TLS != nil).
		Msg("Connecting to MQTT broker")

	token := s.client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}

		return nil
	case <-ctx.Done():
		s.client.Disconnect(0)

		return fmt.Errorf("mqtt connect: %w", ctx.Err())
	}
}

// Messages is the ordered inbound stream. It closes after Disconnect.
func (s *PahoSession) Messages() <-chan Message {
	return s.messages
}

// Status reports the current connection state.
func (s *PahoSession) Status() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// Disconnect closes the broker connection and the message channel.
func (s *PahoSession) Disconnect() {
	s.closeOnce.Do(func() {
		close(s.closing)

		// Called even while reconnecting: it is what stops paho's retry loop.
		s.client.Disconnect(disconnectQuiesceMs)

		s.setStatus(StatusDisconnected)

		// paho may still be inside a handler after Disconnect returns. Wait
		// for those to leave before closing the channel they send on.
		s.sendMu.Lock()
		s.closed = true
		close(s.messages)
		s.sendMu.Unlock()

		s.logger.Info().Msg("MQTT session closed")
	})
}

func (s *PahoSession) setStatus(status ConnectionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *PahoSession) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *PahoSession) onConnect(client paho.Client) {
	if s.isClosing() {
		s.logger.Debug().Msg("MQTT connected after shutdown, not subscribing")
		return
	}

	s.setStatus(StatusConnected)
	s.logger.Info().Str("broker", s.cfg.BrokerURL).Msg("MQTT connected")

	if len(s.cfg.Subscriptions) == 0 {
		return
	}

	filters := make(map[string]byte, len(s.cfg.Subscriptions))
	for _, sub := range s.cfg.Subscriptions {
		filters[sub.Filter] = sub.QoS
	}

	token := client.SubscribeMultiple(filters, s.handleMessage)

	go func() {
		if !token.WaitTimeout(subscribeTimeout) {
			s.logger.Error().Msg("MQTT subscribe timed out")
			return
		}

		if err := token.Error(); err != nil {
			s.logger.Error().Err(err).Msg("MQTT subscribe failed")
			return
		}

		for _, sub := range s.cfg.Subscriptions {
			s.logger.Info().Str("topic", sub.Filter).Uint8("qos", sub.QoS).Msg("MQTT subscribed")
		}
	}()
}

func (s *PahoSession) onConnectionLost(_ paho.Client, err error) {
	if s.isClosing() {
		return
	}

	s.setStatus(StatusReconnecting)
	s.logger.Warn().Err(err).Msg("MQTT connection lost")
}

func (s *PahoSession) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	if s.isClosing() {
		return
	}

	s.setStatus(StatusReconnecting)
	s.logger.Info().Bool("clean_session", s.cfg.CleanSession).Msg("MQTT reconnecting")
}

// handleMessage copies the publish into the channel. It blocks while the
// consumer is behind so ordering holds, and gives up once the session closes.
func (s *PahoSession) handleMessage(_ paho.Client, m paho.Message) {
	payload := make([]byte, len(m.Payload()))
	copy(payload, m.Payload())

	msg := Message{
		Topic:      m.Topic(),
		Payload:    payload,
		QoS:        m.Qos(),
		Retained:   m.Retained(),
		Duplicate:  m.Duplicate(),
		ReceivedAt: time.Now(),
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.closed || s.isClosing() {
		return
	}

	select {
	case s.messages <- msg:
	case <-s.closing:
	}
}
