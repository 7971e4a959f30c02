package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/teamquiz-api/internal/config"
)

const publishTimeout = 2 * time.Second

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// clusterMessage - событие, пересылаемое между экземплярами
type clusterMessage struct {
	InstanceID string          `json:"instance_id"`
	TeamID     uuid.UUID       `json:"team_id"`
	Payload    json.RawMessage `json:"payload"`
}

// Manager доставляет события командам и обрабатывает входящие сообщения клиентов
type Manager struct {
	hub        *Hub
	provider   PubSubProvider
	cluster    config.ClusterConfig
	instanceID string

	mu       sync.RWMutex
	handlers map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает менеджер. provider может быть nil, если кластер отключен.
func NewManager(hub *Hub, provider PubSubProvider, cluster config.ClusterConfig) *Manager {
	if provider == nil || !cluster.Enabled {
		provider = &NoOpPubSub{}
	}
	instanceID := cluster.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	return &Manager{
		hub:        hub,
		provider:   provider,
		cluster:    cluster,
		instanceID: instanceID,
		handlers:   make(map[string]func(data json.RawMessage, client *Client) error),
	}
}

// Start подписывается на канал кластера; события других экземпляров рассылаются локально
func (m *Manager) Start(ctx context.Context) error {
	if !m.cluster.Enabled {
		log.Println("[WebSocketManager] Кластерный режим отключен")
		return nil
	}
	msgs, err := m.provider.Subscribe(ctx, m.cluster.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to cluster channel: %w", err)
	}
	log.Printf("[WebSocketManager] Кластерный режим, экземпляр %s, канал %s", m.instanceID, m.cluster.Channel)

	go func() {
		for raw := range msgs {
			m.relay(raw)
		}
	}()
	return nil
}

func (m *Manager) relay(raw []byte) {
	var msg clusterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[WebSocketManager] Некорректное сообщение кластера: %v", err)
		return
	}
	if msg.InstanceID == m.instanceID {
		return
	}
	m.hub.BroadcastToTeam(msg.TeamID, msg.Payload)
}

// NotifyTeam отправляет событие всем подключениям команды, включая другие экземпляры
func (m *Manager) NotifyTeam(teamID uuid.UUID, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	m.hub.BroadcastToTeam(teamID, payload)

	if !m.cluster.Enabled {
		return
	}
	raw, err := json.Marshal(clusterMessage{InstanceID: m.instanceID, TeamID: teamID, Payload: payload})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации сообщения кластера: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := m.provider.Publish(ctx, m.cluster.Channel, raw); err != nil {
		log.Printf("[WebSocketManager] Ошибка публикации события %s для команды %s: %v", eventType, teamID, err)
	}
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	m.mu.RLock()
	handler, ok := m.handlers[event.Type]
	m.mu.RUnlock()
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	return handler(event.Data, client)
}

// SendEventToClient отправляет событие одному подключению
func (m *Manager) SendEventToClient(client *Client, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return err
	}
	if !client.trySend(payload) {
		return fmt.Errorf("client %s send buffer is full or closed", client.ConnectionID)
	}
	return nil
}

// SendErrorToClient отправляет сообщение об ошибке, не закрывая соединение
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	err := m.SendEventToClient(client, "server:error", map[string]string{
		"code":    code,
		"message": message,
	})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка отправки ошибки клиенту %s: %v", client.ConnectionID, err)
	}
}
