package websocket

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/google/uuid"
)

type teamMessage struct {
	teamID  uuid.UUID
	payload []byte
}

// Hub хранит подключения, сгруппированные по командам.
// Все изменения карты клиентов выполняются в горутине Run.
type Hub struct {
	teams      map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan teamMessage
	done       chan struct{}
	clients    atomic.Int64
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		teams:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan teamMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run обрабатывает регистрацию и рассылку до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	log.Println("[Hub] Запущен")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.teams {
				for c := range clients {
					c.CloseSend()
				}
			}
			h.teams = make(map[uuid.UUID]map[*Client]struct{})
			h.clients.Store(0)
			log.Println("[Hub] Остановлен")
			return

		case c := <-h.register:
			clients, ok := h.teams[c.TeamID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.teams[c.TeamID] = clients
			}
			clients[c] = struct{}{}
			h.clients.Add(1)
			log.Printf("[Hub] Клиент %s команды %s подключен", c.ConnectionID, c.TeamID)

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.teams[msg.teamID] {
				if !c.trySend(msg.payload) {
					// Буфер клиента переполнен: отключаем, чтобы не блокировать рассылку
					log.Printf("[Hub] Буфер клиента %s переполнен, отключаем", c.ConnectionID)
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	clients, ok := h.teams[c.TeamID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.teams, c.TeamID)
	}
	h.clients.Add(-1)
	c.CloseSend()
	log.Printf("[Hub] Клиент %s команды %s отключен", c.ConnectionID, c.TeamID)
}

// Register добавляет клиента; блокируется до обработки в Run
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.CloseSend()
	}
}

// Unregister удаляет клиента и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToTeam отправляет сообщение локальным клиентам команды
func (h *Hub) BroadcastToTeam(teamID uuid.UUID, payload []byte) {
	select {
	case h.broadcast <- teamMessage{teamID: teamID, payload: payload}:
	default:
		log.Printf("[Hub] Очередь рассылки переполнена, событие для команды %s отброшено", teamID)
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	return int(h.clients.Load())
}
