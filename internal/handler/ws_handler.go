package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/teamquiz-api/internal/middleware"
	"github.com/yourusername/teamquiz-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения ленты команды
type WSHandler struct {
	hub      *websocket.Hub
	manager  *websocket.Manager
	upgrader gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с CORS в main.go.
func NewWSHandler(hub *websocket.Hub, manager *websocket.Manager, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	h := &WSHandler{
		hub:     hub,
		manager: manager,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Не браузерный клиент
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Отклонен origin: %s", origin)
				return false
			},
		},
	}
	h.registerMessageHandlers()
	return h
}

// HandleConnection открывает соединение для команды из токена
func (h *WSHandler) HandleConnection(c *gin.Context) {
	teamID, ok := middleware.TeamIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой
		log.Printf("[WSHandler] Ошибка upgrade для команды %s: %v", teamID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, teamID)
	client.StartPumps(h.manager.HandleMessage)
}

func (h *WSHandler) registerMessageHandlers() {
	h.manager.RegisterHandler("team:heartbeat", func(data json.RawMessage, client *websocket.Client) error {
		resp := map[string]interface{}{"timestamp": time.Now().UnixMilli()}
		if err := h.manager.SendEventToClient(client, "server:heartbeat", resp); err != nil {
			log.Printf("[WSHandler] Ошибка отправки server:heartbeat: %v", err)
		}
		return nil
	})
}
