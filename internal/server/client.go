package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"raid-server/internal/domain"
	"raid-server/internal/engine"
	"raid-server/pkg/api"
	"raid-server/pkg/logger"
	"raid-server/pkg/utils"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	joinTimeout    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client - посредник между Websocket и GameService
type Client struct {
	Game      *engine.GameService
	Conn      *websocket.Conn
	Send      chan api.ServerMessage
	quit      chan struct{} // закрывается, когда writePump завершился
	PlayerID  string
	SessionID string
}

func NewClient(game *engine.GameService, conn *websocket.Conn) *Client {
	return &Client{
		Game: game,
		Conn: conn,
		Send: make(chan api.ServerMessage, 256),
		quit: make(chan struct{}),
	}
}

func (c *Client) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"session":   c.SessionID,
		"player_id": c.PlayerID,
	})
}

// readPump читает команды от клиента
func (c *Client) readPump() {
	var updates chan api.ServerMessage
	defer func() {
		if updates != nil {
			// Если канал уже заменен, игрок переподключился и остается в бою
			if c.Game.Hub.UnregisterChan(c.PlayerID, updates) {
				c.Game.Leave(c.SessionID, c.PlayerID)
			}
			c.log().Info("Client disconnected")
		} else {
			close(c.Send)
		}
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	// 1. HANDSHAKE (INIT)
	var loginCmd api.ClientCommand
	if err := c.Conn.ReadJSON(&loginCmd); err != nil {
		logger.Log.WithError(err).Warn("Handshake failed")
		return
	}
	if domain.ParseAction(loginCmd.Action) != domain.ActionInit {
		logger.Log.WithField("action", loginCmd.Action).Warn("Handshake must start with INIT")
		return
	}

	var join api.JoinPayload
	if len(loginCmd.Payload) > 0 {
		if err := json.Unmarshal(loginCmd.Payload, &join); err != nil {
			logger.Log.WithError(err).Warn("Invalid INIT payload")
			return
		}
	}
	if err := join.Validate(); err != nil {
		logger.Log.WithError(err).Warn("INIT rejected")
		return
	}

	c.PlayerID = loginCmd.Token
	if c.PlayerID == "" {
		c.PlayerID = utils.GenerateID()
	}
	c.SessionID = join.Session
	if c.SessionID == "" {
		c.SessionID = engine.DefaultSessionID
	}

	// 2. ПОДПИСКА НА ОБНОВЛЕНИЯ (до входа, чтобы не пропустить первый STATE)
	updates = c.Game.Hub.Register(c.PlayerID)

	// Запускаем пересылку обновлений из Hub в writePump
	go func(in chan api.ServerMessage) {
		for msg := range in {
			select {
			case c.Send <- msg:
			case <-c.quit:
				return
			}
		}
		close(c.Send)
	}(updates)

	// 3. ВХОД В БОЙ
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	p, err := c.Game.Join(ctx, c.SessionID, c.PlayerID, join.Name)
	cancel()
	if err != nil {
		c.log().WithError(err).Warn("Join failed")
		return
	}

	c.log().WithField("name", p.Name).Info("Client logged in")

	// Приветствие и первая отрисовка
	if err := c.Game.ProcessCommand(c.SessionID, c.PlayerID, loginCmd); err != nil {
		c.log().WithError(err).Debug("INIT not processed")
	}

	// 4. ЦИКЛ ЧТЕНИЯ КОМАНД
	for {
		var cmd api.ClientCommand
		err := c.Conn.ReadJSON(&cmd)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log().WithError(err).Error("WS Error")
			}
			break
		}
		if err := c.Game.ProcessCommand(c.SessionID, c.PlayerID, cmd); err != nil {
			c.log().WithError(err).Debug("Command dropped")
		}
	}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.quit)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
