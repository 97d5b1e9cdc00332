package relay

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/wire"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController terminates agent websockets and feeds the hub.
type WSController struct {
	Hub       *Hub
	ReadLimit int64
}

func NewWSController(hub *Hub, readLimit int64) *WSController {
	return &WSController{Hub: hub, ReadLimit: readLimit}
}

func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	cid := ClientID(c.GetString("client_token"))
	log.Info().Str("module", "relay.ws").Str("cid", string(cid)).Msg("new agent connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay.ws").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := NewConn(ws, 32)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Registry.Bind(cid, c.Query("name"), conn, cancel)

	go conn.writePump(ctx)
	go ctl.readPump(ctx, cid, conn)

	// A late-connecting agent observes sessions that are already live.
	for _, g := range ctl.Hub.Sessions.List() {
		ctl.Hub.sendEnvelope(cid, &wire.Envelope{Type: wire.TypeSession, Session: g.ID(), Activity: g.Activity()})
	}
}

func (ctl *WSController) readPump(ctx context.Context, cid ClientID, c *Conn) {
	defer func() {
		log.Info().Str("module", "relay.ws").Str("cid", string(cid)).Msg("readPump closing")
		ctl.Hub.Drop(cid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "relay.ws").Str("cid", string(cid)).Msg("readPump read error")
				return
			}
			ctl.Hub.handle(cid, data)
		}
	}
}
