package signal

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (c *Client) messageType() int {
	if c.opts.Codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (c *Client) writePump(conn *wsConn) {
	ticker := c.clock.Ticker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()

	for {
		select {
		case frame := <-conn.send:
			if err := c.write(conn, c.messageType(), frame); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.write(conn, websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case <-conn.done:
			c.drain(conn)
			_ = c.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain writes frames still queued when the connection is being closed.
func (c *Client) drain(conn *wsConn) {
	for {
		select {
		case frame := <-conn.send:
			if err := c.write(conn, c.messageType(), frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(conn *wsConn, messageType int, data []byte) error {
	if err := conn.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return conn.ws.WriteMessage(messageType, data)
}

func (c *Client) readPump(conn *wsConn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			c.lost(conn, err)
			log.Info().Str("module", "signal").Msg("readPump closing")
			return
		}
		env, err := c.opts.Codec.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("bad frame")
			continue
		}
		c.dispatcher.Post(func() { c.dispatch(env) })
	}
}
