package websocket

import (
	"time"

	"github.com/etests/etests-backend/internal/response"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute

	// Largest client frame accepted. Autosave frames carry two UUIDs.
	maxMessageSize = 4 << 10
)

// Prepare applies the read limit and lets protocol pongs extend the read
// deadline the same way application pings do.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an error event with the API error code and its message.
func WriteError(conn *websocket.Conn, code response.ErrCode) error {
	return WriteErrorMessage(conn, code, response.GetMessage(code))
}

// WriteErrorMessage sends an error event with a custom message.
func WriteErrorMessage(conn *websocket.Conn, code response.ErrCode, msg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  string(code),
		Error: msg,
	})
}

// ReadJSON reads and decodes the next client message, resetting the read
// deadline first.
func ReadJSON(conn *websocket.Conn, v any) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
