package appointments

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins — adjust for production if needed
		return true
	},
}

var (
	subscribers = make(map[string][]*websocket.Conn)
	wsMu        sync.Mutex
)

// StatusFeed upgrades the connection and streams status changes for one
// appointment until the client disconnects.
func StatusFeed(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointmentID := ps.ByName("appointmentid")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	wsMu.Lock()
	subscribers[appointmentID] = append(subscribers[appointmentID], conn)
	wsMu.Unlock()

	for {
		// This keeps the connection alive until the client disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	wsMu.Lock()
	conns := subscribers[appointmentID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	subscribers[appointmentID] = newList
	wsMu.Unlock()

	conn.Close()
}

// Broadcast pushes a status payload to every subscriber of the appointment.
// Dead connections are dropped from the list.
func Broadcast(appointmentID string, payload interface{}) {
	val, err := json.Marshal(payload)
	if err != nil {
		log.Printf("appointments: marshal broadcast payload: %v", err)
		return
	}

	wsMu.Lock()
	defer wsMu.Unlock()

	conns := subscribers[appointmentID]
	newList := conns[:0]
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, val); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}
	subscribers[appointmentID] = newList
}
