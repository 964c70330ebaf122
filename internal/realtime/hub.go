package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message 推送给 websocket 客户端的统一消息结构
type Message struct {
	Type  string      `json:"type"`            // event / hello / error
	Event string      `json:"event,omitempty"` // line / cleared / report
	Data  interface{} `json:"data,omitempty"`
	TS    string      `json:"ts"`
}

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

type Hub struct {
	mu sync.RWMutex

	clients    map[*Client]struct{}
	unregister chan *Client
	broadcast  chan []byte
	quit       chan struct{}
	once       sync.Once
}

func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 256),
		quit:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Send)
			}
			h.mu.Unlock()
			return
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			// 客户端写入慢：踢掉
			for _, c := range slow {
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
}

func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	// 同步登记，保证之后的 Unregister 一定能找到它
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Clients 当前连接数
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event string, data interface{}) {
	b, _ := json.Marshal(Message{
		Type:  "event",
		Event: event,
		Data:  data,
		TS:    time.Now().Format(time.RFC3339),
	})
	select {
	case h.broadcast <- b:
	default:
		// broadcast 堵住了就丢弃，避免拖垮控制循环
	}
}

func (h *Hub) Hello(c *Client, data interface{}) {
	b, _ := json.Marshal(Message{
		Type: "hello",
		Data: data,
		TS:   time.Now().Format(time.RFC3339),
	})
	select {
	case c.Send <- b:
	default:
	}
}

// Close 断开所有客户端并停止
func (h *Hub) Close() {
	h.once.Do(func() { close(h.quit) })
}
