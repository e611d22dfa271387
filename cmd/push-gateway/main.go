// cmd/push-gateway/main.go
package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gavel/internal/pkg/bootstrap"
	"gavel/internal/pkg/logger"
	"gavel/internal/pkg/mq"
	"gavel/internal/service/auction/infrastructure/adapter"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

const (
	serviceName = "push-gateway"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 简化处理，允许所有跨域
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 按拍卖 ID 维护订阅者集合，把拍卖事件扇出给所有观察该场拍卖的连接。
type Hub struct {
	subscribers map[string]map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	events      chan auctionEvent
}

type auctionEvent struct {
	auctionID string
	payload   []byte
}

func newHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		events:      make(chan auctionEvent, 256),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			set, ok := h.subscribers[client.auctionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.subscribers[client.auctionID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			if set, ok := h.subscribers[client.auctionID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(h.subscribers, client.auctionID)
					}
				}
			}
		case ev := <-h.events:
			for client := range h.subscribers[ev.auctionID] {
				select {
				case client.send <- ev.payload:
				default:
					// 慢消费者直接踢掉，避免拖垮整个扇出
					delete(h.subscribers[ev.auctionID], client)
					close(client.send)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Client 是一个订阅了某场拍卖的 WebSocket 连接。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	auctionID string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// 客户端只发心跳，读到任何错误即断开
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	auctionID := r.URL.Query().Get("auctionId")
	if _, err := uuid.Parse(auctionID); err != nil {
		http.Error(w, "valid auctionId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 64), auctionID: auctionID}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeEvents 把 auction-events 主题的消息按 key（拍卖 ID）路由进 Hub。
func consumeEvents(ctx context.Context, reader *kafka.Reader, hub *Hub) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch auction event, retrying")
			time.Sleep(time.Second)
			continue
		}
		hub.events <- auctionEvent{auctionID: string(msg.Key), payload: msg.Value}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit auction event")
		}
	}
}

func main() {
	runCtx, cancel := context.WithCancel(context.Background())
	var (
		reader *kafka.Reader
		wg     sync.WaitGroup
	)

	// 每个网关节点用独立消费组，令所有节点都收到全量事件
	groupID := serviceName + "-" + uuid.New().String()[:8]

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8088,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			hub := newHub()
			reader = mq.NewKafkaReader(appCtx.Config.Infra.Kafka.Brokers, adapter.EventsTopic, groupID)

			wg.Add(2)
			go func() {
				defer wg.Done()
				hub.run(runCtx)
			}()
			go func() {
				defer wg.Done()
				consumeEvents(runCtx, reader, hub)
			}()

			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
				cancel()
				if reader != nil {
					reader.Close()
				}
				wg.Wait()
			},
		},
	})
}
