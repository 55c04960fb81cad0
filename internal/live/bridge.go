// Package live streams a user's cart and favorites over WebSocket. Each connection holds one
// store subscription and receives the full set plus a diff on every change.
package live

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storefront/internal/cart"
	"storefront/internal/docstore"
	"storefront/internal/favorites"
	"storefront/internal/models"
	"storefront/internal/money"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

const (
	TypeCart      = "cart"
	TypeFavorites = "favorites"
	TypeError     = "error"
)

type Message struct {
	Type    string        `json:"type"`
	Items   any           `json:"items,omitempty"`
	Totals  *money.Totals `json:"totals,omitempty"`
	Changes *Changes      `json:"changes,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type Options struct {
	ShippingFee    float64
	AllowedOrigins []string
}

type Bridge struct {
	carts       *cart.Service
	favorites   *favorites.Service
	shippingFee float64
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*client]struct{}
}

func NewBridge(carts *cart.Service, favs *favorites.Service, opts Options) *Bridge {
	b := &Bridge{
		carts:       carts,
		favorites:   favs,
		shippingFee: opts.ShippingFee,
		clients:     make(map[string]map[*client]struct{}),
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return b
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

type subscribeFunc func(ctx context.Context, c *client) (docstore.Unsubscribe, error)

func (b *Bridge) ServeCart(w http.ResponseWriter, r *http.Request, uid string) {
	b.serve(w, r, uid, func(ctx context.Context, c *client) (docstore.Unsubscribe, error) {
		rec := NewReconciler(func(l models.CartLine) string { return l.ProductID })
		return b.carts.Subscribe(ctx, uid, func(lines []models.CartLine, err error) {
			if err != nil {
				log.Println("[LIVE] [ERROR] cart subscription failed:", uid, err)
				c.enqueue(Message{Type: TypeError, Error: "Could not load your cart. Please refresh."})
				return
			}
			changes := rec.Apply(lines)
			totals := cart.Totals(lines, b.shippingFee)
			c.enqueue(Message{Type: TypeCart, Items: lines, Totals: &totals, Changes: &changes})
		})
	})
}

func (b *Bridge) ServeFavorites(w http.ResponseWriter, r *http.Request, uid string) {
	b.serve(w, r, uid, func(ctx context.Context, c *client) (docstore.Unsubscribe, error) {
		rec := NewReconciler(func(l models.FavoriteLine) string { return l.ProductID })
		return b.favorites.Subscribe(ctx, uid, func(lines []models.FavoriteLine, err error) {
			if err != nil {
				log.Println("[LIVE] [ERROR] favorites subscription failed:", uid, err)
				c.enqueue(Message{Type: TypeError, Error: "Could not load your favorites. Please refresh."})
				return
			}
			changes := rec.Apply(lines)
			c.enqueue(Message{Type: TypeFavorites, Items: lines, Changes: &changes})
		})
	})
}

func (b *Bridge) serve(w http.ResponseWriter, r *http.Request, uid string, subscribe subscribeFunc) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[LIVE] [ERROR] websocket upgrade failed:", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient(uid, conn)
	b.add(c)
	defer b.remove(c)

	unsubscribe, err := subscribe(ctx, c)
	if err != nil {
		log.Println("[LIVE] [ERROR] subscribe failed:", uid, err)
		c.enqueue(Message{Type: TypeError, Error: "Could not start live updates."})
		c.close()
		c.writeLoop()
		return
	}
	defer unsubscribe()

	go c.writeLoop()
	c.readLoop()
	c.close()
	log.Println("[LIVE] [INFO] connection closed:", uid)
}

func (b *Bridge) add(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clients[c.uid] == nil {
		b.clients[c.uid] = make(map[*client]struct{})
	}
	b.clients[c.uid][c] = struct{}{}
}

func (b *Bridge) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients[c.uid], c)
	if len(b.clients[c.uid]) == 0 {
		delete(b.clients, c.uid)
	}
}

// Connections reports how many live connections uid holds.
func (b *Bridge) Connections(uid string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients[uid])
}

// HandleAuthChange closes every connection of a user who signed out. It matches auth.Listener.
func (b *Bridge) HandleAuthChange(uid string, signedIn bool) {
	if signedIn {
		return
	}
	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients[uid]))
	for c := range b.clients[uid] {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		log.Printf("[LIVE] [INFO] closed %d connections after sign-out of %s", len(clients), uid)
	}
}

type client struct {
	uid  string
	conn *websocket.Conn
	send chan Message

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newClient(uid string, conn *websocket.Conn) *client {
	return &client{
		uid:  uid,
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue drops the connection when the client cannot keep up; it reconnects and
// gets a fresh full set.
func (c *client) enqueue(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- m:
	default:
		log.Println("[LIVE] [ERROR] slow client dropped:", c.uid)
		c.closeLocked()
	}
}

func (c *client) close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// writeLoop drains queued messages, then sends a close frame once the client is closed.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case m := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				c.close()
				return
			}
		case <-c.done:
			for {
				select {
				case m := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteJSON(m); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// readLoop discards client frames and returns when the peer goes away or the client is closed.
func (c *client) readLoop() {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	errs := make(chan error, 1)
	go func() {
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				errs <- err
				return
			}
		}
	}()

	select {
	case err := <-errs:
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			log.Println("[LIVE] [ERROR] unexpected close:", c.uid, err)
		}
	case <-c.done:
	}
}
