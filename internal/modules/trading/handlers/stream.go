package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/bourse/internal/domain"
	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
)

const streamWriteTimeout = 5 * time.Second

// HandleStreamOrderBook handles GET /api/trading/orderbook/{symbol}/stream.
// It upgrades to a websocket and pushes a snapshot every stream interval
// until the client goes away.
func (h *Handler) HandleStreamOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))

	// The server write timeout would otherwise cut the stream off
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug().Err(err).Msg("Could not clear write deadline")
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// once the peer closes.
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Str("symbol", symbol).Msg("Order book stream opened")

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		if err := h.pushBook(ctx, conn, symbol); err != nil {
			if errors.Is(err, domain.ErrPriceUnavailable) {
				conn.Close(websocket.StatusPolicyViolation, "no price available for "+symbol)
				return
			}
			if ctx.Err() == nil {
				h.log.Warn().Err(err).Str("symbol", symbol).Msg("Order book stream failed")
			}
			return
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) pushBook(ctx context.Context, conn *websocket.Conn, symbol string) error {
	book, err := h.books.Book(ctx, symbol)
	if err != nil {
		return err
	}

	data, err := json.Marshal(NewOrderBookResponse(book))
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
