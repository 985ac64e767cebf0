package core

// blockfeed.go – optional WSS chain-head watcher used to pace scan cycles
// off real block arrivals instead of a fixed poll interval. Grounded on
// _examples/other_examples/b5a4fabb_yohannesjx-sniperterminal__predator_engine.go.go's
// reconnect-with-backoff websocket read loop (websocket.DefaultDialer.Dial,
// retry on drop), generalized from a price feed to an eth_subscribe
// "newHeads" JSON-RPC subscription.

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// DefaultBlockFeedBackoff is how long the feed waits before redialing
// after a dropped or refused connection.
const DefaultBlockFeedBackoff = 5 * time.Second

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonRPCSubscription struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Number string `json:"number"`
		} `json:"result"`
	} `json:"params"`
}

// BlockFeed subscribes to a chain's new-block-header stream over a WSS
// endpoint and reports each block number as it arrives.
type BlockFeed struct {
	url     string
	backoff time.Duration
	logger  *log.Logger
}

// NewBlockFeed constructs a BlockFeed against a wss:// RPC endpoint.
func NewBlockFeed(url string, logger *log.Logger) *BlockFeed {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BlockFeed{url: url, backoff: DefaultBlockFeedBackoff, logger: logger}
}

// Subscribe connects and streams block numbers on the returned channel
// until ctx is canceled, reconnecting with a fixed backoff on any
// connection or protocol error. The channel is closed when ctx is done.
func (f *BlockFeed) Subscribe(ctx context.Context) <-chan uint64 {
	out := make(chan uint64)
	go f.run(ctx, out)
	return out
}

func (f *BlockFeed) run(ctx context.Context, out chan<- uint64) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			f.logger.WithError(err).Warn("blockfeed: dial failed, retrying")
			if !sleepOrDone(ctx, f.backoff) {
				return
			}
			continue
		}

		if err := f.subscribeNewHeads(conn); err != nil {
			f.logger.WithError(err).Warn("blockfeed: subscribe failed, reconnecting")
			conn.Close()
			if !sleepOrDone(ctx, f.backoff) {
				return
			}
			continue
		}

		f.readLoop(ctx, conn, out)
		conn.Close()
		if !sleepOrDone(ctx, f.backoff) {
			return
		}
	}
}

func (f *BlockFeed) subscribeNewHeads(conn *websocket.Conn) error {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_subscribe", Params: []interface{}{"newHeads"}}
	return conn.WriteJSON(req)
}

func (f *BlockFeed) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- uint64) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			f.logger.WithError(err).Warn("blockfeed: read failed")
			return
		}
		blockNum, ok := parseNewHeadBlockNumber(message)
		if !ok {
			continue
		}
		select {
		case out <- blockNum:
		case <-ctx.Done():
			return
		}
	}
}

func parseNewHeadBlockNumber(message []byte) (uint64, bool) {
	var sub jsonRPCSubscription
	if err := json.Unmarshal(message, &sub); err != nil || sub.Method != "eth_subscription" {
		return 0, false
	}
	hexNum := strings.TrimPrefix(sub.Params.Result.Number, "0x")
	if hexNum == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(hexNum, 16, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
