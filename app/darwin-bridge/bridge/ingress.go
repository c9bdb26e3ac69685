package bridge

import (
	"bytes"
	"compress/gzip"
	logger "log"
	"net"
	"strconv"
	"time"

	"github.com/go-stomp/stomp"

	"github.com/OpenTransitTools/darwin-bridge/business/core/processor"
	"github.com/OpenTransitTools/darwin-bridge/business/data/darwinxml"
	"github.com/OpenTransitTools/darwin-bridge/business/data/schedule"
	"github.com/OpenTransitTools/darwin-bridge/business/data/tripstate"
)

const (
	darwinTopic    = "/topic/darwin.pushport-v16"
	reconnectDelay = 10 * time.Second
)

// Ingress is C7: a reconnect loop around a real STOMP client that
// hands decoded Push Port frames to the stream processor.
type Ingress struct {
	Host string
	Port int
	User string
	Pass string

	State *tripstate.State
	Index *schedule.Index
	Log   *logger.Logger
}

// Run connects, subscribes, and processes frames until shutdown is
// closed. Any connection failure restarts the whole cycle after a
// fixed 10s delay, with no cap on retries.
func (in *Ingress) Run(shutdown <-chan struct{}) {
	addr := net.JoinHostPort(in.Host, strconv.Itoa(in.Port))

	for {
		select {
		case <-shutdown:
			return
		default:
		}

		if err := in.connectAndConsume(addr, shutdown); err != nil {
			in.Log.Printf("stomp ingress error, reconnecting in %s: %v", reconnectDelay, err)
		}

		select {
		case <-shutdown:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (in *Ingress) connectAndConsume(addr string, shutdown <-chan struct{}) error {
	conn, err := stomp.Dial("tcp", addr,
		stomp.ConnOpt.Login(in.User, in.Pass),
		stomp.ConnOpt.AcceptVersion(stomp.V12),
	)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	sub, err := conn.Subscribe(darwinTopic, stomp.AckClientIndividual)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	in.Log.Printf("subscribed to %s at %s", darwinTopic, addr)

	for {
		select {
		case <-shutdown:
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			if msg.Err != nil {
				return msg.Err
			}
			in.handleFrame(conn, msg)
		}
	}
}

func (in *Ingress) handleFrame(conn *stomp.Conn, msg *stomp.Message) {
	defer func() {
		if err := conn.Ack(msg); err != nil {
			in.Log.Printf("ack failed: %v", err)
		}
	}()

	if len(msg.Body) == 0 {
		return
	}

	body, err := gunzip(msg.Body)
	if err != nil {
		// Gzip is required by Darwin but some control frames may
		// differ; treat a decompress failure as an empty body
		// rather than dropping the ack.
		in.Log.Printf("gunzip failed, treating frame as empty: %v", err)
		return
	}

	pp, err := darwinxml.Decode(body)
	if err != nil {
		in.Log.Printf("decoding push port frame: %v", err)
		return
	}

	processor.Process(pp, in.State, in.Index)
}

func gunzip(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	var out bytes.Buffer
	if _, err := out.ReadFrom(zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
