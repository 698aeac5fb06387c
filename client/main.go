// Command client watches the projection pushed on /ws and prints it grouped by center.
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/network"
	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/room"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr      string
		center    string
		heartbeat time.Duration
		attention bool
	)
	flagSet := pflag.NewFlagSet("roomboard-client", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "localhost:8080", "dashboard server address")
	flagSet.StringVar(&center, "center", "", "only watch this center ID")
	flagSet.DurationVar(&heartbeat, "heartbeat", 15*time.Second, "interval between heartbeats sent to the server")
	flagSet.BoolVar(&attention, "attention", false, "also print the attention list of the control model")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger.InitDevelopment()
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer c.Close()

	if center != "" {
		data, _ := json.Marshal(network.FilterRequest{Center: center})
		if err := send(c, network.MsgTypeFilter, data); err != nil {
			return err
		}
	}

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				logger.Log.Warnf("Received invalid packet of size %d", len(message))
				continue
			}
			handle(packet, attention)
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			data, _ := json.Marshal(network.HeartbeatPayload{Time: time.Now().Unix()})
			if err := send(c, network.MsgTypeHeartbeat, data); err != nil {
				return err
			}
		case <-interrupt:
			// 正常关闭连接
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				return err
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		}
	}
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	return c.WriteMessage(websocket.BinaryMessage, network.EncodePacket(msgID, data))
}

func handle(packet *network.Packet, attention bool) {
	switch packet.MsgID {
	case network.MsgTypeProjection:
		var view projection.View
		if err := json.Unmarshal(packet.Data, &view); err != nil {
			logger.Log.Warnf("bad projection: %v", err)
			return
		}
		fmt.Println(renderView(view, time.Now()))
	case network.MsgTypeAttention:
		if !attention {
			return
		}
		var items []room.AttentionItem
		if err := json.Unmarshal(packet.Data, &items); err != nil {
			logger.Log.Warnf("bad attention list: %v", err)
			return
		}
		fmt.Println(renderAttention(items, time.Now()))
	case network.MsgTypeError:
		var payload network.ErrorPayload
		json.Unmarshal(packet.Data, &payload)
		logger.Log.Warnf("server error: %s", payload.Message)
	case network.MsgTypeHeartbeat:
	default:
		logger.Log.Debugf("ignoring message %d", packet.MsgID)
	}
}
