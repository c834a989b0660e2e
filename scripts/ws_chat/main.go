package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// frame mirrors proto.Outbound with raw data for typed decoding.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Chat: *room, Username: *user}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. /nick <name> renames, /leave leaves. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, kind string, data any) error {
	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = payload
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Type: kind, Data: raw})
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if f.Type == proto.OutboundTypeError && f.Error != nil {
			fmt.Printf("! %s: %s\n", f.Error.Code, f.Error.Msg)
			continue
		}
		if err := printEvent(f); err != nil {
			log.Printf("decode %s: %v", f.Event, err)
		}
	}
}

func printEvent(f frame) error {
	switch f.Event {
	case proto.EventNewMessage:
		var msg proto.Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return err
		}
		fmt.Printf("[%s] %s: %s\n", msg.Chat, msg.Username, msg.Message)
	case proto.EventLoadMessages:
		var history []proto.Message
		if err := json.Unmarshal(f.Data, &history); err != nil {
			return err
		}
		for _, msg := range history {
			fmt.Printf("[%s %s] %s: %s\n", msg.Chat, msg.Timestamp.Format("15:04"), msg.Username, msg.Message)
		}
	case proto.EventUpdateUsers:
		var users []string
		if err := json.Unmarshal(f.Data, &users); err != nil {
			return err
		}
		fmt.Printf("online: %s\n", strings.Join(users, ", "))
	case proto.EventUserJoined, proto.EventUserLeft:
		var evt proto.UserEvent
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return err
		}
		verb := "joined"
		if f.Event == proto.EventUserLeft {
			verb = "left"
		}
		fmt.Printf("[room %s] %s %s\n", evt.Chat, evt.Username, verb)
	case proto.EventUsernameChanged:
		var evt proto.UsernameChanged
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			return err
		}
		fmt.Printf("[room %s] %s is now %s\n", evt.Chat, evt.OldUsername, evt.NewUsername)
	default:
		fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
	}
	return nil
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			switch {
			case strings.HasPrefix(text, "/nick "):
				err = send(ctx, conn, proto.InboundTypeChangeUsername, proto.ChangeUsernameData{
					NewUsername: strings.TrimSpace(strings.TrimPrefix(text, "/nick ")),
				})
			case text == "/leave":
				err = send(ctx, conn, proto.InboundTypeLeave, nil)
			default:
				err = send(ctx, conn, proto.InboundTypeSend, proto.SendData{Message: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
