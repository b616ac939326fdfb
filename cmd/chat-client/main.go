// Command chat-client is a terminal client for the chat gateway. It opens one
// connection, binds a session to a peer and bridges stdin/stdout to the room.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"maternity-chat/internal/notify"
	"maternity-chat/internal/presence"
	"maternity-chat/internal/session"
	"maternity-chat/internal/stream"
	"maternity-chat/internal/transport"
)

type terminalSink struct{}

func (terminalSink) Show(t notify.Toast) {
	fmt.Printf("\a[%s] %s\n", t.Title, t.Body)
}

func main() {
	var (
		url  = flag.String("url", "ws://localhost:5000/ws", "gateway websocket url")
		id   = flag.String("id", "", "own participant id")
		name = flag.String("name", "", "own display name")
		role = flag.String("role", "doctor", "own role: doctor or mother")
		peer = flag.String("peer", "", "peer participant id")
	)
	flag.Parse()
	if *id == "" || *peer == "" {
		log.Fatal("both -id and -peer are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := transport.Dial(ctx, *url)
	cancel()
	if err != nil {
		log.Fatalf("dial gateway: %v", err)
	}
	defer conn.Close()

	tracker := presence.NewTracker()
	manager := session.NewManager(session.Config{
		SelfID:    *id,
		SelfName:  *name,
		SelfRole:  *role,
		Transport: conn,
		Presence:  tracker,
		Notifier:  notify.NewBridge(*id, notify.DefaultScrollThreshold, terminalSink{}),
		OnTypingChange: func(who string) {
			if who != "" {
				fmt.Printf("… %s is typing\n", who)
			}
		},
	})
	defer manager.Close()

	sess, err := manager.Bind(*peer)
	if err != nil {
		log.Fatalf("bind session: %v", err)
	}
	log.Printf("joined %s as %s", sess.Room(), *id)

	cancelWatch := tracker.Subscribe(func() {
		if sess.PeerOnline() {
			fmt.Printf("%s is online\n", sess.Peer())
		} else {
			fmt.Printf("%s is offline\n", sess.Peer())
		}
	})
	defer cancelWatch()

	go printTranscript(sess.Stream())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			break
		}
		if err := sess.Typing(); err != nil {
			log.Printf("typing signal: %v", err)
		}
		if err := sess.Send(line); err != nil {
			log.Printf("send: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("stdin: %v", err)
	}
}

// printTranscript polls the stream and prints messages it has not shown yet.
// History is replayed on the first pass, live messages as they land.
func printTranscript(s *stream.Stream) {
	shown := 0
	for {
		if n := s.Len(); n > shown {
			i := 0
			for msg := range s.All() {
				if i >= shown {
					fmt.Printf("%s %s: %s\n", msg.SentAt.Format("15:04"), msg.SenderName, msg.Body)
				}
				i++
			}
			shown = i
		}
		time.Sleep(200 * time.Millisecond)
	}
}
