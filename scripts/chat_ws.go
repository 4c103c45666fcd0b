package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/transports/httpapi"
)

// Sends one message to a running server over the websocket and prints every
// event until the reply arrives.
func main() {
	url := flag.String("url", "ws://localhost:8080/api/chat/ws", "")
	user := flag.String("user", "", "")
	token := flag.String("token", "", "")
	message := flag.String("message", "", "")
	flag.Parse()
	if *message == "" || (*user == "" && *token == "") {
		fmt.Println("usage: chat_ws -message='...' (-user=alice | -token=...) [-url=...]")
		os.Exit(1)
	}

	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	} else {
		header.Set(auth.HeaderUserID, *user)
	}
	conn, _, err := websocket.DefaultDialer.Dial(*url, header)
	if err != nil {
		fmt.Println("dial error:", err)
		os.Exit(1)
	}
	defer conn.Close()

	req := httpapi.ChatRequest{Messages: []httpapi.ChatMessage{{Role: "user", Content: *message}}}
	if err := conn.WriteJSON(req); err != nil {
		fmt.Println("write error:", err)
		os.Exit(1)
	}
	for {
		var ev httpapi.Event
		if err := conn.ReadJSON(&ev); err != nil {
			fmt.Println("read error:", err)
			os.Exit(1)
		}
		switch ev.Type {
		case httpapi.EventState:
			fmt.Printf("state %s -> %s\n", ev.From, ev.State)
		case httpapi.EventToolResult:
			fmt.Printf("tool %s (%s): %v\n", ev.Name, ev.Status, ev.Payload)
		case httpapi.EventMessage:
			fmt.Println("assistant:", ev.Message)
			return
		case httpapi.EventError:
			fmt.Println("error:", ev.Error, ev.Message)
			os.Exit(1)
		}
	}
}
