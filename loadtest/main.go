package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 250 // pairs of users; each pair chats both ways
	MsgCount  = 20  // messages per user
)

type authResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type account struct {
	id    string
	token string
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d users, %d messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password-123"

	a := authenticate(userA, pass)
	b := authenticate(userB, pass)
	if a == nil || b == nil {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)

	// A messages B and vice versa; each side also reads its own socket so
	// echo and presence frames don't pile up server-side.
	go spamChat(&wsWg, a, b.id, userA)
	go spamChat(&wsWg, b, a.id, userB)

	wsWg.Wait()
}

// authenticate registers (ignoring "already taken") then logs in, returning
// the user id and the session token from the cookie.
func authenticate(username, password string) *account {
	creds := map[string]string{"username": username, "password": password}
	if resp, err := postJSON("/register", creds); err == nil {
		resp.Body.Close()
	}

	resp, err := postJSON("/login", creds)
	if err != nil {
		log.Printf("❌ Login Failed [%s]: %v", username, err)
		return nil
	}
	defer resp.Body.Close()

	var data authResponse
	json.NewDecoder(resp.Body).Decode(&data)

	for _, c := range resp.Cookies() {
		if c.Name == "token" && c.Value != "" {
			return &account{id: data.ID, token: c.Value}
		}
	}
	log.Printf("❌ No token cookie for [%s]", username)
	return nil
}

func spamChat(wg *sync.WaitGroup, acct *account, recipientID, user string) {
	defer wg.Done()

	header := http.Header{}
	header.Set("Cookie", "token="+acct.token)
	conn, _, err := websocket.DefaultDialer.Dial(WSURL, header)
	if err != nil {
		log.Printf("❌ WS Connect Fail [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	// Drain inbound frames (presence + echoes + peer messages).
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		msg := map[string]string{
			"recipient": recipientID,
			"text":      fmt.Sprintf("LoadTest Msg %d from %s", i, user),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("❌ Send Fail [%s]: %v", user, err)
			break
		}
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", user, MsgCount)
}

func postJSON(endpoint string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
