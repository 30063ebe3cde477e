// Command loadtest hammers a LANSend server with concurrent websocket
// clients that mail each other short texts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/meowtec/LANSend/internal/model"
	"github.com/meowtec/LANSend/internal/ws"
)

func main() {
	host := flag.String("host", "127.0.0.1:17133", "server host:port")
	clients := flag.Int("clients", 10, "number of concurrent clients")
	mails := flag.Int("mails", 20, "mails per client")
	flag.Parse()

	url := "ws://" + *host + "/ws"
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			runClient(url, i, *mails)
		}()
	}
	wg.Wait()

	log.Printf("sent %d mails from %d clients in %s", (*clients)*(*mails), *clients, time.Since(start))
}

func runClient(url string, id, mails int) {
	conn := ws.NewConn(url, ws.DefaultRetryDelay)
	defer conn.Close()
	conn.Open()

	// Wait for the transport before measuring send throughput.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-conn.Events():
			if _, ok := ev.(ws.Opened); ok {
				goto connected
			}
		case <-ctx.Done():
			log.Printf("client %d: no connection: %v", id, ctx.Err())
			return
		}
	}

connected:
	for n := 0; n < mails; n++ {
		mail := model.MailSend{
			ID:        model.NewPreID(),
			Receivers: []string{"broadcast"},
			Data: model.MailOutline{
				Type:    model.KindText,
				Content: fmt.Sprintf("load %d/%d", id, n),
			},
		}
		if err := conn.Send(ws.TypeMail, mail); err != nil {
			log.Printf("client %d: send: %v", id, err)
			return
		}
	}
}
