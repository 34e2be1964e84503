// Package sender delivers rendered messages to a client's chat.
package sender

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"

	botgolang "github.com/mail-ru-im/bot-golang"

	"github.com/unclebandit/coachline-backend/internal/model"
)

type Sender interface {
	Send(ctx context.Context, client model.Client, text string) error
}

// MockSender simulates sending messages with a fixed success rate (90% by default).
type MockSender struct {
	SuccessRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMockSender(seed int64) *MockSender {
	return &MockSender{SuccessRate: 0.9, rnd: rand.New(rand.NewSource(seed))}
}

func (s *MockSender) Send(ctx context.Context, client model.Client, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	r := s.rnd.Float64()
	s.mu.Unlock()
	if r < s.SuccessRate {
		log.Printf("📨 [mock] to %s: %s\n", client.Phone, text)
		return nil
	}
	return fmt.Errorf("mock sending failed")
}

// BotSender sends through a chat bot. The client's phone number is used as the chat id.
type BotSender struct {
	Bot *botgolang.Bot
}

func NewBotSender(token, apiURL string, debug bool) (*BotSender, error) {
	opts := []botgolang.BotOption{botgolang.BotDebug(debug)}
	if apiURL != "" {
		opts = append(opts, botgolang.BotApiURL(apiURL))
	}
	bot, err := botgolang.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &BotSender{Bot: bot}, nil
}

func (s *BotSender) Send(ctx context.Context, client model.Client, text string) error {
	if client.Phone == "" {
		return fmt.Errorf("client %s has no chat id", client.ID)
	}
	message := s.Bot.NewTextMessage(client.Phone, text)
	if err := message.Send(); err != nil {
		log.Printf("Failed to send message to chat %s: %v", client.Phone, err)
		return err
	}
	return nil
}

var (
	_ Sender = (*MockSender)(nil)
	_ Sender = (*BotSender)(nil)
)
