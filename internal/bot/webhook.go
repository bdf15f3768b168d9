package bot

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// update is the subset of a Telegram Bot API update we care about.
type update struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// WebhookHandler receives Bot API updates and runs each command to
// completion before replying. The path secret gates who can post updates.
func WebhookHandler(router *Router, messenger Messenger, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "secret") != secret {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		var u update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			// Malformed update; acknowledge so the bot API does not redeliver.
			w.WriteHeader(http.StatusOK)
			return
		}

		if u.Message.Text == "" || u.Message.Chat.ID == 0 {
			w.WriteHeader(http.StatusOK)
			return
		}

		cmd := Command{
			ChatID: u.Message.Chat.ID,
			Sender: u.Message.From.Username,
			Text:   u.Message.Text,
		}

		reply := router.Handle(r.Context(), cmd)
		if reply != "" {
			if err := messenger.SendMessage(r.Context(), cmd.ChatID, reply); err != nil {
				log.Printf("⚠️ Failed to send reply to chat %d: %v", cmd.ChatID, err)
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}
