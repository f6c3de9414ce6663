package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

const stubRecipe = `{
  "title": "Stub Tomato Soup",
  "author": "Stub Kitchen",
  "ingredients": [
    {"groupName": "Main", "ingredients": [
      {"amount": "2", "units": "cups", "ingredient": "chopped tomatoes"},
      {"amount": "1", "units": "", "ingredient": "onion"},
      {"amount": "", "units": "", "ingredient": "salt to taste"}
    ]}
  ],
  "instructions": [
    {"title": "Prep", "detail": "Chop the onion and the tomatoes.", "timeMinutes": 5},
    {"title": "Simmer", "detail": "Simmer everything for twenty minutes.", "timeMinutes": 20, "tips": "Stir now and then."}
  ]
}`

const notFound = `{"title": "No recipe found", "ingredients": [], "instructions": []}`

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	// RATE_LIMIT=1 answers every completion with 429 and a Retry-After hint.
	rateLimit := os.Getenv("RATE_LIMIT") == "1"

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if rateLimit {
			w.Header().Set("Retry-After", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"rate_limit_exceeded"}}`))
			return
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var sys, user string
		vision := false
		for _, m := range req.Messages {
			var s string
			if err := json.Unmarshal(m.Content, &s); err != nil {
				// multi-part content carries an image
				vision = true
				continue
			}
			switch m.Role {
			case "system":
				sys = s
			case "user":
				user = s
			}
		}
		var content string
		switch {
		case strings.Contains(sys, "one-sentence recipe summaries"):
			content = "\"A bright, simple tomato soup for busy evenings. Serve hot.\""
		case vision:
			content = stubRecipe
		case strings.Contains(sys, "OUTPUT FORMAT"):
			if strings.Contains(strings.ToLower(user), "ingredient") || strings.Contains(strings.ToLower(user), "tomato") {
				content = "Here is the recipe:\n```json\n" + stubRecipe + "\n```"
			} else {
				content = notFound
			}
		default:
			http.Error(w, "unexpected system", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": model,
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
