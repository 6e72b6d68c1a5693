// Command openai-stub is a tiny OpenAI-compatible server for local
// development and smoke tests. It answers every chat completion with a
// deterministic assistant turn containing a fenced code block, picked by
// keywords in the user prompt, so the full extract-classify-render path can
// be exercised without a real model.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const componentTurn = "Here is the component:\n\n```jsx\nfunction App() {\n  const [count, setCount] = React.useState(0);\n  return (\n    <button onClick={() => setCount(count + 1)}>clicked {count} times</button>\n  );\n}\n\nexport default App;\n```\n"

const scriptTurn = "Sure, a quick script:\n\n```js\nfunction fib(n) {\n  return n < 2 ? n : fib(n - 1) + fib(n - 2);\n}\nconsole.log(fib(10));\n```\n"

const markupTurn = "Here is the page:\n\n```html\n<!DOCTYPE html>\n<html>\n<head><title>Demo</title></head>\n<body>\n  <main><h1>Hello</h1><p>Static demo page.</p></main>\n</body>\n</html>\n```\n"

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		user := ""
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = strings.ToLower(m.Content)
			}
		}
		var content string
		switch {
		case strings.Contains(user, "component") || strings.Contains(user, "react"):
			content = componentTurn
		case strings.Contains(user, "script") || strings.Contains(user, "function") || strings.Contains(user, "console"):
			content = scriptTurn
		default:
			content = markupTurn
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
