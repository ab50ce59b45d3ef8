// Command demo drives one scripted session end to end and prints every
// AgentEvent the translator produces, including a mid-stream tool
// permission round trip. It exercises the same Session/Manager/Translator
// wiring cmd/server drives against a real subprocess engine, but against
// the in-process scripted engine so it needs no external binary.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/engine/scripted"
	"github.com/nverse/agentrelay/pkg/session"
	"github.com/nverse/agentrelay/pkg/translate"
)

func main() {
	fmt.Println("=== agentrelay scripted session demo ===")
	fmt.Println()

	script := scripted.Script{
		{Message: translate.Message{"type": "system", "subtype": "init", "session_id": "int-1"}},
		{Message: translate.Message{
			"type": "stream_event",
			"event": map[string]any{
				"type": "content_block_delta",
				"delta": map[string]any{
					"type": "text_delta",
					"text": "Let me check the weather for you.",
				},
			},
		}},
		{Permission: &scripted.PermissionStep{
			ToolName: "get_weather",
			Input:    map[string]any{"city": "Paris"},
			OnResult: func(result api.PermissionResult) translate.Message {
				if result.Behavior != api.BehaviorAllow {
					return translate.Message{"type": "result", "subtype": "error", "result": "denied"}
				}
				return translate.Message{
					"type": "assistant",
					"message": map[string]any{
						"role":    "assistant",
						"content": []any{map[string]any{"type": "text", "text": "It's 18C and cloudy in Paris."}},
					},
				}
			},
		}},
		{Message: translate.Message{"type": "result", "subtype": "success", "result": "It's 18C and cloudy in Paris."}},
	}

	manager := session.NewManager(scripted.New(script))

	sess, err := manager.Create(context.Background(), "What's the weather in Paris?")
	if err != nil {
		fmt.Printf("creating session: %v\n", err)
		return
	}
	fmt.Printf("session %s created\n\n", sess.ID())

	for {
		event, ok := sess.Events().Next()
		if !ok {
			break
		}
		printEvent(event)

		if event.Type == api.EventPermissionRequest {
			fmt.Printf("  -> auto-approving tool %q\n", event.ToolName)
			if err := sess.ResolvePermission(event.ID, api.BehaviorAllow, nil); err != nil {
				fmt.Printf("  resolve failed: %v\n", err)
			}
		}
	}

	fmt.Println("\n=== session finished ===")
}

func printEvent(event api.AgentEvent) {
	data, _ := json.Marshal(event)
	fmt.Printf("[%s] %s\n", event.Type, data)
}
