package agent

import (
	"fmt"
	"strings"

	"github.com/comigor/chat-relay/internal/llm"
	"github.com/comigor/chat-relay/pkg/tools"
)

// FormatToolResult renders a tool result as the text of the synthetic user turn that is
// spliced into the transcript before the follow-up call. It is deterministic.
func FormatToolResult(call llm.ToolCall, res tools.Result) string {
	contents := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		contents = append(contents, r.Content)
	}
	return fmt.Sprintf("I searched the web for \"%s\" and found the following information: %s",
		queryOf(call), strings.Join(contents, "\n"))
}

func queryOf(call llm.ToolCall) string {
	switch q := call.Arguments["query"].(type) {
	case string:
		return q
	case nil:
		return ""
	default:
		return fmt.Sprint(q)
	}
}
