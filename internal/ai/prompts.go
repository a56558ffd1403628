package ai

import (
	"fmt"
	"strings"

	"github.com/steveyegge/oaiguard/internal/types"
)

// PromptContextLines caps the context tail sent to the model.
const PromptContextLines = 32

// SystemPrompt describes the reply format to the model.
const SystemPrompt = "You are a telecom (4G/5G core) troubleshooting assistant. " +
	"Return ONLY a single JSON object with keys:\n" +
	`  "summary": short string (<= 20 words),` + "\n" +
	`  "causes": array of 1-3 short strings,` + "\n" +
	`  "diagnostics_cmds": array of up to 5 safe READ-ONLY shell commands,` + "\n" +
	`  "fix_cmds": array of up to 3 safe commands (prefer systemctl restart),` + "\n" +
	`  "risk_level": "low" | "medium" | "high",` + "\n" +
	`  "need_human_review": true|false.` + "\n" +
	"Prefer reversible fixes. If unsure, set need_human_review=true.\n" +
	"NO prose, NO markdown, ONLY JSON."

// UserPrompt carries the error line and its recent context.
func UserPrompt(ev types.ErrorEvent) string {
	ctx := strings.Join(ev.ContextTail(PromptContextLines), "\n")
	return fmt.Sprintf("ERROR:\n%s\n\nCONTEXT (tail):\n%s\n\nReturn ONLY JSON.", ev.Line, ctx)
}

// StrictRetryPrompt is sent once when the first reply held no usable JSON.
func StrictRetryPrompt(ev types.ErrorEvent) string {
	return "STRICT_JSON_ONLY. Keys: summary, causes[], diagnostics_cmds[], fix_cmds[], " +
		"risk_level(low|medium|high), need_human_review(boolean). " +
		fmt.Sprintf("ERROR: %s. Do not include markdown or prose.", ev.Line)
}
