package dialoguenode

import (
	"fmt"
	"strings"

	contractx "github.com/inmobot/inmobot/bot/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := in.Reply
	reply.Text = strings.TrimSpace(reply.Text)
	if reply.IsEmpty() {
		return GraphOutput{}, fmt.Errorf("%w: reply is empty", contractx.ErrValidation)
	}
	return GraphOutput{Reply: reply}, nil
}
