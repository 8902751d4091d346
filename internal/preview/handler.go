package preview

import (
	"context"
	"encoding/json"
	"fmt"

	"chunklab/internal/chunker"
)

// Reply is the worker's answer to a request message.
type Reply struct {
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
	Code     string    `json:"code,omitempty"`
}

// HandleRequest decodes a JSON Request from body, runs it through p and
// encodes the Reply. Failures are reported inside the reply.
func HandleRequest(ctx context.Context, p Previewer, body []byte) []byte {
	var reply Reply
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		err = fmt.Errorf("%w: invalid JSON body: %v", chunker.ErrInvalidRequest, err)
		reply = Reply{Error: err.Error(), Code: CodeFor(err)}
	} else if resp, err := p.Preview(ctx, req); err != nil {
		reply = Reply{Error: err.Error(), Code: CodeFor(err)}
	} else {
		reply = Reply{Response: &resp}
	}

	out, err := json.Marshal(reply)
	if err != nil {
		out, _ = json.Marshal(Reply{Error: err.Error(), Code: CodeInternal})
	}
	return out
}
