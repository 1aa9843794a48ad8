package generation

import "context"

// Generator produces reading text from a prompt. It is the only contact
// surface with the external completion service; it may fail or return
// unusable output, and callers decide what that means for the ledger.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
