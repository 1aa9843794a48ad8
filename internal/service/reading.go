package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/arcana-app/credits-server-go/internal/audit"
	apperrors "github.com/arcana-app/credits-server-go/internal/errors"
	"github.com/arcana-app/credits-server-go/internal/generation"
	"github.com/arcana-app/credits-server-go/internal/model"
)

// ReadingResult is the full outcome of a paid reading request.
type ReadingResult struct {
	Granted    bool   `json:"granted"`
	NewBalance int64  `json:"newBalance"`
	Cost       int64  `json:"cost"`
	Text       string `json:"text,omitempty"`
	BestEffort bool   `json:"bestEffort,omitempty"`
}

var spreadPrompts = map[model.FeatureKey]string{
	model.FeatureSingleCard: "Draw a single tarot card and interpret it for the querent.",
	model.FeatureThreeCard:  "Draw a three-card spread (past, present, future) and interpret each position.",
	model.FeatureClassic10:  "Draw a classic ten-card Celtic Cross spread and interpret every position in order.",
}

// ReadingService runs the debit -> generate -> refund-on-failure flow.
// The ledger itself has no compensation transaction; this is the one caller
// that decides refund policy when the downstream generation step fails.
type ReadingService struct {
	ledger          *Ledger
	generator       generation.Generator
	refundOnFailure bool
}

func NewReadingService(ledger *Ledger, generator generation.Generator, refundOnFailure bool) *ReadingService {
	return &ReadingService{
		ledger:          ledger,
		generator:       generator,
		refundOnFailure: refundOnFailure,
	}
}

// Perform debits the account and, only if the debit was granted, calls the
// completion API. Granted=false with a nil error means insufficient funds.
func (s *ReadingService) Perform(ctx context.Context, userID string, mode model.FeatureKey, question string) (*ReadingResult, error) {
	debit, err := s.ledger.TryDebit(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	if !debit.Granted {
		return &ReadingResult{Granted: false, NewBalance: debit.NewBalance, Cost: debit.Cost}, nil
	}

	text, genErr := s.generator.Generate(ctx, buildPrompt(mode, question))
	if genErr == nil && strings.TrimSpace(text) == "" {
		genErr = fmt.Errorf("completion API returned empty text")
	}
	if genErr != nil {
		s.refund(ctx, userID, mode, debit.Cost, genErr)
		return nil, apperrors.GenerationFailed(genErr)
	}

	return &ReadingResult{
		Granted:    true,
		NewBalance: debit.NewBalance,
		Cost:       debit.Cost,
		Text:       text,
		BestEffort: debit.BestEffort,
	}, nil
}

func (s *ReadingService) refund(ctx context.Context, userID string, mode model.FeatureKey, cost int64, cause error) {
	if !s.refundOnFailure || cost == 0 {
		return
	}

	feature := string(mode)
	newBalance, err := s.ledger.Credit(ctx, userID, cost, model.KindCredit, &feature, "refund: generation failed")
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Int64("cost", cost).
			Msg("failed to refund debit after generation failure")
		return
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventRefund,
		UserID: userID,
		Details: map[string]interface{}{
			"feature":    feature,
			"amount":     cost,
			"newBalance": newBalance,
			"cause":      cause.Error(),
		},
	})
}

func buildPrompt(mode model.FeatureKey, question string) string {
	prompt := spreadPrompts[mode]
	if question != "" {
		prompt = fmt.Sprintf("%s The querent asks: %q", prompt, question)
	}
	return prompt
}
