package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/pkg/jsonutil"
)

// wireDecision is the exact field layout the model is asked to produce.
type wireDecision struct {
	Direction     string  `json:"direction"`
	Conviction    float64 `json:"conviction"`
	WinLossRatio  float64 `json:"win_loss_ratio"`
	Leverage      int     `json:"recommended_leverage"`
	StopLossPct   float64 `json:"stop_loss_percentage"`
	TakeProfitPct float64 `json:"take_profit_percentage"`
	Reasoning     string  `json:"reasoning"`
}

// ModelDecider implements Decider on top of a chat provider and the prompt
// registry. Each call gets a fresh trace ID that follows the decision through
// the ledger and any trade it opens.
type ModelDecider struct {
	provider ModelProvider
	registry *Registry
}

func NewModelDecider(provider ModelProvider, registry *Registry) *ModelDecider {
	return &ModelDecider{provider: provider, registry: registry}
}

func (d *ModelDecider) Decide(ctx context.Context, snap *market.Snapshot) (Recommendation, error) {
	traceID := uuid.NewString()
	prompt := d.registry.Snapshot()

	payload, err := json.Marshal(snap)
	if err != nil {
		return Recommendation{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	userPrompt := string(payload)

	logger.LogOracleRequest(prompt.SystemPrompt, userPrompt)
	raw, err := d.provider.Call(ctx, prompt.SystemPrompt, userPrompt)
	if err != nil {
		return Recommendation{}, fmt.Errorf("oracle call: %w", err)
	}
	logger.LogOracleResponse(raw)

	rec, err := parseReply(prompt, raw)
	if err != nil {
		return Recommendation{}, err
	}
	rec.TraceID = traceID
	return rec, nil
}

// parseReply extracts, schema-validates and range-checks one raw model reply.
func parseReply(prompt PromptSnapshot, raw string) (Recommendation, error) {
	payload, ok := jsonutil.ExtractJSON(raw)
	if !ok || !gjson.Valid(payload) {
		return Recommendation{}, fmt.Errorf("%w: no JSON object in reply", ErrInvalidResponse)
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return Recommendation{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := prompt.ValidateReply(doc); err != nil {
		return Recommendation{}, fmt.Errorf("%w: schema: %v", ErrInvalidResponse, err)
	}

	var wire wireDecision
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Recommendation{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	rec := Recommendation{
		Side:          Side(strings.ToUpper(strings.TrimSpace(wire.Direction))),
		Conviction:    wire.Conviction,
		WinLossRatio:  wire.WinLossRatio,
		Leverage:      wire.Leverage,
		StopLossPct:   wire.StopLossPct,
		TakeProfitPct: wire.TakeProfitPct,
		Rationale:     strings.TrimSpace(wire.Reasoning),
		Raw:           payload,
	}
	if err := validateRecommendation(rec); err != nil {
		return Recommendation{}, err
	}
	return rec, nil
}
