package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
)

// DescriptionsStore defines the database operations required by DescriptionsProcessor
type DescriptionsStore interface {
	GetPropertyByID(ctx context.Context, propertyID uuid.UUID) (store.Property, error)
	InsertAIDescriptions(ctx context.Context, params []store.InsertAIDescriptionParams) ([]store.AIDescription, error)
	ListAIDescriptionsByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]store.AIDescription, error)
}

// TextGenerator produces n text variants for a prompt
type TextGenerator interface {
	GenerateVariants(ctx context.Context, prompt string, n int) ([]string, error)
	ModelName() string
}

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrGenerationFailed = errors.New("text generation failed")
)

const (
	defaultVariantCount = 3
	maxVariantCount     = 5

	// placeholderCostPerVariant stands in until per-provider cost accounting
	// is wired to real pricing.
	placeholderCostPerVariant = 500
)

type DescriptionsProcessor struct {
	store     DescriptionsStore
	generator TextGenerator
	logger    *observability.Logger
}

func New(store DescriptionsStore, generator TextGenerator, logger *observability.Logger) DescriptionsProcessor {
	return DescriptionsProcessor{
		store:     store,
		generator: generator,
		logger:    logger,
	}
}

// GenerateParams represents parameters for generating description variants
type GenerateParams struct {
	PropertyID   uuid.UUID
	Tone         string
	Length       string
	Focus        string
	VariantCount int
}

// Generate builds a prompt from the property's attributes, requests variants
// from the configured provider, and persists each one with its 1-based index.
func (p *DescriptionsProcessor) Generate(ctx context.Context, agentID uuid.UUID, params GenerateParams) ([]store.AIDescription, error) {
	property, err := p.store.GetPropertyByID(ctx, params.PropertyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPropertyNotFound
		}
		p.logger.Error(ctx, "failed to fetch property", err)
		return nil, err
	}

	variantCount := params.VariantCount
	if variantCount < 1 {
		variantCount = defaultVariantCount
	}
	if variantCount > maxVariantCount {
		variantCount = maxVariantCount
	}

	prompt := BuildPrompt(property, PromptOptions{
		Tone:   params.Tone,
		Length: params.Length,
		Focus:  params.Focus,
	})

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "property_id", Value: property.ID.String()},
		observability.Field{Key: "model", Value: p.generator.ModelName()},
	)

	variants, err := p.generator.GenerateVariants(ctx, prompt, variantCount)
	if err != nil {
		p.logger.Error(ctx, "failed to generate description variants", err)
		return nil, ErrGenerationFailed
	}
	if len(variants) == 0 {
		return nil, ErrGenerationFailed
	}

	insertParams := make([]store.InsertAIDescriptionParams, 0, len(variants))
	for i, text := range variants {
		insertParams = append(insertParams, store.InsertAIDescriptionParams{
			PropertyID:    property.ID,
			AgentID:       agentID,
			PromptUsed:    prompt,
			Model:         p.generator.ModelName(),
			GeneratedText: text,
			VariantIndex:  i + 1,
			TokensUsed:    estimateTokens(prompt, text),
			CostIncurred:  placeholderCostPerVariant,
		})
	}

	descriptions, err := p.store.InsertAIDescriptions(ctx, insertParams)
	if err != nil {
		p.logger.Error(ctx, "failed to persist description variants", err)
		return nil, err
	}
	return descriptions, nil
}

// ListByProperty returns all generated variants for a property, newest batch last
func (p *DescriptionsProcessor) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]store.AIDescription, error) {
	if _, err := p.store.GetPropertyByID(ctx, propertyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return p.store.ListAIDescriptionsByPropertyID(ctx, propertyID)
}

// estimateTokens approximates usage at four characters per token. Real counts
// vary per provider tokenizer; this only feeds reporting, not billing.
func estimateTokens(prompt, completion string) int {
	return (len(prompt) + len(completion)) / 4
}
