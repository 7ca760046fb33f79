package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"deal-finder-api/internal/models"
)

// Generator sends one prompt to a generative model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DealFetcher produces validated deals for a product name, cheapest first.
type DealFetcher interface {
	FetchDeals(ctx context.Context, productName string) ([]models.Deal, error)
}

var fencePattern = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// dealPayload mirrors one array element. Pointer fields let missing keys be
// told apart from zero values.
type dealPayload struct {
	ProductName *string  `validate:"required,min=1"`
	Platform    *string  `validate:"required,platform"`
	Price       *float64 `validate:"required,gte=0"`
	Rating      *float64 `validate:"required,gte=0,lte=5"`
	ImageURL    *string  `validate:"required"`
	ProductURL  *string  `validate:"required"`
}

// fields maps each exact JSON key to its destination. encoding/json matches
// struct tags case-insensitively, so keys are looked up by hand instead.
func (p *dealPayload) fields() map[string]any {
	return map[string]any{
		"productName": &p.ProductName,
		"platform":    &p.Platform,
		"price":       &p.Price,
		"rating":      &p.Rating,
		"imageUrl":    &p.ImageURL,
		"productUrl":  &p.ProductURL,
	}
}

type DealService struct {
	generator Generator
	validate  *validator.Validate
}

func NewDealService(generator Generator) *DealService {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return models.Platform(fl.Field().String()).IsValid()
	})

	return &DealService{generator: generator, validate: v}
}

// FetchDeals issues exactly one model request for productName and returns the
// validated deals sorted by ascending price. Any failure is a *FetchError.
func (s *DealService) FetchDeals(ctx context.Context, productName string) ([]models.Deal, error) {
	start := time.Now()

	text, err := s.generator.Generate(ctx, BuildPrompt(productName))
	if err != nil {
		log.Printf("Deal fetch for '%s' failed after %v: %v", productName, time.Since(start), err)
		return nil, &FetchError{Kind: ErrTransportFailure, Cause: err}
	}

	deals, err := s.ParseDeals(text)
	if err != nil {
		log.Printf("Deal fetch for '%s' rejected: %v", productName, err)
		return nil, err
	}

	log.Printf("Deal fetch for '%s' returned %d deals in %v", productName, len(deals), time.Since(start))
	return deals, nil
}

// ParseDeals turns raw model text into sorted deals. A single invalid element
// rejects the whole response.
func (s *DealService) ParseDeals(text string) ([]models.Deal, error) {
	body := StripCodeFence(text)

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, &FetchError{Kind: ErrMalformedResponse, Cause: err}
	}

	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, &FetchError{Kind: ErrInvalidSchema, Cause: fmt.Errorf("expected a JSON array")}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, &FetchError{Kind: ErrInvalidSchema, Cause: err}
	}

	deals := make([]models.Deal, 0, len(elements))
	for i, element := range elements {
		deal, err := s.validateDeal(element)
		if err != nil {
			return nil, &FetchError{Kind: ErrInvalidSchema, Cause: fmt.Errorf("element %d: %w", i, err)}
		}
		deal.ID = i
		deals = append(deals, deal)
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Price < deals[j].Price
	})

	return deals, nil
}

func (s *DealService) validateDeal(element json.RawMessage) (models.Deal, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(element, &object); err != nil {
		return models.Deal{}, err
	}

	var payload dealPayload
	for key, dest := range payload.fields() {
		value, ok := object[key]
		if !ok {
			return models.Deal{}, fmt.Errorf("missing field %q", key)
		}
		if err := json.Unmarshal(value, dest); err != nil {
			return models.Deal{}, fmt.Errorf("field %q: %w", key, err)
		}
	}
	if err := s.validate.Struct(payload); err != nil {
		return models.Deal{}, err
	}

	return models.Deal{
		ProductName: *payload.ProductName,
		Platform:    models.Platform(*payload.Platform),
		Price:       *payload.Price,
		Rating:      *payload.Rating,
		ImageURL:    *payload.ImageURL,
		ProductURL:  *payload.ProductURL,
	}, nil
}

// StripCodeFence trims text and, if it is wrapped in a ``` fence with an
// optional language tag, returns only the inner content.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if match := fencePattern.FindStringSubmatch(trimmed); match != nil && match[2] != "" {
		return strings.TrimSpace(match[2])
	}
	return trimmed
}
