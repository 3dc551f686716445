package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/audit"
	"github.com/discountcodes/discount-server-go/internal/codegen"
	apperrors "github.com/discountcodes/discount-server-go/internal/errors"
	"github.com/discountcodes/discount-server-go/internal/metrics"
	"github.com/discountcodes/discount-server-go/internal/model"
	"github.com/discountcodes/discount-server-go/internal/repository"
)

// MaxGenerateAttempts bounds the generate/insert rounds of one Generate call.
const MaxGenerateAttempts = 5

type DiscountService struct {
	repo      repository.DiscountCodeRepository
	generator codegen.Generator
}

func NewDiscountService(repo repository.DiscountCodeRepository, generator codegen.Generator) *DiscountService {
	return &DiscountService{repo: repo, generator: generator}
}

// Generate stores count new codes of the given length. It reports true only when
// exactly count codes were newly inserted by this call; codes inserted before the
// attempts ran out are kept either way.
func (s *DiscountService) Generate(ctx context.Context, count, length int) (bool, error) {
	if count < 1 || count > model.MaxGenerateCount || !model.IsValidCodeLength(length) {
		metrics.ObserveGenerate("rejected", length, 0, 0)
		log.Debug().Int("count", count).Int("length", length).Msg("generate request rejected")
		return false, nil
	}

	needed := count
	attempts := 0
	for needed > 0 && attempts < MaxGenerateAttempts {
		attempts++

		candidates, err := s.generator.Generate(needed, length)
		if err != nil {
			metrics.ObserveGenerate("error", length, count-needed, attempts)
			return false, apperrors.Internal("Code generation failed").WithCause(err)
		}

		inserted, err := s.repo.InsertIfAbsent(ctx, candidates)
		if err != nil {
			metrics.ObserveGenerate("error", length, count-needed, attempts)
			return false, apperrors.Database(err)
		}

		needed -= inserted
		if inserted < len(candidates) {
			log.Debug().
				Int("attempt", attempts).
				Int("collisions", len(candidates)-inserted).
				Msg("generated codes collided with stored codes")
		}
	}

	if needed > 0 {
		metrics.ObserveGenerate("exhausted", length, count-needed, attempts)
		audit.Log(audit.Event{
			Type: audit.EventGenerateExhausted,
			Details: map[string]interface{}{
				"count":    count,
				"length":   length,
				"missing":  needed,
				"attempts": attempts,
			},
		})
		return false, nil
	}

	metrics.ObserveGenerate("done", length, count, attempts)
	audit.Log(audit.Event{
		Type: audit.EventCodesGenerated,
		Details: map[string]interface{}{
			"count":    count,
			"length":   length,
			"attempts": attempts,
		},
	})
	return true, nil
}

// UseCode redeems code. The conditional update decides the outcome; the status
// read before it only short-circuits codes that are missing or already used.
func (s *DiscountService) UseCode(ctx context.Context, code string) (model.UseCodeResult, error) {
	if !isWellFormedCode(code) {
		metrics.IncRedemption(model.UseCodeInvalidFormat.String())
		return model.UseCodeInvalidFormat, nil
	}

	status, err := s.repo.GetStatus(ctx, code)
	if err != nil {
		return 0, apperrors.Database(err)
	}

	result := model.UseCodeSuccess
	switch {
	case !status.Exists:
		result = model.UseCodeNotFound
	case status.IsUsed:
		result = model.UseCodeAlreadyUsed
	default:
		ok, err := s.repo.TryMarkUsed(ctx, code)
		if err != nil {
			return 0, apperrors.Database(err)
		}
		if !ok {
			result = model.UseCodeAlreadyUsed
		}
	}

	metrics.IncRedemption(result.String())
	event := audit.Event{Type: audit.EventCodeRedeemed, Code: code}
	if result != model.UseCodeSuccess {
		event.Type = audit.EventRedeemRejected
		event.Details = map[string]interface{}{"result": result.String()}
	}
	audit.Log(event)
	return result, nil
}

// Stats summarizes the stored codes.
func (s *DiscountService) Stats(ctx context.Context) (*model.CodeStats, error) {
	stats, err := s.repo.CountStats(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return stats, nil
}

// Lookup returns the stored record for code without redeeming it.
func (s *DiscountService) Lookup(ctx context.Context, code string) (*model.DiscountCode, error) {
	if !isWellFormedCode(code) {
		return nil, apperrors.ValidationError("Code must be 7 or 8 characters long")
	}

	dc, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if dc == nil {
		return nil, apperrors.NotFound("Code")
	}
	return dc, nil
}

// isWellFormedCode counts characters, not bytes, so a multibyte code of the
// wrong length never reaches the store.
func isWellFormedCode(code string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	return model.IsValidCodeLength(utf8.RuneCountInString(code))
}
