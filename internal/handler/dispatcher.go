package handler

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/discountcodes/discount-server-go/internal/errors"
	"github.com/discountcodes/discount-server-go/internal/metrics"
	"github.com/discountcodes/discount-server-go/internal/model"
	"github.com/discountcodes/discount-server-go/internal/protocol"
)

// InternalErrorMessage is sent in place of any error whose detail must stay server side.
const InternalErrorMessage = "An internal server error occurred."

// CodeService is the part of service.DiscountService the dispatcher drives.
type CodeService interface {
	Generate(ctx context.Context, count, length int) (bool, error)
	UseCode(ctx context.Context, code string) (model.UseCodeResult, error)
}

// Dispatcher turns one request frame into exactly one response frame.
type Dispatcher struct {
	svc CodeService
}

func NewDispatcher(svc CodeService) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Handle never fails: decode and service errors are answered with an errorResponse frame.
func (d *Dispatcher) Handle(ctx context.Context, frame []byte) []byte {
	resp := d.dispatch(ctx, frame)

	out, err := protocol.Encode(resp)
	if err != nil {
		log.Error().Err(err).Str("type", resp.MessageType().String()).Msg("failed to encode response")
		out, _ = protocol.Encode(protocol.ErrorResponse{Message: InternalErrorMessage})
	}
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, frame []byte) protocol.Message {
	req, err := protocol.DecodeRequest(frame)
	if err != nil {
		metrics.IncMessage("invalid")
		return errorResponse(err)
	}
	metrics.IncMessage(req.MessageType().String())

	switch r := req.(type) {
	case protocol.GenerateRequest:
		ok, err := d.svc.Generate(ctx, int(r.Count), int(r.Length))
		if err != nil {
			return errorResponse(err)
		}
		return protocol.GenerateResponse{Result: ok}

	case protocol.UseCodeRequest:
		result, err := d.svc.UseCode(ctx, r.Code)
		if err != nil {
			return errorResponse(err)
		}
		return protocol.UseCodeResponse{Result: result}

	default:
		return errorResponse(apperrors.UnknownMessageType(req.MessageType().String()))
	}
}

func errorResponse(err error) protocol.ErrorResponse {
	if apperrors.IsClientFacing(err) {
		appErr, _ := apperrors.AsAppError(err)
		log.Debug().Err(err).Msg("rejected message")
		return protocol.ErrorResponse{Message: appErr.Message}
	}

	log.Error().Err(err).Msg("request failed")
	return protocol.ErrorResponse{Message: InternalErrorMessage}
}
