package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
)

// StatusPolicy picks the HTTP status written for an error code.
type StatusPolicy func(code pkgerrors.Code) int

// UniformStatus reports every failure as 400 Bad Request.
func UniformStatus(pkgerrors.Code) int {
	return http.StatusBadRequest
}

// DistinctStatus reports each failure with the status from its code metadata.
func DistinctStatus(code pkgerrors.Code) int {
	return pkgerrors.MetadataFor(code).HTTPStatus
}

// PolicyFor returns DistinctStatus when distinct is set and UniformStatus otherwise.
func PolicyFor(distinct bool) StatusPolicy {
	if distinct {
		return DistinctStatus
	}
	return UniformStatus
}

// ErrorBody is the JSON shape of every failure response.
type ErrorBody struct {
	Error string `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

// WriteError logs err with its full chain and writes {"error": message}.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy StatusPolicy, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	if policy == nil {
		policy = UniformStatus
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.ExposeMessage {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	if logg != nil {
		ctx = logg.WithError(ctx, err)
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, policy(typed.Code()), ErrorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
