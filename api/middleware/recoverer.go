package middleware

import (
	"fmt"
	"net/http"

	"github.com/bldrfitness/subscription-payments/api/responses"
	pkgerrors "github.com/bldrfitness/subscription-payments/pkg/errors"
	"github.com/bldrfitness/subscription-payments/pkg/logger"
)

func Recoverer(logg *logger.Logger, policy responses.StatusPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"panic": fmt.Sprint(rec)})
						logg.Error(ctx, "panic.recovered", err)
					}
					responses.WriteError(ctx, logg, w, policy, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
