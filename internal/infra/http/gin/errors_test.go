package ginserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apppayment "carrental/internal/app/handlers/payment"
	appuow "carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	mongostore "carrental/internal/infra/db/mongo"
)

func TestRespondError(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"car missing", domaincar.ErrCarNotFound, http.StatusNotFound},
		{"booking missing", domainbooking.ErrBookingNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", domainbooking.ErrBookingNotFound), http.StatusNotFound},
		{"forbidden", domainbooking.ErrForbidden, http.StatusForbidden},
		{"admin required", identity.ErrNotAdministrator, http.StatusForbidden},
		{"processor down", apppayment.ErrProcessorFailure, http.StatusBadGateway},
		{"overlap", domainbooking.ErrOverlapConflict, http.StatusBadRequest},
		{"own overlap", domainbooking.ErrOwnOverlap, http.StatusBadRequest},
		{"bad transition", domainbooking.ErrInvalidTransition, http.StatusBadRequest},
		{"admin booking", domainbooking.ErrAdminCannotBook, http.StatusBadRequest},
		{"already paid", apppayment.ErrAlreadyPaid, http.StatusBadRequest},
		{"payment declined", fmt.Errorf("%w: intent status %q", apppayment.ErrPaymentDeclined, "failed"), http.StatusBadRequest},
		{"serialization conflict", appuow.ErrConcurrentConflict, http.StatusBadRequest},
		{"store-level conflict", mongostore.ErrConcurrentUpdate, http.StatusBadRequest},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			respondError(c, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondError(c, errors.New("dsn=mongodb://secret"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), "internal error")
}
