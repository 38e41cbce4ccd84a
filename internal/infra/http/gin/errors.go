package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	appbooking "carrental/internal/app/handlers/booking"
	apppayment "carrental/internal/app/handlers/payment"
	appuow "carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	"carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/money"
	"carrental/internal/infra/storage/s3"
)

// respondError maps sentinel errors onto HTTP statuses. Unknown errors are
// reported as 500 without leaking details.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domaincar.ErrCarNotFound),
		errors.Is(err, domainbooking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrForbidden),
		errors.Is(err, identity.ErrNotAdministrator):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apppayment.ErrProcessorFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, appuow.ErrConcurrentConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": appuow.ErrConcurrentConflict.Error()})
	case isDomainRejection(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func isDomainRejection(err error) bool {
	for _, sentinel := range []error{
		domainbooking.ErrInvalidTransition,
		domainbooking.ErrOverlapConflict,
		domainbooking.ErrOwnOverlap,
		domainbooking.ErrAdminCannotBook,
		domainbooking.ErrNoPaymentIntent,
		domaincar.ErrInvalidDailyRate,
		domaincar.ErrNameRequired,
		daterange.ErrEndBeforeStart,
		appbooking.ErrMissingDates,
		money.ErrInvalidCurrency,
		money.ErrCurrencyMismatch,
		apppayment.ErrAlreadyPaid,
		apppayment.ErrPaymentDeclined,
		s3.ErrUnsupportedImageType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
